package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wadjakorntonsri/go-shortlinks/pkg/core/domain"
	"github.com/wadjakorntonsri/go-shortlinks/pkg/core/shortcode"
	"github.com/wadjakorntonsri/go-shortlinks/pkg/core/urlvalidator"
	"github.com/wadjakorntonsri/go-shortlinks/pkg/ports"
)

const linkComponent = "link_service"

type LinkService struct {
	repo   ports.LinkRepository
	events ports.EventSink
	alloc  *shortcode.Allocator
	now    func() time.Time
	newID  func() string

	// mu serializes batches so the shortcode snapshot can't go stale in-process.
	mu sync.Mutex
}

func NewLinkService(repo ports.LinkRepository, opts ...Option) *LinkService {
	o := buildOptions(opts)
	return &LinkService{
		repo:   repo,
		events: o.events,
		alloc:  o.alloc,
		now:    o.now,
		newID:  o.newID,
	}
}

// CreateLinks validates every entry of the batch and persists all of them in
// one write, or none. A rejected batch returns *domain.BatchError.
func (s *LinkService) CreateLinks(ctx context.Context, reqs []domain.CreationRequest) ([]domain.ShortLink, error) {
	if len(reqs) == 0 || len(reqs) > domain.MaxBatchSize {
		s.emit(ctx, domain.SeverityWarn, fmt.Sprintf("rejected batch of %d links", len(reqs)))
		return nil, domain.ErrInvalidBatchSize
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	taken, err := s.repo.ListShortcodes(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrCorruptData) {
			s.emit(ctx, domain.SeverityError, "listing shortcodes: "+err.Error())
			return nil, fmt.Errorf("listing shortcodes: %w", err)
		}
		s.emit(ctx, domain.SeverityWarn, "stored data is corrupt, treating it as empty")
		taken = map[string]struct{}{}
	}

	customs := make([]string, len(reqs))
	inBatch := make(map[string]int)
	for i, req := range reqs {
		customs[i] = strings.TrimSpace(req.CustomShortcode)
		if customs[i] != "" {
			inBatch[customs[i]]++
		}
	}

	urls := make([]string, len(reqs))
	rejected := &domain.BatchError{}
	for i, req := range reqs {
		normalized, err := validateEntry(req, customs[i], taken, inBatch)
		if err != nil {
			rejected.Add(i, err)
			s.emit(ctx, domain.SeverityWarn, fmt.Sprintf("validation failed for entry %d: %v", i+1, err))
			continue
		}
		urls[i] = normalized
	}
	if len(rejected.Entries) > 0 {
		return nil, rejected
	}

	// Custom codes are claimed before any generated code is drawn.
	assigned := make(map[string]struct{}, len(taken)+len(reqs))
	for code := range taken {
		assigned[code] = struct{}{}
	}
	for _, code := range customs {
		if code != "" {
			assigned[code] = struct{}{}
		}
	}

	now := s.now().UTC()
	links := make([]domain.ShortLink, 0, len(reqs))
	for i, req := range reqs {
		code := customs[i]
		if code == "" {
			code, err = s.alloc.Allocate(assigned)
			if err != nil {
				s.emit(ctx, domain.SeverityError, fmt.Sprintf("allocation failed for entry %d: %v", i+1, err))
				rejected.Add(i, err)
				return nil, rejected
			}
			assigned[code] = struct{}{}
			s.emit(ctx, domain.SeverityDebug, "allocated shortcode "+code)
		}

		links = append(links, domain.ShortLink{
			ID:              s.newID(),
			OriginalURL:     urls[i],
			ShortCode:       code,
			CreatedAt:       now,
			ValidityMinutes: req.ValidityMinutes,
			ExpiresAt:       now.Add(time.Duration(req.ValidityMinutes) * time.Minute),
			IsActive:        true,
			Clicks:          []domain.ClickRecord{},
		})
	}

	if err := s.repo.SaveBatch(ctx, links); err != nil {
		s.emit(ctx, domain.SeverityError, "saving batch: "+err.Error())
		if errors.Is(err, domain.ErrPersistenceFailure) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
	}

	for _, l := range links {
		s.emit(ctx, domain.SeverityInfo, fmt.Sprintf("created %s -> %s", l.ShortCode, l.OriginalURL))
	}
	return links, nil
}

// validateEntry returns the first failure for one entry, checking the URL,
// then the custom code, then the validity period.
func validateEntry(req domain.CreationRequest, code string, taken map[string]struct{}, inBatch map[string]int) (string, error) {
	normalized, err := urlvalidator.Validate(req.URL)
	if err != nil {
		return "", err
	}

	if code != "" {
		if err := shortcode.Validate(code); err != nil {
			return "", err
		}
		if !shortcode.IsUnique(code, taken) || inBatch[code] > 1 {
			return "", domain.ErrShortcodeInUse
		}
	}

	if req.ValidityMinutes < domain.MinValidityMinutes || req.ValidityMinutes > domain.MaxValidityMinutes {
		return "", domain.ErrInvalidValidityPeriod
	}
	return normalized, nil
}

// Resolve looks up code and, when the link is resolvable, records a click and
// returns a redirecting outcome. A failed click write never blocks the redirect.
func (s *LinkService) Resolve(ctx context.Context, code string, rc domain.RequestContext) domain.ResolveOutcome {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.ResolveOutcome{
			Status: domain.StatusMissingInput,
			Reason: "No shortcode provided",
		}
	}

	link, err := s.repo.FindByCode(ctx, code)
	if errors.Is(err, domain.ErrCorruptData) {
		s.emit(ctx, domain.SeverityWarn, "stored data is corrupt, treating it as empty")
		link, err = nil, nil
	}
	if err != nil {
		s.emit(ctx, domain.SeverityError, fmt.Sprintf("looking up %s: %v", code, err))
		return domain.ResolveOutcome{
			Status:    domain.StatusStoreFailure,
			ShortCode: code,
			Reason:    "The link could not be loaded, try again later",
			Err:       err,
		}
	}
	if link == nil {
		s.emit(ctx, domain.SeverityWarn, "shortcode not found: "+code)
		return domain.ResolveOutcome{
			Status:    domain.StatusNotFound,
			ShortCode: code,
			Reason:    "Short URL not found",
		}
	}

	now := s.now().UTC()
	if link.IsExpired(now) {
		s.emit(ctx, domain.SeverityInfo, "shortcode expired: "+code)
		return domain.ResolveOutcome{
			Status:    domain.StatusExpired,
			ShortCode: code,
			Reason:    "This short URL expired on " + link.ExpiresAt.Format(time.RFC1123),
		}
	}
	if !link.IsActive {
		s.emit(ctx, domain.SeverityInfo, "shortcode deactivated: "+code)
		return domain.ResolveOutcome{
			Status:    domain.StatusDeactivated,
			ShortCode: code,
			Reason:    "This short URL has been deactivated",
		}
	}

	out := domain.ResolveOutcome{
		Status:      domain.StatusRedirecting,
		ShortCode:   code,
		Destination: link.OriginalURL,
		Reason:      "Redirecting to " + link.OriginalURL,
	}

	click := domain.ClickRecord{
		Timestamp: now,
		UserAgent: rc.UserAgent,
		Referrer:  referrerOrDirect(rc.Referrer),
		IPHash:    hashIP(rc.IP),
	}
	switch err := s.repo.RecordClick(ctx, link.ShortCode, click); {
	case err == nil:
		s.emit(ctx, domain.SeverityDebug, "click recorded for "+code)
	case errors.Is(err, domain.ErrNotFound):
		// Cleared between lookup and write; the redirect still stands.
		s.emit(ctx, domain.SeverityWarn, "link vanished before click was recorded: "+code)
	default:
		out.ClickErr = err
		s.emit(ctx, domain.SeverityError, fmt.Sprintf("recording click for %s: %v", code, err))
	}

	s.emit(ctx, domain.SeverityInfo, fmt.Sprintf("redirecting %s -> %s", code, link.OriginalURL))
	return out
}

// Deactivate marks a link inactive. Its code stays reserved.
func (s *LinkService) Deactivate(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.ErrEmptyInput
	}

	if err := s.repo.Deactivate(ctx, code); err != nil {
		s.emit(ctx, domain.SeverityWarn, fmt.Sprintf("deactivating %s: %v", code, err))
		return err
	}
	s.emit(ctx, domain.SeverityInfo, "deactivated "+code)
	return nil
}

// ClearAll removes every link and click. It is irreversible.
func (s *LinkService) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.ClearAll(ctx); err != nil {
		s.emit(ctx, domain.SeverityError, "clearing links: "+err.Error())
		return err
	}
	s.emit(ctx, domain.SeverityWarn, "all links cleared")
	return nil
}

func (s *LinkService) emit(ctx context.Context, sev domain.Severity, msg string) {
	s.events.Emit(ctx, domain.Event{Severity: sev, Component: linkComponent, Message: msg})
}

func referrerOrDirect(ref string) string {
	if strings.TrimSpace(ref) == "" {
		return domain.DirectReferrer
	}
	return ref
}

// Simple privacy hash, the raw address is never stored
func hashIP(ip string) string {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:])
}
