package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/wadjakorntonsri/go-shortlinks/pkg/core/domain"
	"github.com/wadjakorntonsri/go-shortlinks/pkg/ports"
)

const statsComponent = "stats_service"

const corruptDataWarning = "Stored link data could not be read; showing an empty dataset"

type StatsService struct {
	repo   ports.LinkRepository
	events ports.EventSink
	now    func() time.Time
}

func NewStatsService(repo ports.LinkRepository, opts ...Option) *StatsService {
	o := buildOptions(opts)
	return &StatsService{repo: repo, events: o.events, now: o.now}
}

// Snapshot aggregates every stored link. Corrupt storage yields an empty
// snapshot carrying a warning instead of an error.
func (s *StatsService) Snapshot(ctx context.Context) (*domain.StatsSnapshot, error) {
	now := s.now().UTC()
	snap := &domain.StatsSnapshot{
		GeneratedAt: now,
		Links:       []domain.LinkStats{},
	}

	links, err := s.repo.GetAll(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrCorruptData) {
			s.emit(ctx, domain.SeverityWarn, "stats over corrupt data: "+err.Error())
			snap.Warning = corruptDataWarning
			return snap, nil
		}
		s.emit(ctx, domain.SeverityError, "loading links: "+err.Error())
		return nil, fmt.Errorf("loading links: %w", err)
	}

	snap.TotalLinks = len(links)
	for i := range links {
		ls := buildLinkStats(&links[i], now)
		snap.TotalClicks += ls.TotalClicks
		switch ls.Status {
		case domain.LinkActive:
			snap.ActiveLinks++
		case domain.LinkExpired:
			snap.ExpiredLinks++
		}
		snap.Links = append(snap.Links, ls)
	}

	slices.SortStableFunc(snap.Links, func(a, b domain.LinkStats) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	s.emit(ctx, domain.SeverityDebug, fmt.Sprintf("stats computed over %d links", snap.TotalLinks))
	return snap, nil
}

// Link returns the stats view of a single link, or domain.ErrNotFound.
func (s *StatsService) Link(ctx context.Context, code string) (*domain.LinkStats, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.ErrEmptyInput
	}

	link, err := s.repo.FindByCode(ctx, code)
	if errors.Is(err, domain.ErrCorruptData) {
		s.emit(ctx, domain.SeverityWarn, "stored data is corrupt, treating it as empty")
		link, err = nil, nil
	}
	if err != nil {
		s.emit(ctx, domain.SeverityError, fmt.Sprintf("looking up %s: %v", code, err))
		return nil, fmt.Errorf("looking up %s: %w", code, err)
	}
	if link == nil {
		return nil, domain.ErrNotFound
	}

	ls := buildLinkStats(link, s.now().UTC())
	return &ls, nil
}

func buildLinkStats(l *domain.ShortLink, now time.Time) domain.LinkStats {
	ls := domain.LinkStats{
		ID:              l.ID,
		ShortCode:       l.ShortCode,
		OriginalURL:     l.OriginalURL,
		CreatedAt:       l.CreatedAt,
		ExpiresAt:       l.ExpiresAt,
		ValidityMinutes: l.ValidityMinutes,
		IsActive:        l.IsActive,
		Status:          l.Status(now),
		TotalClicks:     len(l.Clicks),
	}

	cutoff := now.Add(-24 * time.Hour)
	for _, c := range l.Clicks {
		if c.Timestamp.After(cutoff) {
			ls.ClicksLast24h++
		}
	}

	recent := slices.Clone(l.Clicks)
	if recent == nil {
		recent = []domain.ClickRecord{}
	}
	slices.SortStableFunc(recent, func(a, b domain.ClickRecord) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	if len(recent) > 0 {
		last := recent[0].Timestamp
		ls.LastClick = &last
	}
	if len(recent) > domain.RecentClicksLimit {
		ls.MoreClicks = len(recent) - domain.RecentClicksLimit
		recent = recent[:domain.RecentClicksLimit]
	}
	ls.RecentClicks = recent
	return ls
}

func (s *StatsService) emit(ctx context.Context, sev domain.Severity, msg string) {
	s.events.Emit(ctx, domain.Event{Severity: sev, Component: statsComponent, Message: msg})
}
