package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/wadjakorntonsri/go-shortlinks/pkg/adapters/repository/memory"
	"github.com/wadjakorntonsri/go-shortlinks/pkg/core/domain"
	"github.com/wadjakorntonsri/go-shortlinks/pkg/core/shortcode"
)

func TestLinkService_CreateLinks(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMemoryRepository()
	clock := &fakeClock{t: epoch}
	svc := newTestLinkService(repo, clock)

	links, err := svc.CreateLinks(ctx, []domain.CreationRequest{
		{URL: "example.com/a", ValidityMinutes: 30},
		{URL: "https://example.org/b", CustomShortcode: "  promo1 ", ValidityMinutes: 60},
	})
	if err != nil {
		t.Fatalf("CreateLinks() error = %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("CreateLinks() returned %d links, want 2", len(links))
	}

	first := links[0]
	if first.OriginalURL != "https://example.com/a" {
		t.Errorf("OriginalURL = %q, want normalized https URL", first.OriginalURL)
	}
	if len(first.ShortCode) != shortcode.DefaultLength {
		t.Errorf("generated code %q has length %d", first.ShortCode, len(first.ShortCode))
	}
	if !first.CreatedAt.Equal(epoch) || !first.ExpiresAt.Equal(epoch.Add(30*time.Minute)) {
		t.Errorf("timestamps = %v / %v", first.CreatedAt, first.ExpiresAt)
	}
	if !first.IsActive || len(first.Clicks) != 0 || first.ID == "" {
		t.Errorf("new link = %+v", first)
	}
	if links[1].ShortCode != "promo1" {
		t.Errorf("custom code = %q, want trimmed promo1", links[1].ShortCode)
	}
	if links[0].ID == links[1].ID {
		t.Error("links share an ID")
	}

	stored, _ := repo.GetAll(ctx)
	if len(stored) != 2 || stored[0].ShortCode != first.ShortCode {
		t.Errorf("stored = %+v", stored)
	}
}

func TestLinkService_CreateLinks_RejectsWholeBatch(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMemoryRepository()
	svc := newTestLinkService(repo, &fakeClock{t: epoch})

	reqs := []domain.CreationRequest{
		{URL: "example.com/1", ValidityMinutes: 30},
		{URL: "example.com/2", ValidityMinutes: 30},
		{URL: "http://localhost:3000", ValidityMinutes: 30},
		{URL: "example.com/4", ValidityMinutes: 30},
		{URL: "example.com/5", ValidityMinutes: 30},
	}
	_, err := svc.CreateLinks(ctx, reqs)

	var batchErr *domain.BatchError
	if !errors.As(err, &batchErr) {
		t.Fatalf("CreateLinks() error = %v, want *BatchError", err)
	}
	if len(batchErr.Entries) != 1 || batchErr.Entries[0].Index != 2 {
		t.Errorf("entries = %+v, want only index 2", batchErr.Entries)
	}
	if !errors.Is(err, domain.ErrLocalhostNotAllowed) {
		t.Errorf("error = %v, want ErrLocalhostNotAllowed", err)
	}
	if all, _ := repo.GetAll(ctx); len(all) != 0 {
		t.Errorf("store has %d links after rejected batch", len(all))
	}
}

func TestLinkService_CreateLinks_EntryValidation(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMemoryRepository()
	svc := newTestLinkService(repo, &fakeClock{t: epoch})

	if _, err := svc.CreateLinks(ctx, []domain.CreationRequest{
		{URL: "example.com", CustomShortcode: "taken1", ValidityMinutes: 30},
	}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		req  domain.CreationRequest
		want error
	}{
		{"empty url", domain.CreationRequest{URL: "  ", ValidityMinutes: 30}, domain.ErrEmptyInput},
		{"single label host", domain.CreationRequest{URL: "intranet", ValidityMinutes: 30}, domain.ErrInvalidDomainFormat},
		{"short code", domain.CreationRequest{URL: "example.com", CustomShortcode: "ab", ValidityMinutes: 30}, domain.ErrInvalidLength},
		{"bad chars", domain.CreationRequest{URL: "example.com", CustomShortcode: "ab$", ValidityMinutes: 30}, domain.ErrInvalidCharacters},
		{"reserved", domain.CreationRequest{URL: "example.com", CustomShortcode: "admin", ValidityMinutes: 30}, domain.ErrReservedWord},
		{"in use", domain.CreationRequest{URL: "example.com", CustomShortcode: "taken1", ValidityMinutes: 30}, domain.ErrShortcodeInUse},
		{"zero validity", domain.CreationRequest{URL: "example.com", ValidityMinutes: 0}, domain.ErrInvalidValidityPeriod},
		{"validity too long", domain.CreationRequest{URL: "example.com", ValidityMinutes: 43201}, domain.ErrInvalidValidityPeriod},
		{"url checked first", domain.CreationRequest{URL: "localhost", CustomShortcode: "ab", ValidityMinutes: 0}, domain.ErrLocalhostNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateLinks(ctx, []domain.CreationRequest{tt.req})
			if !errors.Is(err, tt.want) {
				t.Errorf("CreateLinks() error = %v, want %v", err, tt.want)
			}
			if !domain.IsValidation(err) {
				t.Errorf("IsValidation(%v) = false", err)
			}
		})
	}

	codes, _ := repo.ListShortcodes(ctx)
	if len(codes) != 1 {
		t.Errorf("store has %d codes, want 1", len(codes))
	}
}

func TestLinkService_CreateLinks_ValidityBounds(t *testing.T) {
	ctx := context.Background()
	svc := newTestLinkService(memory.NewMemoryRepository(), &fakeClock{t: epoch})

	links, err := svc.CreateLinks(ctx, []domain.CreationRequest{
		{URL: "example.com/min", ValidityMinutes: domain.MinValidityMinutes},
		{URL: "example.com/max", ValidityMinutes: domain.MaxValidityMinutes},
	})
	if err != nil {
		t.Fatalf("CreateLinks() error = %v", err)
	}
	if got := links[1].ExpiresAt.Sub(links[1].CreatedAt); got != 30*24*time.Hour {
		t.Errorf("max validity spans %v, want 720h", got)
	}
}

func TestLinkService_CreateLinks_DuplicateCustomCodesInBatch(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMemoryRepository()
	svc := newTestLinkService(repo, &fakeClock{t: epoch})

	_, err := svc.CreateLinks(ctx, []domain.CreationRequest{
		{URL: "example.com/1", CustomShortcode: "same1", ValidityMinutes: 30},
		{URL: "example.com/2", ValidityMinutes: 30},
		{URL: "example.com/3", CustomShortcode: "same1", ValidityMinutes: 30},
	})

	var batchErr *domain.BatchError
	if !errors.As(err, &batchErr) {
		t.Fatalf("CreateLinks() error = %v, want *BatchError", err)
	}
	for _, i := range []int{0, 2} {
		if !errors.Is(batchErr.For(i), domain.ErrShortcodeInUse) {
			t.Errorf("entry %d error = %v, want ErrShortcodeInUse", i, batchErr.For(i))
		}
	}
	if batchErr.For(1) != nil {
		t.Errorf("entry 1 error = %v, want nil", batchErr.For(1))
	}
}

func TestLinkService_CreateLinks_BatchSize(t *testing.T) {
	ctx := context.Background()
	svc := newTestLinkService(memory.NewMemoryRepository(), &fakeClock{t: epoch})

	six := make([]domain.CreationRequest, 6)
	for i := range six {
		six[i] = domain.CreationRequest{URL: fmt.Sprintf("example.com/%d", i), ValidityMinutes: 30}
	}

	for _, reqs := range [][]domain.CreationRequest{nil, six} {
		if _, err := svc.CreateLinks(ctx, reqs); !errors.Is(err, domain.ErrInvalidBatchSize) {
			t.Errorf("CreateLinks(%d entries) error = %v, want ErrInvalidBatchSize", len(reqs), err)
		}
	}
}

func TestLinkService_CreateLinks_AllocationExhausted(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMemoryRepository()
	svc := newTestLinkService(repo, &fakeClock{t: epoch}, WithAllocator(shortcode.NewAllocator(3, 1)))

	// One attempt per entry over a 3-char space: a draw collides within a few hundred links.
	var err error
	for i := 0; i < 5000 && err == nil; i++ {
		_, err = svc.CreateLinks(ctx, []domain.CreationRequest{{URL: "example.com", ValidityMinutes: 30}})
	}
	if !errors.Is(err, domain.ErrAllocationExhausted) {
		t.Fatalf("error = %v, want ErrAllocationExhausted", err)
	}
	var batchErr *domain.BatchError
	if !errors.As(err, &batchErr) || batchErr.For(0) == nil {
		t.Errorf("exhaustion not reported on the entry: %v", err)
	}
}

func TestLinkService_CreateLinks_PersistenceFailure(t *testing.T) {
	ctx := context.Background()
	repo := &failingRepo{MemoryRepository: memory.NewMemoryRepository(), saveErr: errors.New("disk full")}
	sink := &recordingSink{}
	svc := NewLinkService(repo, WithClock((&fakeClock{t: epoch}).Now), WithEvents(sink))

	links, err := svc.CreateLinks(ctx, []domain.CreationRequest{{URL: "example.com", ValidityMinutes: 30}})
	if !errors.Is(err, domain.ErrPersistenceFailure) {
		t.Fatalf("CreateLinks() error = %v, want ErrPersistenceFailure", err)
	}
	if links != nil {
		t.Errorf("links = %+v, want nil", links)
	}
	if !sink.has(domain.SeverityError, "disk full") {
		t.Error("no error event for the failed save")
	}
}

func TestLinkService_CreateLinks_CorruptStoreTreatedAsEmpty(t *testing.T) {
	ctx := context.Background()
	repo := &failingRepo{MemoryRepository: memory.NewMemoryRepository(), listErr: domain.ErrCorruptData}
	sink := &recordingSink{}
	svc := NewLinkService(repo, WithClock((&fakeClock{t: epoch}).Now), WithEvents(sink))

	if _, err := svc.CreateLinks(ctx, []domain.CreationRequest{{URL: "example.com", ValidityMinutes: 30}}); err != nil {
		t.Fatalf("CreateLinks() error = %v", err)
	}
	if !sink.has(domain.SeverityWarn, "corrupt") {
		t.Error("no warning event for corrupt data")
	}
}

func TestLinkService_Resolve(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMemoryRepository()
	clock := &fakeClock{t: epoch}
	svc := newTestLinkService(repo, clock)

	links, err := svc.CreateLinks(ctx, []domain.CreationRequest{
		{URL: "example.com/live", CustomShortcode: "live1", ValidityMinutes: 60},
		{URL: "example.com/short", CustomShortcode: "short1", ValidityMinutes: 1},
		{URL: "example.com/off", CustomShortcode: "off1", ValidityMinutes: 60},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Deactivate(ctx, "off1"); err != nil {
		t.Fatal(err)
	}
	clock.Advance(2 * time.Minute)

	tests := []struct {
		code string
		want domain.ResolveStatus
	}{
		{"live1", domain.StatusRedirecting},
		{"short1", domain.StatusExpired},
		{"off1", domain.StatusDeactivated},
		{"zzzzzz", domain.StatusNotFound},
		{"   ", domain.StatusMissingInput},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			out := svc.Resolve(ctx, tt.code, domain.RequestContext{})
			if out.Status != tt.want {
				t.Fatalf("Resolve(%q) = %s, want %s", tt.code, out.Status, tt.want)
			}
			if out.Reason == "" {
				t.Error("outcome has no reason")
			}
			if out.Redirecting() != (out.Destination != "") {
				t.Errorf("destination %q on status %s", out.Destination, out.Status)
			}
		})
	}

	if out := svc.Resolve(ctx, "live1", domain.RequestContext{}); out.Destination != links[0].OriginalURL {
		t.Errorf("Destination = %q, want %q", out.Destination, links[0].OriginalURL)
	}

	// Only the two redirects recorded clicks.
	all, _ := repo.GetAll(ctx)
	clicks := 0
	for _, l := range all {
		clicks += len(l.Clicks)
	}
	if clicks != 2 {
		t.Errorf("total clicks = %d, want 2", clicks)
	}
	if codes, _ := repo.ListShortcodes(ctx); len(codes) != 3 {
		t.Errorf("NotFound resolution changed the store: %d codes", len(codes))
	}
}

func TestLinkService_Resolve_ExpiredBeatsDeactivated(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: epoch}
	svc := newTestLinkService(memory.NewMemoryRepository(), clock)

	if _, err := svc.CreateLinks(ctx, []domain.CreationRequest{{URL: "example.com", CustomShortcode: "both1", ValidityMinutes: 1}}); err != nil {
		t.Fatal(err)
	}
	if err := svc.Deactivate(ctx, "both1"); err != nil {
		t.Fatal(err)
	}
	clock.Advance(time.Hour)

	if out := svc.Resolve(ctx, "both1", domain.RequestContext{}); out.Status != domain.StatusExpired {
		t.Errorf("Resolve() = %s, want expired", out.Status)
	}
}

func TestLinkService_Resolve_RecordsClick(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMemoryRepository()
	clock := &fakeClock{t: epoch}
	svc := newTestLinkService(repo, clock)

	if _, err := svc.CreateLinks(ctx, []domain.CreationRequest{{URL: "example.com", CustomShortcode: "click1", ValidityMinutes: 30}}); err != nil {
		t.Fatal(err)
	}
	clock.Advance(time.Minute)

	svc.Resolve(ctx, "click1", domain.RequestContext{UserAgent: "curl/8.0", IP: "203.0.113.7"})
	svc.Resolve(ctx, "click1", domain.RequestContext{Referrer: "https://news.example.com"})

	l, _ := repo.FindByCode(ctx, "click1")
	if len(l.Clicks) != 2 {
		t.Fatalf("clicks = %d, want 2", len(l.Clicks))
	}
	first := l.Clicks[0]
	if first.Referrer != domain.DirectReferrer || first.UserAgent != "curl/8.0" {
		t.Errorf("first click = %+v", first)
	}
	if !first.Timestamp.Equal(epoch.Add(time.Minute)) {
		t.Errorf("click timestamp = %v", first.Timestamp)
	}
	if first.IPHash == "" || first.IPHash == "203.0.113.7" || len(first.IPHash) != 64 {
		t.Errorf("IPHash = %q, want a sha256 hex digest", first.IPHash)
	}
	if l.Clicks[1].Referrer != "https://news.example.com" || l.Clicks[1].IPHash != "" {
		t.Errorf("second click = %+v", l.Clicks[1])
	}
}

func TestLinkService_Resolve_ClickFailureStillRedirects(t *testing.T) {
	ctx := context.Background()
	repo := &failingRepo{MemoryRepository: memory.NewMemoryRepository()}
	sink := &recordingSink{}
	svc := NewLinkService(repo, WithClock((&fakeClock{t: epoch}).Now), WithEvents(sink))

	if _, err := svc.CreateLinks(ctx, []domain.CreationRequest{{URL: "example.com", CustomShortcode: "flaky1", ValidityMinutes: 30}}); err != nil {
		t.Fatal(err)
	}

	repo.clickErr = fmt.Errorf("%w: locked", domain.ErrPersistenceFailure)
	out := svc.Resolve(ctx, "flaky1", domain.RequestContext{})
	if !out.Redirecting() || out.Destination != "https://example.com" {
		t.Fatalf("Resolve() = %+v, want redirect", out)
	}
	if !errors.Is(out.ClickErr, domain.ErrPersistenceFailure) {
		t.Errorf("ClickErr = %v", out.ClickErr)
	}
	if !sink.has(domain.SeverityError, "recording click") {
		t.Error("no error event for the failed click")
	}

	repo.clickErr = domain.ErrNotFound
	out = svc.Resolve(ctx, "flaky1", domain.RequestContext{})
	if !out.Redirecting() || out.ClickErr != nil {
		t.Errorf("Resolve() with vanished link = %+v, want clean redirect", out)
	}
}

func TestLinkService_Resolve_StoreFailure(t *testing.T) {
	boom := errors.New("connection refused")
	repo := &failingRepo{MemoryRepository: memory.NewMemoryRepository(), findErr: boom}
	svc := NewLinkService(repo)

	out := svc.Resolve(context.Background(), "abc123", domain.RequestContext{})
	if out.Status != domain.StatusStoreFailure || !errors.Is(out.Err, boom) {
		t.Errorf("Resolve() = %+v, want store failure carrying the error", out)
	}
}

func TestLinkService_DeactivateAndClearAll(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMemoryRepository()
	sink := &recordingSink{}
	svc := newTestLinkService(repo, &fakeClock{t: epoch}, WithEvents(sink))

	if err := svc.Deactivate(ctx, "nope1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Deactivate(unknown) error = %v, want ErrNotFound", err)
	}
	if err := svc.Deactivate(ctx, ""); !errors.Is(err, domain.ErrEmptyInput) {
		t.Errorf("Deactivate(\"\") error = %v, want ErrEmptyInput", err)
	}

	if _, err := svc.CreateLinks(ctx, []domain.CreationRequest{{URL: "example.com", CustomShortcode: "gone1", ValidityMinutes: 30}}); err != nil {
		t.Fatal(err)
	}
	if err := svc.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll() error = %v", err)
	}
	if all, _ := repo.GetAll(ctx); len(all) != 0 {
		t.Errorf("GetAll() after ClearAll = %d links", len(all))
	}
	if !sink.has(domain.SeverityWarn, "cleared") {
		t.Error("no event for ClearAll")
	}
}
