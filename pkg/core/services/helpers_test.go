package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/wadjakorntonsri/go-shortlinks/pkg/adapters/repository/memory"
	"github.com/wadjakorntonsri/go-shortlinks/pkg/core/domain"
)

var epoch = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// failingRepo wraps the memory store and injects errors per operation.
type failingRepo struct {
	*memory.MemoryRepository
	saveErr   error
	findErr   error
	clickErr  error
	getAllErr error
	listErr   error
}

func (r *failingRepo) SaveBatch(ctx context.Context, links []domain.ShortLink) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	return r.MemoryRepository.SaveBatch(ctx, links)
}

func (r *failingRepo) FindByCode(ctx context.Context, code string) (*domain.ShortLink, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.MemoryRepository.FindByCode(ctx, code)
}

func (r *failingRepo) RecordClick(ctx context.Context, code string, click domain.ClickRecord) error {
	if r.clickErr != nil {
		return r.clickErr
	}
	return r.MemoryRepository.RecordClick(ctx, code, click)
}

func (r *failingRepo) GetAll(ctx context.Context) ([]domain.ShortLink, error) {
	if r.getAllErr != nil {
		return nil, r.getAllErr
	}
	return r.MemoryRepository.GetAll(ctx)
}

func (r *failingRepo) ListShortcodes(ctx context.Context) (map[string]struct{}, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.MemoryRepository.ListShortcodes(ctx)
}

type recordingSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (s *recordingSink) Emit(_ context.Context, e domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) has(sev domain.Severity, substr string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.Severity == sev && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func newTestLinkService(repo *memory.MemoryRepository, clock *fakeClock, opts ...Option) *LinkService {
	return NewLinkService(repo, append([]Option{WithClock(clock.Now)}, opts...)...)
}
