// Package memory keeps short links in process memory. Data is lost on exit.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/wadjakorntonsri/go-shortlinks/pkg/core/domain"
	"github.com/wadjakorntonsri/go-shortlinks/pkg/ports"
)

var _ ports.LinkRepository = (*MemoryRepository)(nil)

type MemoryRepository struct {
	mu    sync.RWMutex
	links map[string]*domain.ShortLink
	order []string // insertion order of short codes
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{links: make(map[string]*domain.ShortLink)}
}

func (r *MemoryRepository) GetAll(ctx context.Context) ([]domain.ShortLink, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ShortLink, 0, len(r.order))
	for _, code := range r.order {
		out = append(out, r.links[code].Clone())
	}
	return out, nil
}

func (r *MemoryRepository) SaveBatch(ctx context.Context, links []domain.ShortLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, len(links))
	for _, l := range links {
		if _, ok := r.links[l.ShortCode]; ok {
			return fmt.Errorf("%w: %w: %s", domain.ErrPersistenceFailure, domain.ErrShortcodeInUse, l.ShortCode)
		}
		if _, ok := seen[l.ShortCode]; ok {
			return fmt.Errorf("%w: %w: %s", domain.ErrPersistenceFailure, domain.ErrShortcodeInUse, l.ShortCode)
		}
		seen[l.ShortCode] = struct{}{}
	}

	for _, l := range links {
		cp := l.Clone()
		r.links[l.ShortCode] = &cp
		r.order = append(r.order, l.ShortCode)
	}
	return nil
}

func (r *MemoryRepository) FindByCode(ctx context.Context, code string) (*domain.ShortLink, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.links[code]
	if !ok {
		return nil, nil
	}
	cp := l.Clone()
	return &cp, nil
}

func (r *MemoryRepository) RecordClick(ctx context.Context, code string, click domain.ClickRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.links[code]
	if !ok {
		return domain.ErrNotFound
	}
	l.Clicks = append(l.Clicks, click)
	return nil
}

func (r *MemoryRepository) Deactivate(ctx context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.links[code]
	if !ok {
		return domain.ErrNotFound
	}
	l.IsActive = false
	return nil
}

func (r *MemoryRepository) ClearAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.links = make(map[string]*domain.ShortLink)
	r.order = nil
	return nil
}

func (r *MemoryRepository) ListShortcodes(ctx context.Context) (map[string]struct{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	codes := make(map[string]struct{}, len(r.links))
	for code := range r.links {
		codes[code] = struct{}{}
	}
	return codes, nil
}

func (r *MemoryRepository) Close() error {
	return nil
}
