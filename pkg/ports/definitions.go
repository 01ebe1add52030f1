package ports

import (
	"context"

	"github.com/wadjakorntonsri/go-shortlinks/pkg/core/domain"
)

// LinkRepository defines storage operations for short links.
// Implementations are keyed by shortcode and update one link at a time.
// FindByCode returns nil, nil for an unknown code; GetAll returns
// domain.ErrCorruptData when the backing data cannot be decoded.
type LinkRepository interface {
	GetAll(ctx context.Context) ([]domain.ShortLink, error)
	SaveBatch(ctx context.Context, links []domain.ShortLink) error // All or nothing
	FindByCode(ctx context.Context, code string) (*domain.ShortLink, error)
	RecordClick(ctx context.Context, code string, click domain.ClickRecord) error
	Deactivate(ctx context.Context, code string) error
	ClearAll(ctx context.Context) error
	ListShortcodes(ctx context.Context) (map[string]struct{}, error)
	Close() error
}

// EventSink receives diagnostic events. Emit must not block the caller.
type EventSink interface {
	Emit(ctx context.Context, event domain.Event)
}

// LinkService defines the business logic operations
type LinkService interface {
	CreateLinks(ctx context.Context, reqs []domain.CreationRequest) ([]domain.ShortLink, error)
	Resolve(ctx context.Context, code string, rc domain.RequestContext) domain.ResolveOutcome
	Deactivate(ctx context.Context, code string) error
	ClearAll(ctx context.Context) error
}

// StatsService defines read-only aggregation over stored links
type StatsService interface {
	Snapshot(ctx context.Context) (*domain.StatsSnapshot, error)
	Link(ctx context.Context, code string) (*domain.LinkStats, error)
}
