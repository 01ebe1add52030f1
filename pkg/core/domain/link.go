package domain

import "time"

const (
	MinValidityMinutes     = 1
	MaxValidityMinutes     = 43200 // 30 days
	DefaultValidityMinutes = 30

	MaxBatchSize = 5
)

// ShortLink represents a shortened URL together with its lifecycle and clicks
type ShortLink struct {
	ID              string        `json:"id"`
	OriginalURL     string        `json:"original_url"`
	ShortCode       string        `json:"short_code"`
	CreatedAt       time.Time     `json:"created_at"`
	ValidityMinutes int           `json:"validity_minutes"`
	ExpiresAt       time.Time     `json:"expires_at"`
	IsActive        bool          `json:"is_active"`
	Clicks          []ClickRecord `json:"clicks"`
}

// IsExpired reports whether now is past the expiry instant.
func (l *ShortLink) IsExpired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

// IsResolvable reports whether the link may redirect at now.
func (l *ShortLink) IsResolvable(now time.Time) bool {
	return l.IsActive && !l.IsExpired(now)
}

// Status names the lifecycle state. Expiry wins over deactivation.
func (l *ShortLink) Status(now time.Time) LinkStatus {
	switch {
	case l.IsExpired(now):
		return LinkExpired
	case !l.IsActive:
		return LinkInactive
	default:
		return LinkActive
	}
}

// Clone returns a deep copy so callers can't mutate stored click slices.
func (l ShortLink) Clone() ShortLink {
	clicks := make([]ClickRecord, len(l.Clicks))
	copy(clicks, l.Clicks)
	l.Clicks = clicks
	return l
}

type LinkStatus string

const (
	LinkActive   LinkStatus = "active"
	LinkExpired  LinkStatus = "expired"
	LinkInactive LinkStatus = "inactive"
)

// CreationRequest is one entry of a creation batch
type CreationRequest struct {
	URL             string `json:"url"`
	CustomShortcode string `json:"custom_shortcode,omitempty"`
	ValidityMinutes int    `json:"validity_minutes"`
}
