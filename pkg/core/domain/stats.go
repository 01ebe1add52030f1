package domain

import "time"

// RecentClicksLimit caps the click detail list of a link
const RecentClicksLimit = 10

// StatsSnapshot represents aggregated statistics over every stored link
type StatsSnapshot struct {
	GeneratedAt  time.Time   `json:"generated_at"`
	TotalLinks   int         `json:"total_links"`
	TotalClicks  int         `json:"total_clicks"`
	ActiveLinks  int         `json:"active_links"`
	ExpiredLinks int         `json:"expired_links"`
	Links        []LinkStats `json:"links"` // newest first
	Warning      string      `json:"warning,omitempty"`
}

// LinkStats is the per-link view shown in the stats listing
type LinkStats struct {
	ID              string        `json:"id"`
	ShortCode       string        `json:"short_code"`
	OriginalURL     string        `json:"original_url"`
	CreatedAt       time.Time     `json:"created_at"`
	ExpiresAt       time.Time     `json:"expires_at"`
	ValidityMinutes int           `json:"validity_minutes"`
	IsActive        bool          `json:"is_active"`
	Status          LinkStatus    `json:"status"`
	TotalClicks     int           `json:"total_clicks"`
	ClicksLast24h   int           `json:"clicks_last_24h"`
	LastClick       *time.Time    `json:"last_click,omitempty"`
	RecentClicks    []ClickRecord `json:"recent_clicks"` // newest first
	MoreClicks      int           `json:"more_clicks"`   // clicks not in RecentClicks
}
