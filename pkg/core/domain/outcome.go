package domain

// ResolveStatus is the terminal state of one resolution attempt
type ResolveStatus string

const (
	StatusRedirecting  ResolveStatus = "redirecting"
	StatusExpired      ResolveStatus = "expired"
	StatusDeactivated  ResolveStatus = "deactivated"
	StatusNotFound     ResolveStatus = "not_found"
	StatusMissingInput ResolveStatus = "missing_input"
	StatusStoreFailure ResolveStatus = "store_failure"
)

// ResolveOutcome describes how a shortcode resolution ended.
// Only StatusRedirecting carries a Destination.
type ResolveOutcome struct {
	Status      ResolveStatus `json:"status"`
	ShortCode   string        `json:"short_code,omitempty"`
	Destination string        `json:"destination,omitempty"`
	Reason      string        `json:"reason"`

	// ClickErr is set when the redirect proceeds but the click could not be stored.
	ClickErr error `json:"-"`
	// Err is the lookup failure behind StatusStoreFailure.
	Err error `json:"-"`
}

func (o ResolveOutcome) Redirecting() bool {
	return o.Status == StatusRedirecting
}
