package domain

import "time"

// DirectReferrer is recorded when the request carried no referrer
const DirectReferrer = "Direct"

// ClickRecord represents one successful resolution of a short link
type ClickRecord struct {
	Timestamp time.Time `json:"timestamp"`
	UserAgent string    `json:"user_agent"`
	Referrer  string    `json:"referrer"`
	IPHash    string    `json:"ip_hash,omitempty"` // Anonymized IP
}

// RequestContext is what the caller knows about the request being resolved
type RequestContext struct {
	UserAgent string
	Referrer  string
	IP        string
}
