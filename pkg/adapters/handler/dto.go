package handler

import "github.com/wadjakorntonsri/go-shortlinks/pkg/core/domain"

// CreateLinkRequest is one entry of a creation batch.
// ValidityMinutes falls back to the configured default when omitted.
type CreateLinkRequest struct {
	URL             string `json:"url"`
	CustomShortcode string `json:"custom_shortcode,omitempty"`
	ValidityMinutes *int   `json:"validity_minutes,omitempty"`
}

// CreateLinksRequest payload
type CreateLinksRequest struct {
	Links []CreateLinkRequest `json:"links"`
}

type LinkResponse struct {
	ShortURL string `json:"short_url"`
	domain.ShortLink
}

type CreateLinksResponse struct {
	Links []LinkResponse `json:"links"`
}

type EntryErrorResponse struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   string               `json:"error"`
	Message string               `json:"message,omitempty"`
	Entries []EntryErrorResponse `json:"entries,omitempty"`
}
