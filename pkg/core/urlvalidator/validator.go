// Package urlvalidator normalizes user-submitted destination URLs.
package urlvalidator

import (
	"net/url"
	"strings"

	"github.com/wadjakorntonsri/go-shortlinks/pkg/core/domain"
)

// Validate trims raw, prefixes https:// when no http(s) scheme is present and
// checks the hostname. It returns the normalized URL.
func Validate(raw string) (string, error) {
	normalized := strings.TrimSpace(raw)
	if normalized == "" {
		return "", domain.ErrEmptyInput
	}

	if !hasHTTPScheme(normalized) {
		normalized = "https://" + normalized
	}

	parsed, err := url.Parse(normalized)
	if err != nil {
		return "", domain.ErrMalformedURL
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return "", domain.ErrInvalidHostname
	}
	if host == "localhost" || host == "127.0.0.1" {
		return "", domain.ErrLocalhostNotAllowed
	}
	if !strings.Contains(host, ".") {
		return "", domain.ErrInvalidDomainFormat
	}

	return normalized, nil
}

func hasHTTPScheme(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
