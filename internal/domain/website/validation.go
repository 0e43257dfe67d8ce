package website

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeURL validates a user-supplied URL and returns it in canonical
// form. A missing scheme defaults to https. Validation happens before any
// registry mutation.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidURL
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return parsed.String(), nil
}

// DisplayName derives a default display name from a URL: the host without
// the www prefix.
func DisplayName(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return raw
	}
	return strings.TrimPrefix(parsed.Host, "www.")
}

// ImportValidation summarizes a pre-import check of an external registry
// payload.
type ImportValidation struct {
	Valid         bool   `json:"valid"`
	WebsiteCount  int    `json:"website_count"`
	HasDuplicates bool   `json:"has_duplicates"`
	MissingURLs   int    `json:"missing_urls"`
	ErrorMessage  string `json:"error_message,omitempty"`
}

// ValidateImport checks a candidate registry before it replaces the current
// one. It never mutates anything.
func ValidateImport(records []Website) ImportValidation {
	result := ImportValidation{WebsiteCount: len(records)}

	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		if strings.TrimSpace(rec.URL) == "" {
			result.MissingURLs++
			continue
		}
		if seen[rec.URL] {
			result.HasDuplicates = true
		}
		seen[rec.URL] = true
	}

	ids := make(map[int64]bool, len(records))
	for _, rec := range records {
		if ids[rec.ID] {
			result.ErrorMessage = fmt.Sprintf("duplicate website id %d", rec.ID)
			return result
		}
		ids[rec.ID] = true
	}

	result.Valid = result.MissingURLs == 0
	if !result.Valid {
		result.ErrorMessage = fmt.Sprintf("%d websites have no URL", result.MissingURLs)
	}
	return result
}
