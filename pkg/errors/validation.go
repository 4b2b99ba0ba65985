package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// countryCodeRegex matches an ISO 3166-1 alpha-2 code as used by the
// geoenrichment service (upper case letters only).
var countryCodeRegex = regexp.MustCompile(`^[A-Z]{2}$`)

// ValidateCountryCode checks that code looks like a two-letter ISO country
// code. It does not check that the service knows the country; that requires
// the country table.
func ValidateCountryCode(code string) error {
	if code == "" {
		return New(ErrCodeInvalidCountry, "country code cannot be empty")
	}
	if !countryCodeRegex.MatchString(code) {
		return New(ErrCodeInvalidCountry, "country code must be two upper-case letters: %q", code)
	}
	return nil
}

// itemIDRegex matches portal item ids (32 hex characters).
var itemIDRegex = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)

// IsItemID reports whether s has the shape of a portal item id. Standard
// report ids (e.g. "AtRisk") do not.
func IsItemID(s string) bool {
	return itemIDRegex.MatchString(s)
}

// ValidateReportID validates an infographic identifier, which is either a
// standard report id or a portal item id.
//
// The rules are deliberately loose:
//   - No empty ids
//   - No whitespace or control characters
//   - Maximum length of 128 characters
func ValidateReportID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "infographic id cannot be empty")
	}
	if len(id) > 128 {
		return New(ErrCodeInvalidInput, "infographic id too long (max 128 characters)")
	}
	for _, r := range id {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidInput, "infographic id contains invalid characters: %q", id)
		}
	}
	return nil
}

// ValidateOutputPath validates the local path an infographic is written to.
//
// Validation rules:
//   - Path cannot be empty
//   - No null bytes or control characters
//   - Path must name a file, not end in a separator
func ValidateOutputPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "output path cannot be empty")
	}
	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "output path contains invalid characters")
		}
	}
	if strings.HasSuffix(path, "/") || strings.HasSuffix(path, "\\") {
		return New(ErrCodeInvalidPath, "output path must name a file: %q", path)
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	// Simple scheme validation without full URL parsing
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
