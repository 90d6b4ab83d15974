// Package validation holds the pure field checks shared by every form
// payload. Functions here never perform I/O and never panic, so callers can
// aggregate every violation into a single response.
package validation

import (
	"net/url"
	"regexp"
	"strings"
)

// emailShape matches local@domain.tld without attempting RFC 5322
// compliance. Deliverability is the notification channel's problem; this
// only rejects obviously broken input.
var emailShape = regexp.MustCompile(`^\S+@\S+\.\S+$`)

var nonDigits = regexp.MustCompile(`\D`)

// IsValidEmail reports whether s has a plausible local@domain.tld shape.
func IsValidEmail(s string) bool {
	return emailShape.MatchString(strings.TrimSpace(s))
}

// IsValidPhone reports whether s contains at least 10 digits once
// formatting characters are stripped.
func IsValidPhone(s string) bool {
	return len(nonDigits.ReplaceAllString(s, "")) >= 10
}

// IsValidURL reports whether s parses as an absolute URL.
func IsValidURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	return err == nil && u.IsAbs() && u.Host != ""
}
