package validate

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidEmail is returned for addresses that do not look deliverable.
var ErrInvalidEmail = errors.New("invalid email format")

// emailPattern accepts the common shapes of deliverable addresses. The mail
// server is the final authority; this filters obvious garbage before an
// address is stored or placed in an outgoing header.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Email validates and normalizes a notification recipient address.
// Returns the address lowercased and trimmed. Addresses containing control
// characters are rejected outright since stored addresses end up in SMTP
// headers.
func Email(email string) (string, error) {
	if strings.ContainsAny(email, "\r\n\x00") {
		return "", ErrInvalidEmail
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrEmpty
	}

	// RFC 5321 caps the full address at 254 octets.
	if len(email) > 254 {
		return "", ErrStringTooLong
	}

	if !emailPattern.MatchString(email) {
		return "", ErrInvalidEmail
	}

	at := strings.LastIndex(email, "@")
	local, domain := email[:at], email[at+1:]

	// RFC 5321 limits: 64 octets for the local part, 255 for the domain.
	if len(local) > 64 || len(domain) > 255 {
		return "", ErrStringTooLong
	}

	// A bare hostname is almost certainly a typo.
	if !strings.Contains(domain, ".") {
		return "", ErrInvalidEmail
	}

	return email, nil
}
