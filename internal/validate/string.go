// Package validate provides input validation and sanitization for the
// Tether API: string and name constraints, email and URL checks, SQL
// keyword and SSRF heuristics.
package validate

import (
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	ErrStringTooShort    = errors.New("string is too short")
	ErrStringTooLong     = errors.New("string is too long")
	ErrInvalidCharacters = errors.New("string contains invalid characters")
	ErrSQLKeyword        = errors.New("string contains SQL keywords")
	ErrDisallowedWord    = errors.New("string contains disallowed word")
	ErrEmpty             = errors.New("string is empty")
)

// SQL keywords matched as standalone words. A heuristic layer only;
// parameterized queries remain the actual defense.
var sqlKeywords = []string{
	"SELECT", "INSERT", "UPDATE", "DELETE", "DROP", "CREATE", "ALTER",
	"TRUNCATE", "EXEC", "EXECUTE", "UNION", "JOIN", "WHERE", "FROM",
}

// Symbol sequences rejected wherever they appear, word boundary or not.
var sqlPatterns = []string{
	"--", "/*", "*/", ";--", "XP_", "SP_",
}

var (
	sqlWordPattern  = regexp.MustCompile(`[A-Z_]+`)
	zoneNamePattern = regexp.MustCompile(`^[A-Za-z0-9 _\-\.]+$`)
)

// StringConstraints bounds what String accepts. Lengths are in runes;
// zero disables the corresponding check.
type StringConstraints struct {
	MinLength        int
	MaxLength        int
	AllowedPattern   *regexp.Regexp
	DisallowedWords  []string // case-insensitive substring match
	CheckSQLKeywords bool
	AllowEmpty       bool
	TrimSpace        bool
}

func (c StringConstraints) apply(s string) (string, error) {
	if c.TrimSpace {
		s = strings.TrimSpace(s)
	}

	if s == "" {
		if !c.AllowEmpty {
			return "", ErrEmpty
		}
		return s, nil
	}

	length := utf8.RuneCountInString(s)
	if c.MinLength > 0 && length < c.MinLength {
		return "", fmt.Errorf("%w: got %d chars, need at least %d", ErrStringTooShort, length, c.MinLength)
	}
	if c.MaxLength > 0 && length > c.MaxLength {
		return "", fmt.Errorf("%w: got %d chars, maximum is %d", ErrStringTooLong, length, c.MaxLength)
	}

	if c.AllowedPattern != nil && !c.AllowedPattern.MatchString(s) {
		return "", fmt.Errorf("%w: does not match required pattern", ErrInvalidCharacters)
	}

	if c.CheckSQLKeywords {
		if err := checkSQLKeywords(s); err != nil {
			return "", err
		}
	}

	upper := strings.ToUpper(s)
	for _, word := range c.DisallowedWords {
		if strings.Contains(upper, strings.ToUpper(word)) {
			return "", fmt.Errorf("%w: %q", ErrDisallowedWord, word)
		}
	}

	return s, nil
}

// String validates s against the constraints and returns it, trimmed
// when TrimSpace is set.
func String(s string, constraints StringConstraints) (string, error) {
	return constraints.apply(s)
}

// checkSQLKeywords flags standalone keyword words, so legitimate names
// that merely contain one as a substring ("Executive", "Confrom") pass,
// plus comment and procedure-prefix sequences anywhere in the string.
func checkSQLKeywords(s string) error {
	upper := strings.ToUpper(s)
	for _, pattern := range sqlPatterns {
		if strings.Contains(upper, pattern) {
			return fmt.Errorf("%w: contains %q", ErrSQLKeyword, pattern)
		}
	}
	for _, word := range sqlWordPattern.FindAllString(upper, -1) {
		for _, keyword := range sqlKeywords {
			if word == keyword {
				return fmt.Errorf("%w: contains %q", ErrSQLKeyword, keyword)
			}
		}
	}
	return nil
}

// SanitizeHTML escapes HTML metacharacters. Applied to any user text
// that ends up rendered in the guardian dashboard.
func SanitizeHTML(s string) string {
	return html.EscapeString(s)
}

// SanitizeString validates then HTML-escapes.
func SanitizeString(s string, constraints StringConstraints) (string, error) {
	validated, err := String(s, constraints)
	if err != nil {
		return "", err
	}
	return SanitizeHTML(validated), nil
}

// ZoneName validates a zone name: 1-100 chars of letters, digits,
// spaces, dash, underscore and period. SQL keyword checking stays off
// here; "Drop-in Center" is a fine zone name.
func ZoneName(name string) (string, error) {
	return SanitizeString(name, StringConstraints{
		MinLength:      1,
		MaxLength:      100,
		AllowedPattern: zoneNamePattern,
		TrimSpace:      true,
	})
}

// DisplayName validates a user display name: 1-100 chars, any content,
// HTML-escaped on the way out.
func DisplayName(name string) (string, error) {
	return SanitizeString(name, StringConstraints{
		MinLength: 1,
		MaxLength: 100,
		TrimSpace: true,
	})
}
