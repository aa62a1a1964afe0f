package util

import (
	"html"
	"regexp"
	"strings"
)

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	mobilePattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
	digitsPattern = regexp.MustCompile(`^\d+$`)
)

// SanitizeInput trims whitespace and escapes HTML/script-like characters.
func SanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return html.EscapeString(s)
}

// NormalizeEmail lowercases and trims an email address so that lookups and
// uniqueness checks are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValidEmail reports whether s looks like an email address.
func IsValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// IsValidMobile reports whether s is an E.164-style mobile number.
func IsValidMobile(s string) bool {
	return mobilePattern.MatchString(s)
}

// IsNumeric reports whether s consists solely of decimal digits.
func IsNumeric(s string) bool {
	return s != "" && digitsPattern.MatchString(s)
}

// IsValidPassword enforces the account password policy: at least eight
// characters with at least one letter and one digit.
func IsValidPassword(s string) bool {
	if len(s) < 8 {
		return false
	}
	var hasLetter, hasDigit bool
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			hasLetter = true
		}
	}
	return hasLetter && hasDigit
}
