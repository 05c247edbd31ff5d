// Package email holds small helpers for working with email addresses during
// registration and sign-in.
package email

import (
	"net/mail"
	"strings"
	"unicode"
)

// Normalize lowercases and trims an address for use as a lookup key.
func Normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// IsValid reports whether the address parses as RFC 5322. Used by the dev
// identity provider to mirror the hosted provider's invalid-email rejection.
func IsValid(addr string) bool {
	if addr == "" {
		return false
	}
	parsed, err := mail.ParseAddress(addr)
	return err == nil && parsed.Address == addr
}

// DeriveDisplayName builds a display name from the local part of an address.
// Registration falls back to this when the caller supplies no display name.
func DeriveDisplayName(addr string) string {
	localPart := addr
	if at := strings.IndexByte(addr, '@'); at > 0 {
		localPart = addr[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})

	if len(parts) == 0 {
		return "User"
	}

	for i, p := range parts {
		parts[i] = capitalize(p)
	}
	return strings.Join(parts, " ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
