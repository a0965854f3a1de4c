// Package phone normalizes and validates Ivorian phone numbers.
package phone

import (
	"regexp"
	"strings"
)

// CountryCode is the Côte d'Ivoire international prefix.
const CountryCode = "+225"

var validPattern = regexp.MustCompile(`^\+225\d{8,10}$`)

// Normalize converts user input to the +225 international form.
//
// Everything except digits and a leading '+' is dropped. Numbers already
// prefixed +225 are kept, a bare 225 prefix gains a '+', a leading 0 is
// replaced by +225 and any other run of 8 or more digits is prefixed with
// +225. Input matching none of these rules is returned cleaned but
// otherwise unchanged, and fails IsValid. Normalize is idempotent.
func Normalize(raw string) string {
	cleaned := clean(raw)

	switch {
	case strings.HasPrefix(cleaned, CountryCode):
		return cleaned
	case strings.HasPrefix(cleaned, "225"):
		return "+" + cleaned
	case strings.HasPrefix(cleaned, "0"):
		return CountryCode + cleaned[1:]
	case len(cleaned) >= 8 && !strings.HasPrefix(cleaned, "+"):
		return CountryCode + cleaned
	default:
		return cleaned
	}
}

// IsValid reports whether a normalized number is +225 followed by 8 to 10 digits.
func IsValid(normalized string) bool {
	return validPattern.MatchString(normalized)
}

// Format groups the national part in pairs for display, e.g.
// "+225 07 08 09 10 11". Invalid numbers are returned as given.
func Format(normalized string) string {
	if !IsValid(normalized) {
		return normalized
	}
	national := strings.TrimPrefix(normalized, CountryCode)

	var b strings.Builder
	b.WriteString(CountryCode)
	// odd lengths keep a leading single digit
	start := len(national) % 2
	if start == 1 {
		b.WriteString(" ")
		b.WriteString(national[:1])
	}
	for i := start; i < len(national); i += 2 {
		b.WriteString(" ")
		b.WriteString(national[i : i+2])
	}
	return b.String()
}

func clean(raw string) string {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	b.Grow(len(raw))
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
