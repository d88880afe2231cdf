// Package identity validates and normalizes patient identity and contact data:
// Chilean RUT national ids, mobile phone numbers and email addresses.
package identity

import (
	"errors"
	"strings"
)

// ErrMalformedRUTBody is returned when a RUT body contains non-digits.
var ErrMalformedRUTBody = errors.New("identity: rut body must be numeric")

// CleanRUT keeps only digits and the check character, uppercased.
func CleanRUT(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'k' || r == 'K':
			b.WriteByte('K')
		}
	}
	return b.String()
}

// FormatRUT renders raw as "12.345.678-5". Inputs with fewer than two
// significant characters are returned cleaned, without a hyphen.
func FormatRUT(raw string) string {
	clean := CleanRUT(raw)
	if len(clean) < 2 {
		return clean
	}
	body, dv := clean[:len(clean)-1], clean[len(clean)-1:]

	var b strings.Builder
	b.Grow(len(clean) + len(clean)/3 + 1)
	lead := len(body) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(body[:lead])
	for i := lead; i < len(body); i += 3 {
		b.WriteByte('.')
		b.WriteString(body[i : i+3])
	}
	b.WriteByte('-')
	b.WriteString(dv)
	return b.String()
}

// RUTCheckDigit computes the modulus-11 check character for a numeric body.
func RUTCheckDigit(body string) (byte, error) {
	if body == "" {
		return 0, ErrMalformedRUTBody
	}
	sum, weight := 0, 2
	for i := len(body) - 1; i >= 0; i-- {
		c := body[i]
		if c < '0' || c > '9' {
			return 0, ErrMalformedRUTBody
		}
		sum += int(c-'0') * weight
		weight++
		if weight > 7 {
			weight = 2
		}
	}
	switch expected := 11 - sum%11; expected {
	case 11:
		return '0', nil
	case 10:
		return 'K', nil
	default:
		return byte('0' + expected), nil
	}
}

// ValidRUT reports whether raw carries a correct check character.
func ValidRUT(raw string) bool {
	clean := CleanRUT(raw)
	if len(clean) < 2 {
		return false
	}
	want, err := RUTCheckDigit(clean[:len(clean)-1])
	if err != nil {
		return false
	}
	return clean[len(clean)-1] == want
}
