package identity

import (
	"strings"
	"unicode"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/apperr"
)

const countryCode = "56"

func digitsOnly(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizePhone returns the number as +56 followed by the nine-digit mobile
// number. The country code is optional on input.
func NormalizePhone(raw string) (string, bool) {
	digits := digitsOnly(raw)
	if len(digits) == 11 && strings.HasPrefix(digits, countryCode) {
		digits = digits[len(countryCode):]
	}
	if len(digits) != 9 || digits[0] != '9' {
		return "", false
	}
	return "+" + countryCode + digits, true
}

// ValidPhone reports whether raw is a mobile number: nine digits starting
// with 9, optionally prefixed by 56 or +56.
func ValidPhone(raw string) bool {
	_, ok := NormalizePhone(raw)
	return ok
}

// ValidEmail checks for a single @ between whitespace-free local and domain
// parts, with a dot inside the domain.
func ValidEmail(raw string) bool {
	local, domain, ok := strings.Cut(raw, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		return false
	}
	if strings.IndexFunc(raw, unicode.IsSpace) >= 0 {
		return false
	}
	for i := 1; i < len(domain)-1; i++ {
		if domain[i] == '.' {
			return true
		}
	}
	return false
}

// Contact is the identity data captured when a patient registers.
type Contact struct {
	NationalID string
	FullName   string
	Phone      string
	Email      string
}

// Validate checks every field and reports all failures at once. Email is
// optional.
func (c Contact) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(c.FullName) == "" {
		fields["nombre"] = "required"
	}
	if !ValidRUT(c.NationalID) {
		fields["rut"] = "invalid check digit or format"
	}
	if !ValidPhone(c.Phone) {
		fields["telefono"] = "must be a 9-digit mobile number starting with 9"
	}
	if strings.TrimSpace(c.Email) != "" && !ValidEmail(c.Email) {
		fields["email"] = "invalid address"
	}
	if len(fields) > 0 {
		return apperr.Invalid(fields)
	}
	return nil
}

// Normalized returns the contact in canonical form. Call Validate first.
func (c Contact) Normalized() Contact {
	out := c
	out.NationalID = FormatRUT(c.NationalID)
	out.FullName = strings.Join(strings.Fields(c.FullName), " ")
	if phone, ok := NormalizePhone(c.Phone); ok {
		out.Phone = phone
	}
	out.Email = strings.ToLower(strings.TrimSpace(c.Email))
	return out
}
