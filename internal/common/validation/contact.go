package validation

import (
	"regexp"
	"strings"
)

const (
	MsgInvalidEmail = "Please enter a valid email address"
	MsgInvalidPhone = "Please enter a valid 10-digit phone number"
	MsgRequired     = "This field is required"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	nonDigits    = regexp.MustCompile(`\D`)
)

// ValidateEmail checks for a local@domain.tld shape.
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidatePhone reports whether the number has exactly 10 digits once
// punctuation and spaces are removed.
func ValidatePhone(phone string) bool {
	return len(Digits(phone)) == 10
}

// Digits strips everything but 0-9.
func Digits(s string) string {
	return nonDigits.ReplaceAllString(s, "")
}

// FormatPhoneNumber formats partial input progressively as (555) 123-4567.
// Digits beyond the tenth are dropped.
func FormatPhoneNumber(value string) string {
	d := Digits(value)
	if len(d) > 10 {
		d = d[:10]
	}

	switch {
	case len(d) == 0:
		return ""
	case len(d) <= 3:
		return "(" + d
	case len(d) <= 6:
		return "(" + d[:3] + ") " + d[3:]
	default:
		return "(" + d[:3] + ") " + d[3:6] + "-" + d[6:]
	}
}

// FieldErrors maps a form field name to the message shown beside it.
type FieldErrors map[string]string

// ContactFields returns inline messages for the email and phone fields that
// are present and non-empty.
func ContactFields(email, phone string) FieldErrors {
	errs := FieldErrors{}
	if email = strings.TrimSpace(email); email != "" && !ValidateEmail(email) {
		errs["email"] = MsgInvalidEmail
	}
	if phone = strings.TrimSpace(phone); phone != "" && !ValidatePhone(phone) {
		errs["phone"] = MsgInvalidPhone
	}
	return errs
}
