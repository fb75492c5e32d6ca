package services

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	namePattern  = regexp.MustCompile(`^[A-Za-z][A-Za-z .\-]*$`)
)

// validateEmail applies the format check used everywhere an email enters
// the system. The canonical form must already have been taken.
func validateEmail(email string) error {
	if l := len(email); l < 6 || l > 254 {
		return &ValidationError{Field: "email", Reason: "must be 6-254 characters"}
	}
	if !emailPattern.MatchString(email) {
		return &ValidationError{Field: "email", Reason: "malformed address"}
	}
	return nil
}

// validateName checks length on every path; profile edits additionally
// restrict the character set (strict=true).
func validateName(name string, strict bool) error {
	n := strings.TrimSpace(name)
	if len(n) < 2 || len(n) > 100 {
		return &ValidationError{Field: "name", Reason: "must be 2-100 characters"}
	}
	if strict && !namePattern.MatchString(n) {
		return &ValidationError{Field: "name", Reason: "letters, spaces, hyphens and periods only"}
	}
	return nil
}

// validateOptionalText bounds free-text profile fields.
func validateOptionalText(field, value string) error {
	if len(value) > 100 {
		return &ValidationError{Field: field, Reason: "must be at most 100 characters"}
	}
	return nil
}

// checkRegistrationPassword enforces the sign-up policy: at least 8
// characters including one letter and one digit.
func checkRegistrationPassword(pw string) error {
	if len(pw) < 8 {
		return ErrWeakPassword
	}
	var letter, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter || !digit {
		return ErrWeakPassword
	}
	return nil
}

// checkChangePassword enforces the stricter policy applied to password
// changes and resets: at least 8 characters with upper, lower, digit and
// special. The sign-up policy is intentionally looser; the two must not
// be unified.
func checkChangePassword(pw string) error {
	if len(pw) < 8 {
		return ErrWeakPassword
	}
	var upper, lower, digit, special bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}
	if !upper || !lower || !digit || !special {
		return ErrWeakPassword
	}
	return nil
}
