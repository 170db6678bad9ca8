package services

import (
	"regexp"
	"strings"

	"visitorpass/internal/domain"
)

const minPasswordLen = 8

var (
	emailRegexp      = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneRegexp      = regexp.MustCompile(`^\+?[\d\s-]+$`)
	phoneStrip       = strings.NewReplacer(" ", "", "-", "", "+", "")
	passwordSpecials = `!@#$%^&*(),.?":{}|<>`
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return domain.NewValidationError("email", "email is required")
	}
	if !emailRegexp.MatchString(email) {
		return domain.NewValidationError("email", "invalid email format")
	}
	return nil
}

// validatePhone accepts an optional leading '+', digits, spaces and hyphens, totalling exactly ten digits.
func validatePhone(phone string) error {
	if phone == "" {
		return domain.NewValidationError("phone_number", "phone number is required")
	}
	if !phoneRegexp.MatchString(phone) || len(phoneStrip.Replace(phone)) != 10 {
		return domain.NewValidationError("phone_number", "phone number must contain exactly 10 digits")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLen {
		return domain.NewValidationError("password", "password must be at least 8 characters")
	}
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	if !upper || !lower || !digit || !special {
		return domain.NewValidationError("password", "password needs upper and lower case letters, a digit and a special character")
	}
	return nil
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return domain.NewValidationError(field, field+" is required")
	}
	return nil
}
