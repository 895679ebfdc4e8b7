// Package validation holds account rules enforced both by the API and by the
// client before a request is sent.
package validation

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

const MinPasswordLength = 8

var (
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrDisposableEmail  = errors.New("disposable email addresses are not allowed")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrInvalidUsername  = errors.New("username must be 3-32 letters, digits, '-' or '_'")
)

var validate = validator.New()

// disposableDomains is a fixed deny-list of throwaway mail providers.
var disposableDomains = map[string]struct{}{
	"mailinator.com":         {},
	"guerrillamail.com":      {},
	"10minutemail.com":       {},
	"tempmail.com":           {},
	"temp-mail.org":          {},
	"yopmail.com":            {},
	"trashmail.com":          {},
	"sharklasers.com":        {},
	"getnada.com":            {},
	"dispostable.com":        {},
	"maildrop.cc":            {},
	"throwawaymail.com":      {},
	"fakeinbox.com":          {},
	"mintemail.com":          {},
	"mohmal.com":             {},
	"emailondeck.com":        {},
	"burnermail.io":          {},
	"discard.email":          {},
	"spamgourmet.com":        {},
	"mailnesia.com":          {},
	"guerrillamailblock.com": {},
}

// NormalizeEmail lowercases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Email checks the address format and rejects disposable domains.
func Email(email string) error {
	email = NormalizeEmail(email)
	if err := validate.Var(email, "required,email"); err != nil {
		return ErrInvalidEmail
	}
	at := strings.LastIndex(email, "@")
	if _, banned := disposableDomains[email[at+1:]]; banned {
		return ErrDisposableEmail
	}
	return nil
}

// Username allows 3-32 characters of letters, digits, '-' and '_'.
func Username(username string) error {
	u := strings.TrimSpace(username)
	if len(u) < 3 || len(u) > 32 {
		return ErrInvalidUsername
	}
	for _, r := range u {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return ErrInvalidUsername
		}
	}
	return nil
}

// Password checks length and that the confirmation matches.
func Password(password, confirmation string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if password != confirmation {
		return ErrPasswordMismatch
	}
	return nil
}

// Registration runs every rule in the order a form would report them.
func Registration(username, email, password, confirmation string) error {
	if err := Username(username); err != nil {
		return err
	}
	if err := Email(email); err != nil {
		return err
	}
	return Password(password, confirmation)
}
