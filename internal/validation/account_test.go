package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmail(t *testing.T) {
	assert.NoError(t, Email("Raider@Example.com "))
	assert.ErrorIs(t, Email("not-an-email"), ErrInvalidEmail)
	assert.ErrorIs(t, Email(""), ErrInvalidEmail)
	assert.ErrorIs(t, Email("someone@mailinator.com"), ErrDisposableEmail)
	assert.ErrorIs(t, Email("SOMEONE@YOPMAIL.COM"), ErrDisposableEmail)
}

func TestPassword(t *testing.T) {
	assert.NoError(t, Password("longenough", "longenough"))
	assert.ErrorIs(t, Password("short", "short"), ErrPasswordTooShort)
	assert.ErrorIs(t, Password("longenough", "longenougH"), ErrPasswordMismatch)
}

func TestRegistration_ReportsFirstFailure(t *testing.T) {
	assert.ErrorIs(t, Registration("ab", "bad", "x", "y"), ErrInvalidUsername)
	assert.ErrorIs(t, Registration("raider_1", "bad", "x", "y"), ErrInvalidEmail)
	assert.ErrorIs(t, Registration("raider_1", "r@example.com", "password1", "password2"), ErrPasswordMismatch)
	assert.NoError(t, Registration("raider_1", "r@example.com", "password1", "password1"))
}

func TestUsername_RejectsSpacesAndSymbols(t *testing.T) {
	assert.ErrorIs(t, Username("has space"), ErrInvalidUsername)
	assert.ErrorIs(t, Username("bang!"), ErrInvalidUsername)
	assert.NoError(t, Username("Scav-Hunter_9"))
}
