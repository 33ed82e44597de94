package model

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"validation", NewValidationError("email", "required"), KindValidation},
		{"not found", fmt.Errorf("lookup: %w", ErrAccountNotFound), KindNotFound},
		{"username taken", ErrUsernameTaken, KindConflict},
		{"email taken", ErrEmailTaken, KindConflict},
		{"already verified", ErrAlreadyVerified, KindConflict},
		{"concurrent update", ErrConcurrentUpdate, KindConflict},
		{"rate limited", &RateLimitedError{RetryAfter: time.Minute}, KindRateLimited},
		{"invalid code", ErrInvalidCode, KindInvalidCode},
		{"expired code", ErrExpiredCode, KindExpiredCode},
		{"bad credentials", ErrInvalidCredentials, KindCredential},
		{"not verified", ErrNotVerified, KindUnverified},
		{"not accepting", ErrNotAcceptingMessages, KindForbidden},
		{"delivery", &DeliveryError{Err: errors.New("smtp down")}, KindDelivery},
		{"unknown", errors.New("boom"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestRateLimitedErrorCarriesRetryAfter(t *testing.T) {
	var err error = &RateLimitedError{RetryAfter: 90 * time.Second}

	var rle *RateLimitedError
	assert.True(t, errors.As(err, &rle))
	assert.Equal(t, 90*time.Second, rle.RetryAfter)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Contains(t, err.Error(), "1m30s")
}

func TestDeliveryErrorUnwrapsTransportError(t *testing.T) {
	transport := errors.New("connection refused")
	err := &DeliveryError{Err: transport}

	assert.ErrorIs(t, err, ErrDeliveryFailed)
	assert.ErrorIs(t, err, transport)
}

func TestValidationErrorMessageIsStable(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{
		"username": "too short",
		"email":    "invalid",
	}}

	assert.Equal(t, "validation failed: email: invalid; username: too short", err.Error())
	assert.ErrorIs(t, err, ErrValidation)
}

func TestIdentityOmitsSecrets(t *testing.T) {
	acc := &Account{
		ID:           "acc-1",
		Username:     "alice_01",
		Email:        "a@x.com",
		PasswordHash: "hash",
		OTPCode:      "123456",
		IsVerified:   true,
		DisplayName:  "Alice",
	}

	id := acc.Identity()
	assert.Equal(t, AccountID("acc-1"), id.ID)
	assert.Equal(t, "alice_01", id.Username)
	assert.True(t, id.IsVerified)
	assert.Equal(t, "Alice", id.DisplayName)
}
