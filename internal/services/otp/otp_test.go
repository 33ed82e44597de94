package otp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/sagespace/internal/dependencies/mocks"
	"github.com/mcoot/sagespace/internal/model"
)

var now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func TestGeneratePadsToSixDigits(t *testing.T) {
	rng := mocks.NewMockRandom()
	rng.QueueIntn(42, 999999, 0)
	e := New(rng)

	assert.Equal(t, "000042", e.Generate())
	assert.Equal(t, "999999", e.Generate())
	assert.Equal(t, "000000", e.Generate())
}

func TestIssueOverwritesCode(t *testing.T) {
	rng := mocks.NewMockRandom()
	rng.QueueIntn(111111, 222222)
	e := New(rng)
	acc := &model.Account{}

	code, expiry := e.Issue(acc, now, 5*time.Minute)
	assert.Equal(t, "111111", code)
	assert.Equal(t, now.Add(5*time.Minute), expiry)

	code, expiry = e.Issue(acc, now.Add(time.Minute), time.Hour)
	assert.Equal(t, "222222", code)
	assert.Equal(t, "222222", acc.OTPCode)
	assert.Equal(t, now.Add(time.Minute+time.Hour), acc.OTPExpiry)
	assert.Equal(t, expiry, acc.OTPExpiry)
	assert.False(t, acc.IsVerified)
}

func TestIssueDoesNotChangeVerifiedFlag(t *testing.T) {
	e := New(mocks.NewMockRandom())
	acc := &model.Account{IsVerified: true}

	e.Issue(acc, now, time.Minute)
	assert.True(t, acc.IsVerified)
}

func TestVerifySuccessConsumesCode(t *testing.T) {
	e := New(mocks.NewMockRandom())
	acc := &model.Account{OTPCode: "123456", OTPExpiry: now.Add(time.Minute)}

	require.NoError(t, e.Verify(acc, "123456", now))
	assert.True(t, acc.IsVerified)
	assert.Empty(t, acc.OTPCode)
	assert.Equal(t, model.ClearedExpiry, acc.OTPExpiry)

	// replaying the same code fails
	assert.ErrorIs(t, e.Verify(acc, "123456", now), model.ErrInvalidCode)
}

func TestVerifyErrors(t *testing.T) {
	tests := []struct {
		name    string
		acc     model.Account
		code    string
		at      time.Time
		wantErr error
	}{
		{"no code stored", model.Account{OTPExpiry: now.Add(time.Minute)}, "123456", now, model.ErrInvalidCode},
		{"empty submission against empty code", model.Account{}, "", now, model.ErrInvalidCode},
		{"wrong code", model.Account{OTPCode: "123456", OTPExpiry: now.Add(time.Minute)}, "654321", now, model.ErrInvalidCode},
		{"shorter code", model.Account{OTPCode: "123456", OTPExpiry: now.Add(time.Minute)}, "12345", now, model.ErrInvalidCode},
		{"expired", model.Account{OTPCode: "123456", OTPExpiry: now.Add(-time.Second)}, "123456", now, model.ErrExpiredCode},
		{"exactly at expiry", model.Account{OTPCode: "123456", OTPExpiry: now}, "123456", now, model.ErrExpiredCode},
	}

	e := New(mocks.NewMockRandom())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := tt.acc
			err := e.Verify(&acc, tt.code, tt.at)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.False(t, acc.IsVerified)
			assert.Equal(t, tt.acc.OTPCode, acc.OTPCode)
		})
	}
}
