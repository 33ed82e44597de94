package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/sagespace/internal/model"
)

type signup struct {
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,password"`
}

type verify struct {
	Code string `json:"code" validate:"otp"`
}

type change struct {
	Current string `json:"current_password" validate:"required"`
	New     string `json:"new_password" validate:"required,password,nefield=Current"`
}

func fields(t *testing.T, err error) map[string]string {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrValidation)

	var ve *model.ValidationError
	require.True(t, errors.As(err, &ve))
	return ve.Fields
}

func TestStructValid(t *testing.T) {
	assert.NoError(t, Struct(signup{Username: "alice_01", Email: "a@example.com", Password: "password_1"}))
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	f := fields(t, Struct(signup{Username: "bob", Email: "not-an-email", Password: ""}))

	assert.Contains(t, f, "username")
	assert.Contains(t, f, "email")
	assert.Equal(t, "is required", f["password"])
}

func TestCredentialPolicy(t *testing.T) {
	tests := []struct {
		value string
		valid bool
	}{
		{"alice_01", true},
		{"ABCDEFGHIJKLMNO", true},
		{"alice01", false},          // 7 chars
		{"abcdefghijklmnop", false}, // 16 chars
		{"alice-01", false},
		{"alice 01x", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.valid, Username(tt.value))

			err := Struct(signup{Username: tt.value, Email: "a@example.com", Password: tt.value})
			if tt.valid {
				assert.NoError(t, err)
			} else {
				f := fields(t, err)
				assert.Contains(t, f, "username")
				assert.Contains(t, f, "password")
			}
		})
	}
}

func TestOTPRule(t *testing.T) {
	assert.NoError(t, Struct(verify{Code: "012345"}))

	for _, code := range []string{"", "12345", "1234567", "12345a", " 12345"} {
		f := fields(t, Struct(verify{Code: code}))
		assert.Equal(t, "must be exactly 6 digits", f["code"], code)
	}
}

func TestNotEqualField(t *testing.T) {
	f := fields(t, Struct(change{Current: "password_1", New: "password_1"}))
	assert.Equal(t, "must differ from the current value", f["new_password"])

	assert.NoError(t, Struct(change{Current: "password_1", New: "password_2"}))
}

func TestVar(t *testing.T) {
	assert.NoError(t, Var("username", "alice_01", "required,username"))

	f := fields(t, Var("username", "al", "required,username"))
	assert.Contains(t, f, "username")
}

func TestNonStructIsNotValidationError(t *testing.T) {
	err := Struct(42)
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrValidation)
}
