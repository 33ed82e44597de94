package account

import (
	"strings"
	"time"

	"github.com/mcoot/sagespace/internal/model"
)

// RegisterInput is the payload for Register
type RegisterInput struct {
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,password"`
}

// VerifyInput is the payload for Verify
type VerifyInput struct {
	Email string `json:"email" validate:"required,email,max=254"`
	Code  string `json:"code" validate:"required,otp"`
}

// ResendInput is the payload for ResendCode
type ResendInput struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

// SignInInput is the payload for SignIn. Identifier is an email or a username.
type SignInInput struct {
	Identifier string `json:"identifier" validate:"required,max=254"`
	Password   string `json:"password" validate:"required"`
}

// ChangePasswordInput is the payload for ChangePassword
type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,password,nefield=CurrentPassword"`
}

// UpdateProfileInput is the payload for UpdateProfile. Nil fields are left unchanged.
type UpdateProfileInput struct {
	DisplayName *string `json:"display_name" validate:"omitnil,min=1,max=50"`
	AvatarURL   *string `json:"avatar_url" validate:"omitnil,url"`
}

// Registration is the non-sensitive result of Register and ResendCode
type Registration struct {
	AccountID     model.AccountID
	Username      string
	Email         string
	CodeExpiresAt time.Time
	// Reactivated is set when an existing unverified account was reused
	Reactivated bool
}

// NormalizeEmail trims and lower-cases an address for use as a lookup key
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
