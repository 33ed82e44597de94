package model

import "time"

// AccountID uniquely identifies an account across the system
type AccountID string

// ClearedExpiry is written to OTPExpiry once a code has been consumed.
// It is always in the past.
var ClearedExpiry = time.Unix(0, 0).UTC()

// Account is the persisted identity and credential record
type Account struct {
	ID           AccountID `json:"id" bson:"_id"`
	Username     string    `json:"username" bson:"username"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"password_hash" bson:"password_hash"`

	// Pending one-time code; empty when nothing is pending
	OTPCode   string    `json:"otp_code" bson:"otp_code"`
	OTPExpiry time.Time `json:"otp_expiry" bson:"otp_expiry"`

	IsVerified          bool `json:"is_verified" bson:"is_verified"`
	IsAcceptingMessages bool `json:"is_accepting_messages" bson:"is_accepting_messages"`

	// Zero until the first code is issued
	LastVerificationSentAt time.Time `json:"last_verification_sent_at" bson:"last_verification_sent_at"`

	DisplayName string `json:"display_name" bson:"display_name"`
	AvatarURL   string `json:"avatar_url" bson:"avatar_url"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`

	// Version is bumped by the store on every successful update
	Version int64 `json:"version" bson:"version"`
}

// Identity is the public view of an account handed to the session layer
type Identity struct {
	ID                  AccountID `json:"id"`
	Email               string    `json:"email"`
	Username            string    `json:"username"`
	IsVerified          bool      `json:"is_verified"`
	IsAcceptingMessages bool      `json:"is_accepting_messages"`
	DisplayName         string    `json:"display_name"`
	AvatarURL           string    `json:"avatar_url"`
}

// Identity derives the session view of the account. It never includes
// the password hash or the pending code.
func (a *Account) Identity() Identity {
	return Identity{
		ID:                  a.ID,
		Email:               a.Email,
		Username:            a.Username,
		IsVerified:          a.IsVerified,
		IsAcceptingMessages: a.IsAcceptingMessages,
		DisplayName:         a.DisplayName,
		AvatarURL:           a.AvatarURL,
	}
}

// HasSentVerification reports whether a code was ever issued for this account
func (a *Account) HasSentVerification() bool {
	return !a.LastVerificationSentAt.IsZero()
}

// Clone returns a copy safe to mutate independently of the receiver
func (a *Account) Clone() *Account {
	c := *a
	return &c
}
