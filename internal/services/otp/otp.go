// Package otp issues and checks the one-time verification codes sent to
// new accounts.
package otp

import (
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/mcoot/sagespace/internal/dependencies/random"
	"github.com/mcoot/sagespace/internal/model"
)

const (
	// CodeLength is the number of decimal digits in a code
	CodeLength = 6

	codeSpace = 1_000_000
)

// Engine generates codes and applies them to accounts
type Engine struct {
	rng random.Random
}

// New creates an Engine drawing codes from rng
func New(rng random.Random) *Engine {
	return &Engine{rng: rng}
}

// Generate returns a fresh zero-padded 6-digit code
func (e *Engine) Generate() string {
	return fmt.Sprintf("%0*d", CodeLength, e.rng.Intn(codeSpace))
}

// Issue stores a fresh code on acc, replacing any previous code. Verification
// state is left untouched.
func (e *Engine) Issue(acc *model.Account, now time.Time, validity time.Duration) (string, time.Time) {
	code := e.Generate()
	expiry := now.Add(validity)

	acc.OTPCode = code
	acc.OTPExpiry = expiry
	return code, expiry
}

// Verify checks submitted against the code stored on acc. On success the
// account is marked verified and the code is consumed.
func (e *Engine) Verify(acc *model.Account, submitted string, now time.Time) error {
	if acc.OTPCode == "" {
		return model.ErrInvalidCode
	}
	if subtle.ConstantTimeCompare([]byte(acc.OTPCode), []byte(submitted)) != 1 {
		return model.ErrInvalidCode
	}
	if !now.Before(acc.OTPExpiry) {
		return model.ErrExpiredCode
	}

	acc.IsVerified = true
	acc.OTPCode = ""
	acc.OTPExpiry = model.ClearedExpiry
	return nil
}
