// Package ratelimit throttles how often a verification code may be sent to
// the same account.
package ratelimit

import (
	"time"

	"github.com/mcoot/sagespace/internal/model"
)

// DefaultMinInterval is the minimum time between two codes for one account
const DefaultMinInterval = 2 * time.Minute

// Limiter enforces a minimum interval between verification sends, keyed on
// the account's LastVerificationSentAt
type Limiter struct {
	minInterval time.Duration
}

// New creates a Limiter. A non-positive interval falls back to DefaultMinInterval.
func New(minInterval time.Duration) *Limiter {
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	return &Limiter{minInterval: minInterval}
}

// MinInterval returns the configured interval
func (l *Limiter) MinInterval() time.Duration {
	return l.minInterval
}

// Allow reports whether a code may be sent to acc at now, and if not how long
// the caller must wait
func (l *Limiter) Allow(acc *model.Account, now time.Time) (bool, time.Duration) {
	if !acc.HasSentVerification() {
		return true, 0
	}

	elapsed := now.Sub(acc.LastVerificationSentAt)
	if elapsed >= l.minInterval {
		return true, 0
	}
	return false, l.minInterval - elapsed
}

// Check is Allow as an error: *model.RateLimitedError when throttled
func (l *Limiter) Check(acc *model.Account, now time.Time) error {
	if ok, wait := l.Allow(acc, now); !ok {
		return &model.RateLimitedError{RetryAfter: wait}
	}
	return nil
}

// Record stamps acc as having been sent a code at now
func (l *Limiter) Record(acc *model.Account, now time.Time) {
	acc.LastVerificationSentAt = now
}
