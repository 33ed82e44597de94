// Package clock abstracts wall-clock time. Code expiry, resend throttling and
// session lifetimes all read the time through it so tests can drive them.
package clock

import "time"

// Clock reports the current time
type Clock interface {
	Now() time.Time
}

// System reads the host clock
type System struct{}

// New returns the host clock
func New() System {
	return System{}
}

// Now returns the current time in UTC at millisecond precision, the coarsest
// any storage backend keeps, so stored timestamps compare equal after reload.
func (System) Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
