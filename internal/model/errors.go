package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Common errors used across the application
var (
	// Validation errors
	ErrValidation = errors.New("validation failed")

	// Lookup errors
	ErrAccountNotFound = errors.New("account not found")

	// Conflict errors
	ErrUsernameTaken        = errors.New("username already taken")
	ErrEmailTaken           = errors.New("email already registered")
	ErrAlreadyVerified      = errors.New("account is already verified")
	ErrConcurrentUpdate     = errors.New("account was modified concurrently")
	ErrNotAcceptingMessages = errors.New("account is not accepting messages")

	// Verification errors
	ErrRateLimited = errors.New("verification code requested too soon")
	ErrInvalidCode = errors.New("invalid verification code")
	ErrExpiredCode = errors.New("verification code has expired")
	ErrNotVerified = errors.New("account is not verified")

	// Credential errors
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Delivery errors
	ErrDeliveryFailed = errors.New("verification email could not be delivered")
)

// ValidationError reports malformed input, keyed by field name
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError creates a ValidationError for a single field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// RateLimitedError is returned when a new code is requested before the
// minimum interval has elapsed
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s: retry after %s", ErrRateLimited, e.RetryAfter.Round(time.Second))
}

func (e *RateLimitedError) Unwrap() error {
	return ErrRateLimited
}

// DeliveryError is returned when the account change was committed but the
// verification email could not be sent
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string {
	if e.Err == nil {
		return ErrDeliveryFailed.Error()
	}
	return fmt.Sprintf("%s: %v", ErrDeliveryFailed, e.Err)
}

func (e *DeliveryError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDeliveryFailed}
	}
	return []error{ErrDeliveryFailed, e.Err}
}

// ErrorKind tags an error with the outcome category the transport layer reports
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindRateLimited
	KindInvalidCode
	KindExpiredCode
	KindCredential
	KindUnverified
	KindForbidden
	KindDelivery
)

var kindNames = map[ErrorKind]string{
	KindInternal:    "internal",
	KindValidation:  "validation",
	KindNotFound:    "not_found",
	KindConflict:    "conflict",
	KindRateLimited: "rate_limited",
	KindInvalidCode: "invalid_code",
	KindExpiredCode: "expired_code",
	KindCredential:  "credential",
	KindUnverified:  "unverified",
	KindForbidden:   "forbidden",
	KindDelivery:    "delivery",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// KindOf classifies err. A nil error is reported as KindInternal and
// should not be asked about.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrDeliveryFailed):
		return KindDelivery
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrAccountNotFound):
		return KindNotFound
	case errors.Is(err, ErrUsernameTaken),
		errors.Is(err, ErrEmailTaken),
		errors.Is(err, ErrAlreadyVerified),
		errors.Is(err, ErrConcurrentUpdate):
		return KindConflict
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrInvalidCode):
		return KindInvalidCode
	case errors.Is(err, ErrExpiredCode):
		return KindExpiredCode
	case errors.Is(err, ErrInvalidCredentials):
		return KindCredential
	case errors.Is(err, ErrNotVerified):
		return KindUnverified
	case errors.Is(err, ErrNotAcceptingMessages):
		return KindForbidden
	default:
		return KindInternal
	}
}
