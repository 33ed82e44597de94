package apierr

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/mcoot/sagespace/internal/model"
	"github.com/mcoot/sagespace/internal/services/session"
)

// APIError represents an API error response
type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Warning is attached to a successful response whose side effect failed
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Stable error codes
const (
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeValidationFailed     = "VALIDATION_FAILED"
	CodeAccountNotFound      = "ACCOUNT_NOT_FOUND"
	CodeUsernameTaken        = "USERNAME_TAKEN"
	CodeEmailTaken           = "EMAIL_TAKEN"
	CodeAlreadyVerified      = "ALREADY_VERIFIED"
	CodeConflict             = "CONFLICT"
	CodeRateLimited          = "RATE_LIMITED"
	CodeInvalidCode          = "INVALID_CODE"
	CodeCodeExpired          = "CODE_EXPIRED"
	CodeInvalidCredentials   = "INVALID_CREDENTIALS"
	CodeNotVerified          = "NOT_VERIFIED"
	CodeNotAcceptingMessages = "NOT_ACCEPTING_MESSAGES"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeDeliveryFailed       = "DELIVERY_FAILED"
	CodeInternalError        = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status     int
	apiError   APIError
	retryAfter int
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	if he.retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(he.retryAfter))
	}
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status WriteError would use for err
func Status(err error) int {
	return toHTTPError(err).status
}

// DeliveryWarning returns the warning reported alongside a 202 when the
// account change was stored but the verification email was not sent
func DeliveryWarning() *Warning {
	return &Warning{
		Code:    CodeDeliveryFailed,
		Message: "Verification email could not be delivered; request a new code",
	}
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	var ve *model.ValidationError
	if errors.As(err, &ve) {
		return &httpError{status: http.StatusBadRequest, apiError: APIError{
			Code:    CodeValidationFailed,
			Message: "Validation failed",
			Fields:  ve.Fields,
		}}
	}

	var rle *model.RateLimitedError
	if errors.As(err, &rle) {
		return &httpError{
			status:     http.StatusTooManyRequests,
			apiError:   APIError{Code: CodeRateLimited, Message: "Please wait before requesting another code"},
			retryAfter: int(math.Ceil(rle.RetryAfter.Seconds())),
		}
	}

	switch {
	case errors.Is(err, model.ErrAccountNotFound):
		return newHTTPError(http.StatusNotFound, CodeAccountNotFound, "Account not found")
	case errors.Is(err, model.ErrUsernameTaken):
		return newHTTPError(http.StatusConflict, CodeUsernameTaken, "Username is already taken")
	case errors.Is(err, model.ErrEmailTaken):
		return newHTTPError(http.StatusConflict, CodeEmailTaken, "Email is already registered")
	case errors.Is(err, model.ErrAlreadyVerified):
		return newHTTPError(http.StatusConflict, CodeAlreadyVerified, "Account is already verified")
	case errors.Is(err, model.ErrConcurrentUpdate):
		return newHTTPError(http.StatusConflict, CodeConflict, "Account was modified concurrently; try again")
	case errors.Is(err, model.ErrRateLimited):
		return newHTTPError(http.StatusTooManyRequests, CodeRateLimited, "Please wait before requesting another code")
	case errors.Is(err, model.ErrInvalidCode):
		return newHTTPError(http.StatusBadRequest, CodeInvalidCode, "Invalid verification code")
	case errors.Is(err, model.ErrExpiredCode):
		return newHTTPError(http.StatusGone, CodeCodeExpired, "Verification code has expired; request a new one")
	case errors.Is(err, model.ErrInvalidCredentials):
		return newHTTPError(http.StatusUnauthorized, CodeInvalidCredentials, "Invalid credentials")
	case errors.Is(err, model.ErrNotVerified):
		return newHTTPError(http.StatusForbidden, CodeNotVerified, "Account is not verified")
	case errors.Is(err, model.ErrNotAcceptingMessages):
		return newHTTPError(http.StatusForbidden, CodeNotAcceptingMessages, "User is not accepting messages")
	case errors.Is(err, session.ErrInvalidSession):
		return newHTTPError(http.StatusUnauthorized, CodeUnauthorized, "Invalid or expired session")
	default:
		return newHTTPError(http.StatusInternalServerError, CodeInternalError, "Internal server error")
	}
}

func newHTTPError(status int, code, message string) *httpError {
	return &httpError{status: status, apiError: APIError{Code: code, Message: message}}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return newHTTPError(http.StatusBadRequest, CodeInvalidRequest, message)
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return newHTTPError(http.StatusUnauthorized, CodeUnauthorized, "Authentication required")
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return newHTTPError(http.StatusInternalServerError, CodeInternalError, "Internal server error")
}
