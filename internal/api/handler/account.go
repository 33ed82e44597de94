package handler

import (
	"errors"
	"net/http"

	"github.com/mcoot/sagespace/internal/api/apierr"
	"github.com/mcoot/sagespace/internal/api/request"
	"github.com/mcoot/sagespace/internal/api/response"
	"github.com/mcoot/sagespace/internal/model"
	"github.com/mcoot/sagespace/internal/services/account"
	"github.com/mcoot/sagespace/internal/services/session"
)

// AccountHandler handles the public account lifecycle endpoints
type AccountHandler struct {
	accounts *account.Service
	sessions *session.Manager
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accounts *account.Service, sessions *session.Manager) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		sessions: sessions,
	}
}

// Register handles POST /api/v1/accounts/register
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	reg, err := h.accounts.Register(r.Context(), account.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	writeCodeSent(w, http.StatusCreated, reg, err)
}

// Verify handles POST /api/v1/accounts/verify
func (h *AccountHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req request.VerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	identity, err := h.accounts.Verify(r.Context(), account.VerifyInput{
		Email: req.Email,
		Code:  req.Code,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AccountFromIdentity(identity))
}

// Resend handles POST /api/v1/accounts/resend
func (h *AccountHandler) Resend(w http.ResponseWriter, r *http.Request) {
	var req request.ResendRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	reg, err := h.accounts.ResendCode(r.Context(), account.ResendInput{Email: req.Email})
	writeCodeSent(w, http.StatusOK, reg, err)
}

// Login handles POST /api/v1/accounts/login
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	identity, err := h.accounts.SignIn(r.Context(), account.SignInInput{
		Identifier: req.Identifier,
		Password:   req.Password,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	s, err := h.sessions.Issue(*identity)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AuthResponseFromSession(s))
}

// UsernameAvailable handles GET /api/v1/accounts/username-available
func (h *AccountHandler) UsernameAvailable(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")

	available, err := h.accounts.UsernameAvailable(r.Context(), username)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.Availability{
		Username:  username,
		Available: available,
	})
}

// writeCodeSent reports a register or resend outcome. A delivery failure
// still committed the account change, so it is reported as 202 with a
// warning instead of an error.
func writeCodeSent(w http.ResponseWriter, status int, reg *account.Registration, err error) {
	if err != nil && !(reg != nil && errors.Is(err, model.ErrDeliveryFailed)) {
		WriteError(w, err)
		return
	}

	body := response.CodeSentFromRegistration(reg)
	if err != nil {
		body.Warning = apierr.DeliveryWarning()
		status = http.StatusAccepted
	}
	response.JSON(w, status, body)
}
