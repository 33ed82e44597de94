package handler

import (
	"net/http"
	"strconv"

	"github.com/mcoot/sagespace/internal/api/middleware"
	"github.com/mcoot/sagespace/internal/api/request"
	"github.com/mcoot/sagespace/internal/api/response"
	"github.com/mcoot/sagespace/internal/services/account"
	"github.com/mcoot/sagespace/internal/services/inbox"
)

// MeHandler handles endpoints acting on the signed-in account
type MeHandler struct {
	accounts *account.Service
	inbox    *inbox.Service
}

// NewMeHandler creates a new handler for the signed-in account
func NewMeHandler(accounts *account.Service, inbox *inbox.Service) *MeHandler {
	return &MeHandler{
		accounts: accounts,
		inbox:    inbox,
	}
}

// Get handles GET /api/v1/me
func (h *MeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := middleware.MustGetAccountID(r.Context())

	identity, err := h.accounts.Profile(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AccountFromIdentity(identity))
}

// UpdateProfile handles PATCH /api/v1/me/profile
func (h *MeHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id := middleware.MustGetAccountID(r.Context())

	var req request.UpdateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	identity, err := h.accounts.UpdateProfile(r.Context(), id, account.UpdateProfileInput{
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AccountFromIdentity(identity))
}

// ChangePassword handles POST /api/v1/me/password
func (h *MeHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id := middleware.MustGetAccountID(r.Context())

	var req request.ChangePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	err := h.accounts.ChangePassword(r.Context(), id, account.ChangePasswordInput{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// SetAcceptingMessages handles PUT /api/v1/me/accepting-messages
func (h *MeHandler) SetAcceptingMessages(w http.ResponseWriter, r *http.Request) {
	id := middleware.MustGetAccountID(r.Context())

	var req request.AcceptingMessagesRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.Accepting == nil {
		WriteError(w, NewInvalidRequestError("accepting is required"))
		return
	}

	accepting, err := h.accounts.SetAcceptingMessages(r.Context(), id, *req.Accepting)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AcceptingMessages{Accepting: accepting})
}

// ListMessages handles GET /api/v1/me/messages
func (h *MeHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	id := middleware.MustGetAccountID(r.Context())

	page, err := queryInt(r, "page", 1)
	if err != nil {
		WriteError(w, err)
		return
	}
	limit, err := queryInt(r, "limit", inbox.DefaultPageSize)
	if err != nil {
		WriteError(w, err)
		return
	}

	p, err := h.inbox.List(r.Context(), id, page, limit)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MessagePageFromInbox(p))
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, NewInvalidRequestError(name + " must be an integer")
	}
	return v, nil
}
