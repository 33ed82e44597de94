package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/sagespace/internal/api/request"
	"github.com/mcoot/sagespace/internal/api/response"
	"github.com/mcoot/sagespace/internal/services/inbox"
)

// MessageHandler handles anonymous message delivery
type MessageHandler struct {
	inbox *inbox.Service
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(inbox *inbox.Service) *MessageHandler {
	return &MessageHandler{inbox: inbox}
}

// Send handles POST /api/v1/users/{username}/messages
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	var req request.SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	err := h.inbox.Send(r.Context(), inbox.SendInput{
		Username: username,
		Content:  req.Content,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, map[string]bool{"sent": true})
}
