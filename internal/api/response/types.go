package response

import (
	"time"

	"github.com/mcoot/sagespace/internal/api/apierr"
	"github.com/mcoot/sagespace/internal/model"
	"github.com/mcoot/sagespace/internal/services/account"
	"github.com/mcoot/sagespace/internal/services/inbox"
	"github.com/mcoot/sagespace/internal/services/session"
)

// Account represents the public identity of an account in API responses
type Account struct {
	ID                  string `json:"id"`
	Username            string `json:"username"`
	Email               string `json:"email"`
	IsVerified          bool   `json:"is_verified"`
	IsAcceptingMessages bool   `json:"is_accepting_messages"`
	DisplayName         string `json:"display_name,omitempty"`
	AvatarURL           string `json:"avatar_url,omitempty"`
}

// AccountFromIdentity converts a model.Identity to a response Account
func AccountFromIdentity(i *model.Identity) Account {
	return Account{
		ID:                  string(i.ID),
		Username:            i.Username,
		Email:               i.Email,
		IsVerified:          i.IsVerified,
		IsAcceptingMessages: i.IsAcceptingMessages,
		DisplayName:         i.DisplayName,
		AvatarURL:           i.AvatarURL,
	}
}

// CodeSent is the response for register and resend
type CodeSent struct {
	AccountID     string          `json:"account_id"`
	Username      string          `json:"username"`
	Email         string          `json:"email"`
	CodeExpiresAt time.Time       `json:"code_expires_at"`
	Reactivated   bool            `json:"reactivated"`
	Warning       *apierr.Warning `json:"warning,omitempty"`
}

// CodeSentFromRegistration converts an account.Registration
func CodeSentFromRegistration(r *account.Registration) CodeSent {
	return CodeSent{
		AccountID:     string(r.AccountID),
		Username:      r.Username,
		Email:         r.Email,
		CodeExpiresAt: r.CodeExpiresAt,
		Reactivated:   r.Reactivated,
	}
}

// AuthResponse is the response for authentication endpoints
type AuthResponse struct {
	Account      Account   `json:"account"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *session.Session) AuthResponse {
	return AuthResponse{
		Account:      AccountFromIdentity(&s.Identity),
		SessionToken: s.Token,
		ExpiresAt:    s.ExpiresAt,
	}
}

// Availability is the response for the username availability check
type Availability struct {
	Username  string `json:"username"`
	Available bool   `json:"available"`
}

// AcceptingMessages is the response after toggling the inbox
type AcceptingMessages struct {
	Accepting bool `json:"accepting"`
}

// Message is one inbox message
type Message struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// MessagePage is one page of the caller's inbox
type MessagePage struct {
	Messages   []Message `json:"messages"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalPages int       `json:"total_pages"`
}

// MessagePageFromInbox converts an inbox.Page
func MessagePageFromInbox(p *inbox.Page) MessagePage {
	msgs := make([]Message, len(p.Messages))
	for i, m := range p.Messages {
		msgs[i] = Message{Content: m.Content, CreatedAt: m.CreatedAt}
	}
	return MessagePage{
		Messages:   msgs,
		Total:      p.Total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: p.TotalPages,
	}
}

// Health is the liveness response
type Health struct {
	Status  string `json:"status"`
	Storage string `json:"storage,omitempty"`
}
