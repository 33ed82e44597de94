package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mcoot/sagespace/internal/api/apierr"
	"github.com/mcoot/sagespace/internal/model"
	"github.com/mcoot/sagespace/internal/services/session"
)

type contextKey string

const sessionContextKey contextKey = "session"

// SessionCookieName is the cookie checked when no Authorization header is sent
const SessionCookieName = "session"

// Auth creates authentication middleware
func Auth(sessions *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			s, err := sessions.Validate(token)
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken extracts the session token from the request
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}

	cookie, err := r.Cookie(SessionCookieName)
	if err == nil {
		return cookie.Value
	}

	return ""
}

// GetSession returns the session from the request context
func GetSession(ctx context.Context) *session.Session {
	s, _ := ctx.Value(sessionContextKey).(*session.Session)
	return s
}

// MustGetAccountID returns the authenticated account ID or panics
func MustGetAccountID(ctx context.Context) model.AccountID {
	s := GetSession(ctx)
	if s == nil {
		panic("no session in context - auth middleware not applied?")
	}
	return s.AccountID
}
