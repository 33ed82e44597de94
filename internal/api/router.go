package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mcoot/sagespace/internal/api/handler"
	"github.com/mcoot/sagespace/internal/api/middleware"
	"github.com/mcoot/sagespace/internal/api/response"
	"github.com/mcoot/sagespace/internal/services/account"
	"github.com/mcoot/sagespace/internal/services/inbox"
	"github.com/mcoot/sagespace/internal/services/session"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger         *slog.Logger
	AccountService *account.Service
	InboxService   *inbox.Service
	SessionManager *session.Manager
	Storage        Pinger
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	accountHandler := handler.NewAccountHandler(cfg.AccountService, cfg.SessionManager)
	meHandler := handler.NewMeHandler(cfg.AccountService, cfg.InboxService)
	messageHandler := handler.NewMessageHandler(cfg.InboxService)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.SessionManager)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(loggingMiddleware)
	api.Use(recoveryMiddleware)

	// Account lifecycle routes (no auth)
	accounts := api.PathPrefix("/accounts").Subrouter()
	accounts.HandleFunc("/register", accountHandler.Register).Methods(http.MethodPost)
	accounts.HandleFunc("/verify", accountHandler.Verify).Methods(http.MethodPost)
	accounts.HandleFunc("/resend", accountHandler.Resend).Methods(http.MethodPost)
	accounts.HandleFunc("/login", accountHandler.Login).Methods(http.MethodPost)
	accounts.HandleFunc("/username-available", accountHandler.UsernameAvailable).Methods(http.MethodGet)

	// Signed-in account routes
	me := api.PathPrefix("/me").Subrouter()
	me.Use(authMiddleware)
	me.HandleFunc("", meHandler.Get).Methods(http.MethodGet)
	me.HandleFunc("/profile", meHandler.UpdateProfile).Methods(http.MethodPatch)
	me.HandleFunc("/password", meHandler.ChangePassword).Methods(http.MethodPost)
	me.HandleFunc("/accepting-messages", meHandler.SetAcceptingMessages).Methods(http.MethodPut)
	me.HandleFunc("/messages", meHandler.ListMessages).Methods(http.MethodGet)

	// Anonymous messages (no auth)
	api.HandleFunc("/users/{username}/messages", messageHandler.Send).Methods(http.MethodPost)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler(cfg.Storage)).Methods(http.MethodGet)

	return r
}

func healthHandler(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			response.JSON(w, http.StatusOK, response.Health{Status: "ok"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			response.JSON(w, http.StatusServiceUnavailable, response.Health{Status: "degraded", Storage: "unreachable"})
			return
		}
		response.JSON(w, http.StatusOK, response.Health{Status: "ok", Storage: "ok"})
	}
}
