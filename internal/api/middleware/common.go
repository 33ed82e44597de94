package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/sagespace/internal/api/apierr"
	"github.com/mcoot/sagespace/internal/middleware"
)

// Logging logs every API request under its request ID
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Logging(logger)
}

// Recovery answers a panicking handler with a generic INTERNAL_ERROR body.
// The connection is closed since the handler may have left it mid-write.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Connection", "close")
		apierr.WriteError(w, apierr.NewInternalError())
	})
}
