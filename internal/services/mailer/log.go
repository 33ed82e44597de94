package mailer

import (
	"context"
	"log/slog"
)

// LogSender writes messages to the log instead of delivering them.
// Intended for local development only: it logs verification codes.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs the message
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if _, err := Render(ctx, msg.Template, msg.Data); err != nil {
		return err
	}

	attrs := []any{
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("template", msg.Template),
	}
	if code, ok := msg.Data["code"]; ok {
		attrs = append(attrs, slog.String("code", code))
	}
	s.logger.InfoContext(ctx, "email not sent (log transport)", attrs...)
	return nil
}
