package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// SMTPConfig holds SMTP relay settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// SMTPSender delivers messages through an SMTP relay.
// Port 465 uses implicit TLS, anything else upgrades with STARTTLS when offered.
type SMTPSender struct {
	cfg SMTPConfig
}

// NewSMTPSender creates an SMTPSender
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("smtp from address is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SMTPSender{cfg: cfg}, nil
}

// Send renders and delivers the message. The whole SMTP session, greeting
// included, is bounded by the configured timeout and by ctx.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	body, err := Render(ctx, msg.Template, msg.Data)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(s.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	conn, err := s.dial(ctx, deadline)
	if err != nil {
		return fmt.Errorf("smtp connect: %w", withCause(ctx, err))
	}
	defer func() { _ = conn.Close() }()

	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("smtp connect: %w", err)
	}
	// Unblocks any pending read or write once ctx is cancelled
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	client, err := s.handshake(conn)
	if err != nil {
		return fmt.Errorf("smtp connect: %w", withCause(ctx, err))
	}
	defer func() { _ = client.Close() }()

	if s.cfg.Username != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", withCause(ctx, err))
		}
	}
	if err := client.Mail(parseAddress(s.cfg.From)); err != nil {
		return fmt.Errorf("smtp mail from: %w", withCause(ctx, err))
	}
	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("smtp rcpt: %w", withCause(ctx, err))
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", withCause(ctx, err))
	}
	if _, err := w.Write([]byte(buildMessage(s.cfg.From, msg.To, msg.Subject, body))); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp write: %w", withCause(ctx, err))
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp write: %w", withCause(ctx, err))
	}
	if err := client.Quit(); err != nil {
		return fmt.Errorf("smtp quit: %w", withCause(ctx, err))
	}
	return nil
}

// dial opens the connection, with implicit TLS on port 465
func (s *SMTPSender) dial(ctx context.Context, deadline time.Time) (net.Conn, error) {
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
	dialer := &net.Dialer{}

	if s.cfg.Port == 465 {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: s.cfg.Host}}
		return tlsDialer.DialContext(ctx, "tcp", addr)
	}
	return dialer.DialContext(ctx, "tcp", addr)
}

// handshake reads the greeting and upgrades with STARTTLS when offered
func (s *SMTPSender) handshake(conn net.Conn) (*smtp.Client, error) {
	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return nil, err
	}
	if s.cfg.Port == 465 {
		return client, nil
	}
	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
			_ = client.Close()
			return nil, err
		}
	}
	return client, nil
}

// withCause reports ctx's error when cancellation is what broke the session
func withCause(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errors.Join(ctxErr, err)
	}
	return err
}

func buildMessage(from, to, subject, htmlBody string) string {
	headers := []string{
		"From: " + from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=utf-8",
		"",
		htmlBody,
	}
	return strings.Join(headers, "\r\n")
}

// parseAddress extracts the bare address from "Name <addr>"
func parseAddress(from string) string {
	start := strings.Index(from, "<")
	end := strings.Index(from, ">")
	if start >= 0 && end > start {
		return strings.TrimSpace(from[start+1 : end])
	}
	return strings.TrimSpace(from)
}
