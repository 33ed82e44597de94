// Package mailer delivers transactional email. The account service only
// depends on the Sender interface; transports are chosen at wiring time.
package mailer

import (
	"context"
	"time"
)

// Template names understood by Render
const (
	TemplateVerification = "verification"
)

// Subject used for verification emails
const VerificationSubject = "Your SageSpace Verification Code"

// Message is a templated email
type Message struct {
	To       string
	Subject  string
	Template string
	Data     map[string]string
}

// Sender delivers a message or reports why it could not
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// VerificationMessage builds the message carrying a one-time code
func VerificationMessage(to, username, code string, validity time.Duration) Message {
	return Message{
		To:       to,
		Subject:  VerificationSubject,
		Template: TemplateVerification,
		Data: map[string]string{
			"username": username,
			"email":    to,
			"code":     code,
			"validity": validity.String(),
		},
	}
}
