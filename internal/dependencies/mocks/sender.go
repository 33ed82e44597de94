package mocks

import (
	"context"
	"sync"

	"github.com/mcoot/sagespace/internal/services/mailer"
)

// MockSender records sent messages for assertions
type MockSender struct {
	mu       sync.Mutex
	messages []mailer.Message

	// Err, when set, is returned from every Send and nothing is recorded
	Err error
}

// Ensure MockSender implements Sender
var _ mailer.Sender = (*MockSender)(nil)

// NewMockSender creates a new MockSender
func NewMockSender() *MockSender {
	return &MockSender{}
}

// Send records the message, or fails with Err
func (s *MockSender) Send(_ context.Context, msg mailer.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.messages = append(s.messages, msg)
	return nil
}

// Messages returns a copy of everything sent so far
func (s *MockSender) Messages() []mailer.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]mailer.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Last returns the most recent message, or false if none
func (s *MockSender) Last() (mailer.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return mailer.Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}

// LastCodeFor returns the code in the most recent message sent to addr
func (s *MockSender) LastCodeFor(addr string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].To == addr {
			return s.messages[i].Data["code"], true
		}
	}
	return "", false
}

// SetErr sets the error returned by Send
func (s *MockSender) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Err = err
}
