package mailer

import (
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSMTPSenderRequiresHostAndFrom(t *testing.T) {
	_, err := NewSMTPSender(SMTPConfig{From: "noreply@x.com"})
	assert.Error(t, err)

	_, err = NewSMTPSender(SMTPConfig{Host: "smtp.x.com"})
	assert.Error(t, err)

	s, err := NewSMTPSender(SMTPConfig{Host: "smtp.x.com", From: "noreply@x.com"})
	require.NoError(t, err)
	assert.Equal(t, 587, s.cfg.Port)
}

func TestSMTPSenderReportsConnectionFailure(t *testing.T) {
	s, err := NewSMTPSender(SMTPConfig{
		Host:    "127.0.0.1",
		Port:    1,
		From:    "noreply@x.com",
		Timeout: time.Second,
	})
	require.NoError(t, err)

	err = s.Send(context.Background(), VerificationMessage("a@x.com", "alice_01", "123456", time.Minute))
	assert.ErrorContains(t, err, "smtp connect")
}

// silentRelay accepts connections and never sends a greeting
func silentRelay(t *testing.T) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()

	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return ln.Addr().(*net.TCPAddr).Port
}

func sendAsync(ctx context.Context, s *SMTPSender) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- s.Send(ctx, VerificationMessage("a@x.com", "alice_01", "123456", time.Minute))
	}()
	return done
}

func TestSMTPSenderTimesOutOnSilentRelay(t *testing.T) {
	s, err := NewSMTPSender(SMTPConfig{
		Host:    "127.0.0.1",
		Port:    silentRelay(t),
		From:    "noreply@x.com",
		Timeout: 200 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	select {
	case err := <-sendAsync(ctx, s):
		assert.ErrorContains(t, err, "smtp connect")
	case <-time.After(3 * time.Second):
		t.Fatal("Send blocked past its timeout")
	}
}

func TestSMTPSenderStopsOnCancel(t *testing.T) {
	s, err := NewSMTPSender(SMTPConfig{
		Host:    "127.0.0.1",
		Port:    silentRelay(t),
		From:    "noreply@x.com",
		Timeout: time.Minute,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := sendAsync(ctx, s)
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("Send ignored cancellation")
	}
}

func TestBuildMessage(t *testing.T) {
	raw := buildMessage("SageSpace <noreply@x.com>", "a@x.com", "Hi", "<p>body</p>")

	assert.True(t, strings.HasPrefix(raw, "From: SageSpace <noreply@x.com>\r\n"))
	assert.Contains(t, raw, "Content-Type: text/html; charset=utf-8\r\n\r\n<p>body</p>")
}

func TestParseAddress(t *testing.T) {
	assert.Equal(t, "noreply@x.com", parseAddress("SageSpace <noreply@x.com>"))
	assert.Equal(t, "noreply@x.com", parseAddress("  noreply@x.com "))
}
