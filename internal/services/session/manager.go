// Package session turns a signed-in identity into an HS256 bearer token and
// back. It holds no state; a token is valid until it expires.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mcoot/sagespace/internal/dependencies/clock"
	"github.com/mcoot/sagespace/internal/model"
)

const (
	issuer          = "sagespace"
	minSecretLength = 16
)

var (
	ErrInvalidSession = errors.New("invalid or expired session")
	ErrWeakSecret     = fmt.Errorf("session secret must be at least %d bytes", minSecretLength)
)

// Session represents an authenticated session
type Session struct {
	Token     string
	AccountID model.AccountID
	Identity  model.Identity
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Config holds configuration for the session manager
type Config struct {
	Secret   string
	Duration time.Duration
}

// DefaultDuration is how long a session token is valid
const DefaultDuration = 24 * time.Hour

type claims struct {
	Email               string `json:"email"`
	Username            string `json:"username"`
	IsVerified          bool   `json:"is_verified"`
	IsAcceptingMessages bool   `json:"is_accepting_messages"`
	DisplayName         string `json:"display_name,omitempty"`
	AvatarURL           string `json:"avatar_url,omitempty"`
	jwt.RegisteredClaims
}

// Manager issues and validates session tokens
type Manager struct {
	secret   []byte
	duration time.Duration
	clock    clock.Clock
}

// New creates a Manager
func New(cfg Config, clock clock.Clock) (*Manager, error) {
	if len(cfg.Secret) < minSecretLength {
		return nil, ErrWeakSecret
	}
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultDuration
	}
	return &Manager{
		secret:   []byte(cfg.Secret),
		duration: cfg.Duration,
		clock:    clock,
	}, nil
}

// Issue signs a token for identity
func (m *Manager) Issue(identity model.Identity) (*Session, error) {
	now := m.clock.Now().Truncate(time.Second)
	expires := now.Add(m.duration)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email:               identity.Email,
		Username:            identity.Username,
		IsVerified:          identity.IsVerified,
		IsAcceptingMessages: identity.IsAcceptingMessages,
		DisplayName:         identity.DisplayName,
		AvatarURL:           identity.AvatarURL,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   string(identity.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}

	return &Session{
		Token:     signed,
		AccountID: identity.ID,
		Identity:  identity,
		IssuedAt:  now,
		ExpiresAt: expires,
	}, nil
}

// Validate parses and checks a token. Any failure is ErrInvalidSession.
func (m *Manager) Validate(token string) (*Session, error) {
	c := &claims{}
	parsed, err := jwt.ParseWithClaims(token, c,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.clock.Now),
	)
	if err != nil || !parsed.Valid || c.Subject == "" {
		return nil, ErrInvalidSession
	}

	id := model.AccountID(c.Subject)
	s := &Session{
		Token:     token,
		AccountID: id,
		Identity: model.Identity{
			ID:                  id,
			Email:               c.Email,
			Username:            c.Username,
			IsVerified:          c.IsVerified,
			IsAcceptingMessages: c.IsAcceptingMessages,
			DisplayName:         c.DisplayName,
			AvatarURL:           c.AvatarURL,
		},
	}
	if c.IssuedAt != nil {
		s.IssuedAt = c.IssuedAt.Time.UTC()
	}
	if c.ExpiresAt != nil {
		s.ExpiresAt = c.ExpiresAt.Time.UTC()
	}
	return s, nil
}
