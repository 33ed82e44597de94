package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/sagespace/internal/dependencies/mocks"
	"github.com/mcoot/sagespace/internal/model"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var identity = model.Identity{
	ID:                  "acc-1",
	Email:               "a@x.com",
	Username:            "alice_01",
	IsVerified:          true,
	IsAcceptingMessages: true,
	DisplayName:         "Alice",
}

func newManager(t *testing.T) (*Manager, *mocks.MockClock) {
	t.Helper()
	clk := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	m, err := New(Config{Secret: testSecret, Duration: time.Hour}, clk)
	require.NoError(t, err)
	return m, clk
}

func TestNewRejectsShortSecret(t *testing.T) {
	_, err := New(Config{Secret: "short"}, mocks.NewMockClock(time.Now()))
	assert.ErrorIs(t, err, ErrWeakSecret)
}

func TestNewDefaultsDuration(t *testing.T) {
	m, err := New(Config{Secret: testSecret}, mocks.NewMockClock(time.Now()))
	require.NoError(t, err)
	assert.Equal(t, DefaultDuration, m.duration)
}

func TestIssueAndValidate(t *testing.T) {
	m, clk := newManager(t)

	s, err := m.Issue(identity)
	require.NoError(t, err)
	assert.NotEmpty(t, s.Token)
	assert.Equal(t, identity.ID, s.AccountID)
	assert.Equal(t, clk.Now().Add(time.Hour), s.ExpiresAt)

	got, err := m.Validate(s.Token)
	require.NoError(t, err)
	assert.Equal(t, identity, got.Identity)
	assert.True(t, s.ExpiresAt.Equal(got.ExpiresAt))
	assert.True(t, s.IssuedAt.Equal(got.IssuedAt))
}

func TestValidateExpired(t *testing.T) {
	m, clk := newManager(t)

	s, err := m.Issue(identity)
	require.NoError(t, err)

	clk.Advance(time.Hour + time.Second)
	_, err = m.Validate(s.Token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestValidateWrongSecret(t *testing.T) {
	m, clk := newManager(t)
	other, err := New(Config{Secret: "another-secret-value-32-bytes!!!"}, clk)
	require.NoError(t, err)

	s, err := other.Issue(identity)
	require.NoError(t, err)

	_, err = m.Validate(s.Token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestValidateGarbage(t *testing.T) {
	m, _ := newManager(t)

	for _, token := range []string{"", "garbage", "a.b.c"} {
		_, err := m.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidSession, token)
	}
}

func TestValidateRejectsOtherAlgorithms(t *testing.T) {
	m, clk := newManager(t)

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "acc-1",
			ExpiresAt: jwt.NewNumericDate(clk.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = m.Validate(signed)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestValidateRequiresSubject(t *testing.T) {
	m, clk := newManager(t)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(clk.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = m.Validate(signed)
	assert.ErrorIs(t, err, ErrInvalidSession)
}
