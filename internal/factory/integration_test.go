package factory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/sagespace/internal/model"
	"github.com/mcoot/sagespace/internal/services/account"
	"github.com/mcoot/sagespace/internal/services/inbox"
	"github.com/mcoot/sagespace/internal/storage/memory"
	redisstorage "github.com/mcoot/sagespace/internal/storage/redis"
	"github.com/mcoot/sagespace/internal/testutil"
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()
}

func (s *IntegrationSuite) registerAndVerify(username, email string) *model.Identity {
	_, err := s.app.AccountService.Register(s.ctx, account.RegisterInput{
		Username: username,
		Email:    email,
		Password: "Secret12",
	})
	s.Require().NoError(err)

	code, ok := s.app.MockSender.LastCodeFor(email)
	s.Require().True(ok)

	identity, err := s.app.AccountService.Verify(s.ctx, account.VerifyInput{Email: email, Code: code})
	s.Require().NoError(err)
	return identity
}

// Test: register, verify, sign in, then use the session
func (s *IntegrationSuite) TestAccountLifecycle() {
	s.app.MockRandom.QueueIntn(424242)

	reg, err := s.app.AccountService.Register(s.ctx, account.RegisterInput{
		Username: "alice_01",
		Email:    "Alice@Example.com",
		Password: "Secret12",
	})
	s.Require().NoError(err)
	s.Equal("alice@example.com", reg.Email)

	// Sign-in is refused until the email is verified
	_, err = s.app.AccountService.SignIn(s.ctx, account.SignInInput{Identifier: "alice_01", Password: "Secret12"})
	s.ErrorIs(err, model.ErrNotVerified)

	code, ok := s.app.MockSender.LastCodeFor("alice@example.com")
	s.Require().True(ok)
	s.Equal("424242", code)

	s.app.MockClock.Advance(time.Minute)
	_, err = s.app.AccountService.Verify(s.ctx, account.VerifyInput{Email: "alice@example.com", Code: code})
	s.Require().NoError(err)

	identity, err := s.app.AccountService.SignIn(s.ctx, account.SignInInput{Identifier: "alice@example.com", Password: "Secret12"})
	s.Require().NoError(err)
	s.True(identity.IsVerified)

	sess, err := s.app.SessionManager.Issue(*identity)
	s.Require().NoError(err)

	got, err := s.app.SessionManager.Validate(sess.Token)
	s.Require().NoError(err)
	s.Equal(reg.AccountID, got.AccountID)
	s.Equal("alice_01", got.Identity.Username)
}

// Test: sessions expire on the application clock
func (s *IntegrationSuite) TestSessionExpiresWithClock() {
	identity := s.registerAndVerify("alice_01", "a@x.com")

	sess, err := s.app.SessionManager.Issue(*identity)
	s.Require().NoError(err)

	s.app.MockClock.Advance(25 * time.Hour)
	_, err = s.app.SessionManager.Validate(sess.Token)
	s.Error(err)
}

// Test: anonymous messages reach an accepting inbox and stop when it closes
func (s *IntegrationSuite) TestInboxFlow() {
	identity := s.registerAndVerify("alice_01", "a@x.com")

	err := s.app.InboxService.Send(s.ctx, inbox.SendInput{Username: "alice_01", Content: "hello there"})
	s.Require().NoError(err)

	accepting, err := s.app.AccountService.SetAcceptingMessages(s.ctx, identity.ID, false)
	s.Require().NoError(err)
	s.False(accepting)

	err = s.app.InboxService.Send(s.ctx, inbox.SendInput{Username: "alice_01", Content: "still there?"})
	s.ErrorIs(err, model.ErrNotAcceptingMessages)

	page, err := s.app.InboxService.List(s.ctx, identity.ID, 1, 10)
	s.Require().NoError(err)
	s.Equal(1, page.Total)
	s.Require().Len(page.Messages, 1)
	s.Equal("hello there", page.Messages[0].Content)
}

// Test: a delivery failure leaves a usable pending account behind
func (s *IntegrationSuite) TestDeliveryFailureThenResend() {
	s.app.MockSender.SetErr(errors.New("relay down"))

	reg, err := s.app.AccountService.Register(s.ctx, account.RegisterInput{
		Username: "alice_01",
		Email:    "a@x.com",
		Password: "Secret12",
	})
	s.Require().Error(err)
	s.ErrorIs(err, model.ErrDeliveryFailed)
	s.Require().NotNil(reg)

	s.app.MockSender.SetErr(nil)
	s.app.MockClock.Advance(3 * time.Minute)

	_, err = s.app.AccountService.ResendCode(s.ctx, account.ResendInput{Email: "a@x.com"})
	s.Require().NoError(err)

	code, ok := s.app.MockSender.LastCodeFor("a@x.com")
	s.Require().True(ok)
	_, err = s.app.AccountService.Verify(s.ctx, account.VerifyInput{Email: "a@x.com", Code: code})
	s.NoError(err)
}

func TestNewDefaultsToMemory(t *testing.T) {
	app, err := New(context.Background(), Config{Logger: testutil.NopLogger()})
	require.NoError(t, err)
	defer app.Close()

	_, ok := app.Storage.(*memory.Storage)
	assert.True(t, ok)
	assert.NotNil(t, app.AccountService)
	assert.NotNil(t, app.InboxService)
	assert.NotNil(t, app.SessionManager)
}

func TestNewRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"unknown storage", Config{StorageType: "cassandra"}},
		{"redis without config", Config{StorageType: StorageTypeRedis}},
		{"postgres without config", Config{StorageType: StorageTypePostgres}},
		{"mongo without config", Config{StorageType: StorageTypeMongo}},
		{"smtp without config", Config{MailTransport: MailTransportSMTP}},
		{"unknown transport", Config{MailTransport: "pigeon"}},
		{"weak session secret", Config{}},
	}
	tests[len(tests)-1].cfg.SessionConfig.Secret = "short"

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(context.Background(), tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestNewWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	redisCfg := redisstorage.DefaultConfig()
	redisCfg.URL = "redis://" + mr.Addr()

	app, err := New(context.Background(), Config{
		StorageType: StorageTypeRedis,
		RedisConfig: &redisCfg,
	})
	require.NoError(t, err)
	defer app.Close()

	require.NoError(t, app.Storage.Ping(context.Background()))

	_, err = app.AccountService.Register(context.Background(), account.RegisterInput{
		Username: "alice_01",
		Email:    "a@x.com",
		Password: "Secret12",
	})
	require.NoError(t, err)

	available, err := app.AccountService.UsernameAvailable(context.Background(), "alice_01")
	require.NoError(t, err)
	assert.False(t, available)
}
