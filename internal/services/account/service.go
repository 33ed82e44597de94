// Package account implements registration, email verification, sign-in and
// the owner-only credential operations on top of the account store.
//
// Every read-modify-write is an optimistic loop: load the account, decide,
// then UpdateAccount against the loaded version. Losing a race reloads and
// decides again, so checks such as the resend rate limit always run against
// the latest stored state.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/sagespace/internal/dependencies/clock"
	"github.com/mcoot/sagespace/internal/dependencies/random"
	"github.com/mcoot/sagespace/internal/model"
	"github.com/mcoot/sagespace/internal/services/mailer"
	"github.com/mcoot/sagespace/internal/services/otp"
	"github.com/mcoot/sagespace/internal/services/ratelimit"
	"github.com/mcoot/sagespace/internal/storage"
	"github.com/mcoot/sagespace/internal/validation"
)

// PasswordHasher hashes and checks passwords
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hashed string) (bool, error)
}

// Config holds configuration for the account service
type Config struct {
	// SignupCodeValidity is how long a code issued by Register stays valid
	SignupCodeValidity time.Duration
	// ResendCodeValidity is how long a code issued by ResendCode stays valid
	ResendCodeValidity time.Duration
	// ResendInterval is the minimum time between two codes for one account
	ResendInterval time.Duration
	// MaxUpdateAttempts bounds the optimistic retry loop
	MaxUpdateAttempts int
}

// DefaultConfig returns default account configuration
func DefaultConfig() Config {
	return Config{
		SignupCodeValidity: 5 * time.Minute,
		ResendCodeValidity: time.Hour,
		ResendInterval:     ratelimit.DefaultMinInterval,
		MaxUpdateAttempts:  3,
	}
}

// Service orchestrates the account lifecycle
type Service struct {
	storage storage.Storage
	hasher  PasswordHasher
	sender  mailer.Sender
	otp     *otp.Engine
	limiter *ratelimit.Limiter
	clock   clock.Clock
	cfg     Config
	logger  *slog.Logger
}

// New creates a new account Service
func New(
	storage storage.Storage,
	hasher PasswordHasher,
	sender mailer.Sender,
	clock clock.Clock,
	random random.Random,
	cfg Config,
	logger *slog.Logger,
) *Service {
	def := DefaultConfig()
	if cfg.SignupCodeValidity <= 0 {
		cfg.SignupCodeValidity = def.SignupCodeValidity
	}
	if cfg.ResendCodeValidity <= 0 {
		cfg.ResendCodeValidity = def.ResendCodeValidity
	}
	if cfg.ResendInterval <= 0 {
		cfg.ResendInterval = def.ResendInterval
	}
	if cfg.MaxUpdateAttempts < 1 {
		cfg.MaxUpdateAttempts = def.MaxUpdateAttempts
	}

	return &Service{
		storage: storage,
		hasher:  hasher,
		sender:  sender,
		otp:     otp.New(random),
		limiter: ratelimit.New(cfg.ResendInterval),
		clock:   clock,
		cfg:     cfg,
		logger:  logger,
	}
}

// Register creates a new unverified account, or reuses the caller's pending
// unverified account, and emails it a verification code.
//
// A repeat registration for a pending account is throttled exactly like
// ResendCode: inside the resend interval it fails with *model.RateLimitedError
// and the code already sent stays valid. Outside it the code is rotated, the
// username is rebound if it changed, and an existing password hash is kept.
//
// If the email cannot be sent the account write stands; the Registration is
// returned together with a *model.DeliveryError.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Registration, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = NormalizeEmail(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	var (
		acc         *model.Account
		code        string
		reactivated bool
		err         error
	)
	for attempt := 0; ; attempt++ {
		if attempt >= s.cfg.MaxUpdateAttempts {
			return nil, model.ErrConcurrentUpdate
		}

		acc, code, reactivated, err = s.registerOnce(ctx, in)
		if errors.Is(err, model.ErrConcurrentUpdate) {
			continue
		}
		if err != nil {
			return nil, err
		}
		break
	}

	reg := &Registration{
		AccountID:     acc.ID,
		Username:      acc.Username,
		Email:         acc.Email,
		CodeExpiresAt: acc.OTPExpiry,
		Reactivated:   reactivated,
	}

	s.logger.Info("account registered",
		slog.String("account_id", string(acc.ID)),
		slog.Bool("reactivated", reactivated),
	)

	if err := s.deliver(ctx, acc, code, s.cfg.SignupCodeValidity); err != nil {
		return reg, err
	}
	return reg, nil
}

// registerOnce makes one create-or-reactivate attempt. ErrConcurrentUpdate
// means the caller should try again from fresh reads.
func (s *Service) registerOnce(ctx context.Context, in RegisterInput) (*model.Account, string, bool, error) {
	holder, err := s.storage.GetAccountByUsername(ctx, in.Username)
	switch {
	case err == nil:
		// Usernames are unique across all accounts, so a pending account
		// under another email still holds the name.
		if holder.IsVerified || holder.Email != in.Email {
			return nil, "", false, model.ErrUsernameTaken
		}
	case !errors.Is(err, model.ErrAccountNotFound):
		return nil, "", false, fmt.Errorf("lookup username: %w", err)
	}

	existing, err := s.storage.GetAccountByEmail(ctx, in.Email)
	if errors.Is(err, model.ErrAccountNotFound) {
		return s.createAccount(ctx, in)
	}
	if err != nil {
		return nil, "", false, fmt.Errorf("lookup email: %w", err)
	}
	if existing.IsVerified {
		return nil, "", false, model.ErrEmailTaken
	}

	now := s.clock.Now()
	if err := s.limiter.Check(existing, now); err != nil {
		return nil, "", false, err
	}

	if existing.PasswordHash == "" {
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return nil, "", false, fmt.Errorf("hash password: %w", err)
		}
		existing.PasswordHash = hash
	}
	existing.Username = in.Username
	code, _ := s.otp.Issue(existing, now, s.cfg.SignupCodeValidity)
	s.limiter.Record(existing, now)
	existing.UpdatedAt = now

	if err := s.storage.UpdateAccount(ctx, existing); err != nil {
		return nil, "", false, err
	}
	return existing, code, true, nil
}

func (s *Service) createAccount(ctx context.Context, in RegisterInput) (*model.Account, string, bool, error) {
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, "", false, fmt.Errorf("hash password: %w", err)
	}

	now := s.clock.Now()
	acc := &model.Account{
		ID:                  model.AccountID(uuid.NewString()),
		Username:            in.Username,
		Email:               in.Email,
		PasswordHash:        hash,
		IsVerified:          false,
		IsAcceptingMessages: true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	code, _ := s.otp.Issue(acc, now, s.cfg.SignupCodeValidity)
	s.limiter.Record(acc, now)

	err = s.storage.CreateAccount(ctx, acc)
	if errors.Is(err, model.ErrEmailTaken) {
		// Someone else created this email first; retry takes the
		// reactivation path against their record.
		return nil, "", false, model.ErrConcurrentUpdate
	}
	if err != nil {
		return nil, "", false, err
	}
	return acc, code, false, nil
}

// Verify checks a submitted code for the account registered under email and
// marks the account verified on success. The code is consumed, so a replay
// fails with model.ErrInvalidCode.
func (s *Service) Verify(ctx context.Context, in VerifyInput) (*model.Identity, error) {
	in.Email = NormalizeEmail(in.Email)
	in.Code = strings.TrimSpace(in.Code)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	acc, err := s.update(ctx, s.byEmail(in.Email), func(acc *model.Account, now time.Time) error {
		return s.otp.Verify(acc, in.Code, now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("account verified", slog.String("account_id", string(acc.ID)))

	identity := acc.Identity()
	return &identity, nil
}

// ResendCode issues and emails a fresh code for a pending account, subject
// to the resend interval
func (s *Service) ResendCode(ctx context.Context, in ResendInput) (*Registration, error) {
	in.Email = NormalizeEmail(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	var code string
	acc, err := s.update(ctx, s.byEmail(in.Email), func(acc *model.Account, now time.Time) error {
		if acc.IsVerified {
			return model.ErrAlreadyVerified
		}
		if err := s.limiter.Check(acc, now); err != nil {
			return err
		}
		code, _ = s.otp.Issue(acc, now, s.cfg.ResendCodeValidity)
		s.limiter.Record(acc, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("verification code resent", slog.String("account_id", string(acc.ID)))

	reg := &Registration{
		AccountID:     acc.ID,
		Username:      acc.Username,
		Email:         acc.Email,
		CodeExpiresAt: acc.OTPExpiry,
		Reactivated:   true,
	}
	if err := s.deliver(ctx, acc, code, s.cfg.ResendCodeValidity); err != nil {
		return reg, err
	}
	return reg, nil
}

// SignIn authenticates by email or username. An unverified account is
// rejected with model.ErrNotVerified before the password is checked.
func (s *Service) SignIn(ctx context.Context, in SignInInput) (*model.Identity, error) {
	in.Identifier = strings.TrimSpace(in.Identifier)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	acc, err := s.storage.GetAccountByEmail(ctx, NormalizeEmail(in.Identifier))
	if errors.Is(err, model.ErrAccountNotFound) {
		acc, err = s.storage.GetAccountByUsername(ctx, in.Identifier)
	}
	if err != nil {
		return nil, err
	}

	if !acc.IsVerified {
		return nil, model.ErrNotVerified
	}

	ok, err := s.hasher.Verify(in.Password, acc.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.logger.Info("sign-in rejected", slog.String("account_id", string(acc.ID)))
		return nil, model.ErrInvalidCredentials
	}

	identity := acc.Identity()
	return &identity, nil
}

// ChangePassword replaces the password after checking the current one
func (s *Service) ChangePassword(ctx context.Context, id model.AccountID, in ChangePasswordInput) error {
	if err := validation.Struct(in); err != nil {
		return err
	}

	newHash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	acc, err := s.update(ctx, s.byID(id), func(acc *model.Account, now time.Time) error {
		ok, err := s.hasher.Verify(in.CurrentPassword, acc.PasswordHash)
		if err != nil {
			return fmt.Errorf("verify password: %w", err)
		}
		if !ok {
			return model.ErrInvalidCredentials
		}
		acc.PasswordHash = newHash
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("password changed", slog.String("account_id", string(acc.ID)))
	return nil
}

// SetAcceptingMessages sets whether the account accepts anonymous messages
// and returns the stored value
func (s *Service) SetAcceptingMessages(ctx context.Context, id model.AccountID, accepting bool) (bool, error) {
	acc, err := s.update(ctx, s.byID(id), func(acc *model.Account, now time.Time) error {
		if acc.IsAcceptingMessages == accepting {
			return errUnchanged
		}
		acc.IsAcceptingMessages = accepting
		return nil
	})
	if err != nil {
		return false, err
	}
	return acc.IsAcceptingMessages, nil
}

// UsernameAvailable reports whether username is free to register. A name
// held by a pending unverified account is not available.
func (s *Service) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	username = strings.TrimSpace(username)
	if err := validation.Var("username", username, "required,username"); err != nil {
		return false, err
	}

	_, err := s.storage.GetAccountByUsername(ctx, username)
	if errors.Is(err, model.ErrAccountNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

// Profile returns the public identity of an account
func (s *Service) Profile(ctx context.Context, id model.AccountID) (*model.Identity, error) {
	acc, err := s.storage.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	identity := acc.Identity()
	return &identity, nil
}

// UpdateProfile changes the display name and/or avatar URL
func (s *Service) UpdateProfile(ctx context.Context, id model.AccountID, in UpdateProfileInput) (*model.Identity, error) {
	if in.DisplayName != nil {
		trimmed := strings.TrimSpace(*in.DisplayName)
		in.DisplayName = &trimmed
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	acc, err := s.update(ctx, s.byID(id), func(acc *model.Account, now time.Time) error {
		changed := false
		if in.DisplayName != nil && *in.DisplayName != acc.DisplayName {
			acc.DisplayName = *in.DisplayName
			changed = true
		}
		if in.AvatarURL != nil && *in.AvatarURL != acc.AvatarURL {
			acc.AvatarURL = *in.AvatarURL
			changed = true
		}
		if !changed {
			return errUnchanged
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	identity := acc.Identity()
	return &identity, nil
}

func (s *Service) deliver(ctx context.Context, acc *model.Account, code string, validity time.Duration) error {
	msg := mailer.VerificationMessage(acc.Email, acc.Username, code, validity)
	if err := s.sender.Send(ctx, msg); err != nil {
		s.logger.Warn("verification email not delivered",
			slog.String("account_id", string(acc.ID)),
			slog.String("error", err.Error()),
		)
		return &model.DeliveryError{Err: err}
	}
	return nil
}
