package factory

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/sagespace/internal/dependencies/clock"
	"github.com/mcoot/sagespace/internal/dependencies/random"
	"github.com/mcoot/sagespace/internal/services/account"
	"github.com/mcoot/sagespace/internal/services/inbox"
	"github.com/mcoot/sagespace/internal/services/mailer"
	"github.com/mcoot/sagespace/internal/services/password"
	"github.com/mcoot/sagespace/internal/services/session"
	"github.com/mcoot/sagespace/internal/storage"
	"github.com/mcoot/sagespace/internal/storage/memory"
	mongostorage "github.com/mcoot/sagespace/internal/storage/mongo"
	"github.com/mcoot/sagespace/internal/storage/postgres"
	redisstorage "github.com/mcoot/sagespace/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypeRedis    = "redis"
	StorageTypePostgres = "postgres"
	StorageTypeMongo    = "mongo"
)

// Mail transport constants
const (
	MailTransportLog  = "log"
	MailTransportSMTP = "smtp"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random
	Sender mailer.Sender

	// Services
	Hasher         *password.Hasher
	AccountService *account.Service
	InboxService   *inbox.Service
	SessionManager *session.Manager
}

// Close releases the storage backend
func (a *App) Close() error {
	return a.Storage.Close()
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger

	// StorageType selects the storage backend ("memory", "redis", "postgres" or "mongo")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// PostgresConfig holds PostgreSQL settings (required if StorageType is "postgres")
	PostgresConfig *postgres.Config
	// MongoConfig holds MongoDB settings (required if StorageType is "mongo")
	MongoConfig *mongostorage.Config

	// MailTransport selects how verification emails leave ("log" or "smtp")
	// If empty, defaults to "log"
	MailTransport string
	// SMTPConfig holds relay settings (required if MailTransport is "smtp")
	SMTPConfig *mailer.SMTPConfig

	// PasswordConfig selects the hash algorithm (optional)
	// If zero value, defaults to password.DefaultConfig()
	PasswordConfig password.Config
	// AccountConfig holds code validity and throttling (optional)
	AccountConfig account.Config
	// SessionConfig holds the token secret and lifetime. An empty secret
	// gets a random one, so sessions do not survive a restart.
	SessionConfig session.Config
}

// New creates a new application with all dependencies wired
func New(ctx context.Context, cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, err := newStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	sender, err := newSender(cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	pwCfg := cfg.PasswordConfig
	if pwCfg == (password.Config{}) {
		pwCfg = password.DefaultConfig()
	}
	hasher, err := password.New(pwCfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	sessCfg := cfg.SessionConfig
	if sessCfg.Secret == "" {
		logger.Warn("SESSION_SECRET not set; using an ephemeral secret")
		sessCfg.Secret = rand.Text()
	}

	app, err := newWithDependencies(store, clock.New(), random.New(), sender, hasher, cfg.AccountConfig, sessCfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return app, nil
}

func newStorage(ctx context.Context, cfg Config) (storage.Storage, error) {
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		return memory.New(), nil
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		return redisstorage.New(*cfg.RedisConfig)
	case StorageTypePostgres:
		if cfg.PostgresConfig == nil {
			return nil, errors.New("PostgresConfig required when StorageType is postgres")
		}
		return postgres.New(ctx, *cfg.PostgresConfig)
	case StorageTypeMongo:
		if cfg.MongoConfig == nil {
			return nil, errors.New("MongoConfig required when StorageType is mongo")
		}
		return mongostorage.New(ctx, *cfg.MongoConfig)
	default:
		return nil, fmt.Errorf("invalid StorageType %q: must be memory, redis, postgres or mongo", storageType)
	}
}

func newSender(cfg Config, logger *slog.Logger) (mailer.Sender, error) {
	switch cfg.MailTransport {
	case "", MailTransportLog:
		return mailer.NewLogSender(logger), nil
	case MailTransportSMTP:
		if cfg.SMTPConfig == nil {
			return nil, errors.New("SMTPConfig required when MailTransport is smtp")
		}
		return mailer.NewSMTPSender(*cfg.SMTPConfig)
	default:
		return nil, fmt.Errorf("invalid MailTransport %q: must be log or smtp", cfg.MailTransport)
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	sender mailer.Sender,
	hasher *password.Hasher,
	accountCfg account.Config,
	sessionCfg session.Config,
	logger *slog.Logger,
) (*App, error) {
	sessions, err := session.New(sessionCfg, clk)
	if err != nil {
		return nil, err
	}

	return &App{
		Storage:        store,
		Clock:          clk,
		Random:         rnd,
		Sender:         sender,
		Hasher:         hasher,
		AccountService: account.New(store, hasher, sender, clk, rnd, accountCfg, logger),
		InboxService:   inbox.New(store, clk, logger),
		SessionManager: sessions,
	}, nil
}
