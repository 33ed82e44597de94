// Package config reads server settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mcoot/sagespace/internal/api"
	"github.com/mcoot/sagespace/internal/factory"
	"github.com/mcoot/sagespace/internal/services/mailer"
	"github.com/mcoot/sagespace/internal/services/password"
	"github.com/mcoot/sagespace/internal/services/session"
	mongostorage "github.com/mcoot/sagespace/internal/storage/mongo"
	"github.com/mcoot/sagespace/internal/storage/postgres"
	redisstorage "github.com/mcoot/sagespace/internal/storage/redis"
)

// Config is the server configuration
type Config struct {
	Port     int
	LogLevel slog.Level

	StorageType   string
	RedisURL      string
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string

	SessionSecret   string
	SessionDuration time.Duration

	PasswordAlgorithm password.Algorithm
	BcryptCost        int

	MailTransport string
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPass      string
	SMTPFrom      string
}

// Load reads the configuration. Variables already set in the environment
// win over the .env files; with no files given, ./.env is tried.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		_ = godotenv.Load()
	} else if err := godotenv.Load(envFiles...); err != nil {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	var errs []error

	cfg := Config{
		Port:              getEnvInt("PORT", 8080, &errs),
		StorageType:       strings.ToLower(getEnv("STORAGE_TYPE", factory.StorageTypeMemory)),
		RedisURL:          os.Getenv("REDIS_URL"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		MongoURI:          os.Getenv("MONGO_URI"),
		MongoDatabase:     getEnv("MONGO_DATABASE", "sagespace"),
		SessionSecret:     os.Getenv("SESSION_SECRET"),
		SessionDuration:   getEnvDuration("SESSION_DURATION", session.DefaultDuration, &errs),
		PasswordAlgorithm: password.Algorithm(strings.ToLower(getEnv("PASSWORD_ALGORITHM", string(password.AlgorithmBcrypt)))),
		BcryptCost:        getEnvInt("BCRYPT_COST", password.DefaultBcryptCost, &errs),
		MailTransport:     strings.ToLower(getEnv("MAIL_TRANSPORT", factory.MailTransportLog)),
		SMTPHost:          os.Getenv("SMTP_HOST"),
		SMTPPort:          getEnvInt("SMTP_PORT", 587, &errs),
		SMTPUser:          os.Getenv("SMTP_USER"),
		SMTPPass:          os.Getenv("SMTP_PASS"),
		SMTPFrom:          os.Getenv("SMTP_FROM"),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	var missing []string
	switch cfg.StorageType {
	case factory.StorageTypeMemory:
	case factory.StorageTypeRedis:
		if cfg.RedisURL == "" {
			missing = append(missing, "REDIS_URL")
		}
	case factory.StorageTypePostgres:
		if cfg.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case factory.StorageTypeMongo:
		if cfg.MongoURI == "" {
			missing = append(missing, "MONGO_URI")
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_TYPE: unknown backend %q", cfg.StorageType))
	}

	switch cfg.MailTransport {
	case factory.MailTransportLog:
	case factory.MailTransportSMTP:
		if cfg.SMTPHost == "" {
			missing = append(missing, "SMTP_HOST")
		}
		if cfg.SMTPFrom == "" {
			missing = append(missing, "SMTP_FROM")
		}
	default:
		errs = append(errs, fmt.Errorf("MAIL_TRANSPORT: unknown transport %q", cfg.MailTransport))
	}

	if len(missing) > 0 {
		errs = append(errs, errors.New("missing env: "+strings.Join(missing, ", ")))
	}

	return cfg, errors.Join(errs...)
}

// Factory converts the configuration into factory settings
func (c Config) Factory(logger *slog.Logger) factory.Config {
	fc := factory.Config{
		Logger:        logger,
		StorageType:   c.StorageType,
		MailTransport: c.MailTransport,
		PasswordConfig: password.Config{
			Algorithm:  c.PasswordAlgorithm,
			BcryptCost: c.BcryptCost,
			Argon2:     password.DefaultArgon2Params(),
		},
		SessionConfig: session.Config{
			Secret:   c.SessionSecret,
			Duration: c.SessionDuration,
		},
	}

	switch c.StorageType {
	case factory.StorageTypeRedis:
		rc := redisstorage.DefaultConfig()
		rc.URL = c.RedisURL
		fc.RedisConfig = &rc
	case factory.StorageTypePostgres:
		pc := postgres.DefaultConfig()
		pc.DSN = c.DatabaseURL
		fc.PostgresConfig = &pc
	case factory.StorageTypeMongo:
		mc := mongostorage.DefaultConfig()
		mc.URI = c.MongoURI
		mc.Database = c.MongoDatabase
		fc.MongoConfig = &mc
	}

	if c.MailTransport == factory.MailTransportSMTP {
		fc.SMTPConfig = &mailer.SMTPConfig{
			Host:     c.SMTPHost,
			Port:     c.SMTPPort,
			Username: c.SMTPUser,
			Password: c.SMTPPass,
			From:     c.SMTPFrom,
		}
	}

	return fc
}

// Server returns the HTTP server settings
func (c Config) Server() api.ServerConfig {
	sc := api.DefaultServerConfig()
	sc.Port = c.Port
	return sc
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int, errs *[]error) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %q is not an integer", key, value))
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %q is not a duration", key, value))
		return fallback
	}
	return parsed
}
