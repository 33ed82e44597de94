// Package postgres is a PostgreSQL implementation of the storage interface
// on database/sql with the pgx driver. Uniqueness is enforced by table
// constraints and updates are conditional on the row version.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mcoot/sagespace/internal/model"
	"github.com/mcoot/sagespace/internal/storage"
	"github.com/mcoot/sagespace/internal/storage/postgres/migrations"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"

	usernameConstraint = "accounts_username_key"
	emailConstraint    = "accounts_email_key"
)

const accountColumns = `id, username, email, password_hash, otp_code, otp_expiry,
	is_verified, is_accepting_messages, last_verification_sent_at,
	display_name, avatar_url, created_at, updated_at, version`

// Storage is a PostgreSQL-backed implementation of the storage interface
type Storage struct {
	db *sql.DB
}

// New opens the database, checks the connection and applies migrations
func New(ctx context.Context, cfg Config) (*Storage, error) {
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	if cfg.RunMigrations {
		if err := RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migration error: %w", err)
		}
	}

	return NewWithDB(db), nil
}

// NewWithDB wraps an existing handle (for testing)
func NewWithDB(db *sql.DB) *Storage {
	return &Storage{db: db}
}

// RunMigrations applies the embedded goose migrations
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Account operations

func (s *Storage) CreateAccount(ctx context.Context, acc *model.Account) error {
	query :=
		`INSERT INTO accounts (` + accountColumns + `)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 1)`

	_, err := s.db.ExecContext(ctx, query,
		string(acc.ID), acc.Username, acc.Email, acc.PasswordHash, acc.OTPCode, acc.OTPExpiry,
		acc.IsVerified, acc.IsAcceptingMessages, nullTime(acc.LastVerificationSentAt),
		acc.DisplayName, acc.AvatarURL, acc.CreatedAt, acc.UpdatedAt)
	if err != nil {
		return mapWriteError(err)
	}

	acc.Version = 1
	return nil
}

func (s *Storage) GetAccount(ctx context.Context, id model.AccountID) (*model.Account, error) {
	return s.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, string(id))
}

func (s *Storage) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	return s.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
}

func (s *Storage) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	return s.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username)
}

func (s *Storage) getOne(ctx context.Context, query string, arg any) (*model.Account, error) {
	var (
		acc      model.Account
		id       string
		lastSent sql.NullTime
	)

	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&id, &acc.Username, &acc.Email, &acc.PasswordHash, &acc.OTPCode, &acc.OTPExpiry,
		&acc.IsVerified, &acc.IsAcceptingMessages, &lastSent,
		&acc.DisplayName, &acc.AvatarURL, &acc.CreatedAt, &acc.UpdatedAt, &acc.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrAccountNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	acc.ID = model.AccountID(id)
	acc.OTPExpiry = acc.OTPExpiry.UTC()
	acc.CreatedAt = acc.CreatedAt.UTC()
	acc.UpdatedAt = acc.UpdatedAt.UTC()
	if lastSent.Valid {
		acc.LastVerificationSentAt = lastSent.Time.UTC()
	}
	return &acc, nil
}

func (s *Storage) UpdateAccount(ctx context.Context, acc *model.Account) error {
	query :=
		`UPDATE accounts SET
		     username = $3, email = $4, password_hash = $5, otp_code = $6, otp_expiry = $7,
		     is_verified = $8, is_accepting_messages = $9, last_verification_sent_at = $10,
		     display_name = $11, avatar_url = $12, updated_at = $13, version = version + 1
		 WHERE id = $1 AND version = $2`

	res, err := s.db.ExecContext(ctx, query,
		string(acc.ID), acc.Version,
		acc.Username, acc.Email, acc.PasswordHash, acc.OTPCode, acc.OTPExpiry,
		acc.IsVerified, acc.IsAcceptingMessages, nullTime(acc.LastVerificationSentAt),
		acc.DisplayName, acc.AvatarURL, acc.UpdatedAt)
	if err != nil {
		return mapWriteError(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		exists, err := s.accountExists(ctx, acc.ID)
		if err != nil {
			return err
		}
		if !exists {
			return model.ErrAccountNotFound
		}
		return model.ErrConcurrentUpdate
	}

	acc.Version++
	return nil
}

func (s *Storage) accountExists(ctx context.Context, id model.AccountID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, string(id)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

// Message operations

func (s *Storage) AppendMessage(ctx context.Context, id model.AccountID, msg model.Message) error {
	query :=
		`INSERT INTO messages (account_id, content, created_at, is_from_user, is_ai)
		 VALUES ($1, $2, $3, $4, $5)`

	_, err := s.db.ExecContext(ctx, query, string(id), msg.Content, msg.CreatedAt, msg.IsFromUser, msg.IsAI)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (s *Storage) ListMessages(ctx context.Context, id model.AccountID, offset, limit int) ([]model.Message, int, error) {
	exists, err := s.accountExists(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	if !exists {
		return nil, 0, model.ErrAccountNotFound
	}

	var total int
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE account_id = $1`, string(id)).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || offset >= total {
		return []model.Message{}, total, nil
	}

	query :=
		`SELECT content, created_at, is_from_user, is_ai FROM messages
		 WHERE account_id = $1
		 ORDER BY id
		 LIMIT $2 OFFSET $3`

	rows, err := s.db.QueryContext(ctx, query, string(id), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	msgs := make([]model.Message, 0, limit)
	for rows.Next() {
		var msg model.Message
		if err := rows.Scan(&msg.Content, &msg.CreatedAt, &msg.IsFromUser, &msg.IsAI); err != nil {
			return nil, 0, fmt.Errorf("db error: %w", err)
		}
		msg.CreatedAt = msg.CreatedAt.UTC()
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	return msgs, total, nil
}

// mapWriteError turns constraint violations into domain errors
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == emailConstraint:
			return model.ErrEmailTaken
		case pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == usernameConstraint:
			return model.ErrUsernameTaken
		case pgErr.Code == pgForeignKeyViolation:
			return model.ErrAccountNotFound
		}
	}
	return fmt.Errorf("db error: %w", err)
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
