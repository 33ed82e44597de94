package storage

import (
	"context"

	"github.com/mcoot/sagespace/internal/model"
)

// Storage defines the interface for account persistence.
//
// Emails and usernames are unique across all accounts. Every backend
// enforces this atomically, so a failed CreateAccount or UpdateAccount is the
// authoritative signal that the value is taken.
type Storage interface {
	// CreateAccount inserts a new account and sets its Version to 1.
	// Returns model.ErrEmailTaken or model.ErrUsernameTaken on collision.
	CreateAccount(ctx context.Context, acc *model.Account) error

	GetAccount(ctx context.Context, id model.AccountID) (*model.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*model.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*model.Account, error)

	// UpdateAccount replaces the stored account if its version still equals
	// acc.Version, then increments acc.Version. A stale version is
	// model.ErrConcurrentUpdate; a username now held by another account is
	// model.ErrUsernameTaken.
	UpdateAccount(ctx context.Context, acc *model.Account) error

	// Message inbox, kept in insertion order
	AppendMessage(ctx context.Context, id model.AccountID, msg model.Message) error
	ListMessages(ctx context.Context, id model.AccountID, offset, limit int) ([]model.Message, int, error)

	Ping(ctx context.Context) error
	Close() error
}
