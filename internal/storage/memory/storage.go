package memory

import (
	"context"
	"sync"

	"github.com/mcoot/sagespace/internal/model"
	"github.com/mcoot/sagespace/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// Accounts are copied on the way in and out so callers never share state.
type Storage struct {
	mu sync.RWMutex

	accounts      map[model.AccountID]*model.Account
	emailIndex    map[string]model.AccountID
	usernameIndex map[string]model.AccountID
	messages      map[model.AccountID][]model.Message
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		accounts:      make(map[model.AccountID]*model.Account),
		emailIndex:    make(map[string]model.AccountID),
		usernameIndex: make(map[string]model.AccountID),
		messages:      make(map[model.AccountID][]model.Message),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Account operations

func (s *Storage) CreateAccount(ctx context.Context, acc *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.emailIndex[acc.Email]; ok {
		return model.ErrEmailTaken
	}
	if _, ok := s.usernameIndex[acc.Username]; ok {
		return model.ErrUsernameTaken
	}

	acc.Version = 1
	s.accounts[acc.ID] = acc.Clone()
	s.emailIndex[acc.Email] = acc.ID
	s.usernameIndex[acc.Username] = acc.ID
	return nil
}

func (s *Storage) GetAccount(ctx context.Context, id model.AccountID) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[id]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	return acc.Clone(), nil
}

func (s *Storage) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookup(s.emailIndex, email)
}

func (s *Storage) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookup(s.usernameIndex, username)
}

// lookup must be called with the lock held
func (s *Storage) lookup(index map[string]model.AccountID, key string) (*model.Account, error) {
	id, ok := index[key]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	return s.accounts[id].Clone(), nil
}

func (s *Storage) UpdateAccount(ctx context.Context, acc *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.accounts[acc.ID]
	if !ok {
		return model.ErrAccountNotFound
	}
	if current.Version != acc.Version {
		return model.ErrConcurrentUpdate
	}
	if owner, ok := s.usernameIndex[acc.Username]; ok && owner != acc.ID {
		return model.ErrUsernameTaken
	}
	if owner, ok := s.emailIndex[acc.Email]; ok && owner != acc.ID {
		return model.ErrEmailTaken
	}

	if current.Username != acc.Username {
		delete(s.usernameIndex, current.Username)
		s.usernameIndex[acc.Username] = acc.ID
	}
	if current.Email != acc.Email {
		delete(s.emailIndex, current.Email)
		s.emailIndex[acc.Email] = acc.ID
	}

	acc.Version++
	s.accounts[acc.ID] = acc.Clone()
	return nil
}

// Message operations

func (s *Storage) AppendMessage(ctx context.Context, id model.AccountID, msg model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return model.ErrAccountNotFound
	}
	s.messages[id] = append(s.messages[id], msg)
	return nil
}

func (s *Storage) ListMessages(ctx context.Context, id model.AccountID, offset, limit int) ([]model.Message, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.accounts[id]; !ok {
		return nil, 0, model.ErrAccountNotFound
	}

	all := s.messages[id]
	total := len(all)
	if offset < 0 {
		offset = 0
	}
	if offset >= total || limit <= 0 {
		return []model.Message{}, total, nil
	}

	end := offset + limit
	if end > total {
		end = total
	}
	out := make([]model.Message, end-offset)
	copy(out, all[offset:end])
	return out, total, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return nil
}

func (s *Storage) Close() error {
	return nil
}
