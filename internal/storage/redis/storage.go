package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/sagespace/internal/model"
	"github.com/mcoot/sagespace/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface.
//
// Each account is a JSON value with two index keys (email, username) pointing
// at its ID. Writes run as WATCH/MULTI transactions over the account and
// index keys, so uniqueness and version checks hold under concurrency.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ping checks the connection
func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// ttlFor returns the expiry for an account's keys; zero means persistent
func (s *Storage) ttlFor(acc *model.Account) time.Duration {
	if acc.IsVerified {
		return 0
	}
	return s.cfg.UnverifiedAccountTTL
}

// Account operations

func (s *Storage) CreateAccount(ctx context.Context, acc *model.Account) error {
	emailKey := emailIndexKey(acc.Email)
	usernameKey := usernameIndexKey(acc.Username)

	stored := acc.Clone()
	stored.Version = 1
	data, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	ttl := s.ttlFor(stored)

	txf := func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, emailKey).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return model.ErrEmailTaken
		}
		n, err = tx.Exists(ctx, usernameKey).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return model.ErrUsernameTaken
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, accountKey(acc.ID), data, ttl)
			pipe.Set(ctx, emailKey, string(acc.ID), ttl)
			pipe.Set(ctx, usernameKey, string(acc.ID), ttl)
			return nil
		})
		return err
	}

	// A failed transaction means an index key changed; retrying re-runs the
	// existence checks, which then report the collision.
	for i := 0; i < s.maxRetries(); i++ {
		err = s.client.Watch(ctx, txf, emailKey, usernameKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return err
		}
		acc.Version = 1
		return nil
	}
	return model.ErrConcurrentUpdate
}

func (s *Storage) maxRetries() int {
	if s.cfg.MaxTxRetries < 1 {
		return 1
	}
	return s.cfg.MaxTxRetries
}

func (s *Storage) GetAccount(ctx context.Context, id model.AccountID) (*model.Account, error) {
	return getAccount(ctx, s.client, id)
}

func (s *Storage) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	return s.getByIndex(ctx, emailIndexKey(email))
}

func (s *Storage) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	return s.getByIndex(ctx, usernameIndexKey(username))
}

func (s *Storage) getByIndex(ctx context.Context, indexKey string) (*model.Account, error) {
	id, err := s.client.Get(ctx, indexKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrAccountNotFound
		}
		return nil, err
	}
	return getAccount(ctx, s.client, model.AccountID(id))
}

// getter is satisfied by both *redis.Client and *redis.Tx
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getAccount(ctx context.Context, c getter, id model.AccountID) (*model.Account, error) {
	data, err := c.Get(ctx, accountKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrAccountNotFound
		}
		return nil, err
	}

	var acc model.Account
	if err := json.Unmarshal(data, &acc); err != nil {
		return nil, fmt.Errorf("decode account %s: %w", id, err)
	}
	return &acc, nil
}

func (s *Storage) UpdateAccount(ctx context.Context, acc *model.Account) error {
	key := accountKey(acc.ID)
	newEmailKey := emailIndexKey(acc.Email)
	newUsernameKey := usernameIndexKey(acc.Username)

	next := acc.Clone()
	next.Version = acc.Version + 1
	data, err := json.Marshal(next)
	if err != nil {
		return err
	}
	ttl := s.ttlFor(next)

	txf := func(tx *redis.Tx) error {
		current, err := getAccount(ctx, tx, acc.ID)
		if err != nil {
			return err
		}
		if current.Version != acc.Version {
			return model.ErrConcurrentUpdate
		}
		if err := checkOwner(ctx, tx, newUsernameKey, acc.ID, model.ErrUsernameTaken); err != nil {
			return err
		}
		if err := checkOwner(ctx, tx, newEmailKey, acc.ID, model.ErrEmailTaken); err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, ttl)
			if current.Username != acc.Username {
				pipe.Del(ctx, usernameIndexKey(current.Username))
			}
			if current.Email != acc.Email {
				pipe.Del(ctx, emailIndexKey(current.Email))
			}
			pipe.Set(ctx, newUsernameKey, string(acc.ID), ttl)
			pipe.Set(ctx, newEmailKey, string(acc.ID), ttl)
			if ttl > 0 {
				pipe.PExpire(ctx, messagesKey(acc.ID), ttl)
			} else {
				pipe.Persist(ctx, messagesKey(acc.ID))
			}
			return nil
		})
		return err
	}

	err = s.client.Watch(ctx, txf, key, newEmailKey, newUsernameKey)
	if errors.Is(err, redis.TxFailedErr) {
		return model.ErrConcurrentUpdate
	}
	if err != nil {
		return err
	}

	acc.Version = next.Version
	return nil
}

// checkOwner fails with taken if indexKey points at an account other than id
func checkOwner(ctx context.Context, tx *redis.Tx, indexKey string, id model.AccountID, taken error) error {
	owner, err := tx.Get(ctx, indexKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	if model.AccountID(owner) != id {
		return taken
	}
	return nil
}

// Message operations

// AppendMessage pushes msg onto the account's list. The list of an
// unverified account expires together with the account key.
func (s *Storage) AppendMessage(ctx context.Context, id model.AccountID, msg model.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	key := accountKey(id)
	listKey := messagesKey(id)

	txf := func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return model.ErrAccountNotFound
		}
		ttl, err := tx.PTTL(ctx, key).Result()
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.RPush(ctx, listKey, data)
			if ttl > 0 {
				pipe.PExpire(ctx, listKey, ttl)
			}
			return nil
		})
		return err
	}

	for i := 0; i < s.maxRetries(); i++ {
		err = s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return model.ErrConcurrentUpdate
}

func (s *Storage) ListMessages(ctx context.Context, id model.AccountID, offset, limit int) ([]model.Message, int, error) {
	exists, err := s.client.Exists(ctx, accountKey(id)).Result()
	if err != nil {
		return nil, 0, err
	}
	if exists == 0 {
		return nil, 0, model.ErrAccountNotFound
	}

	key := messagesKey(id)
	total, err := s.client.LLen(ctx, key).Result()
	if err != nil {
		return nil, 0, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || int64(offset) >= total {
		return []model.Message{}, int(total), nil
	}

	raw, err := s.client.LRange(ctx, key, int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, 0, err
	}

	msgs := make([]model.Message, 0, len(raw))
	for _, r := range raw {
		var msg model.Message
		if err := json.Unmarshal([]byte(r), &msg); err != nil {
			return nil, 0, fmt.Errorf("decode message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, int(total), nil
}
