// Package mongo is a MongoDB implementation of the storage interface.
// Each account is one document in the accounts collection; its inbox is an
// embedded messages array that only $push ever writes.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/mcoot/sagespace/internal/model"
	"github.com/mcoot/sagespace/internal/storage"
)

const (
	accountsCollection = "accounts"

	usernameIndex = "accounts_username_key"
	emailIndex    = "accounts_email_key"

	duplicateKeyCode = 11000
)

// Storage is a MongoDB-backed implementation of the storage interface
type Storage struct {
	client   *mongo.Client
	accounts *mongo.Collection
}

// New connects, pings and ensures the unique indexes exist
func New(ctx context.Context, cfg Config) (*Storage, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	s := NewWithClient(client, cfg.Database)
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// NewWithClient wraps an existing client (for testing)
func NewWithClient(client *mongo.Client, database string) *Storage {
	return &Storage{
		client:   client,
		accounts: client.Database(database).Collection(accountsCollection),
	}
}

// EnsureIndexes creates the unique email and username indexes
func (s *Storage) EnsureIndexes(ctx context.Context) error {
	_, err := s.accounts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(emailIndex),
		},
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(usernameIndex),
		},
	})
	if err != nil {
		return fmt.Errorf("mongo create indexes: %w", err)
	}
	return nil
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) Close() error {
	return s.client.Disconnect(context.Background())
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Account operations

func (s *Storage) CreateAccount(ctx context.Context, acc *model.Account) error {
	doc := acc.Clone()
	doc.Version = 1

	if _, err := s.accounts.InsertOne(ctx, doc); err != nil {
		return mapWriteError(err)
	}

	acc.Version = 1
	return nil
}

func (s *Storage) GetAccount(ctx context.Context, id model.AccountID) (*model.Account, error) {
	return s.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (s *Storage) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	return s.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

func (s *Storage) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	return s.findOne(ctx, bson.D{{Key: "username", Value: username}})
}

func (s *Storage) findOne(ctx context.Context, filter bson.D) (*model.Account, error) {
	var acc model.Account
	err := s.accounts.FindOne(ctx, filter, options.FindOne().SetProjection(bson.D{{Key: "messages", Value: 0}})).Decode(&acc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrAccountNotFound
		}
		return nil, fmt.Errorf("mongo find: %w", err)
	}
	return &acc, nil
}

func (s *Storage) UpdateAccount(ctx context.Context, acc *model.Account) error {
	next := acc.Clone()
	next.Version = acc.Version + 1

	set, err := setDocument(next)
	if err != nil {
		return err
	}

	filter := bson.D{{Key: "_id", Value: acc.ID}, {Key: "version", Value: acc.Version}}
	res, err := s.accounts.UpdateOne(ctx, filter, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return mapWriteError(err)
	}

	if res.MatchedCount == 0 {
		n, err := s.accounts.CountDocuments(ctx, bson.D{{Key: "_id", Value: acc.ID}})
		if err != nil {
			return fmt.Errorf("mongo count: %w", err)
		}
		if n == 0 {
			return model.ErrAccountNotFound
		}
		return model.ErrConcurrentUpdate
	}

	acc.Version = next.Version
	return nil
}

// setDocument encodes acc as a $set body, leaving _id and messages alone
func setDocument(acc *model.Account) (bson.M, error) {
	raw, err := bson.Marshal(acc)
	if err != nil {
		return nil, fmt.Errorf("encode account: %w", err)
	}
	var set bson.M
	if err := bson.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("encode account: %w", err)
	}
	delete(set, "_id")
	return set, nil
}

// Message operations

func (s *Storage) AppendMessage(ctx context.Context, id model.AccountID, msg model.Message) error {
	res, err := s.accounts.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$push", Value: bson.D{{Key: "messages", Value: msg}}}},
	)
	if err != nil {
		return fmt.Errorf("mongo push message: %w", err)
	}
	if res.MatchedCount == 0 {
		return model.ErrAccountNotFound
	}
	return nil
}

type messagePage struct {
	Total    int             `bson:"total"`
	Messages []model.Message `bson:"messages"`
}

func (s *Storage) ListMessages(ctx context.Context, id model.AccountID, offset, limit int) ([]model.Message, int, error) {
	if offset < 0 {
		offset = 0
	}
	// $slice needs a positive count; the total is still wanted
	sliceLimit := limit
	if sliceLimit <= 0 {
		sliceLimit = 1
	}

	all := bson.D{{Key: "$ifNull", Value: bson.A{"$messages", bson.A{}}}}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "_id", Value: id}}}},
		{{Key: "$project", Value: bson.D{
			{Key: "total", Value: bson.D{{Key: "$size", Value: all}}},
			{Key: "messages", Value: bson.D{{Key: "$slice", Value: bson.A{all, offset, sliceLimit}}}},
		}}},
	}

	cur, err := s.accounts.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, fmt.Errorf("mongo aggregate: %w", err)
	}
	defer cur.Close(ctx)

	if !cur.Next(ctx) {
		if err := cur.Err(); err != nil {
			return nil, 0, fmt.Errorf("mongo aggregate: %w", err)
		}
		return nil, 0, model.ErrAccountNotFound
	}

	var page messagePage
	if err := cur.Decode(&page); err != nil {
		return nil, 0, fmt.Errorf("mongo decode: %w", err)
	}
	if page.Messages == nil || limit <= 0 {
		page.Messages = []model.Message{}
	}
	return page.Messages, page.Total, nil
}

// mapWriteError turns duplicate-key errors into domain errors
func mapWriteError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		var we mongo.WriteException
		if errors.As(err, &we) {
			for _, e := range we.WriteErrors {
				if e.Code != duplicateKeyCode {
					continue
				}
				switch {
				case strings.Contains(e.Message, emailIndex):
					return model.ErrEmailTaken
				case strings.Contains(e.Message, usernameIndex):
					return model.ErrUsernameTaken
				}
			}
		}
		if strings.Contains(err.Error(), emailIndex) {
			return model.ErrEmailTaken
		}
		if strings.Contains(err.Error(), usernameIndex) {
			return model.ErrUsernameTaken
		}
	}
	return fmt.Errorf("mongo write: %w", err)
}
