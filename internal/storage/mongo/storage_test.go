package mongo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/mcoot/sagespace/internal/model"
	"github.com/mcoot/sagespace/internal/storage/storagetest"
)

const testURIEnv = "SAGESPACE_TEST_MONGO_URI"

type StorageSuite struct {
	storagetest.ContractSuite
	storage  *Storage
	database string
}

func TestStorageSuite(t *testing.T) {
	if os.Getenv(testURIEnv) == "" {
		t.Skipf("%s not set", testURIEnv)
	}
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.Ctx = context.Background()
	s.database = fmt.Sprintf("sagespace_test_%d", time.Now().UnixNano())

	cfg := DefaultConfig()
	cfg.URI = os.Getenv(testURIEnv)
	cfg.Database = s.database

	store, err := New(s.Ctx, cfg)
	s.Require().NoError(err)
	s.storage = store
	s.Store = store
}

func (s *StorageSuite) TearDownTest() {
	if s.storage == nil {
		return
	}
	_ = s.storage.client.Database(s.database).Drop(s.Ctx)
	_ = s.storage.Close()
}

func (s *StorageSuite) TestGetDoesNotLoadMessages() {
	acc := storagetest.NewAccount("acc-1", "alice_01", "alice@example.com")
	s.Require().NoError(s.storage.CreateAccount(s.Ctx, acc))
	s.Require().NoError(s.storage.AppendMessage(s.Ctx, acc.ID, model.Message{Content: "hi", IsFromUser: true}))

	// an update built from a loaded account must keep the inbox
	got, err := s.storage.GetAccount(s.Ctx, acc.ID)
	s.Require().NoError(err)
	got.DisplayName = "Alice"
	s.Require().NoError(s.storage.UpdateAccount(s.Ctx, got))

	_, total, err := s.storage.ListMessages(s.Ctx, acc.ID, 0, 10)
	s.Require().NoError(err)
	s.Equal(1, total)
}

func duplicateKey(index string) error {
	return mongo.WriteException{
		WriteErrors: []mongo.WriteError{{
			Code:    duplicateKeyCode,
			Message: fmt.Sprintf("E11000 duplicate key error collection: sagespace.accounts index: %s dup key: { value: \"x\" }", index),
		}},
	}
}

func TestMapWriteError(t *testing.T) {
	assert.ErrorIs(t, mapWriteError(duplicateKey(emailIndex)), model.ErrEmailTaken)
	assert.ErrorIs(t, mapWriteError(duplicateKey(usernameIndex)), model.ErrUsernameTaken)

	err := mapWriteError(errors.New("connection reset"))
	assert.NotErrorIs(t, err, model.ErrEmailTaken)
	assert.Contains(t, err.Error(), "mongo write: connection reset")
}

func TestSetDocumentOmitsID(t *testing.T) {
	acc := storagetest.NewAccount("acc-1", "alice_01", "alice@example.com")
	acc.Version = 4

	set, err := setDocument(acc)
	assert.NoError(t, err)
	assert.NotContains(t, set, "_id")
	assert.NotContains(t, set, "messages")
	assert.Equal(t, "alice_01", set["username"])
	assert.Equal(t, int64(4), set["version"])
}
