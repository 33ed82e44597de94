package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/sagespace/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.ContractSuite
	storage *Storage
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.Store = s.storage
	s.Ctx = context.Background()
}

func (s *StorageSuite) TestCreateStoresCopy() {
	acc := storagetest.NewAccount("acc-1", "alice_01", "alice@example.com")
	s.Require().NoError(s.storage.CreateAccount(s.Ctx, acc))

	acc.Username = "mutated_1"

	got, err := s.storage.GetAccount(s.Ctx, "acc-1")
	s.Require().NoError(err)
	s.Equal("alice_01", got.Username)
}

func (s *StorageSuite) TestListMessagesNonPositiveLimit() {
	s.Require().NoError(s.storage.CreateAccount(s.Ctx, storagetest.NewAccount("acc-1", "alice_01", "alice@example.com")))

	msgs, total, err := s.storage.ListMessages(s.Ctx, "acc-1", 0, 0)
	s.Require().NoError(err)
	s.Zero(total)
	s.Empty(msgs)
}
