// Package storagetest holds the behavioural test suite every storage
// backend must pass.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/sagespace/internal/model"
	"github.com/mcoot/sagespace/internal/storage"
)

// ContractSuite is embedded by backend suites, which must set Store and Ctx
// in their SetupTest
type ContractSuite struct {
	suite.Suite
	Store storage.Storage
	Ctx   context.Context
}

var baseTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// NewAccount returns an unverified account with a pending code
func NewAccount(id, username, email string) *model.Account {
	return &model.Account{
		ID:                     model.AccountID(id),
		Username:               username,
		Email:                  email,
		PasswordHash:           "$2a$04$hash",
		OTPCode:                "123456",
		OTPExpiry:              baseTime.Add(5 * time.Minute),
		IsAcceptingMessages:    true,
		LastVerificationSentAt: baseTime,
		CreatedAt:              baseTime,
		UpdatedAt:              baseTime,
	}
}

func (s *ContractSuite) create(id, username, email string) *model.Account {
	acc := NewAccount(id, username, email)
	s.Require().NoError(s.Store.CreateAccount(s.Ctx, acc))
	return acc
}

func (s *ContractSuite) TestCreateAndGetAccount() {
	acc := s.create("acc-1", "alice_01", "alice@example.com")
	s.Equal(int64(1), acc.Version)

	byID, err := s.Store.GetAccount(s.Ctx, "acc-1")
	s.Require().NoError(err)
	s.Equal("alice_01", byID.Username)
	s.Equal("alice@example.com", byID.Email)
	s.Equal("123456", byID.OTPCode)
	s.True(byID.OTPExpiry.Equal(acc.OTPExpiry))
	s.True(byID.LastVerificationSentAt.Equal(baseTime))
	s.True(byID.IsAcceptingMessages)
	s.False(byID.IsVerified)
	s.Equal(int64(1), byID.Version)

	byEmail, err := s.Store.GetAccountByEmail(s.Ctx, "alice@example.com")
	s.Require().NoError(err)
	s.Equal(acc.ID, byEmail.ID)

	byUsername, err := s.Store.GetAccountByUsername(s.Ctx, "alice_01")
	s.Require().NoError(err)
	s.Equal(acc.ID, byUsername.ID)
}

func (s *ContractSuite) TestGetAccountNotFound() {
	_, err := s.Store.GetAccount(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrAccountNotFound)

	_, err = s.Store.GetAccountByEmail(s.Ctx, "missing@example.com")
	s.ErrorIs(err, model.ErrAccountNotFound)

	_, err = s.Store.GetAccountByUsername(s.Ctx, "missing_1")
	s.ErrorIs(err, model.ErrAccountNotFound)
}

func (s *ContractSuite) TestCreateDuplicateEmail() {
	s.create("acc-1", "alice_01", "alice@example.com")

	err := s.Store.CreateAccount(s.Ctx, NewAccount("acc-2", "alice_02", "alice@example.com"))
	s.ErrorIs(err, model.ErrEmailTaken)

	_, err = s.Store.GetAccountByUsername(s.Ctx, "alice_02")
	s.ErrorIs(err, model.ErrAccountNotFound)
}

func (s *ContractSuite) TestCreateDuplicateUsername() {
	s.create("acc-1", "alice_01", "alice@example.com")

	err := s.Store.CreateAccount(s.Ctx, NewAccount("acc-2", "alice_01", "other@example.com"))
	s.ErrorIs(err, model.ErrUsernameTaken)

	_, err = s.Store.GetAccountByEmail(s.Ctx, "other@example.com")
	s.ErrorIs(err, model.ErrAccountNotFound)
}

func (s *ContractSuite) TestReturnedAccountsAreCopies() {
	s.create("acc-1", "alice_01", "alice@example.com")

	a, err := s.Store.GetAccount(s.Ctx, "acc-1")
	s.Require().NoError(err)
	a.OTPCode = "999999"

	b, err := s.Store.GetAccount(s.Ctx, "acc-1")
	s.Require().NoError(err)
	s.Equal("123456", b.OTPCode)
}

func (s *ContractSuite) TestUpdateAccountBumpsVersion() {
	acc := s.create("acc-1", "alice_01", "alice@example.com")

	acc.IsVerified = true
	acc.OTPCode = ""
	acc.OTPExpiry = model.ClearedExpiry
	s.Require().NoError(s.Store.UpdateAccount(s.Ctx, acc))
	s.Equal(int64(2), acc.Version)

	got, err := s.Store.GetAccount(s.Ctx, "acc-1")
	s.Require().NoError(err)
	s.True(got.IsVerified)
	s.Empty(got.OTPCode)
	s.True(got.OTPExpiry.Equal(model.ClearedExpiry))
	s.Equal(int64(2), got.Version)
}

func (s *ContractSuite) TestUpdateAccountStaleVersion() {
	acc := s.create("acc-1", "alice_01", "alice@example.com")

	first, _ := s.Store.GetAccount(s.Ctx, acc.ID)
	second, _ := s.Store.GetAccount(s.Ctx, acc.ID)

	first.OTPCode = "111111"
	s.Require().NoError(s.Store.UpdateAccount(s.Ctx, first))

	second.OTPCode = "222222"
	s.ErrorIs(s.Store.UpdateAccount(s.Ctx, second), model.ErrConcurrentUpdate)

	got, _ := s.Store.GetAccount(s.Ctx, acc.ID)
	s.Equal("111111", got.OTPCode)
}

func (s *ContractSuite) TestUpdateAccountNotFound() {
	acc := NewAccount("missing", "alice_01", "alice@example.com")
	acc.Version = 1
	s.ErrorIs(s.Store.UpdateAccount(s.Ctx, acc), model.ErrAccountNotFound)
}

func (s *ContractSuite) TestUpdateAccountRenamesUsername() {
	acc := s.create("acc-1", "alice_01", "alice@example.com")

	acc.Username = "alice_02"
	s.Require().NoError(s.Store.UpdateAccount(s.Ctx, acc))

	_, err := s.Store.GetAccountByUsername(s.Ctx, "alice_01")
	s.ErrorIs(err, model.ErrAccountNotFound)

	got, err := s.Store.GetAccountByUsername(s.Ctx, "alice_02")
	s.Require().NoError(err)
	s.Equal(acc.ID, got.ID)

	// the old name is free again
	s.create("acc-2", "alice_01", "other@example.com")
}

func (s *ContractSuite) TestUpdateAccountUsernameTaken() {
	s.create("acc-1", "alice_01", "alice@example.com")
	bob := s.create("acc-2", "bob_0001", "bob@example.com")

	bob.Username = "alice_01"
	s.ErrorIs(s.Store.UpdateAccount(s.Ctx, bob), model.ErrUsernameTaken)

	got, err := s.Store.GetAccountByUsername(s.Ctx, "alice_01")
	s.Require().NoError(err)
	s.Equal(model.AccountID("acc-1"), got.ID)
}

func (s *ContractSuite) TestConcurrentUpdatesOneWins() {
	s.create("acc-1", "alice_01", "alice@example.com")

	const workers = 8
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		won    int
		failed int
	)
	copies := make([]*model.Account, workers)
	for i := range copies {
		acc, err := s.Store.GetAccount(s.Ctx, "acc-1")
		s.Require().NoError(err)
		copies[i] = acc
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(acc *model.Account, n int) {
			defer wg.Done()
			acc.OTPCode = fmt.Sprintf("%06d", n)
			err := s.Store.UpdateAccount(s.Ctx, acc)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				won++
			} else if errors.Is(err, model.ErrConcurrentUpdate) {
				failed++
			}
		}(copies[i], i)
	}
	wg.Wait()

	s.Equal(1, won)
	s.Equal(workers-1, failed)
}

func (s *ContractSuite) TestMessages() {
	s.create("acc-1", "alice_01", "alice@example.com")

	for i := 0; i < 5; i++ {
		msg := model.Message{
			Content:    fmt.Sprintf("message %d", i),
			CreatedAt:  baseTime.Add(time.Duration(i) * time.Minute),
			IsFromUser: true,
		}
		s.Require().NoError(s.Store.AppendMessage(s.Ctx, "acc-1", msg))
	}

	msgs, total, err := s.Store.ListMessages(s.Ctx, "acc-1", 0, 2)
	s.Require().NoError(err)
	s.Equal(5, total)
	s.Require().Len(msgs, 2)
	s.Equal("message 0", msgs[0].Content)
	s.Equal("message 1", msgs[1].Content)
	s.True(msgs[0].IsFromUser)
	s.True(msgs[1].CreatedAt.Equal(baseTime.Add(time.Minute)))

	msgs, total, err = s.Store.ListMessages(s.Ctx, "acc-1", 4, 2)
	s.Require().NoError(err)
	s.Equal(5, total)
	s.Require().Len(msgs, 1)
	s.Equal("message 4", msgs[0].Content)

	msgs, total, err = s.Store.ListMessages(s.Ctx, "acc-1", 10, 2)
	s.Require().NoError(err)
	s.Equal(5, total)
	s.Empty(msgs)
}

func (s *ContractSuite) TestMessagesSurviveAccountUpdate() {
	acc := s.create("acc-1", "alice_01", "alice@example.com")
	s.Require().NoError(s.Store.AppendMessage(s.Ctx, acc.ID, model.Message{Content: "hi", CreatedAt: baseTime, IsFromUser: true}))

	acc.IsAcceptingMessages = false
	s.Require().NoError(s.Store.UpdateAccount(s.Ctx, acc))

	msgs, total, err := s.Store.ListMessages(s.Ctx, acc.ID, 0, 10)
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Equal("hi", msgs[0].Content)
}

func (s *ContractSuite) TestMessagesUnknownAccount() {
	err := s.Store.AppendMessage(s.Ctx, "missing", model.Message{Content: "hi"})
	s.ErrorIs(err, model.ErrAccountNotFound)

	_, _, err = s.Store.ListMessages(s.Ctx, "missing", 0, 10)
	s.ErrorIs(err, model.ErrAccountNotFound)
}

func (s *ContractSuite) TestPing() {
	s.NoError(s.Store.Ping(s.Ctx))
}
