package account

import (
	"context"
	"errors"
	"time"

	"github.com/mcoot/sagespace/internal/model"
)

// errUnchanged is returned by a mutation that has nothing to write
var errUnchanged = errors.New("unchanged")

type loader func(ctx context.Context) (*model.Account, error)

func (s *Service) byID(id model.AccountID) loader {
	return func(ctx context.Context) (*model.Account, error) {
		return s.storage.GetAccount(ctx, id)
	}
}

func (s *Service) byEmail(email string) loader {
	return func(ctx context.Context) (*model.Account, error) {
		return s.storage.GetAccountByEmail(ctx, email)
	}
}

// update loads an account, applies mutate and writes it back against the
// loaded version. A lost race reloads and re-runs mutate, up to
// MaxUpdateAttempts times. If mutate returns errUnchanged the loaded account
// is returned without a write.
func (s *Service) update(ctx context.Context, load loader, mutate func(acc *model.Account, now time.Time) error) (*model.Account, error) {
	for attempt := 0; attempt < s.cfg.MaxUpdateAttempts; attempt++ {
		acc, err := load(ctx)
		if err != nil {
			return nil, err
		}

		now := s.clock.Now()
		if err := mutate(acc, now); err != nil {
			if errors.Is(err, errUnchanged) {
				return acc, nil
			}
			return nil, err
		}
		acc.UpdatedAt = now

		err = s.storage.UpdateAccount(ctx, acc)
		if errors.Is(err, model.ErrConcurrentUpdate) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return acc, nil
	}

	s.logger.Warn("gave up after concurrent updates")
	return nil, model.ErrConcurrentUpdate
}
