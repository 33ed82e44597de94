// Package inbox delivers anonymous messages to accounts and pages through
// an account's received messages.
package inbox

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/mcoot/sagespace/internal/dependencies/clock"
	"github.com/mcoot/sagespace/internal/model"
	"github.com/mcoot/sagespace/internal/storage"
	"github.com/mcoot/sagespace/internal/validation"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	// maxOffset bounds (page-1)*limit so it cannot overflow and fits every
	// store's offset type
	maxOffset = math.MaxInt32
)

// SendInput is the payload for Send
type SendInput struct {
	Username string `json:"username" validate:"required,username"`
	Content  string `json:"content" validate:"required,min=1,max=1000"`
}

// Page is one page of an inbox, oldest first
type Page struct {
	Messages   []model.Message `json:"messages"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"total_pages"`
}

// Service handles the anonymous message inbox
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	logger  *slog.Logger
}

// New creates a new inbox Service
func New(storage storage.Storage, clock clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		clock:   clock,
		logger:  logger,
	}
}

// Send appends an anonymous message to the inbox of username
func (s *Service) Send(ctx context.Context, in SendInput) error {
	in.Username = strings.TrimSpace(in.Username)
	in.Content = strings.TrimSpace(in.Content)
	if err := validation.Struct(in); err != nil {
		return err
	}

	acc, err := s.storage.GetAccountByUsername(ctx, in.Username)
	if err != nil {
		return err
	}
	if !acc.IsAcceptingMessages {
		return model.ErrNotAcceptingMessages
	}

	msg := model.Message{
		Content:    in.Content,
		CreatedAt:  s.clock.Now(),
		IsFromUser: true,
	}
	if err := s.storage.AppendMessage(ctx, acc.ID, msg); err != nil {
		return err
	}

	s.logger.Info("message delivered", slog.String("account_id", string(acc.ID)))
	return nil
}

// List returns page (1-based) of the account's messages. Non-positive
// values fall back to page 1 and DefaultPageSize; limit is capped at MaxPageSize.
// Pages past the end are empty.
func (s *Service) List(ctx context.Context, id model.AccountID, page, limit int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if maxPage := maxOffset/limit + 1; page > maxPage {
		page = maxPage
	}

	msgs, total, err := s.storage.ListMessages(ctx, id, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}

	return &Page{
		Messages:   msgs,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}
