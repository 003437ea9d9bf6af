package repository

import (
	"context"

	"messagely/internal/domain"
)

// MessageRepository defines persistence operations for Message entities,
// including the joined reads that attach the counterpart profiles.
type MessageRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, msg *domain.Message) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Message, error)
	GetWithParties(ctx context.Context, id int64) (*domain.MessageWithParties, error)
	MarkRead(ctx context.Context, id int64) (*domain.Message, error)
	ListSent(ctx context.Context, username string) ([]domain.SentMessage, error)
	ListReceived(ctx context.Context, username string) ([]domain.ReceivedMessage, error)
}
