package service

import (
	"context"
	"fmt"
	"strings"

	"messagely/internal/domain"
	"messagely/internal/repository"
)

// MessageService coordinates message operations backed by the message store.
type MessageService interface {
	Send(ctx context.Context, fromUsername, toUsername, body string) (*domain.Message, error)
	Get(ctx context.Context, id int64) (*domain.Message, error)
	GetWithParties(ctx context.Context, id int64) (*domain.MessageWithParties, error)
	MarkRead(ctx context.Context, id int64) (*domain.Message, error)
	ListSentWithRecipients(ctx context.Context, username string) ([]domain.SentMessage, error)
	ListReceivedWithSenders(ctx context.Context, username string) ([]domain.ReceivedMessage, error)
}

type messageService struct {
	messages repository.MessageRepository
}

func NewMessageService(messages repository.MessageRepository) MessageService {
	return &messageService{messages: messages}
}

// Send persists a new message with the current time as sent_at. Existence of
// both parties is left to the store's referential check, which surfaces as
// ErrUserNotFound.
func (s *messageService) Send(ctx context.Context, fromUsername, toUsername, body string) (*domain.Message, error) {
	toUsername = strings.TrimSpace(toUsername)
	if toUsername == "" {
		return nil, fmt.Errorf("%w: to_username is required", domain.ErrValidation)
	}
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%w: body is required", domain.ErrValidation)
	}

	msg := &domain.Message{
		FromUsername: fromUsername,
		ToUsername:   toUsername,
		Body:         body,
	}
	if _, err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *messageService) Get(ctx context.Context, id int64) (*domain.Message, error) {
	return s.messages.Get(ctx, id)
}

func (s *messageService) GetWithParties(ctx context.Context, id int64) (*domain.MessageWithParties, error) {
	return s.messages.GetWithParties(ctx, id)
}

func (s *messageService) MarkRead(ctx context.Context, id int64) (*domain.Message, error) {
	msg, err := s.messages.MarkRead(ctx, id)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *messageService) ListSentWithRecipients(ctx context.Context, username string) ([]domain.SentMessage, error) {
	return s.messages.ListSent(ctx, username)
}

func (s *messageService) ListReceivedWithSenders(ctx context.Context, username string) ([]domain.ReceivedMessage, error) {
	return s.messages.ListReceived(ctx, username)
}
