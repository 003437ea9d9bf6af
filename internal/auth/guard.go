package auth

import (
	"context"

	"messagely/internal/domain"
	"messagely/internal/service"
)

// Guard decides whether an identity may access a requested resource. Every
// predicate is read-only; the message predicates perform a single lookup and
// nothing else.
type Guard struct {
	messages service.MessageService
}

func NewGuard(messages service.MessageService) *Guard {
	return &Guard{messages: messages}
}

// RequireLoggedIn allows any present identity.
func (g *Guard) RequireLoggedIn(identity Identity) error {
	if identity.Anonymous() {
		return domain.ErrUnauthorized
	}
	return nil
}

// RequireSelf allows an identity to act only on its own username.
func (g *Guard) RequireSelf(identity Identity, targetUsername string) error {
	if identity.Anonymous() || identity.Username != targetUsername {
		return domain.ErrUnauthorized
	}
	return nil
}

// RequireRecipient allows only the message's recipient. A missing message
// surfaces as NotFound before any identity check.
func (g *Guard) RequireRecipient(ctx context.Context, identity Identity, messageID int64) error {
	msg, err := g.messages.Get(ctx, messageID)
	if err != nil {
		return err
	}
	if identity.Anonymous() || identity.Username != msg.ToUsername {
		return domain.ErrUnauthorized
	}
	return nil
}

// RequireParticipant allows either party of the message: the identity must be
// a member of {sender, recipient}.
func (g *Guard) RequireParticipant(ctx context.Context, identity Identity, messageID int64) error {
	msg, err := g.messages.Get(ctx, messageID)
	if err != nil {
		return err
	}
	if identity.Anonymous() {
		return domain.ErrUnauthorized
	}
	if identity.Username != msg.FromUsername && identity.Username != msg.ToUsername {
		return domain.ErrUnauthorized
	}
	return nil
}
