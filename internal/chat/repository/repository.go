package repository

import (
	"context"
	"errors"
	"time"

	"old_vibes/internal/chat/domain"
)

// ErrNotFound document absent
var ErrNotFound = errors.New("repository: not found")

// ConversationRepository conversation persistence
type ConversationRepository interface {
	// GetOrCreate inserts conv when its id is absent, returns the stored record and whether it was created
	GetOrCreate(ctx context.Context, conv *domain.Conversation) (*domain.Conversation, bool, error)
	FindByID(ctx context.Context, id string) (*domain.Conversation, error)
	// ListByUser active conversations of userID, most recently updated first
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Conversation, error)
	// ApplyMessage moves the last message snapshot forward and, when incUnread, adds one to the receiver's counter
	ApplyMessage(ctx context.Context, id string, snapshot *domain.LastMessage, receiver domain.Role, incUnread bool) error
	// DecrementUnread subtracts n from the role's counter, never below zero
	DecrementUnread(ctx context.Context, id string, role domain.Role, n int) error
	SetBlocked(ctx context.Context, id string, blocked bool, blockedBy string) error
	// SumUnread same side unread total of userID over active conversations
	SumUnread(ctx context.Context, userID string) (int, error)
}

// MessageRepository message persistence.
// Mutations are conditional and report whether a document changed.
type MessageRepository interface {
	Insert(ctx context.Context, msg *domain.Message) error
	FindByID(ctx context.Context, id string) (*domain.Message, error)
	// ListByConversation newest first, soft deleted excluded
	ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]*domain.Message, error)
	// MarkRead flips an unread message addressed to readerID; counted reports whether it had been added to the unread counter
	MarkRead(ctx context.Context, id, readerID string, at time.Time) (changed, counted bool, err error)
	// MarkConversationRead flips every unread message addressed to readerID, counted is how many of them had been added to the unread counter
	MarkConversationRead(ctx context.Context, conversationID, readerID string, at time.Time) (read, counted int64, err error)
	// MarkUnreadCounted records the unread increment of a message, false when the message was read in the meantime
	MarkUnreadCounted(ctx context.Context, id string) (bool, error)
	UpdateOfferStatus(ctx context.Context, id string, from, to domain.OfferStatus, at time.Time) (bool, error)
	UpdateContent(ctx context.Context, id, content string, at time.Time) (bool, error)
	// SoftDelete counted reports whether the message was still unread and counted when it got deleted
	SoftDelete(ctx context.Context, id string, at time.Time) (changed, counted bool, err error)

	// ClaimUnprojected claims up to limit messages whose projection is pending, failed and due, or claimed before staleBefore
	ClaimUnprojected(ctx context.Context, now, staleBefore time.Time, limit int) ([]*domain.Message, error)
	MarkProjected(ctx context.Context, id string) error
	MarkProjectionFailed(ctx context.Context, id string, next time.Time, errMsg string) error
}

// unreadField bson path of the role's unread counter
func unreadField(role domain.Role) string {
	if role == domain.RoleSeller {
		return "unread_count.seller"
	}
	return "unread_count.buyer"
}
