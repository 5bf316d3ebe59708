package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"old_vibes/internal/chat/domain"
	errprocess "old_vibes/pkg/err"
	"old_vibes/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	projectionBaseBackoff = 2 * time.Second
	projectionMaxBackoff  = 5 * time.Minute
	// projectionStaleAfter a claim older than this is considered abandoned
	projectionStaleAfter = time.Minute
)

// ChatStore conversation/message store: persistence plus the bookkeeping that keeps
// conversation metadata in line with the messages it summarizes
type ChatStore struct {
	convs ConversationRepository
	msgs  MessageRepository
	now   func() time.Time
}

// NewChatStore create a ChatStore
func NewChatStore(convs ConversationRepository, msgs MessageRepository) *ChatStore {
	return &ChatStore{
		convs: convs,
		msgs:  msgs,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replace the time source
func (s *ChatStore) WithClock(now func() time.Time) *ChatStore {
	s.now = now
	return s
}

// Now current time of the store clock
func (s *ChatStore) Now() time.Time {
	return s.now()
}

func notFound(resource string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return errprocess.NotFound(resource, err)
	}
	return errprocess.Internal(fmt.Sprintf("load %s failed", resource), err)
}

// GetOrCreateConversation idempotent by construction of the conversation id
func (s *ChatStore) GetOrCreateConversation(ctx context.Context, listingID, sellerID, buyerID string) (*domain.Conversation, bool, error) {
	conv, created, err := s.convs.GetOrCreate(ctx, domain.NewConversation(listingID, sellerID, buyerID, s.now()))
	if err != nil {
		return nil, false, errprocess.Internal("create conversation failed", err)
	}
	return conv, created, nil
}

// FindConversation load a conversation
func (s *ChatStore) FindConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	conv, err := s.convs.FindByID(ctx, id)
	if err != nil {
		return nil, notFound("conversation", err)
	}
	return conv, nil
}

// FindMessage load a message
func (s *ChatStore) FindMessage(ctx context.Context, id string) (*domain.Message, error) {
	msg, err := s.msgs.FindByID(ctx, id)
	if err != nil {
		return nil, notFound("message", err)
	}
	return msg, nil
}

// AppendMessage insert msg into conv, the receiver is the other participant.
// The conversation projection is attempted right away; a failure is logged and left to the ProjectionWorker.
func (s *ChatStore) AppendMessage(ctx context.Context, conv *domain.Conversation, msg *domain.Message) (*domain.Message, error) {
	receiverID := conv.Counterpart(msg.SenderID)
	if receiverID == "" || receiverID == msg.SenderID {
		return nil, errprocess.Unauthorized("sender is not a participant of the conversation")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, errprocess.Internal("generate message id failed", err)
	}

	now := s.now()
	msg.ID = id.String()
	msg.ConversationID = conv.ID
	msg.ReceiverID = receiverID
	msg.ListingID = conv.ListingID
	msg.CreatedAt = now
	msg.UpdatedAt = now
	msg.Projection = domain.Projection{
		State:         domain.ProjectionClaimed,
		NextAttemptAt: now,
		ClaimedAt:     &now,
	}

	if err := s.msgs.Insert(ctx, msg); err != nil {
		return nil, errprocess.Internal("insert message failed", err)
	}

	s.project(ctx, conv, msg)
	return msg, nil
}

// project apply msg to its conversation metadata and record the outcome on the message
func (s *ChatStore) project(ctx context.Context, conv *domain.Conversation, msg *domain.Message) bool {
	err := s.applyProjection(ctx, conv, msg)
	if err == nil {
		if err := s.msgs.MarkProjected(ctx, msg.ID); err != nil {
			logger.Log.Error("mark message projected failed",
				zap.String("message_id", msg.ID), zap.String("conversation_id", msg.ConversationID), zap.Error(err))
		}
		msg.Projection.State = domain.ProjectionDone
		return true
	}

	logger.Log.Error("conversation projection failed",
		zap.String("message_id", msg.ID),
		zap.String("conversation_id", msg.ConversationID),
		zap.Int("attempts", msg.Projection.Attempts+1),
		zap.Error(err),
	)
	next := s.now().Add(backoff(msg.Projection.Attempts + 1))
	if markErr := s.msgs.MarkProjectionFailed(ctx, msg.ID, next, err.Error()); markErr != nil {
		logger.Log.Error("mark message projection failed failed",
			zap.String("message_id", msg.ID), zap.Error(markErr))
	}
	return false
}

func (s *ChatStore) applyProjection(ctx context.Context, conv *domain.Conversation, msg *domain.Message) error {
	if conv == nil {
		var err error
		if conv, err = s.convs.FindByID(ctx, msg.ConversationID); err != nil {
			return err
		}
	}
	role, ok := conv.RoleOf(msg.ReceiverID)
	if !ok {
		return fmt.Errorf("receiver %s is not a participant of %s", msg.ReceiverID, conv.ID)
	}

	incUnread := !msg.IsRead && !msg.IsDeleted && !msg.Projection.UnreadCounted
	if err := s.convs.ApplyMessage(ctx, conv.ID, msg.Snapshot(), role, incUnread); err != nil {
		return err
	}
	if !incUnread {
		return nil
	}

	counted, err := s.msgs.MarkUnreadCounted(ctx, msg.ID)
	if err != nil {
		return err
	}
	if counted {
		msg.Projection.UnreadCounted = true
		return nil
	}
	// read or deleted after the insert but before the increment: nobody else takes it back
	return s.convs.DecrementUnread(ctx, conv.ID, role, 1)
}

func backoff(attempts int) time.Duration {
	d := projectionBaseBackoff
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= projectionMaxBackoff {
			return projectionMaxBackoff
		}
	}
	return d
}

// ReconcileOnce apply up to limit unprojected messages, returns how many were applied
func (s *ChatStore) ReconcileOnce(ctx context.Context, limit int) (int, error) {
	now := s.now()
	claimed, err := s.msgs.ClaimUnprojected(ctx, now, now.Add(-projectionStaleAfter), limit)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, msg := range claimed {
		if s.project(ctx, nil, msg) {
			applied++
		}
	}
	return applied, nil
}

// ListMessages chronological page, hasMore by over-fetching one row
func (s *ChatStore) ListMessages(ctx context.Context, conversationID string, limit, offset int) (*domain.MessagePage, error) {
	msgs, err := s.msgs.ListByConversation(ctx, conversationID, limit+1, offset)
	if err != nil {
		return nil, errprocess.Internal("list messages failed", err)
	}

	hasMore := len(msgs) > limit
	if hasMore {
		msgs = msgs[:limit]
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return &domain.MessagePage{Messages: msgs, HasMore: hasMore}, nil
}

// ListConversationsForUser active conversations of userID with the same side unread counter selected
func (s *ChatStore) ListConversationsForUser(ctx context.Context, userID string, limit, offset int) (*domain.ConversationPage, error) {
	convs, err := s.convs.ListByUser(ctx, userID, limit+1, offset)
	if err != nil {
		return nil, errprocess.Internal("list conversations failed", err)
	}

	hasMore := len(convs) > limit
	if hasMore {
		convs = convs[:limit]
	}

	page := &domain.ConversationPage{Conversations: make([]*domain.ConversationSummary, 0, len(convs)), HasMore: hasMore}
	for _, c := range convs {
		role, _ := c.RoleOf(userID)
		page.Conversations = append(page.Conversations, &domain.ConversationSummary{
			Conversation: c,
			Role:         role,
			Unread:       c.UnreadFor(userID),
		})
	}
	return page, nil
}

// MarkRead only the receiver may mark a message read; already read is a no-op (changed=false)
func (s *ChatStore) MarkRead(ctx context.Context, messageID, readerID string) (*domain.Message, bool, error) {
	msg, err := s.FindMessage(ctx, messageID)
	if err != nil {
		return nil, false, err
	}
	if msg.ReceiverID != readerID {
		return nil, false, errprocess.Unauthorized("only the receiver can mark a message as read")
	}
	if msg.IsRead {
		return msg, false, nil
	}

	at := s.now()
	changed, counted, err := s.msgs.MarkRead(ctx, messageID, readerID, at)
	if err != nil {
		return nil, false, errprocess.Internal("mark message read failed", err)
	}
	if !changed {
		return msg, false, nil
	}
	msg.IsRead = true
	msg.ReadAt = &at

	// a message not yet counted is taken back by its projection instead
	if counted {
		conv, err := s.FindConversation(ctx, msg.ConversationID)
		if err != nil {
			return nil, false, err
		}
		role, _ := conv.RoleOf(readerID)
		if err := s.convs.DecrementUnread(ctx, conv.ID, role, 1); err != nil {
			return nil, false, errprocess.Internal("decrement unread failed", err)
		}
	}
	return msg, true, nil
}

// MarkConversationRead flip every unread message addressed to readerID and take their counts off the reader's counter
func (s *ChatStore) MarkConversationRead(ctx context.Context, conv *domain.Conversation, readerID string) (int64, error) {
	role, ok := conv.RoleOf(readerID)
	if !ok {
		return 0, errprocess.Unauthorized("not a participant of the conversation")
	}

	n, counted, err := s.msgs.MarkConversationRead(ctx, conv.ID, readerID, s.now())
	if err != nil {
		return 0, errprocess.Internal("mark conversation read failed", err)
	}
	if counted > 0 {
		if err := s.convs.DecrementUnread(ctx, conv.ID, role, int(counted)); err != nil {
			return 0, errprocess.Internal("decrement unread failed", err)
		}
	}
	return n, nil
}

// UpdateOfferStatus only the receiver may move a pending offer to accepted / rejected.
// A pending offer past its expiry is persisted as expired and the transition fails.
func (s *ChatStore) UpdateOfferStatus(ctx context.Context, messageID string, status domain.OfferStatus, actorID string) (*domain.Message, error) {
	if !status.IsDecision() {
		return nil, errprocess.Validation("status must be one of: accepted rejected", nil)
	}

	msg, err := s.FindMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.MessageType != domain.MessageOffer || msg.OfferData == nil {
		return nil, errprocess.InvalidState("message is not an offer")
	}
	if msg.ReceiverID != actorID {
		return nil, errprocess.Unauthorized("only the receiver can respond to an offer")
	}
	if msg.IsDeleted {
		return nil, errprocess.InvalidState("offer was deleted")
	}

	now := s.now()
	if msg.OfferData.EffectiveStatus(now) == domain.OfferExpired {
		if msg.OfferData.Status == domain.OfferPending {
			if _, err := s.msgs.UpdateOfferStatus(ctx, messageID, domain.OfferPending, domain.OfferExpired, now); err != nil {
				logger.Log.Error("persist expired offer failed", zap.String("message_id", messageID), zap.Error(err))
			}
		}
		return nil, errprocess.InvalidState("offer has expired")
	}
	if msg.OfferData.Status != domain.OfferPending {
		return nil, errprocess.InvalidState(fmt.Sprintf("offer is already %s", msg.OfferData.Status))
	}

	changed, err := s.msgs.UpdateOfferStatus(ctx, messageID, domain.OfferPending, status, now)
	if err != nil {
		return nil, errprocess.Internal("update offer status failed", err)
	}
	if !changed {
		return nil, errprocess.InvalidState("offer is no longer pending")
	}
	msg.OfferData.Status = status
	msg.UpdatedAt = now
	return msg, nil
}

// EditMessage sender only, text messages only, not deleted
func (s *ChatStore) EditMessage(ctx context.Context, messageID, editorID, content string) (*domain.Message, error) {
	msg, err := s.FindMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != editorID {
		return nil, errprocess.Unauthorized("only the sender can edit a message")
	}
	if msg.MessageType != domain.MessageText {
		return nil, errprocess.InvalidState("only text messages can be edited")
	}
	if msg.IsDeleted {
		return nil, errprocess.InvalidState("message was deleted")
	}

	at := s.now()
	changed, err := s.msgs.UpdateContent(ctx, messageID, content, at)
	if err != nil {
		return nil, errprocess.Internal("edit message failed", err)
	}
	if !changed {
		return nil, errprocess.InvalidState("message was deleted")
	}
	msg.Content = content
	msg.IsEdited = true
	msg.EditedAt = &at
	msg.UpdatedAt = at
	return msg, nil
}

// DeleteMessage sender only soft delete
func (s *ChatStore) DeleteMessage(ctx context.Context, messageID, actorID string) (*domain.Message, error) {
	msg, err := s.FindMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != actorID {
		return nil, errprocess.Unauthorized("only the sender can delete a message")
	}
	if msg.IsDeleted {
		return msg, nil
	}

	at := s.now()
	_, counted, err := s.msgs.SoftDelete(ctx, messageID, at)
	if err != nil {
		return nil, errprocess.Internal("delete message failed", err)
	}
	// a deleted message no longer counts as unread for the receiver
	if counted {
		if conv, err := s.convs.FindByID(ctx, msg.ConversationID); err == nil {
			if role, ok := conv.RoleOf(msg.ReceiverID); ok {
				if err := s.convs.DecrementUnread(ctx, conv.ID, role, 1); err != nil {
					logger.Log.Error("decrement unread after delete failed", zap.String("message_id", messageID), zap.Error(err))
				}
			}
		}
	}
	msg.IsDeleted = true
	msg.DeletedAt = &at
	msg.UpdatedAt = at
	return msg, nil
}

// SetBlocked block / unblock a conversation
func (s *ChatStore) SetBlocked(ctx context.Context, conversationID string, blocked bool, blockedBy string) error {
	if err := s.convs.SetBlocked(ctx, conversationID, blocked, blockedBy); err != nil {
		return notFound("conversation", err)
	}
	return nil
}

// UnreadTotal same side unread total over active conversations
func (s *ChatStore) UnreadTotal(ctx context.Context, userID string) (int, error) {
	total, err := s.convs.SumUnread(ctx, userID)
	if err != nil {
		return 0, errprocess.Internal("sum unread failed", err)
	}
	return total, nil
}
