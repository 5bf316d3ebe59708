package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"old_vibes/internal/chat/domain"
	"old_vibes/internal/chat/repository"
	"old_vibes/pkg"
	"old_vibes/pkg/config"
	errprocess "old_vibes/pkg/err"
	"old_vibes/pkg/logger"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ChatUseCase single authorization + orchestration boundary shared by REST and socket entry points
type ChatUseCase struct {
	store    *repository.ChatStore
	listings repository.ListingDirectory
	users    repository.UserDirectory
	signer   repository.AttachmentSigner
	events   repository.EventPublisher
	rules    config.ChatRules
	validate *validator.Validate
}

// NewChatUseCase create ChatUseCase
func NewChatUseCase(
	store *repository.ChatStore,
	listings repository.ListingDirectory,
	users repository.UserDirectory,
	signer repository.AttachmentSigner,
	events repository.EventPublisher,
	rules config.ChatRules,
) *ChatUseCase {
	if signer == nil {
		signer = repository.NewPassthroughSigner()
	}
	if events == nil {
		events = repository.NewNoopEventPublisher()
	}
	return &ChatUseCase{
		store:    store,
		listings: listings,
		users:    users,
		signer:   signer,
		events:   events,
		rules:    rules.WithDefaults(),
		validate: validator.New(),
	}
}

// Rules effective chat rules
func (uc *ChatUseCase) Rules() config.ChatRules {
	return uc.rules
}

func (uc *ChatUseCase) page(limit, offset int) (int, int) {
	return pkg.Page(limit, offset, uc.rules.DefaultPageSize, uc.rules.MaxPageSize)
}

// authorize load the conversation and require userID to be a participant
func (uc *ChatUseCase) authorize(ctx context.Context, conversationID, userID string) (*domain.Conversation, error) {
	conv, err := uc.store.FindConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsParticipant(userID) {
		return nil, errprocess.Unauthorized("not a participant of this conversation")
	}
	return conv, nil
}

// ValidateConversationAccess side effect free participant check
func (uc *ChatUseCase) ValidateConversationAccess(ctx context.Context, conversationID, userID string) bool {
	_, err := uc.authorize(ctx, conversationID, userID)
	return err == nil
}

// GetConversation participant only
func (uc *ChatUseCase) GetConversation(ctx context.Context, conversationID, userID string) (*domain.Conversation, error) {
	return uc.authorize(ctx, conversationID, userID)
}

// StartConversation the listing owner is the seller and the requester the buyer
func (uc *ChatUseCase) StartConversation(ctx context.Context, listingID, requesterID string) (*domain.StartedConversation, error) {
	if strings.TrimSpace(listingID) == "" {
		return nil, errprocess.Validation("listingId is required", nil)
	}

	listing, err := uc.listings.GetListing(ctx, listingID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errprocess.NotFound("listing", err)
	}
	if err != nil {
		return nil, errprocess.Internal("resolve listing failed", err)
	}
	if !listing.IsVisible() {
		return nil, errprocess.NotFound("listing", nil)
	}
	if listing.OwnerID == requesterID {
		return nil, errprocess.InvalidState("cannot start conversation with yourself")
	}

	conv, created, err := uc.store.GetOrCreateConversation(ctx, listing.ID, listing.OwnerID, requesterID)
	if err != nil {
		return nil, err
	}
	if created {
		uc.publish(ctx, domain.ChatEvent{
			Type:           domain.EventConversationStarted,
			ConversationID: conv.ID,
			ActorID:        requesterID,
			Data:           map[string]string{"listingId": listing.ID, "sellerId": conv.SellerID, "buyerId": conv.BuyerID},
		})
	}

	return &domain.StartedConversation{
		ConversationID: conv.ID,
		Conversation:   conv,
		Listing:        listing,
	}, nil
}

// SendMessage validate, persist and hydrate a message from senderID
func (uc *ChatUseCase) SendMessage(ctx context.Context, conversationID, senderID string, in domain.SendMessageInput) (*domain.Message, error) {
	conv, err := uc.authorize(ctx, conversationID, senderID)
	if err != nil {
		return nil, err
	}
	if !conv.IsActive {
		return nil, errprocess.InvalidState("conversation is not active")
	}
	if conv.IsBlocked {
		return nil, errprocess.InvalidState("conversation is blocked")
	}

	msg, err := uc.buildMessage(senderID, in)
	if err != nil {
		return nil, err
	}

	msg, err = uc.store.AppendMessage(ctx, conv, msg)
	if err != nil {
		return nil, err
	}

	uc.publish(ctx, domain.ChatEvent{
		Type:           domain.EventMessageCreated,
		ConversationID: conv.ID,
		MessageID:      msg.ID,
		ActorID:        senderID,
		Data:           map[string]string{"receiverId": msg.ReceiverID, "messageType": string(msg.MessageType)},
	})

	uc.hydrate(ctx, msg)
	return msg, nil
}

func (uc *ChatUseCase) checkContent(content string) error {
	if err := uc.validate.Var(content, "max="+strconv.Itoa(uc.rules.MaxContentLength)); err != nil {
		return errprocess.Validation(fmt.Sprintf("content must be at most %d characters", uc.rules.MaxContentLength), err)
	}
	return nil
}

func (uc *ChatUseCase) buildMessage(senderID string, in domain.SendMessageInput) (*domain.Message, error) {
	if err := uc.validate.Struct(in); err != nil {
		return nil, errprocess.FromValidator(err)
	}
	if err := uc.checkContent(in.Content); err != nil {
		return nil, err
	}

	msgType := in.MessageType
	if msgType == "" {
		msgType = domain.MessageText
	}

	msg := &domain.Message{
		SenderID:    senderID,
		Content:     in.Content,
		MessageType: msgType,
		Attachments: in.Attachments,
	}

	switch msgType {
	case domain.MessageText:
		if strings.TrimSpace(in.Content) == "" {
			return nil, errprocess.Validation("content is required", nil)
		}
	case domain.MessageImage:
		if len(in.Attachments) == 0 {
			return nil, errprocess.Validation("attachments is required for image messages", nil)
		}
	case domain.MessageOffer:
		if in.OfferData == nil {
			return nil, errprocess.Validation("offerData is required for offer messages", nil)
		}
		if in.OfferData.Amount < 0 {
			return nil, errprocess.Validation("amount must be at least 0", nil)
		}
		if msg.Content == "" {
			msg.Content = in.OfferData.Message
		}
		msg.OfferData = &domain.OfferData{
			Amount:    in.OfferData.Amount,
			Message:   in.OfferData.Message,
			Status:    domain.OfferPending,
			ExpiresAt: uc.store.Now().Add(uc.rules.OfferTTL),
		}
	}
	return msg, nil
}

// GetMessages participant only, chronological page
func (uc *ChatUseCase) GetMessages(ctx context.Context, conversationID, userID string, limit, offset int) (*domain.MessagePage, error) {
	if _, err := uc.authorize(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	limit, offset = uc.page(limit, offset)
	page, err := uc.store.ListMessages(ctx, conversationID, limit, offset)
	if err != nil {
		return nil, err
	}
	uc.hydrate(ctx, page.Messages...)
	return page, nil
}

// GetConversations conversations of userID; conversations whose listing no longer resolves are dropped
func (uc *ChatUseCase) GetConversations(ctx context.Context, userID string, limit, offset int) (*domain.ConversationPage, error) {
	limit, offset = uc.page(limit, offset)
	page, err := uc.store.ListConversationsForUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	kept := page.Conversations[:0]
	otherIDs := make([]string, 0, len(page.Conversations))
	for _, summary := range page.Conversations {
		listing, err := uc.listings.GetListing(ctx, summary.ListingID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			logger.Log.Warn("resolve listing failed", zap.String("listing_id", summary.ListingID), zap.Error(err))
		}
		summary.Listing = listing
		kept = append(kept, summary)
		otherIDs = append(otherIDs, summary.Counterpart(userID))
	}
	page.Conversations = kept

	profiles := uc.profiles(ctx, otherIDs)
	for _, summary := range page.Conversations {
		summary.OtherUser = profileOrID(profiles, summary.Counterpart(userID))
	}
	return page, nil
}

// MarkRead receiver only; changed is false when the message was already read
func (uc *ChatUseCase) MarkRead(ctx context.Context, messageID, readerID string) (*domain.Message, bool, error) {
	msg, changed, err := uc.store.MarkRead(ctx, messageID, readerID)
	if err != nil {
		return nil, false, err
	}
	if changed {
		uc.publish(ctx, domain.ChatEvent{
			Type:           domain.EventMessageReadType,
			ConversationID: msg.ConversationID,
			MessageID:      msg.ID,
			ActorID:        readerID,
		})
	}
	return msg, changed, nil
}

// MarkConversationRead every message addressed to readerID
func (uc *ChatUseCase) MarkConversationRead(ctx context.Context, conversationID, readerID string) (int64, error) {
	conv, err := uc.authorize(ctx, conversationID, readerID)
	if err != nil {
		return 0, err
	}
	n, err := uc.store.MarkConversationRead(ctx, conv, readerID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		uc.publish(ctx, domain.ChatEvent{
			Type:           domain.EventMessageReadType,
			ConversationID: conv.ID,
			ActorID:        readerID,
			Data:           map[string]int64{"count": n},
		})
	}
	return n, nil
}

// UpdateOfferStatus receiver only accept / reject of a pending offer
func (uc *ChatUseCase) UpdateOfferStatus(ctx context.Context, messageID string, status domain.OfferStatus, actorID string) (*domain.Message, error) {
	if err := uc.validate.Struct(domain.OfferStatusInput{Status: status}); err != nil {
		return nil, errprocess.FromValidator(err)
	}

	msg, err := uc.store.UpdateOfferStatus(ctx, messageID, status, actorID)
	if err != nil {
		return nil, err
	}

	uc.publish(ctx, domain.ChatEvent{
		Type:           domain.EventOfferUpdated,
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
		ActorID:        actorID,
		Data:           map[string]interface{}{"status": status, "amount": msg.OfferData.Amount},
	})

	uc.hydrate(ctx, msg)
	return msg, nil
}

// EditMessage sender only, text only
func (uc *ChatUseCase) EditMessage(ctx context.Context, messageID, editorID string, in domain.EditMessageInput) (*domain.Message, error) {
	if err := uc.validate.Struct(in); err != nil {
		return nil, errprocess.FromValidator(err)
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, errprocess.Validation("content is required", nil)
	}
	if err := uc.checkContent(in.Content); err != nil {
		return nil, err
	}

	msg, err := uc.store.EditMessage(ctx, messageID, editorID, in.Content)
	if err != nil {
		return nil, err
	}
	uc.hydrate(ctx, msg)
	return msg, nil
}

// DeleteMessage sender only soft delete
func (uc *ChatUseCase) DeleteMessage(ctx context.Context, messageID, actorID string) (*domain.Message, error) {
	return uc.store.DeleteMessage(ctx, messageID, actorID)
}

// BlockConversation participant blocks the conversation, sends are refused until the blocker unblocks
func (uc *ChatUseCase) BlockConversation(ctx context.Context, conversationID, userID string) (*domain.Conversation, error) {
	conv, err := uc.authorize(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if conv.IsBlocked {
		if conv.BlockedBy == userID {
			return conv, nil
		}
		return nil, errprocess.InvalidState("conversation is already blocked")
	}
	if err := uc.store.SetBlocked(ctx, conv.ID, true, userID); err != nil {
		return nil, err
	}
	conv.IsBlocked = true
	conv.BlockedBy = userID
	return conv, nil
}

// UnblockConversation only the blocker may unblock
func (uc *ChatUseCase) UnblockConversation(ctx context.Context, conversationID, userID string) (*domain.Conversation, error) {
	conv, err := uc.authorize(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !conv.IsBlocked {
		return conv, nil
	}
	if conv.BlockedBy != userID {
		return nil, errprocess.Unauthorized("only the user who blocked the conversation can unblock it")
	}
	if err := uc.store.SetBlocked(ctx, conv.ID, false, ""); err != nil {
		return nil, err
	}
	conv.IsBlocked = false
	conv.BlockedBy = ""
	return conv, nil
}

// GetUnreadTotal same side unread total of userID
func (uc *ChatUseCase) GetUnreadTotal(ctx context.Context, userID string) (int, error) {
	return uc.store.UnreadTotal(ctx, userID)
}

// hydrate presents lapsed offers as expired, attaches display profiles and signs attachments
func (uc *ChatUseCase) hydrate(ctx context.Context, msgs ...*domain.Message) {
	if len(msgs) == 0 {
		return
	}
	now := uc.store.Now()

	ids := make([]string, 0, 2*len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.SenderID, m.ReceiverID)
	}
	profiles := uc.profiles(ctx, ids)

	for _, m := range msgs {
		m.ApplyOfferExpiry(now)
		m.Sender = profileOrID(profiles, m.SenderID)
		m.Receiver = profileOrID(profiles, m.ReceiverID)
		for i, ref := range m.Attachments {
			signed, err := uc.signer.Sign(ctx, ref)
			if err != nil {
				logger.Log.Warn("sign attachment failed", zap.String("message_id", m.ID), zap.Error(err))
				continue
			}
			m.Attachments[i] = signed
		}
	}
}

func (uc *ChatUseCase) profiles(ctx context.Context, ids []string) map[string]*domain.UserProfile {
	if uc.users == nil {
		return map[string]*domain.UserProfile{}
	}
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !pkg.Contains(unique, id) {
			unique = append(unique, id)
		}
	}
	profiles, err := uc.users.FindProfiles(ctx, unique)
	if err != nil {
		logger.Log.Warn("load user profiles failed", zap.Strings("user_ids", unique), zap.Error(err))
		return map[string]*domain.UserProfile{}
	}
	return profiles
}

func profileOrID(profiles map[string]*domain.UserProfile, id string) *domain.UserProfile {
	if p, ok := profiles[id]; ok {
		return p
	}
	return &domain.UserProfile{ID: id}
}

// publish integration events are best effort
func (uc *ChatUseCase) publish(ctx context.Context, evt domain.ChatEvent) {
	evt.OccurredAt = time.Now().UTC()
	if err := uc.events.Publish(ctx, evt); err != nil {
		logger.Log.Error("publish chat event failed",
			zap.String("type", string(evt.Type)),
			zap.String("conversation_id", evt.ConversationID),
			zap.String("message_id", evt.MessageID),
			zap.Error(err),
		)
	}
}
