package app

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"old_vibes/internal/chat/domain"
	"old_vibes/internal/chat/repository"
	"old_vibes/pkg/config"
	errprocess "old_vibes/pkg/err"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestStartConversation_Idempotent(t *testing.T) {
	f := newFixture(t)

	first, err := f.uc.StartConversation(f.ctx, lampID, bob)
	require.NoError(t, err)
	second, err := f.uc.StartConversation(f.ctx, lampID, bob)
	require.NoError(t, err)

	assert.Equal(t, first.ConversationID, second.ConversationID)
	assert.Equal(t, domain.DeriveConversationID(lampID, alice, bob), first.ConversationID)
	assert.Equal(t, alice, first.Conversation.SellerID)
	assert.Equal(t, bob, first.Conversation.BuyerID)
	assert.Equal(t, domain.UnreadCount{}, first.Conversation.UnreadCount)
	assert.Equal(t, "Brass lamp", first.Listing.Title)

	page, err := f.uc.GetConversations(f.ctx, bob, 0, 0)
	require.NoError(t, err)
	assert.Len(t, page.Conversations, 1)

	// only the first call creates
	assert.Equal(t, []domain.EventType{domain.EventConversationStarted}, f.events.Types())
}

func TestStartConversation_Rejections(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.StartConversation(f.ctx, lampID, alice)
	assert.True(t, errprocess.IsKind(err, errprocess.KindInvalidState))
	assert.Equal(t, "cannot start conversation with yourself", errprocess.As(err).Message)

	_, err = f.uc.StartConversation(f.ctx, "listing-missing", bob)
	assert.True(t, errprocess.IsKind(err, errprocess.KindNotFound))

	_, err = f.uc.StartConversation(f.ctx, hiddenID, bob)
	assert.True(t, errprocess.IsKind(err, errprocess.KindNotFound))

	_, err = f.uc.StartConversation(f.ctx, " ", bob)
	assert.True(t, errprocess.IsKind(err, errprocess.KindValidation))
}

func TestStartConversation_ListingLookupFailure(t *testing.T) {
	f := newFixture(t)
	listings := &MockListingDirectory{}
	listings.On("GetListing", mock.Anything, lampID).Return(nil, errors.New("connection refused"))
	uc := NewChatUseCase(f.store, listings, f.users, nil, f.events, config.ChatRules{})

	_, err := uc.StartConversation(f.ctx, lampID, bob)
	assert.True(t, errprocess.IsKind(err, errprocess.KindInternal))
	listings.AssertExpectations(t)
}

func TestSendMessage_ParticipantOnly(t *testing.T) {
	f := newFixture(t)
	convID := f.start(t)

	_, err := f.uc.SendMessage(f.ctx, convID, carol, domain.SendMessageInput{Content: "hello?"})
	assert.True(t, errprocess.IsKind(err, errprocess.KindAuthorization))

	page, err := f.uc.GetMessages(f.ctx, convID, alice, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, page.Messages)

	_, err = f.uc.GetMessages(f.ctx, convID, carol, 0, 0)
	assert.True(t, errprocess.IsKind(err, errprocess.KindAuthorization))

	_, err = f.uc.SendMessage(f.ctx, "missing", bob, domain.SendMessageInput{Content: "hi"})
	assert.True(t, errprocess.IsKind(err, errprocess.KindNotFound))
}

func TestSendMessage_Validation(t *testing.T) {
	f := newFixture(t)
	convID := f.start(t)

	cases := []struct {
		name string
		in   domain.SendMessageInput
	}{
		{"empty text", domain.SendMessageInput{Content: "   "}},
		{"too long", domain.SendMessageInput{Content: strings.Repeat("a", 1001)}},
		{"unknown type", domain.SendMessageInput{Content: "hi", MessageType: "video"}},
		{"image without attachments", domain.SendMessageInput{MessageType: domain.MessageImage}},
		{"offer without data", domain.SendMessageInput{MessageType: domain.MessageOffer}},
		{"negative offer", domain.SendMessageInput{MessageType: domain.MessageOffer, OfferData: &domain.OfferInput{Amount: -1}}},
		{"blank attachment", domain.SendMessageInput{MessageType: domain.MessageImage, Attachments: []string{""}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.uc.SendMessage(f.ctx, convID, bob, tc.in)
			require.Error(t, err)
			assert.Equal(t, errprocess.CodeValidation, errprocess.As(err).Code)
		})
	}

	_, err := f.uc.SendMessage(f.ctx, convID, bob, domain.SendMessageInput{Content: strings.Repeat("a", 1001)})
	assert.Equal(t, "content must be at most 1000 characters", errprocess.As(err).Message)

	msg, err := f.uc.SendMessage(f.ctx, convID, bob, domain.SendMessageInput{Content: strings.Repeat("a", 1000)})
	require.NoError(t, err)
	assert.Equal(t, domain.MessageText, msg.MessageType)
}

func TestUnreadAccounting(t *testing.T) {
	f := newFixture(t)
	convID := f.start(t)

	msg := f.send(t, convID, bob, "Is this available?")
	assert.Equal(t, alice, msg.ReceiverID)
	assert.Equal(t, 1, f.unread(t, convID, alice))
	assert.Equal(t, 0, f.unread(t, convID, bob))

	conv, err := f.store.FindConversation(f.ctx, convID)
	require.NoError(t, err)
	require.NotNil(t, conv.LastMessage)
	assert.Equal(t, "Is this available?", conv.LastMessage.Content)
	assert.Equal(t, msg.ID, conv.LastMessage.MessageID)

	read, changed, err := f.uc.MarkRead(f.ctx, msg.ID, alice)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, read.IsRead)
	assert.Equal(t, 0, f.unread(t, convID, alice))

	// 重複已讀不會讓計數變負
	_, changed, err = f.uc.MarkRead(f.ctx, msg.ID, alice)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 0, f.unread(t, convID, alice))
}

func TestMarkRead_ReceiverOnly(t *testing.T) {
	f := newFixture(t)
	convID := f.start(t)
	msg := f.send(t, convID, bob, "hi")

	_, _, err := f.uc.MarkRead(f.ctx, msg.ID, bob)
	assert.True(t, errprocess.IsKind(err, errprocess.KindAuthorization))

	_, _, err = f.uc.MarkRead(f.ctx, msg.ID, carol)
	assert.True(t, errprocess.IsKind(err, errprocess.KindAuthorization))

	_, _, err = f.uc.MarkRead(f.ctx, "missing", alice)
	assert.True(t, errprocess.IsKind(err, errprocess.KindNotFound))
	assert.Equal(t, 1, f.unread(t, convID, alice))
}

func TestMarkConversationRead(t *testing.T) {
	f := newFixture(t)
	convID := f.start(t)
	for i := 0; i < 3; i++ {
		f.send(t, convID, bob, fmt.Sprintf("ping %d", i))
	}
	f.send(t, convID, alice, "pong")

	n, err := f.uc.MarkConversationRead(f.ctx, convID, alice)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.Equal(t, 0, f.unread(t, convID, alice))
	assert.Equal(t, 1, f.unread(t, convID, bob))

	_, err = f.uc.MarkConversationRead(f.ctx, convID, carol)
	assert.True(t, errprocess.IsKind(err, errprocess.KindAuthorization))
}

func TestGetMessages_Pagination(t *testing.T) {
	f := newFixture(t)
	convID := f.start(t)
	for i := 0; i < 55; i++ {
		f.send(t, convID, bob, fmt.Sprintf("message %02d", i))
	}

	page, err := f.uc.GetMessages(f.ctx, convID, alice, 50, 0)
	require.NoError(t, err)
	require.Len(t, page.Messages, 50)
	assert.True(t, page.HasMore)
	assert.Equal(t, "message 05", page.Messages[0].Content)
	assert.Equal(t, "message 54", page.Messages[49].Content)
	for i := 1; i < len(page.Messages); i++ {
		assert.False(t, page.Messages[i].CreatedAt.Before(page.Messages[i-1].CreatedAt))
	}

	rest, err := f.uc.GetMessages(f.ctx, convID, alice, 50, 50)
	require.NoError(t, err)
	require.Len(t, rest.Messages, 5)
	assert.False(t, rest.HasMore)
	assert.Equal(t, "message 00", rest.Messages[0].Content)
	assert.Equal(t, "message 04", rest.Messages[4].Content)

	// limit above the cap falls back to the max page size
	capped, err := f.uc.GetMessages(f.ctx, convID, alice, 500, 0)
	require.NoError(t, err)
	assert.Len(t, capped.Messages, 55)
}

func TestOfferLifecycle(t *testing.T) {
	f := newFixture(t)
	convID := f.start(t)

	offer := f.offer(t, convID, alice, 50)
	require.NotNil(t, offer.OfferData)
	assert.Equal(t, domain.OfferPending, offer.OfferData.Status)
	assert.WithinDuration(t, offer.CreatedAt.Add(24*time.Hour), offer.OfferData.ExpiresAt, time.Second)

	_, err := f.uc.UpdateOfferStatus(f.ctx, offer.ID, domain.OfferAccepted, alice)
	assert.True(t, errprocess.IsKind(err, errprocess.KindAuthorization))

	_, err = f.uc.UpdateOfferStatus(f.ctx, offer.ID, "maybe", bob)
	assert.True(t, errprocess.IsKind(err, errprocess.KindValidation))

	accepted, err := f.uc.UpdateOfferStatus(f.ctx, offer.ID, domain.OfferAccepted, bob)
	require.NoError(t, err)
	assert.Equal(t, domain.OfferAccepted, accepted.OfferData.Status)

	_, err = f.uc.UpdateOfferStatus(f.ctx, offer.ID, domain.OfferRejected, bob)
	assert.True(t, errprocess.IsKind(err, errprocess.KindInvalidState))
	assert.Equal(t, "offer is already accepted", errprocess.As(err).Message)

	text := f.send(t, convID, alice, "deal")
	_, err = f.uc.UpdateOfferStatus(f.ctx, text.ID, domain.OfferAccepted, bob)
	assert.True(t, errprocess.IsKind(err, errprocess.KindInvalidState))
}

func TestOfferExpiry(t *testing.T) {
	f := newFixture(t)
	convID := f.start(t)
	offer := f.offer(t, convID, bob, 30)

	f.clock.Advance(25 * time.Hour)

	page, err := f.uc.GetMessages(f.ctx, convID, alice, 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, domain.OfferExpired, page.Messages[0].OfferData.Status)

	_, err = f.uc.UpdateOfferStatus(f.ctx, offer.ID, domain.OfferAccepted, alice)
	assert.True(t, errprocess.IsKind(err, errprocess.KindInvalidState))
	assert.Equal(t, "offer has expired", errprocess.As(err).Message)

	stored, err := f.store.FindMessage(f.ctx, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OfferExpired, stored.OfferData.Status)
}

func TestEditMessage(t *testing.T) {
	f := newFixture(t)
	convID := f.start(t)
	msg := f.send(t, convID, bob, "Is this availble?")

	_, err := f.uc.EditMessage(f.ctx, msg.ID, alice, domain.EditMessageInput{Content: "nope"})
	assert.True(t, errprocess.IsKind(err, errprocess.KindAuthorization))

	_, err = f.uc.EditMessage(f.ctx, msg.ID, bob, domain.EditMessageInput{})
	assert.True(t, errprocess.IsKind(err, errprocess.KindValidation))

	edited, err := f.uc.EditMessage(f.ctx, msg.ID, bob, domain.EditMessageInput{Content: "Is this available?"})
	require.NoError(t, err)
	assert.True(t, edited.IsEdited)
	assert.NotNil(t, edited.EditedAt)
	assert.Equal(t, "Is this available?", edited.Content)

	offer := f.offer(t, convID, bob, 10)
	_, err = f.uc.EditMessage(f.ctx, offer.ID, bob, domain.EditMessageInput{Content: "20"})
	assert.True(t, errprocess.IsKind(err, errprocess.KindInvalidState))
}

func TestDeleteMessage(t *testing.T) {
	f := newFixture(t)
	convID := f.start(t)
	keep := f.send(t, convID, bob, "first")
	gone := f.send(t, convID, bob, "second")
	assert.Equal(t, 2, f.unread(t, convID, alice))

	_, err := f.uc.DeleteMessage(f.ctx, gone.ID, alice)
	assert.True(t, errprocess.IsKind(err, errprocess.KindAuthorization))

	deleted, err := f.uc.DeleteMessage(f.ctx, gone.ID, bob)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted)
	assert.Equal(t, 1, f.unread(t, convID, alice))

	// second delete is a no-op
	_, err = f.uc.DeleteMessage(f.ctx, gone.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, 1, f.unread(t, convID, alice))

	page, err := f.uc.GetMessages(f.ctx, convID, alice, 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, keep.ID, page.Messages[0].ID)

	_, err = f.uc.EditMessage(f.ctx, gone.ID, bob, domain.EditMessageInput{Content: "again"})
	assert.True(t, errprocess.IsKind(err, errprocess.KindInvalidState))
}

func TestBlockConversation(t *testing.T) {
	f := newFixture(t)
	convID := f.start(t)

	conv, err := f.uc.BlockConversation(f.ctx, convID, bob)
	require.NoError(t, err)
	assert.True(t, conv.IsBlocked)
	assert.Equal(t, bob, conv.BlockedBy)

	_, err = f.uc.SendMessage(f.ctx, convID, alice, domain.SendMessageInput{Content: "hello"})
	assert.True(t, errprocess.IsKind(err, errprocess.KindInvalidState))

	_, err = f.uc.BlockConversation(f.ctx, convID, alice)
	assert.True(t, errprocess.IsKind(err, errprocess.KindInvalidState))

	_, err = f.uc.UnblockConversation(f.ctx, convID, alice)
	assert.True(t, errprocess.IsKind(err, errprocess.KindAuthorization))

	_, err = f.uc.BlockConversation(f.ctx, convID, carol)
	assert.True(t, errprocess.IsKind(err, errprocess.KindAuthorization))

	conv, err = f.uc.UnblockConversation(f.ctx, convID, bob)
	require.NoError(t, err)
	assert.False(t, conv.IsBlocked)

	f.send(t, convID, alice, "hello")
}

func TestGetConversations(t *testing.T) {
	f := newFixture(t)
	lampConv := f.start(t)
	bagStarted, err := f.uc.StartConversation(f.ctx, carolsBag, bob)
	require.NoError(t, err)

	f.send(t, lampConv, alice, "yes it is")
	f.send(t, bagStarted.ConversationID, carol, "hi bob")
	f.send(t, bagStarted.ConversationID, carol, "still there?")

	total, err := f.uc.GetUnreadTotal(f.ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	page, err := f.uc.GetConversations(f.ctx, bob, 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Conversations, 2)
	// most recently updated first
	assert.Equal(t, bagStarted.ConversationID, page.Conversations[0].ID)
	assert.Equal(t, 2, page.Conversations[0].Unread)
	assert.Equal(t, domain.RoleBuyer, page.Conversations[0].Role)
	assert.Equal(t, carol, page.Conversations[0].OtherUser.ID)
	assert.Empty(t, page.Conversations[0].OtherUser.Username)
	assert.Equal(t, "Alice", page.Conversations[1].OtherUser.Username)
	assert.Equal(t, "Brass lamp", page.Conversations[1].Listing.Title)

	f.listings.Remove(carolsBag)
	page, err = f.uc.GetConversations(f.ctx, bob, 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Conversations, 1)
	assert.Equal(t, lampConv, page.Conversations[0].ID)

	sellerPage, err := f.uc.GetConversations(f.ctx, alice, 0, 0)
	require.NoError(t, err)
	require.Len(t, sellerPage.Conversations, 1)
	assert.Equal(t, domain.RoleSeller, sellerPage.Conversations[0].Role)
}

func TestHydration(t *testing.T) {
	f := newFixture(t)
	signer := &MockAttachmentSigner{}
	signer.On("Sign", mock.Anything, "chat/lamp.jpg").Return("https://cdn.example/chat/lamp.jpg?sig=1", nil)
	uc := NewChatUseCase(f.store, f.listings, f.users, signer, f.events, config.ChatRules{})

	started, err := uc.StartConversation(f.ctx, lampID, bob)
	require.NoError(t, err)

	msg, err := uc.SendMessage(f.ctx, started.ConversationID, alice, domain.SendMessageInput{
		MessageType: domain.MessageImage,
		Attachments: []string{"chat/lamp.jpg"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.example/chat/lamp.jpg?sig=1"}, msg.Attachments)
	assert.Equal(t, "Alice", msg.Sender.Username)
	assert.Equal(t, "Bob", msg.Receiver.Username)

	stored, err := f.store.FindMessage(f.ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"chat/lamp.jpg"}, stored.Attachments)
	signer.AssertExpectations(t)
}

func TestPublishFailureDoesNotFailSend(t *testing.T) {
	f := newFixture(t)
	events := &MockEventPublisher{}
	events.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	uc := NewChatUseCase(f.store, f.listings, f.users, nil, events, config.ChatRules{})

	started, err := uc.StartConversation(f.ctx, lampID, bob)
	require.NoError(t, err)
	_, err = uc.SendMessage(f.ctx, started.ConversationID, bob, domain.SendMessageInput{Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, []domain.EventType{domain.EventConversationStarted, domain.EventMessageCreated}, events.Types())
}

func TestValidateConversationAccess(t *testing.T) {
	f := newFixture(t)
	convID := f.start(t)

	assert.True(t, f.uc.ValidateConversationAccess(f.ctx, convID, alice))
	assert.True(t, f.uc.ValidateConversationAccess(f.ctx, convID, bob))
	assert.False(t, f.uc.ValidateConversationAccess(f.ctx, convID, carol))
	assert.False(t, f.uc.ValidateConversationAccess(f.ctx, "missing", bob))
}

func TestUserDirectoryFailureFallsBackToIDs(t *testing.T) {
	f := newFixture(t)
	users := &MockUserDirectory{}
	users.On("FindProfiles", mock.Anything, mock.Anything).Return(nil, errors.New("pg down"))
	uc := NewChatUseCase(f.store, f.listings, users, nil, f.events, config.ChatRules{})

	started, err := uc.StartConversation(f.ctx, lampID, bob)
	require.NoError(t, err)
	msg, err := uc.SendMessage(f.ctx, started.ConversationID, bob, domain.SendMessageInput{Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, &domain.UserProfile{ID: bob}, msg.Sender)
}

var _ repository.ListingDirectory = (*MockListingDirectory)(nil)
