package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"old_vibes/internal/chat/domain"
	"old_vibes/internal/chat/repository"
	"old_vibes/pkg/config"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	alice     = "alice"
	bob       = "bob"
	carol     = "carol"
	lampID    = "listing-lamp"
	hiddenID  = "listing-hidden"
	carolsBag = "listing-bag"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

// Now every reading moves forward so created_at never ties
func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	ctx      context.Context
	uc       *ChatUseCase
	store    *repository.ChatStore
	listings *repository.StaticListingDirectory
	users    *repository.StaticUserDirectory
	events   *MockEventPublisher
	clock    *testClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := &testClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := repository.NewChatStore(
		repository.NewMemoryConversationRepository(),
		repository.NewMemoryMessageRepository(),
	).WithClock(clock.Now)

	listings := repository.NewStaticListingDirectory(
		domain.ListingSummary{ID: lampID, OwnerID: alice, Title: "Brass lamp", Price: 80, Status: domain.ListingActive},
		domain.ListingSummary{ID: hiddenID, OwnerID: alice, Title: "Old radio", Price: 40, Status: domain.ListingPending},
		domain.ListingSummary{ID: carolsBag, OwnerID: carol, Title: "Leather bag", Price: 120, Status: domain.ListingApproved},
	)
	users := repository.NewStaticUserDirectory(
		domain.UserProfile{ID: alice, Username: "Alice"},
		domain.UserProfile{ID: bob, Username: "Bob"},
	)

	events := &MockEventPublisher{}
	events.On("Publish", mock.Anything, mock.Anything).Return(nil)

	return &fixture{
		ctx:      context.Background(),
		uc:       NewChatUseCase(store, listings, users, nil, events, config.ChatRules{}),
		store:    store,
		listings: listings,
		users:    users,
		events:   events,
		clock:    clock,
	}
}

// start bob opens a conversation about alice's lamp
func (f *fixture) start(t *testing.T) string {
	t.Helper()
	started, err := f.uc.StartConversation(f.ctx, lampID, bob)
	require.NoError(t, err)
	return started.ConversationID
}

func (f *fixture) send(t *testing.T, convID, sender, content string) *domain.Message {
	t.Helper()
	msg, err := f.uc.SendMessage(f.ctx, convID, sender, domain.SendMessageInput{Content: content})
	require.NoError(t, err)
	return msg
}

func (f *fixture) offer(t *testing.T, convID, sender string, amount float64) *domain.Message {
	t.Helper()
	msg, err := f.uc.SendMessage(f.ctx, convID, sender, domain.SendMessageInput{
		MessageType: domain.MessageOffer,
		OfferData:   &domain.OfferInput{Amount: amount},
	})
	require.NoError(t, err)
	return msg
}

func (f *fixture) unread(t *testing.T, convID, userID string) int {
	t.Helper()
	conv, err := f.store.FindConversation(f.ctx, convID)
	require.NoError(t, err)
	return conv.UnreadFor(userID)
}
