//go:build integration

package repository

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"old_vibes/internal/chat/domain"
	"old_vibes/pkg/database"
	testtool "old_vibes/pkg/test_tool"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var mongoDB *database.MongoDB

// TestMain 啟動 MongoDB 容器
func TestMain(m *testing.M) {
	ctx := context.Background()

	container, host, port, err := testtool.SetupContainer(ctx, testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForListeningPort("27017/tcp"),
	})
	if err != nil {
		log.Fatalf("failed to start MongoDB container: %v", err)
	}

	mongoDB, err = database.NewMongoDB(ctx, database.Connection{
		ConnectStr:    fmt.Sprintf("mongodb://%s:%s", host, port),
		RetryCount:    5,
		RetryInterval: time.Second,
	}, "chat_test")
	if err != nil {
		log.Fatalf("failed to connect MongoDB: %v", err)
	}
	if err := mongoDB.EnsureIndexes(ctx, domain.ConversationCollection, ConversationIndexes()); err != nil {
		log.Fatalf("conversation indexes: %v", err)
	}
	if err := mongoDB.EnsureIndexes(ctx, domain.MessageCollection, MessageIndexes()); err != nil {
		log.Fatalf("message indexes: %v", err)
	}

	code := m.Run()

	_ = mongoDB.Close(ctx)
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func newMongoStore(t *testing.T) (*ChatStore, ConversationRepository, MessageRepository) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, mongoDB.Database.Collection(domain.ConversationCollection).Drop(ctx))
	require.NoError(t, mongoDB.Database.Collection(domain.MessageCollection).Drop(ctx))

	convs := NewMongoConversationRepository(mongoDB.Database)
	msgs := NewMongoMessageRepository(mongoDB.Database)
	return NewChatStore(convs, msgs), convs, msgs
}

func TestMongo_GetOrCreateConcurrent(t *testing.T) {
	store, _, _ := newMongoStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]string, 8)
	created := make([]bool, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conv, c, err := store.GetOrCreateConversation(ctx, "listing-1", "seller", "buyer")
			assert.NoError(t, err)
			if conv != nil {
				ids[i] = conv.ID
			}
			created[i] = c
		}(i)
	}
	wg.Wait()

	createdCount := 0
	for i := range ids {
		assert.Equal(t, domain.DeriveConversationID("listing-1", "seller", "buyer"), ids[i])
		if created[i] {
			createdCount++
		}
	}
	assert.Equal(t, 1, createdCount)

	n, err := mongoDB.Database.Collection(domain.ConversationCollection).CountDocuments(ctx, map[string]interface{}{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestMongo_MessageFlow(t *testing.T) {
	store, _, _ := newMongoStore(t)
	ctx := context.Background()
	conv, _, err := store.GetOrCreateConversation(ctx, "listing-1", "seller", "buyer")
	require.NoError(t, err)

	var last *domain.Message
	for i := 0; i < 55; i++ {
		last, err = store.AppendMessage(ctx, conv, &domain.Message{
			SenderID:    "buyer",
			Content:     fmt.Sprintf("$message %02d", i),
			MessageType: domain.MessageText,
		})
		require.NoError(t, err)
	}

	stored, err := store.FindConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 55, stored.UnreadCount.Seller)
	require.NotNil(t, stored.LastMessage)
	assert.Equal(t, "$message 54", stored.LastMessage.Content)

	page, err := store.ListMessages(ctx, conv.ID, 50, 0)
	require.NoError(t, err)
	require.Len(t, page.Messages, 50)
	assert.True(t, page.HasMore)
	assert.Equal(t, "$message 05", page.Messages[0].Content)
	assert.Equal(t, "$message 54", page.Messages[49].Content)

	rest, err := store.ListMessages(ctx, conv.ID, 50, 50)
	require.NoError(t, err)
	assert.Len(t, rest.Messages, 5)
	assert.False(t, rest.HasMore)

	_, changed, err := store.MarkRead(ctx, last.ID, "seller")
	require.NoError(t, err)
	assert.True(t, changed)
	_, changed, err = store.MarkRead(ctx, last.ID, "seller")
	require.NoError(t, err)
	assert.False(t, changed)

	n, err := store.MarkConversationRead(ctx, stored, "seller")
	require.NoError(t, err)
	assert.EqualValues(t, 54, n)

	total, err := store.UnreadTotal(ctx, "seller")
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestMongo_ConversationCounters(t *testing.T) {
	_, convs, _ := newMongoStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	conv, _, err := convs.GetOrCreate(ctx, domain.NewConversation("listing-1", "seller", "buyer", now))
	require.NoError(t, err)

	newer := &domain.LastMessage{MessageID: "b", Content: "newer", SenderID: "buyer", CreatedAt: now.Add(time.Minute)}
	older := &domain.LastMessage{MessageID: "a", Content: "older", SenderID: "buyer", CreatedAt: now}
	require.NoError(t, convs.ApplyMessage(ctx, conv.ID, newer, domain.RoleSeller, true))
	require.NoError(t, convs.ApplyMessage(ctx, conv.ID, older, domain.RoleSeller, true))

	stored, err := convs.FindByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "newer", stored.LastMessage.Content)
	assert.Equal(t, 2, stored.UnreadCount.Seller)
	assert.True(t, stored.UpdatedAt.Equal(newer.CreatedAt))

	require.NoError(t, convs.DecrementUnread(ctx, conv.ID, domain.RoleSeller, 5))
	stored, err = convs.FindByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.UnreadCount.Seller)

	require.NoError(t, convs.SetBlocked(ctx, conv.ID, true, "buyer"))
	stored, err = convs.FindByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsBlocked)
	assert.Equal(t, "buyer", stored.BlockedBy)

	assert.ErrorIs(t, convs.SetBlocked(ctx, "missing", true, "x"), ErrNotFound)
}

func TestMongo_ClaimUnprojected(t *testing.T) {
	_, _, msgs := newMongoStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	stale := now.Add(-2 * projectionStaleAfter)
	fresh := now.Add(-time.Second)

	seed := []*domain.Message{
		{ID: "pending", Projection: domain.Projection{State: domain.ProjectionPending, NextAttemptAt: now}},
		{ID: "failed-due", Projection: domain.Projection{State: domain.ProjectionFailed, NextAttemptAt: now.Add(-time.Second)}},
		{ID: "failed-later", Projection: domain.Projection{State: domain.ProjectionFailed, NextAttemptAt: now.Add(time.Hour)}},
		{ID: "claimed-stale", Projection: domain.Projection{State: domain.ProjectionClaimed, ClaimedAt: &stale}},
		{ID: "claimed-fresh", Projection: domain.Projection{State: domain.ProjectionClaimed, ClaimedAt: &fresh}},
		{ID: "done", Projection: domain.Projection{State: domain.ProjectionDone}},
	}
	for _, m := range seed {
		m.ConversationID = "c1"
		m.MessageType = domain.MessageText
		m.CreatedAt = now
		require.NoError(t, msgs.Insert(ctx, m))
	}

	claimed, err := msgs.ClaimUnprojected(ctx, now, now.Add(-projectionStaleAfter), 10)
	require.NoError(t, err)
	ids := make([]string, 0, len(claimed))
	for _, m := range claimed {
		ids = append(ids, m.ID)
		assert.Equal(t, domain.ProjectionClaimed, m.Projection.State)
	}
	assert.ElementsMatch(t, []string{"pending", "failed-due", "claimed-stale"}, ids)

	again, err := msgs.ClaimUnprojected(ctx, now, now.Add(-projectionStaleAfter), 10)
	require.NoError(t, err)
	assert.Empty(t, again)

	require.NoError(t, msgs.MarkProjectionFailed(ctx, "pending", now.Add(time.Minute), "boom"))
	m, err := msgs.FindByID(ctx, "pending")
	require.NoError(t, err)
	assert.Equal(t, domain.ProjectionFailed, m.Projection.State)
	assert.Equal(t, 1, m.Projection.Attempts)
	assert.Equal(t, "boom", m.Projection.LastError)
}

func TestMongo_UnreadCountedHandshake(t *testing.T) {
	_, _, msgs := newMongoStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	for _, id := range []string{"counted", "uncounted", "late"} {
		require.NoError(t, msgs.Insert(ctx, &domain.Message{
			ID: id, ConversationID: "c2", SenderID: "buyer", ReceiverID: "seller",
			MessageType: domain.MessageText, CreatedAt: now,
		}))
	}

	ok, err := msgs.MarkUnreadCounted(ctx, "counted")
	require.NoError(t, err)
	assert.True(t, ok)

	changed, counted, err := msgs.MarkRead(ctx, "late", "seller", now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.False(t, counted)

	// read before it was counted
	ok, err = msgs.MarkUnreadCounted(ctx, "late")
	require.NoError(t, err)
	assert.False(t, ok)

	read, countedN, err := msgs.MarkConversationRead(ctx, "c2", "seller", now)
	require.NoError(t, err)
	assert.EqualValues(t, 2, read)
	assert.EqualValues(t, 1, countedN)

	_, _, err = msgs.MarkRead(ctx, "missing", "seller", now)
	assert.ErrorIs(t, err, ErrNotFound)

	changed, counted, err = msgs.SoftDelete(ctx, "counted", now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.False(t, counted)
}
