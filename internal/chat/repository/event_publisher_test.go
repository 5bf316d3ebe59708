package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"old_vibes/internal/chat/domain"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRabbitRepo struct {
	mock.Mock
}

func (m *mockRabbitRepo) GetRabbit() *amqp.Channel {
	return nil
}

func (m *mockRabbitRepo) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	args := m.Called(exchange, key, mandatory, immediate, msg)
	return args.Error(0)
}

func TestRabbitEventPublisher_RoutesByType(t *testing.T) {
	repo := &mockRabbitRepo{}
	var published amqp.Publishing
	repo.On("Publish", "chat.events", string(domain.EventMessageCreated), false, false, mock.Anything).
		Run(func(args mock.Arguments) { published = args.Get(4).(amqp.Publishing) }).
		Return(nil)

	evt := domain.ChatEvent{
		Type:           domain.EventMessageCreated,
		ConversationID: "c1",
		MessageID:      "m1",
		ActorID:        "buyer",
		OccurredAt:     time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, NewRabbitEventPublisher(repo, "chat.events").Publish(context.Background(), evt))
	repo.AssertExpectations(t)

	assert.Equal(t, "application/json", published.ContentType)
	assert.Equal(t, amqp.Persistent, published.DeliveryMode)
	var decoded domain.ChatEvent
	require.NoError(t, json.Unmarshal(published.Body, &decoded))
	assert.Equal(t, evt.MessageID, decoded.MessageID)
	assert.Equal(t, evt.Type, decoded.Type)
}

func TestNoopEventPublisher(t *testing.T) {
	p := NewNoopEventPublisher()
	assert.NoError(t, p.Publish(context.Background(), domain.ChatEvent{Type: domain.EventOfferUpdated}))
	assert.NoError(t, p.Close())
}
