package domain

import "time"

// EventType integration event published to the broker
type EventType string

const (
	// EventConversationStarted conversation created or fetched by start
	EventConversationStarted EventType = "chat.conversation.started"
	// EventMessageCreated message persisted
	EventMessageCreated EventType = "chat.message.created"
	// EventMessageReadType message(s) marked read
	EventMessageReadType EventType = "chat.message.read"
	// EventOfferUpdated offer status changed
	EventOfferUpdated EventType = "chat.offer.updated"
)

// ChatEvent integration event, keyed by conversation id
type ChatEvent struct {
	Type           EventType   `json:"type"`
	ConversationID string      `json:"conversationId"`
	MessageID      string      `json:"messageId,omitempty"`
	ActorID        string      `json:"actorId"`
	Data           interface{} `json:"data,omitempty"`
	OccurredAt     time.Time   `json:"occurredAt"`
}
