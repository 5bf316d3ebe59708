package domain

import "time"

// MessageCollection mongo collection name
const MessageCollection = "messages"

// MessageType kind of message
type MessageType string

const (
	// MessageText plain text
	MessageText MessageType = "text"
	// MessageImage attachments with optional caption
	MessageImage MessageType = "image"
	// MessageOffer price proposal with accept/reject lifecycle
	MessageOffer MessageType = "offer"
	// MessageSystem generated by the server, never accepted from clients
	MessageSystem MessageType = "system"
)

// OfferStatus lifecycle of an offer
type OfferStatus string

const (
	// OfferPending waiting for the receiver
	OfferPending OfferStatus = "pending"
	// OfferAccepted accepted by the receiver
	OfferAccepted OfferStatus = "accepted"
	// OfferRejected rejected by the receiver
	OfferRejected OfferStatus = "rejected"
	// OfferExpired pending past expiresAt
	OfferExpired OfferStatus = "expired"
)

// IsDecision status a receiver may choose
func (s OfferStatus) IsDecision() bool {
	return s == OfferAccepted || s == OfferRejected
}

// OfferData offer payload
type OfferData struct {
	Amount    float64     `bson:"amount" json:"amount"`
	Message   string      `bson:"message,omitempty" json:"message,omitempty"`
	Status    OfferStatus `bson:"status" json:"status"`
	ExpiresAt time.Time   `bson:"expires_at" json:"expiresAt"`
}

// EffectiveStatus pending offers past ExpiresAt read as expired
func (o *OfferData) EffectiveStatus(now time.Time) OfferStatus {
	if o.Status == OfferPending && !o.ExpiresAt.IsZero() && now.After(o.ExpiresAt) {
		return OfferExpired
	}
	return o.Status
}

// ProjectionState progress of the conversation metadata refresh of one message
type ProjectionState string

const (
	// ProjectionPending not applied yet
	ProjectionPending ProjectionState = "pending"
	// ProjectionClaimed taken by a worker
	ProjectionClaimed ProjectionState = "claimed"
	// ProjectionDone applied to the conversation
	ProjectionDone ProjectionState = "done"
	// ProjectionFailed last attempt failed, retried after NextAttemptAt
	ProjectionFailed ProjectionState = "failed"
)

// Projection outbox state carried by every message
type Projection struct {
	State         ProjectionState `bson:"state"`
	Attempts      int             `bson:"attempts"`
	NextAttemptAt time.Time       `bson:"next_attempt_at"`
	ClaimedAt     *time.Time      `bson:"claimed_at,omitempty"`
	LastError     string          `bson:"last_error,omitempty"`
	// UnreadCounted the message was added to the receiver's unread counter while still unread
	UnreadCounted bool `bson:"unread_counted"`
}

// Message one message of a conversation
type Message struct {
	ID             string      `bson:"_id" json:"id"`
	ConversationID string      `bson:"conversation_id" json:"conversationId"`
	SenderID       string      `bson:"sender_id" json:"senderId"`
	ReceiverID     string      `bson:"receiver_id" json:"receiverId"`
	ListingID      string      `bson:"listing_id" json:"listingId"`
	Content        string      `bson:"content" json:"content"`
	MessageType    MessageType `bson:"message_type" json:"messageType"`
	Attachments    []string    `bson:"attachments,omitempty" json:"attachments,omitempty"`
	OfferData      *OfferData  `bson:"offer_data,omitempty" json:"offerData,omitempty"`
	IsRead         bool        `bson:"is_read" json:"isRead"`
	ReadAt         *time.Time  `bson:"read_at,omitempty" json:"readAt,omitempty"`
	IsEdited       bool        `bson:"is_edited" json:"isEdited"`
	EditedAt       *time.Time  `bson:"edited_at,omitempty" json:"editedAt,omitempty"`
	IsDeleted      bool        `bson:"is_deleted" json:"isDeleted"`
	DeletedAt      *time.Time  `bson:"deleted_at,omitempty" json:"deletedAt,omitempty"`
	CreatedAt      time.Time   `bson:"created_at" json:"createdAt"`
	UpdatedAt      time.Time   `bson:"updated_at" json:"updatedAt"`
	Projection     Projection  `bson:"projection" json:"-"`

	Sender   *UserProfile `bson:"-" json:"sender,omitempty"`
	Receiver *UserProfile `bson:"-" json:"receiver,omitempty"`
}

// Snapshot last message snapshot of m
func (m *Message) Snapshot() *LastMessage {
	return &LastMessage{
		MessageID: m.ID,
		Content:   m.Content,
		SenderID:  m.SenderID,
		Type:      m.MessageType,
		CreatedAt: m.CreatedAt,
	}
}

// ApplyOfferExpiry present a lapsed pending offer as expired, nothing is persisted
func (m *Message) ApplyOfferExpiry(now time.Time) {
	if m.OfferData != nil {
		m.OfferData.Status = m.OfferData.EffectiveStatus(now)
	}
}

// MessagePage chronological page of messages
type MessagePage struct {
	Messages []*Message `json:"messages"`
	HasMore  bool       `json:"hasMore"`
}

// OfferInput offer part of a send request
type OfferInput struct {
	Amount  float64 `json:"amount" validate:"gte=0"`
	Message string  `json:"message" validate:"max=500"`
}

// SendMessageInput send request, shared by REST and socket
type SendMessageInput struct {
	Content     string      `json:"content"`
	MessageType MessageType `json:"messageType" validate:"omitempty,oneof=text image offer"`
	Attachments []string    `json:"attachments" validate:"max=10,dive,required"`
	OfferData   *OfferInput `json:"offerData"`
}

// OfferStatusInput accept / reject request
type OfferStatusInput struct {
	Status OfferStatus `json:"status" validate:"required,oneof=accepted rejected"`
}

// EditMessageInput edit request
type EditMessageInput struct {
	Content string `json:"content" validate:"required"`
}
