package domain

// Client -> server socket events
const (
	// JoinConversation join a conversation room
	JoinConversation = "joinConversation"
	// LeaveConversation leave a conversation room
	LeaveConversation = "leaveConversation"
	// SendMessage send a message to a conversation
	SendMessage = "sendMessage"
	// MarkAsRead mark one message read
	MarkAsRead = "markAsRead"
	// MarkConversationRead mark every message addressed to the caller read
	MarkConversationRead = "markConversationRead"
	// UpdateOfferStatus accept / reject an offer
	UpdateOfferStatus = "updateOfferStatus"
	// EditMessage edit a text message
	EditMessage = "editMessage"
	// DeleteMessage soft delete a message
	DeleteMessage = "deleteMessage"
	// StartTyping typing indicator on
	StartTyping = "startTyping"
	// StopTyping typing indicator off
	StopTyping = "stopTyping"
)

// Server -> client socket events
const (
	// EventNewMessage a message was sent in the room
	EventNewMessage = "newMessage"
	// EventMessageRead read receipt
	EventMessageRead = "messageRead"
	// EventConversationRead every message addressed to a participant was read
	EventConversationRead = "conversationRead"
	// EventMessageEdited message content changed
	EventMessageEdited = "messageEdited"
	// EventMessageDeleted message soft deleted
	EventMessageDeleted = "messageDeleted"
	// EventOfferStatusUpdate offer accepted / rejected / expired
	EventOfferStatusUpdate = "offerStatusUpdate"
	// EventUserOnline a user connected
	EventUserOnline = "userOnline"
	// EventUserOffline a user disconnected
	EventUserOffline = "userOffline"
	// EventTypingStart participant started typing
	EventTypingStart = "typingStart"
	// EventTypingStop participant stopped typing
	EventTypingStop = "typingStop"
	// EventJoinedConversation join acknowledged
	EventJoinedConversation = "joinedConversation"
	// EventLeftConversation leave acknowledged
	EventLeftConversation = "leftConversation"
	// EventError scoped error, sent to the requester only
	EventError = "error"
)

// WSRequest websocket Request
type WSRequest struct {
	Event          string      `json:"event"`
	ConversationID string      `json:"conversationId"`
	MessageID      string      `json:"messageId,omitempty"`
	Content        string      `json:"content,omitempty"`
	MessageType    MessageType `json:"messageType,omitempty"`
	Attachments    []string    `json:"attachments,omitempty"`
	OfferData      *OfferInput `json:"offerData,omitempty"`
	Status         OfferStatus `json:"status,omitempty"`
}

// SendInput send payload of the request
func (r *WSRequest) SendInput() SendMessageInput {
	return SendMessageInput{
		Content:     r.Content,
		MessageType: r.MessageType,
		Attachments: r.Attachments,
		OfferData:   r.OfferData,
	}
}

// WSEvent websocket server event
type WSEvent struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}

// WSError payload of EventError
type WSError struct {
	Message        string `json:"message"`
	Code           string `json:"code"`
	Event          string `json:"event,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
}

// PresencePayload payload of userOnline / userOffline
type PresencePayload struct {
	UserID string `json:"userId"`
}

// TypingPayload payload of typingStart / typingStop
type TypingPayload struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
}

// ReadPayload payload of messageRead / conversationRead
type ReadPayload struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId,omitempty"`
	ReaderID       string `json:"readerId"`
	Count          int    `json:"count,omitempty"`
}

// OfferStatusPayload payload of offerStatusUpdate
type OfferStatusPayload struct {
	ConversationID string      `json:"conversationId"`
	MessageID      string      `json:"messageId"`
	Status         OfferStatus `json:"status"`
	ActorID        string      `json:"actorId"`
	Message        *Message    `json:"message,omitempty"`
}

// MessageDeletedPayload payload of messageDeleted
type MessageDeletedPayload struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
}

// RoomPayload payload of joinedConversation / leftConversation
type RoomPayload struct {
	ConversationID string `json:"conversationId"`
}
