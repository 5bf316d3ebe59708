package domain

import "time"

// Role side of a participant in a conversation
type Role string

const (
	// RoleSeller listing owner
	RoleSeller Role = "seller"
	// RoleBuyer the user who started the conversation
	RoleBuyer Role = "buyer"
)

// ConversationCollection mongo collection name
const ConversationCollection = "conversations"

// LastMessage denormalized snapshot of the newest message
type LastMessage struct {
	MessageID string      `bson:"message_id" json:"messageId"`
	Content   string      `bson:"content" json:"content"`
	SenderID  string      `bson:"sender_id" json:"senderId"`
	Type      MessageType `bson:"type" json:"type"`
	CreatedAt time.Time   `bson:"created_at" json:"createdAt"`
}

// UnreadCount per role unread counters
type UnreadCount struct {
	Seller int `bson:"seller" json:"seller"`
	Buyer  int `bson:"buyer" json:"buyer"`
}

// Conversation one thread per (listing, seller, buyer)
type Conversation struct {
	ID          string       `bson:"_id" json:"conversationId"`
	ListingID   string       `bson:"listing_id" json:"listingId"`
	SellerID    string       `bson:"seller_id" json:"sellerId"`
	BuyerID     string       `bson:"buyer_id" json:"buyerId"`
	LastMessage *LastMessage `bson:"last_message,omitempty" json:"lastMessage,omitempty"`
	UnreadCount UnreadCount  `bson:"unread_count" json:"unreadCount"`
	IsActive    bool         `bson:"is_active" json:"isActive"`
	IsBlocked   bool         `bson:"is_blocked" json:"isBlocked"`
	BlockedBy   string       `bson:"blocked_by,omitempty" json:"blockedBy,omitempty"`
	CreatedAt   time.Time    `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time    `bson:"updated_at" json:"updatedAt"`
}

// NewConversation zeroed counters, active
func NewConversation(listingID, sellerID, buyerID string, now time.Time) *Conversation {
	return &Conversation{
		ID:        DeriveConversationID(listingID, sellerID, buyerID),
		ListingID: listingID,
		SellerID:  sellerID,
		BuyerID:   buyerID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsParticipant user is seller or buyer
func (c *Conversation) IsParticipant(userID string) bool {
	return userID != "" && (userID == c.SellerID || userID == c.BuyerID)
}

// RoleOf role of userID, false when not a participant
func (c *Conversation) RoleOf(userID string) (Role, bool) {
	switch {
	case userID == "":
		return "", false
	case userID == c.SellerID:
		return RoleSeller, true
	case userID == c.BuyerID:
		return RoleBuyer, true
	}
	return "", false
}

// Counterpart the other participant, empty when userID is not a participant
func (c *Conversation) Counterpart(userID string) string {
	switch userID {
	case c.SellerID:
		return c.BuyerID
	case c.BuyerID:
		return c.SellerID
	}
	return ""
}

// UnreadFor same side unread counter of userID
func (c *Conversation) UnreadFor(userID string) int {
	role, ok := c.RoleOf(userID)
	if !ok {
		return 0
	}
	if role == RoleSeller {
		return c.UnreadCount.Seller
	}
	return c.UnreadCount.Buyer
}

// ConversationSummary conversation as seen by one participant
type ConversationSummary struct {
	*Conversation
	Role      Role            `json:"role"`
	Unread    int             `json:"unread"`
	OtherUser *UserProfile    `json:"otherUser,omitempty"`
	Listing   *ListingSummary `json:"listing,omitempty"`
}

// ConversationPage paginated conversations
type ConversationPage struct {
	Conversations []*ConversationSummary `json:"conversations"`
	HasMore       bool                   `json:"hasMore"`
}

// StartedConversation reply of start conversation
type StartedConversation struct {
	ConversationID string          `json:"conversationId"`
	Conversation   *Conversation   `json:"conversation"`
	Listing        *ListingSummary `json:"listingSummary"`
}
