package domain

// ListingStatus moderation state of a listing
type ListingStatus string

const (
	// ListingApproved publicly visible
	ListingApproved ListingStatus = "approved"
	// ListingActive publicly visible
	ListingActive ListingStatus = "active"
	// ListingPending waiting for moderation
	ListingPending ListingStatus = "pending"
	// ListingRejected refused by moderation
	ListingRejected ListingStatus = "rejected"
	// ListingSold no longer available
	ListingSold ListingStatus = "sold"
	// ListingExpired time limit reached
	ListingExpired ListingStatus = "expired"
)

// ListingSummary listing fields the chat core reads
type ListingSummary struct {
	ID       string        `json:"id"`
	OwnerID  string        `json:"ownerId"`
	Title    string        `json:"title"`
	Price    float64       `json:"price"`
	ImageURL string        `json:"imageUrl,omitempty"`
	Status   ListingStatus `json:"status"`
}

// IsVisible listing may be used to start a conversation
func (l *ListingSummary) IsVisible() bool {
	return l != nil && (l.Status == ListingApproved || l.Status == ListingActive)
}

// UserProfile display fields of a user
type UserProfile struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}
