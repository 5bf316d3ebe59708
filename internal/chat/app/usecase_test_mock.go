package app

import (
	"context"
	"sync"

	"old_vibes/internal/chat/domain"

	"github.com/stretchr/testify/mock"
)

// MockListingDirectory mock ListingDirectory
type MockListingDirectory struct {
	mock.Mock
}

// GetListing mock resolve listing
func (m *MockListingDirectory) GetListing(ctx context.Context, listingID string) (*domain.ListingSummary, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.ListingSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockUserDirectory mock UserDirectory
type MockUserDirectory struct {
	mock.Mock
}

// FindProfiles mock profile lookup
func (m *MockUserDirectory) FindProfiles(ctx context.Context, ids []string) (map[string]*domain.UserProfile, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) != nil {
		return args.Get(0).(map[string]*domain.UserProfile), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockAttachmentSigner mock AttachmentSigner
type MockAttachmentSigner struct {
	mock.Mock
}

// Sign mock presign
func (m *MockAttachmentSigner) Sign(ctx context.Context, ref string) (string, error) {
	args := m.Called(ctx, ref)
	return args.String(0), args.Error(1)
}

// MockEventPublisher mock EventPublisher, records every published event
type MockEventPublisher struct {
	mock.Mock
	mu     sync.Mutex
	events []domain.ChatEvent
}

// Publish mock publish
func (m *MockEventPublisher) Publish(ctx context.Context, evt domain.ChatEvent) error {
	m.mu.Lock()
	m.events = append(m.events, evt)
	m.mu.Unlock()
	args := m.Called(ctx, evt)
	return args.Error(0)
}

// Close mock close
func (m *MockEventPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

// Types published event types in order
func (m *MockEventPublisher) Types() []domain.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]domain.EventType, 0, len(m.events))
	for _, e := range m.events {
		types = append(types, e.Type)
	}
	return types
}

// MockBroadcaster mock Broadcaster
type MockBroadcaster struct {
	mock.Mock
}

// EmitToRoom mock room fan-out
func (m *MockBroadcaster) EmitToRoom(conversationID, event string, payload interface{}, exceptSocketID string) {
	m.Called(conversationID, event, payload, exceptSocketID)
}
