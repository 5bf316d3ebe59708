package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"old_vibes/internal/chat/domain"
	"old_vibes/internal/chat/repository"
	"old_vibes/pkg/config"
	errprocess "old_vibes/pkg/err"

	"github.com/cucumber/godog"
)

type chatScenario struct {
	ctx      context.Context
	cancel   context.CancelFunc
	uc       *ChatUseCase
	store    *repository.ChatStore
	listings *repository.StaticListingDirectory
	gateway  *Gateway

	listingIDs map[string]string
	conns      map[string]*fakeConn
	convID     string
	lastMsg    *domain.Message
	offerID    string
	lastErr    error
}

func (s *chatScenario) reset() {
	if s.cancel != nil {
		s.cancel()
	}
	for _, c := range s.conns {
		c.Close()
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.store = repository.NewChatStore(repository.NewMemoryConversationRepository(), repository.NewMemoryMessageRepository())
	s.listings = repository.NewStaticListingDirectory()
	s.uc = NewChatUseCase(s.store, s.listings, repository.NewStaticUserDirectory(), nil, nil, config.ChatRules{})
	s.gateway = NewGateway(s.uc)
	s.listingIDs = make(map[string]string)
	s.conns = make(map[string]*fakeConn)
	s.convID, s.lastMsg, s.offerID, s.lastErr = "", nil, "", nil
}

func (s *chatScenario) hasListed(owner, title string) error {
	id := "listing-" + strings.ReplaceAll(strings.ToLower(title), " ", "-")
	s.listings.Put(domain.ListingSummary{ID: id, OwnerID: owner, Title: title, Status: domain.ListingActive})
	s.listingIDs[title] = id
	return nil
}

func (s *chatScenario) startsConversation(user, title string) error {
	started, err := s.uc.StartConversation(s.ctx, s.listingIDs[title], user)
	s.lastErr = err
	if err == nil {
		s.convID = started.ConversationID
	}
	return nil
}

func (s *chatScenario) requestFails(code string) error {
	if s.lastErr == nil {
		return fmt.Errorf("expected %s, request succeeded", code)
	}
	if got := errprocess.As(s.lastErr).Code; got != code {
		return fmt.Errorf("expected %s, got %s", code, got)
	}
	return nil
}

func (s *chatScenario) unreadCounts(sellerCount, buyerCount int) error {
	if s.lastErr != nil {
		return s.lastErr
	}
	conv, err := s.store.FindConversation(s.ctx, s.convID)
	if err != nil {
		return err
	}
	if conv.UnreadCount.Seller != sellerCount || conv.UnreadCount.Buyer != buyerCount {
		return fmt.Errorf("unread counts are seller %d buyer %d", conv.UnreadCount.Seller, conv.UnreadCount.Buyer)
	}
	return nil
}

func (s *chatScenario) connect(user string) (*fakeConn, error) {
	conn := newFakeConn()
	s.conns[user] = conn
	go s.gateway.Serve(s.ctx, conn, user, user)
	deadline := time.Now().Add(time.Second)
	for !s.gateway.IsOnline(user) {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%s never came online", user)
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn, nil
}

func (s *chatScenario) send(user string, req domain.WSRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	s.conns[user].in <- data
	return nil
}

func (s *chatScenario) await(user, event string) (receivedEvent, error) {
	conn := s.conns[user]
	timeout := time.After(2 * time.Second)
	for {
		select {
		case data := <-conn.out:
			var ev receivedEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				return ev, err
			}
			if ev.Event == event {
				return ev, nil
			}
		case <-timeout:
			return receivedEvent{}, fmt.Errorf("%s did not receive %s", user, event)
		}
	}
}

func (s *chatScenario) connectedAndJoined(a, b string) error {
	for _, user := range []string{a, b} {
		if _, err := s.connect(user); err != nil {
			return err
		}
		if err := s.send(user, domain.WSRequest{Event: domain.JoinConversation, ConversationID: s.convID}); err != nil {
			return err
		}
		if _, err := s.await(user, domain.EventJoinedConversation); err != nil {
			return err
		}
	}
	return nil
}

func (s *chatScenario) sendsOverSocket(user, content string) error {
	return s.send(user, domain.WSRequest{Event: domain.SendMessage, ConversationID: s.convID, Content: content})
}

func (s *chatScenario) receivesNewMessage(user, content string) error {
	ev, err := s.await(user, domain.EventNewMessage)
	if err != nil {
		return err
	}
	var msg domain.Message
	if err := json.Unmarshal(ev.Payload, &msg); err != nil {
		return err
	}
	if msg.Content != content {
		return fmt.Errorf("received %q, want %q", msg.Content, content)
	}
	s.lastMsg = &msg
	return nil
}

func (s *chatScenario) lastMessageIs(content string) error {
	conv, err := s.store.FindConversation(s.ctx, s.convID)
	if err != nil {
		return err
	}
	if conv.LastMessage == nil || conv.LastMessage.Content != content {
		return fmt.Errorf("last message is %+v", conv.LastMessage)
	}
	return nil
}

func (s *chatScenario) marksLastRead(user string) error {
	if err := s.send(user, domain.WSRequest{Event: domain.MarkAsRead, MessageID: s.lastMsg.ID}); err != nil {
		return err
	}
	// the sender receives the receipt once the read is stored
	_, err := s.await(s.lastMsg.SenderID, domain.EventMessageRead)
	return err
}

func (s *chatScenario) offers(user string, amount float64) error {
	return s.send(user, domain.WSRequest{
		Event:          domain.SendMessage,
		ConversationID: s.convID,
		MessageType:    domain.MessageOffer,
		OfferData:      &domain.OfferInput{Amount: amount},
	})
}

func (s *chatScenario) receivesPendingOffer(user string, amount float64) error {
	ev, err := s.await(user, domain.EventNewMessage)
	if err != nil {
		return err
	}
	var msg domain.Message
	if err := json.Unmarshal(ev.Payload, &msg); err != nil {
		return err
	}
	if msg.OfferData == nil || msg.OfferData.Status != domain.OfferPending || msg.OfferData.Amount != amount {
		return fmt.Errorf("unexpected offer %+v", msg.OfferData)
	}
	s.offerID = msg.ID
	return nil
}

func (s *chatScenario) acceptsOffer(user string) error {
	return s.send(user, domain.WSRequest{Event: domain.UpdateOfferStatus, MessageID: s.offerID, Status: domain.OfferAccepted})
}

func (s *chatScenario) bothReceiveOfferStatus(a, b, status string) error {
	for _, user := range []string{a, b} {
		ev, err := s.await(user, domain.EventOfferStatusUpdate)
		if err != nil {
			return err
		}
		var payload domain.OfferStatusPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return err
		}
		if string(payload.Status) != status {
			return fmt.Errorf("%s received status %s", user, payload.Status)
		}
	}
	return nil
}

func (s *chatScenario) connectsAndJoins(user string) error {
	if _, err := s.connect(user); err != nil {
		return err
	}
	return s.send(user, domain.WSRequest{Event: domain.JoinConversation, ConversationID: s.convID})
}

func (s *chatScenario) receivesSocketError(user, code string) error {
	ev, err := s.await(user, domain.EventError)
	if err != nil {
		return err
	}
	var wsErr domain.WSError
	if err := json.Unmarshal(ev.Payload, &wsErr); err != nil {
		return err
	}
	if wsErr.Code != code {
		return fmt.Errorf("socket error code %s, want %s", wsErr.Code, code)
	}
	return nil
}

func initializeConversationScenario(sc *godog.ScenarioContext) {
	s := &chatScenario{}
	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		s.reset()
		return ctx, nil
	})
	sc.After(func(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
		s.cancel()
		for _, c := range s.conns {
			c.Close()
		}
		return ctx, nil
	})

	sc.Step(`^"([^"]*)" has listed "([^"]*)"$`, s.hasListed)
	sc.Step(`^"([^"]*)" starts a conversation about "([^"]*)"$`, s.startsConversation)
	sc.Step(`^the request fails with "([^"]*)"$`, s.requestFails)
	sc.Step(`^the unread counts are seller (\d+) and buyer (\d+)$`, s.unreadCounts)
	sc.Step(`^"([^"]*)" and "([^"]*)" are connected and joined to the conversation$`, s.connectedAndJoined)
	sc.Step(`^"([^"]*)" sends "([^"]*)" over the socket$`, s.sendsOverSocket)
	sc.Step(`^"([^"]*)" receives a new message "([^"]*)"$`, s.receivesNewMessage)
	sc.Step(`^the last message of the conversation is "([^"]*)"$`, s.lastMessageIs)
	sc.Step(`^"([^"]*)" marks the last message as read$`, s.marksLastRead)
	sc.Step(`^"([^"]*)" offers (\d+)$`, s.offers)
	sc.Step(`^"([^"]*)" receives a pending offer of (\d+)$`, s.receivesPendingOffer)
	sc.Step(`^"([^"]*)" accepts the offer$`, s.acceptsOffer)
	sc.Step(`^"([^"]*)" and "([^"]*)" receive the offer status "([^"]*)"$`, s.bothReceiveOfferStatus)
	sc.Step(`^"([^"]*)" connects and tries to join the conversation$`, s.connectsAndJoins)
	sc.Step(`^"([^"]*)" receives the socket error "([^"]*)"$`, s.receivesSocketError)
}

func TestConversationFeature(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "conversation",
		ScenarioInitializer: initializeConversationScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
			Strict:   true,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("conversation feature failed")
	}
}
