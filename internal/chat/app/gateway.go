package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"old_vibes/internal/chat/domain"
	errprocess "old_vibes/pkg/err"
	"old_vibes/pkg/logger"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	sendBufferSize = 64
	eventTimeout   = 10 * time.Second
)

// Conn socket transport of one client
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Broadcaster room scoped fan-out, used by the REST surface to mirror socket events
type Broadcaster interface {
	EmitToRoom(conversationID, event string, payload interface{}, exceptSocketID string)
}

type frame struct {
	messageType int
	data        []byte
}

// Client one registered socket
type Client struct {
	ID       string
	UserID   string
	Username string

	conn      Conn
	send      chan frame
	done      chan struct{}
	closeOnce sync.Once
	// rooms joined, guarded by Gateway.mu
	rooms map[string]struct{}
}

func (c *Client) enqueue(f frame) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- f:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

// Ping queue a ping control frame behind pending writes
func (c *Client) Ping() bool {
	return c.enqueue(frame{messageType: websocket.PingMessage, data: []byte("ping")})
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if err := c.conn.Close(); err != nil {
			logger.Log.Debug("socket close", zap.String("socket_id", c.ID), zap.Error(err))
		}
	})
}

// writePump the only goroutine writing to conn
func (c *Client) writePump() {
	for {
		select {
		case f := <-c.send:
			if err := c.conn.WriteMessage(f.messageType, f.data); err != nil {
				logger.Log.Error("socket write failed", zap.String("socket_id", c.ID), zap.String("user_id", c.UserID), zap.Error(err))
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// Gateway authenticated, room scoped realtime transport on top of ChatUseCase.
// Registry state is process local and rebuilt on restart.
type Gateway struct {
	uc *ChatUseCase

	mu          sync.RWMutex
	clients     map[string]*Client
	userSockets map[string]string
	rooms       map[string]map[string]*Client
}

// NewGateway create Gateway
func NewGateway(uc *ChatUseCase) *Gateway {
	return &Gateway{
		uc:          uc,
		clients:     make(map[string]*Client),
		userSockets: make(map[string]string),
		rooms:       make(map[string]map[string]*Client),
	}
}

// Register add an authenticated connection; a later socket of the same user replaces the registry entry
// without disconnecting the earlier one
func (g *Gateway) Register(conn Conn, userID, username string) *Client {
	c := &Client{
		ID:       uuid.NewString(),
		UserID:   userID,
		Username: username,
		conn:     conn,
		send:     make(chan frame, sendBufferSize),
		done:     make(chan struct{}),
		rooms:    make(map[string]struct{}),
	}

	g.mu.Lock()
	g.clients[c.ID] = c
	g.userSockets[userID] = c.ID
	g.mu.Unlock()

	go c.writePump()

	logger.Log.Info("socket connected", zap.String("socket_id", c.ID), zap.String("user_id", userID))
	g.broadcast(domain.EventUserOnline, domain.PresencePayload{UserID: userID}, c.ID)
	return c
}

// Unregister drop the socket from the registry and every room
func (g *Gateway) Unregister(c *Client) {
	g.mu.Lock()
	if _, ok := g.clients[c.ID]; !ok {
		g.mu.Unlock()
		return
	}
	delete(g.clients, c.ID)
	for convID := range c.rooms {
		g.leaveLocked(c, convID)
	}
	// a newer socket of the same user keeps the user online
	offline := g.userSockets[c.UserID] == c.ID
	if offline {
		delete(g.userSockets, c.UserID)
	}
	g.mu.Unlock()

	c.close()
	logger.Log.Info("socket disconnected", zap.String("socket_id", c.ID), zap.String("user_id", c.UserID))
	if offline {
		g.broadcast(domain.EventUserOffline, domain.PresencePayload{UserID: c.UserID}, c.ID)
	}
}

// Serve register conn, process its events sequentially until the transport closes, then unregister
func (g *Gateway) Serve(ctx context.Context, conn Conn, userID, username string) {
	c := g.Register(conn, userID, username)
	defer g.Unregister(c)
	g.ReadLoop(ctx, c)
}

// ReadLoop handle inbound frames of c until the transport fails
func (g *Gateway) ReadLoop(ctx context.Context, c *Client) {
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				logger.Log.Warn("websocket read error", zap.String("socket_id", c.ID), zap.Error(err))
			}
			return
		}
		if mt != websocket.TextMessage {
			g.sendError(c, "", "", errprocess.Validation("only text frames are supported", nil))
			continue
		}
		g.Dispatch(ctx, c, data)
	}
}

// IsOnline user has a registered socket
func (g *Gateway) IsOnline(userID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.userSockets[userID]
	return ok
}

// SocketOf current registry entry of the user
func (g *Gateway) SocketOf(userID string) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.userSockets[userID]
	return id, ok
}

// InRoom socket joined the conversation room
func (g *Gateway) InRoom(socketID, conversationID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.rooms[conversationID][socketID]
	return ok
}

// Dispatch handle one client event; failures and panics become a scoped error event
func (g *Gateway) Dispatch(ctx context.Context, c *Client, data []byte) {
	var req domain.WSRequest
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Error("socket handler panic",
				zap.String("socket_id", c.ID), zap.String("event", req.Event), zap.Any("panic", r))
			g.sendError(c, req.Event, req.ConversationID, errprocess.Internal("socket handler failed", fmt.Errorf("%v", r)))
		}
	}()

	if err := json.Unmarshal(data, &req); err != nil {
		g.sendError(c, "", "", errprocess.Validation("invalid event payload", err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, eventTimeout)
	defer cancel()

	if err := g.handle(ctx, c, &req); err != nil {
		if errprocess.IsKind(err, errprocess.KindInternal) {
			logger.Log.Error("socket event failed",
				zap.String("socket_id", c.ID), zap.String("user_id", c.UserID), zap.String("event", req.Event), zap.Error(err))
		}
		g.sendError(c, req.Event, req.ConversationID, err)
	}
}

func (g *Gateway) handle(ctx context.Context, c *Client, req *domain.WSRequest) error {
	switch req.Event {
	case domain.JoinConversation:
		if !g.uc.ValidateConversationAccess(ctx, req.ConversationID, c.UserID) {
			return unauthorizedConversation()
		}
		g.join(c, req.ConversationID)
		g.sendTo(c, domain.EventJoinedConversation, domain.RoomPayload{ConversationID: req.ConversationID})

	case domain.LeaveConversation:
		g.mu.Lock()
		g.leaveLocked(c, req.ConversationID)
		g.mu.Unlock()
		g.sendTo(c, domain.EventLeftConversation, domain.RoomPayload{ConversationID: req.ConversationID})

	case domain.SendMessage:
		if !g.uc.ValidateConversationAccess(ctx, req.ConversationID, c.UserID) {
			return unauthorizedConversation()
		}
		msg, err := g.uc.SendMessage(ctx, req.ConversationID, c.UserID, req.SendInput())
		if err != nil {
			return err
		}
		g.EmitToRoom(msg.ConversationID, domain.EventNewMessage, msg, "")
		if !g.InRoom(c.ID, msg.ConversationID) {
			g.sendTo(c, domain.EventNewMessage, msg)
		}

	case domain.MarkAsRead:
		msg, changed, err := g.uc.MarkRead(ctx, req.MessageID, c.UserID)
		if err != nil {
			return err
		}
		if changed {
			g.EmitToRoom(msg.ConversationID, domain.EventMessageRead, domain.ReadPayload{
				ConversationID: msg.ConversationID,
				MessageID:      msg.ID,
				ReaderID:       c.UserID,
			}, c.ID)
		}

	case domain.MarkConversationRead:
		n, err := g.uc.MarkConversationRead(ctx, req.ConversationID, c.UserID)
		if err != nil {
			return err
		}
		g.EmitToRoom(req.ConversationID, domain.EventConversationRead, domain.ReadPayload{
			ConversationID: req.ConversationID,
			ReaderID:       c.UserID,
			Count:          int(n),
		}, c.ID)

	case domain.UpdateOfferStatus:
		msg, err := g.uc.UpdateOfferStatus(ctx, req.MessageID, req.Status, c.UserID)
		if err != nil {
			return err
		}
		g.EmitToRoom(msg.ConversationID, domain.EventOfferStatusUpdate, domain.OfferStatusPayload{
			ConversationID: msg.ConversationID,
			MessageID:      msg.ID,
			Status:         msg.OfferData.Status,
			ActorID:        c.UserID,
			Message:        msg,
		}, "")

	case domain.EditMessage:
		msg, err := g.uc.EditMessage(ctx, req.MessageID, c.UserID, domain.EditMessageInput{Content: req.Content})
		if err != nil {
			return err
		}
		g.EmitToRoom(msg.ConversationID, domain.EventMessageEdited, msg, "")

	case domain.DeleteMessage:
		msg, err := g.uc.DeleteMessage(ctx, req.MessageID, c.UserID)
		if err != nil {
			return err
		}
		g.EmitToRoom(msg.ConversationID, domain.EventMessageDeleted, domain.MessageDeletedPayload{
			ConversationID: msg.ConversationID,
			MessageID:      msg.ID,
		}, "")

	case domain.StartTyping, domain.StopTyping:
		if !g.InRoom(c.ID, req.ConversationID) {
			return unauthorizedConversation()
		}
		event := domain.EventTypingStart
		if req.Event == domain.StopTyping {
			event = domain.EventTypingStop
		}
		g.EmitToRoom(req.ConversationID, event, domain.TypingPayload{
			ConversationID: req.ConversationID,
			UserID:         c.UserID,
		}, c.ID)

	default:
		return errprocess.Validation(fmt.Sprintf("unknown event %q", req.Event), nil)
	}
	return nil
}

func unauthorizedConversation() *errprocess.AppError {
	err := errprocess.Unauthorized("not authorized for this conversation")
	err.Code = errprocess.CodeUnauthorizedConversation
	return err
}

func (g *Gateway) join(c *Client, conversationID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.clients[c.ID]; !ok {
		return
	}
	room, ok := g.rooms[conversationID]
	if !ok {
		room = make(map[string]*Client)
		g.rooms[conversationID] = room
	}
	room[c.ID] = c
	c.rooms[conversationID] = struct{}{}
}

func (g *Gateway) leaveLocked(c *Client, conversationID string) {
	delete(c.rooms, conversationID)
	room, ok := g.rooms[conversationID]
	if !ok {
		return
	}
	delete(room, c.ID)
	if len(room) == 0 {
		delete(g.rooms, conversationID)
	}
}

func encodeEvent(event string, payload interface{}) ([]byte, error) {
	return json.Marshal(domain.WSEvent{Event: event, Payload: payload})
}

func (g *Gateway) deliver(c *Client, data []byte) {
	if !c.enqueue(frame{messageType: websocket.TextMessage, data: data}) {
		select {
		case <-c.done:
		default:
			logger.Log.Warn("socket send buffer full, closing", zap.String("socket_id", c.ID), zap.String("user_id", c.UserID))
			c.close()
		}
	}
}

// EmitToRoom fan out to every socket joined to the conversation except exceptSocketID
func (g *Gateway) EmitToRoom(conversationID, event string, payload interface{}, exceptSocketID string) {
	data, err := encodeEvent(event, payload)
	if err != nil {
		logger.Log.Error("encode socket event failed", zap.String("event", event), zap.Error(err))
		return
	}

	g.mu.RLock()
	targets := make([]*Client, 0, len(g.rooms[conversationID]))
	for id, c := range g.rooms[conversationID] {
		if id != exceptSocketID {
			targets = append(targets, c)
		}
	}
	g.mu.RUnlock()

	for _, c := range targets {
		g.deliver(c, data)
	}
}

func (g *Gateway) broadcast(event string, payload interface{}, exceptSocketID string) {
	data, err := encodeEvent(event, payload)
	if err != nil {
		logger.Log.Error("encode socket event failed", zap.String("event", event), zap.Error(err))
		return
	}

	g.mu.RLock()
	targets := make([]*Client, 0, len(g.clients))
	for id, c := range g.clients {
		if id != exceptSocketID {
			targets = append(targets, c)
		}
	}
	g.mu.RUnlock()

	for _, c := range targets {
		g.deliver(c, data)
	}
}

func (g *Gateway) sendTo(c *Client, event string, payload interface{}) {
	data, err := encodeEvent(event, payload)
	if err != nil {
		logger.Log.Error("encode socket event failed", zap.String("event", event), zap.Error(err))
		return
	}
	g.deliver(c, data)
}

// sendError scoped to the requesting socket only
func (g *Gateway) sendError(c *Client, event, conversationID string, err error) {
	appErr := errprocess.As(err)
	g.sendTo(c, domain.EventError, domain.WSError{
		Message:        appErr.Message,
		Code:           appErr.Code,
		Event:          event,
		ConversationID: conversationID,
	})
}
