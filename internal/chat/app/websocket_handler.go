package app

import (
	"context"
	"time"

	"old_vibes/pkg/logger"
	"old_vibes/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// ChatWebsocketHandler fiber websocket adapter of the Gateway
type ChatWebsocketHandler struct {
	gateway      *Gateway
	pingInterval time.Duration
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(gateway *Gateway, pingInterval time.Duration) *ChatWebsocketHandler {
	if pingInterval <= 0 {
		pingInterval = 10 * time.Minute
	}
	return &ChatWebsocketHandler{
		gateway:      gateway,
		pingInterval: pingInterval,
	}
}

// HandleConnection websocket entrypoint, the credential was verified before the upgrade
func (h *ChatWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	memberID, _ := conn.Locals(middlewares.TokenMemberID).(string)
	username, _ := conn.Locals(middlewares.TokenUsername).(string)
	if memberID == "" {
		logger.Log.Warn("websocket without member id")
		conn.Close()
		return
	}

	ticker := time.NewTicker(h.pingInterval)
	ctxClose, cancel := context.WithCancel(ctx)

	client := h.gateway.Register(conn, memberID, username)
	defer func() {
		ticker.Stop()
		cancel()
		h.gateway.Unregister(client)
		logger.Log.Info("websocket close", zap.String("user_id", memberID), zap.String("socket_id", client.ID))
	}()

	// close, ping and pong frames are consumed inside ReadMessage
	conn.SetCloseHandler(func(code int, text string) error {
		logger.Log.Debug("websocket closed by client", zap.String("user_id", memberID), zap.Int("code", code))
		return nil
	})

	conn.SetPongHandler(func(appData string) error {
		logger.Log.Debug("received pong", zap.String("user_id", memberID))
		return nil
	})

	conn.SetPingHandler(func(appData string) error {
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})

	go func() {
		for {
			select {
			case <-ticker.C:
				if !client.Ping() {
					return
				}
			case <-ctxClose.Done():
				return
			}
		}
	}()

	h.gateway.ReadLoop(ctxClose, client)
}
