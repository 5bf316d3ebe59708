package router

import (
	"context"

	"old_vibes/internal/api/comm"
	"old_vibes/internal/chat/app"
	"old_vibes/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes chat REST surface under /api/chat and the realtime gateway on /ws
// @title Old Vibes Chat API
// @version 1.0
// @description Buyer / seller chat around marketplace listings
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func RegisterRoutes(r *fiber.App, rest *app.ChatRestHandler, chatWebsocket *app.ChatWebsocketHandler) {
	r.Get("/swagger/*", swagger.HandlerDefault)
	r.Get("/", comm.ConnectCheck)
	r.Post("/debug", comm.DebugLogFlag)

	// the credential is verified before the upgrade, a bad token never reaches the gateway
	r.Use("/ws", middlewares.JWTMiddleware(), func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	})
	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		chatWebsocket.HandleConnection(context.Background(), c)
	}))

	chat := r.Group("/api/chat", middlewares.JWTMiddleware())

	conversations := chat.Group("/conversations")
	conversations.Post("/from-listing/:listingId", rest.StartConversation)
	conversations.Get("/", rest.GetConversations)
	conversations.Get("/unread-count", rest.GetUnreadTotal)
	conversations.Get("/:id/messages", rest.GetMessages)
	conversations.Post("/:id/messages", rest.SendMessage)
	conversations.Patch("/:id/read", rest.MarkConversationRead)
	conversations.Patch("/:id/block", rest.BlockConversation)
	conversations.Patch("/:id/unblock", rest.UnblockConversation)

	messages := chat.Group("/messages")
	messages.Patch("/:id/read", rest.MarkRead)
	messages.Patch("/:id/offer", rest.UpdateOfferStatus)
	messages.Patch("/:id", rest.EditMessage)
	messages.Delete("/:id", rest.DeleteMessage)
}
