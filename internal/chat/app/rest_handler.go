package app

import (
	"old_vibes/internal/chat/domain"
	errprocess "old_vibes/pkg/err"
	"old_vibes/pkg/middlewares"
	"old_vibes/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ChatRestHandler REST surface of the chat core, every route delegates to ChatUseCase
type ChatRestHandler struct {
	uc          *ChatUseCase
	broadcaster Broadcaster
}

// NewChatRestHandler create ChatRestHandler, broadcaster mirrors mutations to socket rooms
func NewChatRestHandler(uc *ChatUseCase, broadcaster Broadcaster) *ChatRestHandler {
	return &ChatRestHandler{
		uc:          uc,
		broadcaster: broadcaster,
	}
}

func (h *ChatRestHandler) emit(conversationID, event string, payload interface{}) {
	if h.broadcaster == nil {
		return
	}
	h.broadcaster.EmitToRoom(conversationID, event, payload, "")
}

// StartConversation start or fetch the conversation about a listing
// @Summary Start conversation from listing
// @Tags Chat
// @Produce json
// @Param listingId path string true "listing id"
// @Success 201 {object} response.Response{data=domain.StartedConversation}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Security BearerAuth
// @Router /api/chat/conversations/from-listing/{listingId} [post]
func (h *ChatRestHandler) StartConversation(c *fiber.Ctx) error {
	started, err := h.uc.StartConversation(c.UserContext(), c.Params("listingId"), middlewares.MemberID(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, started)
}

// GetConversations caller conversations, most recently updated first
// @Summary List conversations
// @Tags Chat
// @Produce json
// @Param limit query int false "page size"
// @Param offset query int false "offset"
// @Success 200 {object} response.Response{data=domain.ConversationPage}
// @Security BearerAuth
// @Router /api/chat/conversations [get]
func (h *ChatRestHandler) GetConversations(c *fiber.Ctx) error {
	page, err := h.uc.GetConversations(c.UserContext(), middlewares.MemberID(c), c.QueryInt("limit"), c.QueryInt("offset"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, page)
}

// GetUnreadTotal caller unread total
// @Summary Unread total
// @Tags Chat
// @Produce json
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /api/chat/conversations/unread-count [get]
func (h *ChatRestHandler) GetUnreadTotal(c *fiber.Ctx) error {
	total, err := h.uc.GetUnreadTotal(c.UserContext(), middlewares.MemberID(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, fiber.Map{"unreadCount": total})
}

// GetMessages chronological page of a conversation
// @Summary List messages
// @Tags Chat
// @Produce json
// @Param id path string true "conversation id"
// @Param limit query int false "page size"
// @Param offset query int false "offset from the newest message"
// @Success 200 {object} response.Response{data=domain.MessagePage}
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Security BearerAuth
// @Router /api/chat/conversations/{id}/messages [get]
func (h *ChatRestHandler) GetMessages(c *fiber.Ctx) error {
	page, err := h.uc.GetMessages(c.UserContext(), c.Params("id"), middlewares.MemberID(c), c.QueryInt("limit"), c.QueryInt("offset"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, page)
}

// SendMessage polling fallback of the socket sendMessage event
// @Summary Send message
// @Tags Chat
// @Accept json
// @Produce json
// @Param id path string true "conversation id"
// @Param request body domain.SendMessageInput true "message"
// @Success 201 {object} response.Response{data=domain.Message}
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Security BearerAuth
// @Router /api/chat/conversations/{id}/messages [post]
func (h *ChatRestHandler) SendMessage(c *fiber.Ctx) error {
	var in domain.SendMessageInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, errprocess.Validation("invalid request body", err))
	}

	msg, err := h.uc.SendMessage(c.UserContext(), c.Params("id"), middlewares.MemberID(c), in)
	if err != nil {
		return response.Error(c, err)
	}
	h.emit(msg.ConversationID, domain.EventNewMessage, msg)
	return response.Created(c, msg)
}

// MarkConversationRead mark every message addressed to the caller read
// @Summary Mark conversation read
// @Tags Chat
// @Produce json
// @Param id path string true "conversation id"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /api/chat/conversations/{id}/read [patch]
func (h *ChatRestHandler) MarkConversationRead(c *fiber.Ctx) error {
	readerID := middlewares.MemberID(c)
	n, err := h.uc.MarkConversationRead(c.UserContext(), c.Params("id"), readerID)
	if err != nil {
		return response.Error(c, err)
	}
	h.emit(c.Params("id"), domain.EventConversationRead, domain.ReadPayload{
		ConversationID: c.Params("id"),
		ReaderID:       readerID,
		Count:          int(n),
	})
	return response.Success(c, fiber.Map{"markedCount": n})
}

// BlockConversation block sends in a conversation
// @Summary Block conversation
// @Tags Chat
// @Produce json
// @Param id path string true "conversation id"
// @Success 200 {object} response.Response{data=domain.Conversation}
// @Security BearerAuth
// @Router /api/chat/conversations/{id}/block [patch]
func (h *ChatRestHandler) BlockConversation(c *fiber.Ctx) error {
	conv, err := h.uc.BlockConversation(c.UserContext(), c.Params("id"), middlewares.MemberID(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, conv)
}

// UnblockConversation lift a block, blocker only
// @Summary Unblock conversation
// @Tags Chat
// @Produce json
// @Param id path string true "conversation id"
// @Success 200 {object} response.Response{data=domain.Conversation}
// @Security BearerAuth
// @Router /api/chat/conversations/{id}/unblock [patch]
func (h *ChatRestHandler) UnblockConversation(c *fiber.Ctx) error {
	conv, err := h.uc.UnblockConversation(c.UserContext(), c.Params("id"), middlewares.MemberID(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, conv)
}

// MarkRead receiver marks one message read
// @Summary Mark message read
// @Tags Chat
// @Produce json
// @Param id path string true "message id"
// @Success 200 {object} response.Response{data=domain.Message}
// @Failure 403 {object} response.Response
// @Security BearerAuth
// @Router /api/chat/messages/{id}/read [patch]
func (h *ChatRestHandler) MarkRead(c *fiber.Ctx) error {
	readerID := middlewares.MemberID(c)
	msg, changed, err := h.uc.MarkRead(c.UserContext(), c.Params("id"), readerID)
	if err != nil {
		return response.Error(c, err)
	}
	if changed {
		h.emit(msg.ConversationID, domain.EventMessageRead, domain.ReadPayload{
			ConversationID: msg.ConversationID,
			MessageID:      msg.ID,
			ReaderID:       readerID,
		})
	}
	return response.Success(c, msg)
}

// UpdateOfferStatus receiver accepts or rejects a pending offer
// @Summary Update offer status
// @Tags Chat
// @Accept json
// @Produce json
// @Param id path string true "message id"
// @Param request body domain.OfferStatusInput true "status"
// @Success 200 {object} response.Response{data=domain.Message}
// @Failure 400 {object} response.Response
// @Security BearerAuth
// @Router /api/chat/messages/{id}/offer [patch]
func (h *ChatRestHandler) UpdateOfferStatus(c *fiber.Ctx) error {
	var in domain.OfferStatusInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, errprocess.Validation("invalid request body", err))
	}

	actorID := middlewares.MemberID(c)
	msg, err := h.uc.UpdateOfferStatus(c.UserContext(), c.Params("id"), in.Status, actorID)
	if err != nil {
		return response.Error(c, err)
	}
	h.emit(msg.ConversationID, domain.EventOfferStatusUpdate, domain.OfferStatusPayload{
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
		Status:         msg.OfferData.Status,
		ActorID:        actorID,
		Message:        msg,
	})
	return response.Success(c, msg)
}

// EditMessage sender edits a text message
// @Summary Edit message
// @Tags Chat
// @Accept json
// @Produce json
// @Param id path string true "message id"
// @Param request body domain.EditMessageInput true "content"
// @Success 200 {object} response.Response{data=domain.Message}
// @Security BearerAuth
// @Router /api/chat/messages/{id} [patch]
func (h *ChatRestHandler) EditMessage(c *fiber.Ctx) error {
	var in domain.EditMessageInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, errprocess.Validation("invalid request body", err))
	}

	msg, err := h.uc.EditMessage(c.UserContext(), c.Params("id"), middlewares.MemberID(c), in)
	if err != nil {
		return response.Error(c, err)
	}
	h.emit(msg.ConversationID, domain.EventMessageEdited, msg)
	return response.Success(c, msg)
}

// DeleteMessage sender soft deletes a message
// @Summary Delete message
// @Tags Chat
// @Produce json
// @Param id path string true "message id"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /api/chat/messages/{id} [delete]
func (h *ChatRestHandler) DeleteMessage(c *fiber.Ctx) error {
	msg, err := h.uc.DeleteMessage(c.UserContext(), c.Params("id"), middlewares.MemberID(c))
	if err != nil {
		return response.Error(c, err)
	}
	payload := domain.MessageDeletedPayload{ConversationID: msg.ConversationID, MessageID: msg.ID}
	h.emit(msg.ConversationID, domain.EventMessageDeleted, payload)
	return response.Success(c, payload)
}
