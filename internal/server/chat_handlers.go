package server

import (
	"struggles/internal/models"
	"struggles/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createChatRequest struct {
	UserID string `json:"user_id"`
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

// CreateOrGetChat handles POST /api/chats
// @Summary Open a chat
// @Description Returns the existing chat with the other user or creates it
// @Tags chats
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createChatRequest true "Other participant"
// @Success 200 {object} models.Chat
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /chats [post]
func (s *Server) CreateOrGetChat(c *fiber.Ctx) error {
	var req createChatRequest
	if err := c.BodyParser(&req); err != nil {
		return models.Respond(c, models.NewInvalidArgumentError("Invalid request body"))
	}

	chat, err := s.chatService.CreateOrGetChat(c.UserContext(), currentUserID(c), req.UserID)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(chat)
}

// GetChats handles GET /api/chats
// @Summary List my chats
// @Description Most recent activity first
// @Tags chats
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Chat
// @Router /chats [get]
func (s *Server) GetChats(c *fiber.Ctx) error {
	chats, err := s.chatService.ListChats(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(chats)
}

// GetChat handles GET /api/chats/:id
// @Summary Get a chat
// @Tags chats
// @Produce json
// @Security BearerAuth
// @Param id path string true "Chat ID"
// @Success 200 {object} models.Chat
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /chats/{id} [get]
func (s *Server) GetChat(c *fiber.Ctx) error {
	chat, err := s.chatService.GetChatForUser(c.UserContext(), c.Params("id"), currentUserID(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(chat)
}

// GetMessages handles GET /api/chats/:id/messages
// @Summary List messages
// @Description Oldest first
// @Tags chats
// @Produce json
// @Security BearerAuth
// @Param id path string true "Chat ID"
// @Success 200 {array} models.Message
// @Router /chats/{id}/messages [get]
func (s *Server) GetMessages(c *fiber.Ctx) error {
	ctx := c.UserContext()
	chat, err := s.chatService.GetChatForUser(ctx, c.Params("id"), currentUserID(c))
	if err != nil {
		return models.Respond(c, err)
	}
	messages, err := s.chatService.ListMessages(ctx, chat.ID)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(messages)
}

// SendMessage handles POST /api/chats/:id/messages
// @Summary Send a message
// @Tags chats
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Chat ID"
// @Param request body sendMessageRequest true "Message"
// @Success 201 {object} models.Message
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /chats/{id}/messages [post]
func (s *Server) SendMessage(c *fiber.Ctx) error {
	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return models.Respond(c, models.NewInvalidArgumentError("Invalid request body"))
	}

	msg, err := s.chatService.SendMessage(c.UserContext(), service.SendMessageInput{
		ChatID:   c.Params("id"),
		SenderID: currentUserID(c),
		Text:     req.Text,
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}
