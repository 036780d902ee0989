package handlers

import (
	"context"
	"errors"

	"invoicehub/internal/dto"
	"invoicehub/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChatService is the service surface the chat handlers call.
type ChatService interface {
	HandleMessage(ctx context.Context, userID uuid.UUID, req *dto.ChatRequest) (*dto.ChatResponse, error)
	ListSessions(ctx context.Context, userID uuid.UUID) ([]dto.SessionSummary, error)
	SessionHistory(ctx context.Context, userID, sessionID uuid.UUID) (*dto.SessionHistory, error)
	DeleteSession(ctx context.Context, userID, sessionID uuid.UUID) error
}

type ChatHandler struct {
	chatService ChatService
	logger      *zap.Logger
}

func NewChatHandler(chatService ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		logger:      logger,
	}
}

// Chat godoc
// @Summary Send a chat message
// @Description Route a natural-language question to the invoice assistant, continuing an existing session when session_id is given
// @Tags chat
// @Accept json
// @Produce json
// @Param request body dto.ChatRequest true "Chat request"
// @Security Bearer
// @Success 200 {object} dto.ChatResponse
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/chat [post]
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var req dto.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Message is required",
		})
	}

	resp, err := h.chatService.HandleMessage(c.Context(), userID, &req)
	if err != nil {
		h.logger.Error("Chat processing failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "An internal error occurred in the chat service",
		})
	}

	return c.JSON(resp)
}

// ListSessions godoc
// @Summary List chat sessions
// @Description List past conversation sessions for the authenticated user, most recently updated first
// @Tags chat
// @Produce json
// @Security Bearer
// @Success 200 {array} dto.SessionSummary
// @Failure 500 {object} map[string]string
// @Router /api/v1/chat/sessions [get]
func (h *ChatHandler) ListSessions(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	summaries, err := h.chatService.ListSessions(c.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list sessions", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list sessions",
		})
	}

	return c.JSON(summaries)
}

// SessionHistory godoc
// @Summary Get session history
// @Description Get the full message history of a single conversation session
// @Tags chat
// @Produce json
// @Param id path string true "Session ID"
// @Security Bearer
// @Success 200 {object} dto.SessionHistory
// @Failure 404 {object} map[string]string
// @Router /api/v1/chat/sessions/{id} [get]
func (h *ChatHandler) SessionHistory(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid session ID",
		})
	}

	history, err := h.chatService.SessionHistory(c.Context(), userID, sessionID)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Session not found",
			})
		}
		h.logger.Error("Failed to get session history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get session history",
		})
	}

	return c.JSON(history)
}

// DeleteSession godoc
// @Summary Delete a chat session
// @Description Delete a single conversation session and its messages
// @Tags chat
// @Param id path string true "Session ID"
// @Security Bearer
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /api/v1/chat/sessions/{id} [delete]
func (h *ChatHandler) DeleteSession(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid session ID",
		})
	}

	if err := h.chatService.DeleteSession(c.Context(), userID, sessionID); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Session not found",
			})
		}
		h.logger.Error("Failed to delete session", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete session",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func getUserID(c *fiber.Ctx) (uuid.UUID, error) {
	userIDStr, ok := c.Locals("userID").(string)
	if !ok {
		return uuid.Nil, fiber.ErrUnauthorized
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, err
	}

	return userID, nil
}
