package handlers

import (
	"context"
	"errors"
	"time"

	"ecommerce-chatbot/internal/dto"
	"ecommerce-chatbot/internal/models"
	"ecommerce-chatbot/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ChatAsker interface {
	Ask(ctx context.Context, query string) (*service.Reply, error)
}

type RouteClassifier interface {
	Classify(ctx context.Context, query string) (models.RouteName, error)
}

type SessionStore interface {
	Create() string
	Exists(id string) bool
	Append(id string, role models.Role, content string) error
	Messages(id string) ([]models.ChatMessage, error)
	Delete(id string) error
}

type ChatHandler struct {
	chat     ChatAsker
	router   RouteClassifier
	sessions SessionStore
	logger   *zap.Logger
}

func NewChatHandler(chat ChatAsker, router RouteClassifier, sessions SessionStore, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		chat:     chat,
		router:   router,
		sessions: sessions,
		logger:   logger,
	}
}

// Chat godoc
// @Summary Ask the assistant
// @Description Routes the question to the FAQ or product search pipeline and records both turns in the session
// @Tags chat
// @Accept json
// @Produce json
// @Param request body dto.ChatRequest true "Question"
// @Success 200 {object} dto.ChatResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/chat [post]
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "Invalid request body"})
	}

	sessionID := req.SessionID
	if sessionID != "" {
		if _, err := uuid.Parse(sessionID); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "Invalid session ID"})
		}
		if !h.sessions.Exists(sessionID) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "Session not found"})
		}
	}

	reply, err := h.chat.Ask(c.Context(), req.Query)
	if errors.Is(err, service.ErrEmptyQuery) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "Query is required"})
	}
	if err != nil {
		h.logger.Error("Failed to answer query", zap.String("session_id", sessionID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "Failed to answer query"})
	}

	if sessionID == "" {
		sessionID = h.sessions.Create()
	}
	if err := h.sessions.Append(sessionID, models.RoleUser, req.Query); err != nil {
		h.logger.Warn("Failed to record user message", zap.String("session_id", sessionID), zap.Error(err))
	}
	if err := h.sessions.Append(sessionID, models.RoleAssistant, reply.Answer); err != nil {
		h.logger.Warn("Failed to record assistant message", zap.String("session_id", sessionID), zap.Error(err))
	}

	return c.JSON(dto.ChatResponse{
		SessionID: sessionID,
		Route:     string(reply.Route),
		Answer:    reply.Answer,
	})
}

// Route godoc
// @Summary Classify a question
// @Description Returns the route a question would take without answering it
// @Tags chat
// @Accept json
// @Produce json
// @Param request body dto.RouteRequest true "Question"
// @Success 200 {object} dto.RouteResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/v1/route [post]
func (h *ChatHandler) Route(c *fiber.Ctx) error {
	var req dto.RouteRequest
	if err := c.BodyParser(&req); err != nil || req.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "Query is required"})
	}

	route, err := h.router.Classify(c.Context(), req.Query)
	if err != nil {
		h.logger.Error("Failed to classify query", zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Error: "Classification unavailable"})
	}

	return c.JSON(dto.RouteResponse{Route: string(route)})
}

// GetMessages godoc
// @Summary Session history
// @Description Returns the session's messages in the order they were sent
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} dto.SessionMessagesResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/sessions/{id}/messages [get]
func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	sessionID, err := parseSessionID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "Invalid session ID"})
	}

	messages, err := h.sessions.Messages(sessionID)
	if errors.Is(err, service.ErrSessionNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "Session not found"})
	}
	if err != nil {
		return err
	}

	resp := dto.SessionMessagesResponse{
		SessionID: sessionID,
		Messages:  make([]dto.MessageResponse, 0, len(messages)),
	}
	for _, m := range messages {
		resp.Messages = append(resp.Messages, dto.MessageResponse{
			Role:      string(m.Role),
			Content:   m.Content,
			CreatedAt: m.CreatedAt.Format(time.RFC3339),
		})
	}

	return c.JSON(resp)
}

// DeleteSession godoc
// @Summary Delete a session
// @Tags sessions
// @Param id path string true "Session ID"
// @Success 204
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/sessions/{id} [delete]
func (h *ChatHandler) DeleteSession(c *fiber.Ctx) error {
	sessionID, err := parseSessionID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "Invalid session ID"})
	}

	if err := h.sessions.Delete(sessionID); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "Session not found"})
		}
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Health godoc
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Router /health [get]
func (h *ChatHandler) Health(c *fiber.Ctx) error {
	return c.JSON(dto.HealthResponse{Status: "ok"})
}

func parseSessionID(c *fiber.Ctx) (string, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
