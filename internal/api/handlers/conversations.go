package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/memegen/memegen-backend/internal/api/middleware"
	"github.com/memegen/memegen-backend/internal/repository"
	"github.com/memegen/memegen-backend/internal/services"
)

// ConversationHandlers serves conversation CRUD and the chat history view
type ConversationHandlers struct {
	conversations *services.ConversationService
}

// NewConversationHandlers creates conversation handlers
func NewConversationHandlers(conversations *services.ConversationService) *ConversationHandlers {
	return &ConversationHandlers{conversations: conversations}
}

type conversationResponse struct {
	ID        string `json:"id"`
	Summary   string `json:"summary,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toConversationResponse(conv *repository.Conversation) conversationResponse {
	return conversationResponse{
		ID:        conv.ID,
		Summary:   conv.Summary.String,
		CreatedAt: conv.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: conv.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// List handles GET /api/v1/conversations
func (h *ConversationHandlers) List(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	conversations, err := h.conversations.List(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list conversations",
		})
	}

	out := make([]conversationResponse, 0, len(conversations))
	for _, conv := range conversations {
		out = append(out, toConversationResponse(conv))
	}
	return c.JSON(fiber.Map{"conversations": out})
}

// Create handles POST /api/v1/conversations
func (h *ConversationHandlers) Create(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	conv, err := h.conversations.Create(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create conversation",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(toConversationResponse(conv))
}

// Get handles GET /api/v1/conversations/:id
func (h *ConversationHandlers) Get(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	conv, err := h.conversations.Get(c.Context(), userID, c.Params("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Conversation not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get conversation",
		})
	}
	return c.JSON(toConversationResponse(conv))
}

// Update handles PATCH /api/v1/conversations/:id
func (h *ConversationHandlers) Update(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	var req struct {
		Summary string `json:"summary"`
	}
	if err := c.BodyParser(&req); err != nil || req.Summary == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Summary is required",
		})
	}

	if err := h.conversations.UpdateSummary(c.Context(), userID, c.Params("id"), req.Summary); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Conversation not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update conversation",
		})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Delete handles DELETE /api/v1/conversations/:id
func (h *ConversationHandlers) Delete(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	if err := h.conversations.Delete(c.Context(), userID, c.Params("id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Conversation not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete conversation",
		})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Messages handles GET /api/v1/conversations/:id/messages
func (h *ConversationHandlers) Messages(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	messages, err := h.conversations.Messages(c.Context(), userID, c.Params("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Conversation not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load messages",
		})
	}
	return c.JSON(fiber.Map{"messages": messages})
}
