package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/memegen/memegen-backend/internal/api/middleware"
	"github.com/memegen/memegen-backend/internal/repository"
	"github.com/memegen/memegen-backend/internal/services"
)

// MemeHandlers serves stored meme listing and favorite management
type MemeHandlers struct {
	memes *services.MemeService
}

// NewMemeHandlers creates meme handlers
func NewMemeHandlers(memes *services.MemeService) *MemeHandlers {
	return &MemeHandlers{memes: memes}
}

type memeResponse struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	ImageURL       string `json:"image_url"`
	IsFavorite     bool   `json:"is_favorite"`
	CreatedAt      string `json:"created_at"`
}

func toMemeResponses(memes []*repository.Meme) []memeResponse {
	out := make([]memeResponse, 0, len(memes))
	for _, meme := range memes {
		out = append(out, memeResponse{
			ID:             meme.ID,
			ConversationID: meme.ConversationID,
			ImageURL:       meme.ImageURL,
			IsFavorite:     meme.IsFavorite,
			CreatedAt:      meme.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

// List handles GET /api/v1/memes
func (h *MemeHandlers) List(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	memes, err := h.memes.ListByUser(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list memes",
		})
	}
	return c.JSON(fiber.Map{"memes": toMemeResponses(memes)})
}

// ListByConversation handles GET /api/v1/conversations/:id/memes
func (h *MemeHandlers) ListByConversation(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	memes, err := h.memes.ListByConversation(c.Context(), userID, c.Params("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Conversation not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list memes",
		})
	}
	return c.JSON(fiber.Map{"memes": toMemeResponses(memes)})
}

// Favorite handles POST /api/v1/memes/:id/favorite
func (h *MemeHandlers) Favorite(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	var req struct {
		Favorite *bool `json:"favorite"`
	}
	favorite := true
	if err := c.BodyParser(&req); err == nil && req.Favorite != nil {
		favorite = *req.Favorite
	}

	if err := h.memes.SetFavorite(c.Context(), userID, c.Params("id"), favorite); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Meme not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update favorite",
		})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Delete handles DELETE /api/v1/memes/:id
func (h *MemeHandlers) Delete(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	if err := h.memes.Delete(c.Context(), userID, c.Params("id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Meme not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete meme",
		})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
