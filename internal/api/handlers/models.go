package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/memegen/memegen-backend/internal/services"
)

// ModelsHandlers lists reachable provider models
type ModelsHandlers struct {
	models *services.ModelsService
}

// NewModelsHandlers creates models handlers
func NewModelsHandlers(models *services.ModelsService) *ModelsHandlers {
	return &ModelsHandlers{models: models}
}

// List handles GET /api/v1/models
func (h *ModelsHandlers) List(c *fiber.Ctx) error {
	models, err := h.models.List(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list models",
		})
	}
	return c.JSON(fiber.Map{"models": models})
}
