package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/memegen/memegen-backend/internal/api/handlers"
	"github.com/memegen/memegen-backend/internal/api/middleware"
	"github.com/memegen/memegen-backend/internal/services"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, svc *services.Services) {
	api := app.Group("/api/v1")

	// Health check
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "memegen-backend",
		})
	})

	// Auth (public)
	authHandlers := handlers.NewAuthHandlers(svc.Auth)
	api.Post("/auth/register", authHandlers.Register)
	api.Post("/auth/login", authHandlers.Login)

	// Everything below requires a valid token
	protected := api.Group("", middleware.AuthRequired(svc.Auth))

	conversationHandlers := handlers.NewConversationHandlers(svc.Conversations)
	protected.Get("/conversations", conversationHandlers.List)
	protected.Post("/conversations", conversationHandlers.Create)
	protected.Get("/conversations/:id", conversationHandlers.Get)
	protected.Patch("/conversations/:id", conversationHandlers.Update)
	protected.Delete("/conversations/:id", conversationHandlers.Delete)
	protected.Get("/conversations/:id/messages", conversationHandlers.Messages)

	memeHandlers := handlers.NewMemeHandlers(svc.Memes)
	protected.Get("/memes", memeHandlers.List)
	protected.Get("/conversations/:id/memes", memeHandlers.ListByConversation)
	protected.Post("/memes/:id/favorite", memeHandlers.Favorite)
	protected.Delete("/memes/:id", memeHandlers.Delete)

	modelsHandlers := handlers.NewModelsHandlers(svc.Models)
	protected.Get("/models", modelsHandlers.List)

	generateHandlers := handlers.NewGenerateHandlers(svc.Generate)
	protected.Post("/generate/meme", generateHandlers.Stream)

	// WebSocket variant authenticates via a token query parameter since
	// browsers cannot set headers on WebSocket upgrades
	api.Use("/generate/meme/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/generate/meme/ws", generateHandlers.StreamWS(func(token string) (uuid.UUID, error) {
		userID, _, err := svc.Auth.ValidateToken(token)
		return userID, err
	}))
}
