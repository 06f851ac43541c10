package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/memegen/memegen-backend/internal/auth"
)

// AuthHandlers serves registration and login
type AuthHandlers struct {
	auth *auth.Service
}

// NewAuthHandlers creates auth handlers
func NewAuthHandlers(authService *auth.Service) *AuthHandlers {
	return &AuthHandlers{auth: authService}
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	AccessToken string `json:"access_token"`
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandlers) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Email == "" || req.Username == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Email and username are required",
		})
	}

	user, token, err := h.auth.Register(c.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailTaken):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, auth.ErrPasswordTooShort):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to register",
			})
		}
	}

	return c.Status(fiber.StatusCreated).JSON(authResponse{
		UserID:      user.ID.String(),
		Email:       user.Email,
		Username:    user.Username,
		AccessToken: token,
	})
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandlers) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	user, token, err := h.auth.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to log in",
		})
	}

	return c.JSON(authResponse{
		UserID:      user.ID.String(),
		Email:       user.Email,
		Username:    user.Username,
		AccessToken: token,
	})
}
