package handlers

import (
	"bufio"
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/memegen/memegen-backend/internal/api/middleware"
	"github.com/memegen/memegen-backend/internal/providers"
	"github.com/memegen/memegen-backend/internal/repository"
	"github.com/memegen/memegen-backend/internal/services"
)

// GenerateHandlers serves the streaming meme generation endpoint
type GenerateHandlers struct {
	generate *services.GenerateService
	logger   *logrus.Entry
}

// NewGenerateHandlers creates generate handlers
func NewGenerateHandlers(generate *services.GenerateService) *GenerateHandlers {
	return &GenerateHandlers{
		generate: generate,
		logger:   logrus.WithField("component", "generate-handler"),
	}
}

// Stream handles POST /api/v1/generate/meme. The response is a chunked
// text/plain body carrying one JSON frame per line.
func (h *GenerateHandlers) Stream(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	var req services.GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Prompt == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Prompt is required",
		})
	}

	// Resolve failures surface before the stream starts; once streaming
	// begins, errors become in-band message frames.
	c.Set("Content-Type", "text/plain; charset=utf-8")
	c.Set("Cache-Control", "no-cache")

	// The request context stays valid while the body streams and is
	// cancelled when the client disconnects.
	reqCtx := c.Context()
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		if err := h.generate.Stream(reqCtx, userID, req, w, w.Flush); err != nil {
			h.handleStreamError(reqCtx, err)
		}
	})

	return nil
}

func (h *GenerateHandlers) handleStreamError(ctx context.Context, err error) {
	var unknown *providers.ErrUnknownProvider
	switch {
	case errors.As(err, &unknown):
		h.logger.WithError(err).Error("Unknown provider in model selector")
	case errors.Is(err, repository.ErrNotFound):
		h.logger.WithError(err).Warn("Conversation not found")
	case ctx.Err() != nil:
		// Client went away, nothing to report
	default:
		h.logger.WithError(err).Error("Generation stream failed")
	}
}

// StreamWS handles GET /api/v1/generate/meme/ws: the same frame protocol
// with each line delivered as one WebSocket text message.
func (h *GenerateHandlers) StreamWS(authValidate func(token string) (uuid.UUID, error)) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		defer conn.Close()

		userID, err := authValidate(conn.Query("token"))
		if err != nil {
			_ = conn.WriteJSON(fiber.Map{"error": "Authentication required"})
			return
		}

		var req services.GenerateRequest
		if err := conn.ReadJSON(&req); err != nil || req.Prompt == "" {
			_ = conn.WriteJSON(fiber.Map{"error": "Invalid request"})
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		writer := &wsFrameWriter{conn: conn, cancel: cancel}
		if err := h.generate.Stream(ctx, userID, req, writer, nil); err != nil {
			h.handleStreamError(ctx, err)
		}
	})
}

// wsFrameWriter adapts a WebSocket connection to the transport's writer.
// Each Write call carries exactly one newline-terminated frame.
type wsFrameWriter struct {
	conn   *websocket.Conn
	cancel context.CancelFunc
}

func (w *wsFrameWriter) Write(p []byte) (int, error) {
	frame := p
	if n := len(frame); n > 0 && frame[n-1] == '\n' {
		frame = frame[:n-1]
	}
	if err := w.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		w.cancel()
		return 0, err
	}
	return len(p), nil
}
