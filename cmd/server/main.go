package main

import (
	"fmt"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"github.com/memegen/memegen-backend/internal/api"
	"github.com/memegen/memegen-backend/internal/config"
	"github.com/memegen/memegen-backend/internal/database"
	"github.com/memegen/memegen-backend/internal/services"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	// Connect to database
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	// Run migrations
	if err := database.RunMigrations(cfg.Database); err != nil {
		logrus.WithError(err).Fatal("Failed to run migrations")
	}

	// Initialize services
	svc, err := services.Initialize(cfg, db)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize services")
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Memegen Backend",
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     getOrigins(),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PATCH, DELETE, OPTIONS",
		AllowCredentials: true,
	}))

	// Locally stored meme images are served statically
	if cfg.Storage.Backend == "local" || cfg.Storage.Backend == "" {
		app.Static("/static/memes", cfg.Storage.LocalDir)
	}

	// Setup routes
	api.SetupRoutes(app, svc)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logrus.WithField("addr", addr).Info("Memegen backend starting")
	if err := app.Listen(addr); err != nil {
		logrus.WithError(err).Fatal("Failed to start server")
	}
}

// customErrorHandler keeps internal error detail out of responses
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": message,
		"code":  code,
	})
}

func getOrigins() string {
	origins := os.Getenv("MEMEGEN_CORS_ORIGINS")
	if origins == "" {
		return "http://localhost:5173,http://localhost:3000"
	}
	return origins
}
