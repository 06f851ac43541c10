package services

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/memegen/memegen-backend/internal/auth"
	"github.com/memegen/memegen-backend/internal/config"
	"github.com/memegen/memegen-backend/internal/database"
	"github.com/memegen/memegen-backend/internal/providers"
	"github.com/memegen/memegen-backend/internal/providers/openai"
	"github.com/memegen/memegen-backend/internal/repository/postgres"
	"github.com/memegen/memegen-backend/internal/search"
	"github.com/memegen/memegen-backend/internal/storage"
)

// Services wires together every collaborator of the HTTP layer
type Services struct {
	Config        *config.Config
	Auth          *auth.Service
	Registry      *providers.Registry
	Conversations *ConversationService
	Memes         *MemeService
	Models        *ModelsService
	Generate      *GenerateService
}

// Initialize builds all services from configuration and an open database
func Initialize(cfg *config.Config, db *database.DB) (*Services, error) {
	users := postgres.NewUserRepository(db.DB)
	conversations := postgres.NewConversationRepository(db.DB)
	transcripts := postgres.NewTranscriptRepository(db.DB)
	memes := postgres.NewMemeRepository(db.DB)

	jwtService := auth.NewJWTService(cfg.Auth.JWTSecret, "memegen-backend", cfg.Auth.TokenTTL)
	authService := auth.NewService(users, jwtService)

	registry, err := buildRegistry(cfg)
	if err != nil {
		return nil, err
	}

	store, err := storage.New(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	searcher := search.NewClient(cfg.Search.SerperAPIKey)

	conversationService := NewConversationService(conversations, transcripts)
	memeService := NewMemeService(memes, conversations)
	modelsService := NewModelsService(registry, NewCacheService())
	generateService := NewGenerateService(GenerateDeps{
		Config:        cfg,
		Registry:      registry,
		Storage:       store,
		Searcher:      searcher,
		Conversations: conversations,
		Transcripts:   transcripts,
		Memes:         memes,
	})

	return &Services{
		Config:        cfg,
		Auth:          authService,
		Registry:      registry,
		Conversations: conversationService,
		Memes:         memeService,
		Models:        modelsService,
		Generate:      generateService,
	}, nil
}

// buildRegistry instantiates every configured provider. An unknown
// provider type is a fatal configuration error, not something to limp
// past at request time.
func buildRegistry(cfg *config.Config) (*providers.Registry, error) {
	registry := providers.NewRegistry()

	for id, providerCfg := range cfg.Providers {
		switch providerCfg.Type {
		case "openai":
			chat, err := openai.NewProvider(id, providerCfg)
			if err != nil {
				return nil, fmt.Errorf("provider %s: %w", id, err)
			}
			registry.RegisterChat(id, chat)

			if providerCfg.ImageModel != "" {
				images, err := openai.NewImageClient(id, providerCfg)
				if err != nil {
					return nil, fmt.Errorf("provider %s: %w", id, err)
				}
				registry.RegisterImage(id, images)
			}

			logrus.WithField("provider", id).Info("Registered provider")
		default:
			return nil, fmt.Errorf("provider %s: unknown type %q", id, providerCfg.Type)
		}
	}

	if len(registry.List()) == 0 {
		return nil, fmt.Errorf("no providers configured")
	}

	return registry, nil
}
