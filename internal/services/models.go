package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/memegen/memegen-backend/internal/providers"
)

const modelsCacheTTL = 5 * time.Minute

// ModelInfo is one reachable model of a configured provider
type ModelInfo struct {
	Provider string `json:"provider"`
	ID       string `json:"id"`
	Selector string `json:"selector"`
}

// ModelsService lists the models reachable through configured providers.
// Listings are cached; provider endpoints are slow and rate limited.
type ModelsService struct {
	registry *providers.Registry
	cache    *CacheService
}

// NewModelsService creates a models service
func NewModelsService(registry *providers.Registry, cache *CacheService) *ModelsService {
	return &ModelsService{
		registry: registry,
		cache:    cache,
	}
}

// List returns all reachable models. An unreachable provider is skipped
// with a log line rather than failing the whole listing.
func (s *ModelsService) List(ctx context.Context) ([]ModelInfo, error) {
	if cached := s.cache.Get("models"); cached != nil {
		return cached.([]ModelInfo), nil
	}

	infos := make([]ModelInfo, 0)
	for id, provider := range s.registry.ChatProviders() {
		models, err := provider.GetModels(ctx)
		if err != nil {
			logrus.WithError(err).WithField("provider", id).Warn("Failed to list models")
			continue
		}
		for _, model := range models {
			infos = append(infos, ModelInfo{
				Provider: id,
				ID:       model.ID,
				Selector: id + ":" + model.ID,
			})
		}
	}

	s.cache.Set("models", infos, modelsCacheTTL)
	return infos, nil
}
