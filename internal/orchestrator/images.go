package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/memegen/memegen-backend/internal/providers"
	"github.com/memegen/memegen-backend/internal/repository"
)

// Image tools. Renders and modifications produce a new GeneratedMeme row
// each; the newest row's provider handle is the one follow-up
// modifications must use.

type imageToolResult struct {
	MemeID         string `json:"meme_id"`
	PublicURL      string `json:"public_url"`
	ProviderHandle string `json:"provider_handle"`
}

func (e *Executor) renderImage(ctx context.Context, in *RenderImageInput) (string, error) {
	prompt := fmt.Sprintf(
		"Create a meme image. Visual scene: %s. Draw these caption lines on it in classic meme style: %s.",
		in.VisualContext, strings.Join(in.TextBoxes, " / "),
	)

	result, err := e.deps.Images.Generate(ctx, providers.ImageRequest{Prompt: prompt})
	if err != nil {
		return "", err
	}

	return e.storeMeme(ctx, result)
}

func (e *Executor) modifyImage(ctx context.Context, in *ModifyImageInput) (string, error) {
	if strings.TrimSpace(in.ProviderHandle) == "" {
		return "", fmt.Errorf("%w: no provider handle supplied", ErrStaleReference)
	}

	result, err := e.deps.Images.Modify(ctx, in.ProviderHandle, in.Instruction)
	if err != nil {
		if errors.Is(err, providers.ErrHandleNotFound) {
			return "", fmt.Errorf("%w: %v", ErrStaleReference, err)
		}
		return "", err
	}

	return e.storeMeme(ctx, result)
}

// storeMeme uploads the image bytes and persists the meme row. The upload
// and the insert each go through the retry runner.
func (e *Executor) storeMeme(ctx context.Context, result *providers.ImageResult) (string, error) {
	memeID := uuid.New().String()
	key := fmt.Sprintf("%s/%s.png", e.deps.ConversationID, memeID)

	var publicURL string
	err := e.deps.Retry.Execute(ctx, "upload meme image", func(ctx context.Context) error {
		var err error
		publicURL, err = e.deps.Storage.Put(ctx, key, result.Data, result.MimeType)
		return err
	})
	if err != nil {
		return "", err
	}

	meme := &repository.Meme{
		ID:             memeID,
		ConversationID: e.deps.ConversationID,
		UserID:         e.deps.UserID,
		ImageURL:       publicURL,
		ProviderHandle: result.Handle,
	}
	err = e.deps.Retry.Execute(ctx, "persist meme", func(ctx context.Context) error {
		return e.deps.Memes.Create(ctx, meme)
	})
	if err != nil {
		return "", err
	}

	e.logger.WithFields(logrus.Fields{
		"meme_id": memeID,
		"handle":  result.Handle,
	}).Info("Stored generated meme")

	payload, err := json.Marshal(imageToolResult{
		MemeID:         memeID,
		PublicURL:      publicURL,
		ProviderHandle: result.Handle,
	})
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func (e *Executor) fetchLastImageHandle(ctx context.Context) (string, error) {
	meme, err := e.deps.Memes.LatestByConversation(ctx, e.deps.ConversationID)
	if errors.Is(err, repository.ErrNotFound) {
		payload, _ := json.Marshal(map[string]any{
			"provider_handle": nil,
			"message":         "no image has been generated in this conversation yet",
		})
		return string(payload), nil
	}
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(map[string]string{"provider_handle": meme.ProviderHandle})
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func (e *Executor) markFavorite(ctx context.Context) (string, error) {
	var memeID string
	err := e.deps.Retry.Execute(ctx, "mark favorite", func(ctx context.Context) error {
		var err error
		memeID, err = e.deps.Memes.MarkLatestFavorite(ctx, e.deps.ConversationID)
		return err
	})
	if errors.Is(err, repository.ErrNotFound) {
		payload, _ := json.Marshal(map[string]string{"message": "nothing to favorite yet in this conversation"})
		return string(payload), nil
	}
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(map[string]string{"meme_id": memeID})
	if err != nil {
		return "", err
	}
	return string(payload), nil
}
