package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/memegen/memegen-backend/internal/repository"
)

// MemeService exposes stored meme listing and favorite management
type MemeService struct {
	memes         repository.MemeRepository
	conversations repository.ConversationRepository
}

// NewMemeService creates a meme service
func NewMemeService(memes repository.MemeRepository, conversations repository.ConversationRepository) *MemeService {
	return &MemeService{
		memes:         memes,
		conversations: conversations,
	}
}

// ListByUser returns every meme the user has generated, newest first
func (s *MemeService) ListByUser(ctx context.Context, userID uuid.UUID) ([]*repository.Meme, error) {
	return s.memes.ListByUser(ctx, userID)
}

// ListByConversation returns the memes of one conversation the user owns
func (s *MemeService) ListByConversation(ctx context.Context, userID uuid.UUID, conversationID string) ([]*repository.Meme, error) {
	if _, err := s.conversations.Get(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return s.memes.ListByConversation(ctx, conversationID)
}

// SetFavorite flips the favorite flag on a meme the user owns
func (s *MemeService) SetFavorite(ctx context.Context, userID uuid.UUID, memeID string, favorite bool) error {
	return s.memes.SetFavorite(ctx, userID, memeID, favorite)
}

// Delete removes a meme the user owns
func (s *MemeService) Delete(ctx context.Context, userID uuid.UUID, memeID string) error {
	return s.memes.Delete(ctx, userID, memeID)
}
