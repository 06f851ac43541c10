package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/memegen/memegen-backend/internal/orchestrator"
	"github.com/memegen/memegen-backend/internal/repository"
)

// ConversationService exposes conversation CRUD and the flattened chat
// view of stored transcript segments.
type ConversationService struct {
	conversations repository.ConversationRepository
	transcripts   repository.TranscriptRepository
}

// ChatMessage is one user-visible line of a conversation
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewConversationService creates a conversation service
func NewConversationService(conversations repository.ConversationRepository, transcripts repository.TranscriptRepository) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		transcripts:   transcripts,
	}
}

// Create starts a new conversation for a user
func (s *ConversationService) Create(ctx context.Context, userID uuid.UUID) (*repository.Conversation, error) {
	conv := &repository.Conversation{
		ID:     uuid.New().String(),
		UserID: userID,
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// Get returns a conversation owned by the user
func (s *ConversationService) Get(ctx context.Context, userID uuid.UUID, id string) (*repository.Conversation, error) {
	return s.conversations.Get(ctx, userID, id)
}

// List returns the user's conversations, newest first
func (s *ConversationService) List(ctx context.Context, userID uuid.UUID) ([]*repository.Conversation, error) {
	return s.conversations.List(ctx, userID)
}

// UpdateSummary overwrites the conversation summary
func (s *ConversationService) UpdateSummary(ctx context.Context, userID uuid.UUID, id string, summary string) error {
	return s.conversations.UpdateSummary(ctx, userID, id, summary)
}

// Delete removes a conversation and everything hanging off it
func (s *ConversationService) Delete(ctx context.Context, userID uuid.UUID, id string) error {
	return s.conversations.Delete(ctx, userID, id)
}

// Messages flattens the stored transcript segments of a conversation into
// the user-visible chat history. Tool traffic and empty turns are omitted.
func (s *ConversationService) Messages(ctx context.Context, userID uuid.UUID, id string) ([]ChatMessage, error) {
	if _, err := s.conversations.Get(ctx, userID, id); err != nil {
		return nil, err
	}

	segments, err := s.transcripts.ListByConversation(ctx, id)
	if err != nil {
		return nil, err
	}

	messages := make([]ChatMessage, 0)
	for _, segment := range segments {
		turns, err := orchestrator.DecodeSegment(segment.Payload)
		if err != nil {
			return nil, err
		}
		for _, turn := range turns {
			if turn.Role != orchestrator.RoleUser && turn.Role != orchestrator.RoleModel {
				continue
			}
			if turn.Content == "" {
				continue
			}
			messages = append(messages, ChatMessage{
				Role:      turn.Role,
				Content:   turn.Content,
				Timestamp: turn.Timestamp,
			})
		}
	}

	return messages, nil
}
