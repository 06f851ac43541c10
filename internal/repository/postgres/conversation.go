package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/memegen/memegen-backend/internal/repository"
)

// ConversationRepository implements repository.ConversationRepository using PostgreSQL
type ConversationRepository struct {
	db *sqlx.DB
}

// NewConversationRepository creates a new PostgreSQL conversation repository
func NewConversationRepository(db *sqlx.DB) repository.ConversationRepository {
	return &ConversationRepository{db: db}
}

// Create creates a new conversation
func (r *ConversationRepository) Create(ctx context.Context, conv *repository.Conversation) error {
	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	conv.CreatedAt = now
	conv.UpdatedAt = now

	query := `
		INSERT INTO conversations (id, user_id, summary, created_at, updated_at)
		VALUES (:id, :user_id, :summary, :created_at, :updated_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, conv)
	return err
}

// Get retrieves a conversation by ID, scoped to the owning user
func (r *ConversationRepository) Get(ctx context.Context, userID uuid.UUID, id string) (*repository.Conversation, error) {
	var conv repository.Conversation
	query := `
		SELECT id, user_id, summary, created_at, updated_at
		FROM conversations
		WHERE id = $1 AND user_id = $2
	`

	err := r.db.GetContext(ctx, &conv, query, id, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &conv, nil
}

// List retrieves all conversations for a user, most recently updated first
func (r *ConversationRepository) List(ctx context.Context, userID uuid.UUID) ([]*repository.Conversation, error) {
	var convs []*repository.Conversation
	query := `
		SELECT id, user_id, summary, created_at, updated_at
		FROM conversations
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`

	err := r.db.SelectContext(ctx, &convs, query, userID)
	if err != nil {
		return nil, err
	}

	return convs, nil
}

// UpdateSummary sets the conversation summary and advances updated_at
func (r *ConversationRepository) UpdateSummary(ctx context.Context, userID uuid.UUID, id string, summary string) error {
	query := `
		UPDATE conversations
		SET summary = $1, updated_at = $2
		WHERE id = $3 AND user_id = $4
	`

	result, err := r.db.ExecContext(ctx, query, summary, time.Now().UTC(), id, userID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete deletes a conversation and, via cascade, its transcript and memes
func (r *ConversationRepository) Delete(ctx context.Context, userID uuid.UUID, id string) error {
	query := `DELETE FROM conversations WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrNotFound
	}

	return nil
}
