package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/memegen/memegen-backend/internal/repository"
)

// MemeRepository implements repository.MemeRepository using PostgreSQL
type MemeRepository struct {
	db *sqlx.DB
}

// NewMemeRepository creates a new PostgreSQL meme repository
func NewMemeRepository(db *sqlx.DB) repository.MemeRepository {
	return &MemeRepository{db: db}
}

// Create stores a newly generated meme
func (r *MemeRepository) Create(ctx context.Context, meme *repository.Meme) error {
	if meme.ID == "" {
		meme.ID = uuid.New().String()
	}
	meme.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO user_memes (id, conversation_id, user_id, image_url, provider_handle, is_favorite, created_at)
		VALUES (:id, :conversation_id, :user_id, :image_url, :provider_handle, :is_favorite, :created_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, meme)
	return err
}

// LatestByConversation returns the most recent meme in a conversation.
// Returns repository.ErrNotFound if the conversation has no memes yet.
func (r *MemeRepository) LatestByConversation(ctx context.Context, conversationID string) (*repository.Meme, error) {
	var meme repository.Meme
	query := `
		SELECT id, conversation_id, user_id, image_url, provider_handle, is_favorite, created_at
		FROM user_memes
		WHERE conversation_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	err := r.db.GetContext(ctx, &meme, query, conversationID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &meme, nil
}

// ListByConversation retrieves all memes in a conversation, newest first
func (r *MemeRepository) ListByConversation(ctx context.Context, conversationID string) ([]*repository.Meme, error) {
	var memes []*repository.Meme
	query := `
		SELECT id, conversation_id, user_id, image_url, provider_handle, is_favorite, created_at
		FROM user_memes
		WHERE conversation_id = $1
		ORDER BY created_at DESC
	`

	err := r.db.SelectContext(ctx, &memes, query, conversationID)
	if err != nil {
		return nil, err
	}

	return memes, nil
}

// ListByUser retrieves all memes owned by a user, newest first
func (r *MemeRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*repository.Meme, error) {
	var memes []*repository.Meme
	query := `
		SELECT id, conversation_id, user_id, image_url, provider_handle, is_favorite, created_at
		FROM user_memes
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	err := r.db.SelectContext(ctx, &memes, query, userID)
	if err != nil {
		return nil, err
	}

	return memes, nil
}

// MarkLatestFavorite flags the most recent meme in a conversation as a
// favorite and returns its ID. Returns repository.ErrNotFound if the
// conversation has no memes.
func (r *MemeRepository) MarkLatestFavorite(ctx context.Context, conversationID string) (string, error) {
	var id string
	query := `
		UPDATE user_memes
		SET is_favorite = TRUE
		WHERE id = (
			SELECT id FROM user_memes
			WHERE conversation_id = $1
			ORDER BY created_at DESC
			LIMIT 1
		)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query, conversationID).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", repository.ErrNotFound
		}
		return "", err
	}

	return id, nil
}

// SetFavorite sets the favorite flag on a meme, scoped to the owning user
func (r *MemeRepository) SetFavorite(ctx context.Context, userID uuid.UUID, id string, favorite bool) error {
	query := `
		UPDATE user_memes
		SET is_favorite = $1
		WHERE id = $2 AND user_id = $3
	`

	result, err := r.db.ExecContext(ctx, query, favorite, id, userID)
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

// Delete removes a meme, scoped to the owning user
func (r *MemeRepository) Delete(ctx context.Context, userID uuid.UUID, id string) error {
	query := `DELETE FROM user_memes WHERE id = $1 AND user_id = $2`
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
