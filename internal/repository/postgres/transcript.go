package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/memegen/memegen-backend/internal/repository"
)

// TranscriptRepository implements repository.TranscriptRepository using PostgreSQL
type TranscriptRepository struct {
	db *sqlx.DB
}

// NewTranscriptRepository creates a new PostgreSQL transcript repository
func NewTranscriptRepository(db *sqlx.DB) repository.TranscriptRepository {
	return &TranscriptRepository{db: db}
}

// Append stores a completed run's transcript segment. Segments are never
// updated after this point.
func (r *TranscriptRepository) Append(ctx context.Context, segment *repository.TranscriptSegment) error {
	if segment.ID == "" {
		segment.ID = uuid.New().String()
	}

	query := `
		INSERT INTO transcript_segments (id, conversation_id, payload, created_at)
		VALUES ($1, $2, $3, NOW())
	`

	_, err := r.db.ExecContext(ctx, query, segment.ID, segment.ConversationID, segment.Payload)
	return err
}

// ListByConversation retrieves all segments for a conversation in insertion order
func (r *TranscriptRepository) ListByConversation(ctx context.Context, conversationID string) ([]repository.TranscriptSegment, error) {
	var segments []repository.TranscriptSegment
	query := `
		SELECT id, conversation_id, payload, created_at
		FROM transcript_segments
		WHERE conversation_id = $1
		ORDER BY created_at ASC
	`

	err := r.db.SelectContext(ctx, &segments, query, conversationID)
	if err != nil {
		return nil, err
	}

	return segments, nil
}
