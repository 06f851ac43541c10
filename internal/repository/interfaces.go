package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested row does not exist or is not
// owned by the requesting user.
var ErrNotFound = errors.New("not found")

// User represents a registered account
type User struct {
	ID           uuid.UUID `db:"id"`
	Email        string    `db:"email"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

// Conversation represents one meme-generation conversation.
// Summary is written once the orchestrator has confidently identified the
// user's intent; updated_at advances on every write.
type Conversation struct {
	ID        string         `db:"id"`
	UserID    uuid.UUID      `db:"user_id"`
	Summary   sql.NullString `db:"summary"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

// TranscriptSegment is the opaque, append-only record of one orchestrator
// run: the user prompt, intermediate tool calls/results, and model responses,
// serialized so the next run can replay them verbatim as context.
type TranscriptSegment struct {
	ID             string    `db:"id"`
	ConversationID string    `db:"conversation_id"`
	Payload        []byte    `db:"payload"`
	CreatedAt      time.Time `db:"created_at"`
}

// Meme is a generated meme image. ProviderHandle is the opaque identifier
// returned by the image provider, required for follow-up modifications.
type Meme struct {
	ID             string    `db:"id"`
	ConversationID string    `db:"conversation_id"`
	UserID         uuid.UUID `db:"user_id"`
	ImageURL       string    `db:"image_url"`
	ProviderHandle string    `db:"provider_handle"`
	IsFavorite     bool      `db:"is_favorite"`
	CreatedAt      time.Time `db:"created_at"`
}

// UserRepository defines user storage operations
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
}

// ConversationRepository defines conversation storage operations
type ConversationRepository interface {
	Create(ctx context.Context, conv *Conversation) error
	Get(ctx context.Context, userID uuid.UUID, id string) (*Conversation, error)
	List(ctx context.Context, userID uuid.UUID) ([]*Conversation, error)
	UpdateSummary(ctx context.Context, userID uuid.UUID, id string, summary string) error
	Delete(ctx context.Context, userID uuid.UUID, id string) error
}

// TranscriptRepository defines transcript segment storage operations.
// Segments are append-only; there is deliberately no update method.
type TranscriptRepository interface {
	Append(ctx context.Context, segment *TranscriptSegment) error
	ListByConversation(ctx context.Context, conversationID string) ([]TranscriptSegment, error)
}

// MemeRepository defines generated-meme storage operations
type MemeRepository interface {
	Create(ctx context.Context, meme *Meme) error
	LatestByConversation(ctx context.Context, conversationID string) (*Meme, error)
	ListByConversation(ctx context.Context, conversationID string) ([]*Meme, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Meme, error)
	MarkLatestFavorite(ctx context.Context, conversationID string) (string, error)
	SetFavorite(ctx context.Context, userID uuid.UUID, id string, favorite bool) error
	Delete(ctx context.Context, userID uuid.UUID, id string) error
}
