package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"atfal-portal/internal/models"
)

// Message paging bounds.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 100
)

// MessageRepository defines interactions with the append-only message log.
type MessageRepository interface {
	Create(ctx context.Context, conversationID, senderID uuid.UUID, body string) (models.Message, error)
	Page(ctx context.Context, conversationID uuid.UUID, limit int, before *time.Time) ([]models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Create appends a message to a conversation with a server-assigned timestamp.
func (r *MessageRepo) Create(ctx context.Context, conversationID, senderID uuid.UUID, body string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (id, conversation_id, sender_id, body) VALUES ($1, $2, $3, $4)
         RETURNING id, conversation_id, sender_id, body, created_at`,
		uuid.New(), conversationID, senderID, body).
		StructScan(&msg)
	return msg, err
}

// Page returns up to limit messages, optionally those created before the
// cursor, in chronological order. Internally the newest messages are fetched
// first so the page always holds the most recent ones, then reversed. Ties on
// created_at have no guaranteed order.
func (r *MessageRepo) Page(ctx context.Context, conversationID uuid.UUID, limit int, before *time.Time) ([]models.Message, error) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	var msgs []models.Message
	var err error
	if before != nil {
		err = r.db.SelectContext(ctx, &msgs,
			`SELECT id, conversation_id, sender_id, body, created_at FROM messages
             WHERE conversation_id=$1 AND created_at < $2
             ORDER BY created_at DESC LIMIT $3`,
			conversationID, *before, limit)
	} else {
		err = r.db.SelectContext(ctx, &msgs,
			`SELECT id, conversation_id, sender_id, body, created_at FROM messages
             WHERE conversation_id=$1
             ORDER BY created_at DESC LIMIT $2`,
			conversationID, limit)
	}
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
