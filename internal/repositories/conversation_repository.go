package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"atfal-portal/internal/models"
	"atfal-portal/pkg/apperr"
)

// ConversationRepository owns conversation identity: at most one conversation
// exists per unordered user pair.
type ConversationRepository interface {
	CreateOrGet(ctx context.Context, userID, otherID uuid.UUID) (models.Conversation, bool, error)
	Get(ctx context.Context, conversationID uuid.UUID) (models.Conversation, error)
	IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.ConversationSummary, error)
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// CreateOrGet returns the conversation for the unordered pair, creating it on
// first contact. The boolean reports whether a new conversation was created.
//
// The pair_key UNIQUE constraint makes creation an atomic insert-if-absent:
// when two callers race on the same new pair, exactly one insert wins and the
// loser re-fetches the winner's row.
func (r *ConversationRepo) CreateOrGet(ctx context.Context, userID, otherID uuid.UUID) (models.Conversation, bool, error) {
	if userID == otherID {
		return models.Conversation{}, false, apperr.ErrSelfTarget
	}
	pairKey := models.PairKey(userID, otherID)

	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv,
		`SELECT id, pair_key, created_at FROM conversations WHERE pair_key=$1`, pairKey)
	if err == nil {
		return conv, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, false, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Conversation{}, false, err
	}
	defer tx.Rollback()

	err = tx.QueryRowxContext(ctx,
		`INSERT INTO conversations (id, pair_key) VALUES ($1, $2)
         ON CONFLICT (pair_key) DO NOTHING
         RETURNING id, pair_key, created_at`,
		uuid.New(), pairKey).
		StructScan(&conv)
	if errors.Is(err, sql.ErrNoRows) {
		// Lost the race: a concurrent caller created the conversation.
		var existing models.Conversation
		if err := r.db.GetContext(ctx, &existing,
			`SELECT id, pair_key, created_at FROM conversations WHERE pair_key=$1`, pairKey); err != nil {
			return models.Conversation{}, false, err
		}
		return existing, false, nil
	}
	if err != nil {
		return models.Conversation{}, false, err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO conversation_participants (conversation_id, user_id) VALUES ($1, $2), ($1, $3)`,
		conv.ID, userID, otherID); err != nil {
		return models.Conversation{}, false, err
	}

	if err := tx.Commit(); err != nil {
		return models.Conversation{}, false, err
	}
	return conv, true, nil
}

// Get fetches a conversation by id.
func (r *ConversationRepo) Get(ctx context.Context, conversationID uuid.UUID) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv,
		`SELECT id, pair_key, created_at FROM conversations WHERE id=$1`, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, apperr.ErrConversationNotFound
	}
	return conv, err
}

// IsParticipant checks whether the user belongs to the conversation.
func (r *ConversationRepo) IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM conversation_participants WHERE conversation_id=$1 AND user_id=$2)`,
		conversationID, userID)
	return exists, err
}

// ListForUser returns the user's conversations with the other participant and
// the latest message, ordered by most recent activity. Conversations without
// messages fall back to their creation time.
func (r *ConversationRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.ConversationSummary, error) {
	query := `SELECT c.id, p2.user_id AS other_user_id, m.body AS last_message,
            COALESCE(m.created_at, c.created_at) AS last_at, c.created_at
        FROM conversations c
        JOIN conversation_participants p1 ON p1.conversation_id = c.id AND p1.user_id = $1
        JOIN conversation_participants p2 ON p2.conversation_id = c.id AND p2.user_id <> $1
        LEFT JOIN LATERAL (
            SELECT body, created_at FROM messages
            WHERE conversation_id = c.id
            ORDER BY created_at DESC LIMIT 1
        ) m ON TRUE
        ORDER BY last_at DESC`
	var summaries []models.ConversationSummary
	err := r.db.SelectContext(ctx, &summaries, query, userID)
	return summaries, err
}
