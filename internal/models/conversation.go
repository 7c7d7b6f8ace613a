package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is a private conversation between exactly two users.
// PairKey is derived from the canonical participant pair and carries the
// uniqueness constraint that guarantees at most one conversation per pair.
type Conversation struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PairKey   string    `db:"pair_key" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ConversationParticipant links a user to a conversation.
type ConversationParticipant struct {
	ConversationID uuid.UUID `db:"conversation_id" json:"conversation_id"`
	UserID         uuid.UUID `db:"user_id" json:"user_id"`
}

// ConversationSummary is the per-user list view of a conversation.
type ConversationSummary struct {
	ID          uuid.UUID `db:"id" json:"id"`
	OtherUserID uuid.UUID `db:"other_user_id" json:"other_user_id"`
	OtherName   string    `json:"other_name"`
	LastMessage *string   `db:"last_message" json:"last_message"`
	LastAt      time.Time `db:"last_at" json:"last_at"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// PairKey derives the unique storage key for an unordered user pair.
func PairKey(a, b uuid.UUID) string {
	low, high := CanonicalPair(a, b)
	return low.String() + ":" + high.String()
}
