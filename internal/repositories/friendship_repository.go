package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"atfal-portal/internal/models"
)

// FriendshipRepository abstracts the symmetric friendship relation.
type FriendshipRepository interface {
	AreFriends(ctx context.Context, a, b uuid.UUID) (bool, error)
	FriendIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// FriendshipRepo is a sqlx implementation of FriendshipRepository.
// Rows are written only by FriendRequestRepo.Accept; friendships are never
// deleted.
type FriendshipRepo struct {
	db *sqlx.DB
}

// NewFriendshipRepo constructs a FriendshipRepo.
func NewFriendshipRepo(db *sqlx.DB) *FriendshipRepo {
	return &FriendshipRepo{db: db}
}

// AreFriends reports whether a friendship row exists for the unordered pair.
// Symmetric: AreFriends(a, b) == AreFriends(b, a).
func (r *FriendshipRepo) AreFriends(ctx context.Context, a, b uuid.UUID) (bool, error) {
	low, high := models.CanonicalPair(a, b)
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM friendships WHERE user1_id=$1 AND user2_id=$2)`, low, high)
	return exists, err
}

// FriendIDs returns the ids of every friend of the user.
func (r *FriendshipRepo) FriendIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var rows []models.Friendship
	err := r.db.SelectContext(ctx, &rows,
		`SELECT user1_id, user2_id, created_at FROM friendships WHERE user1_id=$1 OR user2_id=$1`, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, f := range rows {
		if f.User1ID == userID {
			ids = append(ids, f.User2ID)
		} else {
			ids = append(ids, f.User1ID)
		}
	}
	return ids, nil
}
