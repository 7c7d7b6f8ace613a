package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"atfal-portal/internal/models"
	"atfal-portal/pkg/apperr"
)

const pqUniqueViolation = "23505"

// FriendRequestRepository abstracts friend-request persistence and the
// accept/reject lifecycle.
type FriendRequestRepository interface {
	Create(ctx context.Context, fromID, toID uuid.UUID, initialMessage *string) (models.FriendRequest, error)
	GetByID(ctx context.Context, id uuid.UUID) (models.FriendRequest, error)
	ExistsForPair(ctx context.Context, fromID, toID uuid.UUID) (bool, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.FriendRequest, error)
	PendingCounterparties(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	Accept(ctx context.Context, id uuid.UUID) error
	Reject(ctx context.Context, id uuid.UUID) error
}

// FriendRequestRepo is a sqlx implementation of FriendRequestRepository.
type FriendRequestRepo struct {
	db *sqlx.DB
}

// NewFriendRequestRepo constructs a FriendRequestRepo.
func NewFriendRequestRepo(db *sqlx.DB) *FriendRequestRepo {
	return &FriendRequestRepo{db: db}
}

// Create inserts a pending request. The UNIQUE(from_user_id, to_user_id)
// constraint rejects a second request for the same ordered pair regardless of
// the first one's status.
func (r *FriendRequestRepo) Create(ctx context.Context, fromID, toID uuid.UUID, initialMessage *string) (models.FriendRequest, error) {
	var req models.FriendRequest
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO friend_requests (id, from_user_id, to_user_id, status, initial_message)
         VALUES ($1, $2, $3, $4, $5)
         RETURNING id, from_user_id, to_user_id, status, initial_message, created_at, responded_at`,
		uuid.New(), fromID, toID, models.FriendRequestPending, initialMessage).
		StructScan(&req)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return models.FriendRequest{}, apperr.ErrRequestExists
		}
		return models.FriendRequest{}, err
	}
	return req, nil
}

// GetByID fetches a single request.
func (r *FriendRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (models.FriendRequest, error) {
	var req models.FriendRequest
	err := r.db.GetContext(ctx, &req,
		`SELECT id, from_user_id, to_user_id, status, initial_message, created_at, responded_at
         FROM friend_requests WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.FriendRequest{}, apperr.ErrRequestNotFound
	}
	return req, err
}

// ExistsForPair reports whether any request exists for the ordered pair.
func (r *FriendRequestRepo) ExistsForPair(ctx context.Context, fromID, toID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM friend_requests WHERE from_user_id=$1 AND to_user_id=$2)`, fromID, toID)
	return exists, err
}

// ListForUser returns every request where the user is either party, newest
// first.
func (r *FriendRequestRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.FriendRequest, error) {
	var reqs []models.FriendRequest
	err := r.db.SelectContext(ctx, &reqs,
		`SELECT id, from_user_id, to_user_id, status, initial_message, created_at, responded_at
         FROM friend_requests
         WHERE from_user_id=$1 OR to_user_id=$1
         ORDER BY created_at DESC`, userID)
	return reqs, err
}

// PendingCounterparties returns ids of users with a pending request in either
// direction with the user. Used to exclude them from friend search.
func (r *FriendRequestRepo) PendingCounterparties(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var rows []models.FriendRequest
	err := r.db.SelectContext(ctx, &rows,
		`SELECT id, from_user_id, to_user_id, status, initial_message, created_at, responded_at
         FROM friend_requests
         WHERE (from_user_id=$1 OR to_user_id=$1) AND status=$2`,
		userID, models.FriendRequestPending)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, req := range rows {
		if req.FromUserID == userID {
			ids = append(ids, req.ToUserID)
		} else {
			ids = append(ids, req.FromUserID)
		}
	}
	return ids, nil
}

// Accept transitions a pending request to accepted and upserts the canonical
// friendship row in the same transaction. A request that is no longer pending
// is rejected with ErrRequestResponded; the friendship upsert is keyed on the
// canonical pair so repeated acceptance attempts cannot create duplicates.
func (r *FriendRequestRepo) Accept(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var req models.FriendRequest
	err = tx.QueryRowxContext(ctx,
		`UPDATE friend_requests SET status=$1, responded_at=NOW()
         WHERE id=$2 AND status=$3
         RETURNING id, from_user_id, to_user_id, status, initial_message, created_at, responded_at`,
		models.FriendRequestAccepted, id, models.FriendRequestPending).
		StructScan(&req)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.ErrRequestResponded
	}
	if err != nil {
		return err
	}

	low, high := models.CanonicalPair(req.FromUserID, req.ToUserID)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO friendships (user1_id, user2_id) VALUES ($1, $2)
         ON CONFLICT (user1_id, user2_id) DO NOTHING`, low, high); err != nil {
		return err
	}

	return tx.Commit()
}

// Reject transitions a pending request to rejected.
func (r *FriendRequestRepo) Reject(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE friend_requests SET status=$1, responded_at=NOW() WHERE id=$2 AND status=$3`,
		models.FriendRequestRejected, id, models.FriendRequestPending)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return apperr.ErrRequestResponded
	}
	return nil
}
