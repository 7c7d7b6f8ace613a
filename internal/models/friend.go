package models

import (
	"time"

	"github.com/google/uuid"
)

// FriendRequestStatus is the lifecycle state of a friend request.
type FriendRequestStatus string

const (
	FriendRequestPending  FriendRequestStatus = "pending"
	FriendRequestAccepted FriendRequestStatus = "accepted"
	FriendRequestRejected FriendRequestStatus = "rejected"
)

// FriendRequest is a directed request from one tifl to another. The
// (from, to) pair is not canonicalized; at most one row may exist per
// ordered pair regardless of status.
type FriendRequest struct {
	ID             uuid.UUID           `db:"id" json:"id"`
	FromUserID     uuid.UUID           `db:"from_user_id" json:"from_user_id"`
	ToUserID       uuid.UUID           `db:"to_user_id" json:"to_user_id"`
	Status         FriendRequestStatus `db:"status" json:"status"`
	InitialMessage *string             `db:"initial_message" json:"initial_message,omitempty"`
	CreatedAt      time.Time           `db:"created_at" json:"created_at"`
	RespondedAt    *time.Time          `db:"responded_at" json:"responded_at,omitempty"`
}

// FriendRequestView annotates a request with display data relative to one user.
type FriendRequestView struct {
	FriendRequest
	OtherName string `json:"other_name"`
	Direction string `json:"direction"` // incoming or outgoing
}

// Friendship is the symmetric is-friends-with relation between two tifls,
// stored once per pair with User1ID < User2ID on the uuid text form.
type Friendship struct {
	User1ID   uuid.UUID `db:"user1_id" json:"user1_id"`
	User2ID   uuid.UUID `db:"user2_id" json:"user2_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CanonicalPair orders two user ids lexicographically so an unordered pair
// maps to exactly one stored row.
func CanonicalPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if a.String() < b.String() {
		return a, b
	}
	return b, a
}
