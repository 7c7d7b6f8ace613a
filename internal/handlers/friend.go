package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"atfal-portal/internal/directory"
	"atfal-portal/internal/models"
	"atfal-portal/internal/observability"
	"atfal-portal/internal/repositories"
	"atfal-portal/internal/telemetry"
	"atfal-portal/pkg/apperr"
)

const friendSearchLimit = 20

// FriendHandler manages the friend-request lifecycle and friend search.
type FriendHandler struct {
	requests    repositories.FriendRequestRepository
	friendships repositories.FriendshipRepository
	users       directory.Directory
	audit       *telemetry.AuditEmitter
}

// NewFriendHandler builds a FriendHandler.
func NewFriendHandler(requests repositories.FriendRequestRepository, friendships repositories.FriendshipRepository, users directory.Directory, audit *telemetry.AuditEmitter) *FriendHandler {
	return &FriendHandler{
		requests:    requests,
		friendships: friendships,
		users:       users,
		audit:       audit,
	}
}

// ListFriendRequests returns every request involving the caller, annotated
// with the counterparty's name and the direction relative to the caller.
func (h *FriendHandler) ListFriendRequests(c *gin.Context) {
	actor, ok := currentParty(c)
	if !ok {
		abortUnauthenticated(c)
		return
	}
	if actor.Role != models.RoleTifl {
		respondError(c, apperr.ErrTiflOnly)
		return
	}

	reqs, err := h.requests.ListForUser(c.Request.Context(), actor.ID)
	if err != nil {
		respondError(c, apperr.Wrap(apperr.CodeInternal, "failed to load friend requests", err))
		return
	}

	otherIDs := make([]uuid.UUID, 0, len(reqs))
	seen := map[uuid.UUID]struct{}{}
	for _, req := range reqs {
		other := req.ToUserID
		if other == actor.ID {
			other = req.FromUserID
		}
		if _, ok := seen[other]; !ok {
			seen[other] = struct{}{}
			otherIDs = append(otherIDs, other)
		}
	}

	// Name resolution is display-only; degrade to a placeholder on failure.
	names, err := h.users.UsersByIDs(c.Request.Context(), otherIDs)
	if err != nil {
		log.Printf("friend request name lookup failed: %v", err)
		names = map[uuid.UUID]models.User{}
	}

	views := make([]models.FriendRequestView, 0, len(reqs))
	for _, req := range reqs {
		other := req.ToUserID
		direction := "outgoing"
		if other == actor.ID {
			other = req.FromUserID
			direction = "incoming"
		}
		name := namePlaceholder
		if u, ok := names[other]; ok && u.Name != "" {
			name = u.Name
		}
		views = append(views, models.FriendRequestView{
			FriendRequest: req,
			OtherName:     name,
			Direction:     direction,
		})
	}

	c.JSON(http.StatusOK, gin.H{"list": views})
}

// SendFriendRequest creates a pending request from the caller to another tifl.
func (h *FriendHandler) SendFriendRequest(c *gin.Context) {
	actor, ok := currentParty(c)
	if !ok {
		abortUnauthenticated(c)
		return
	}
	if actor.Role != models.RoleTifl {
		respondError(c, apperr.ErrTiflOnly)
		return
	}

	var req struct {
		ToUserID       string `json:"to_user_id" binding:"required"`
		InitialMessage string `json:"initial_message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.InvalidArg(err.Error()))
		return
	}

	toID, err := uuid.Parse(req.ToUserID)
	if err != nil {
		respondError(c, apperr.InvalidArg("invalid to_user_id"))
		return
	}
	if toID == actor.ID {
		respondError(c, apperr.ErrSelfTarget)
		return
	}

	target, err := h.users.GetUser(c.Request.Context(), toID)
	if err != nil {
		respondError(c, err)
		return
	}
	if target.Role != models.RoleTifl {
		respondError(c, apperr.InvalidArg("user is not a tifl"))
		return
	}

	friends, err := h.friendships.AreFriends(c.Request.Context(), actor.ID, toID)
	if err != nil {
		respondError(c, apperr.Wrap(apperr.CodeInternal, "failed to check friendship", err))
		return
	}
	if friends {
		respondError(c, apperr.ErrAlreadyFriends)
		return
	}

	exists, err := h.requests.ExistsForPair(c.Request.Context(), actor.ID, toID)
	if err != nil {
		respondError(c, apperr.Wrap(apperr.CodeInternal, "failed to check existing requests", err))
		return
	}
	if exists {
		respondError(c, apperr.ErrRequestExists)
		return
	}

	var initialMessage *string
	if trimmed := strings.TrimSpace(req.InitialMessage); trimmed != "" {
		initialMessage = &trimmed
	}

	created, err := h.requests.Create(c.Request.Context(), actor.ID, toID, initialMessage)
	if err != nil {
		respondError(c, err)
		return
	}

	observability.IncFriendRequestEvent("created")
	h.audit.Emit(c.Request.Context(), "friend_request.created", requestIDFromContext(c), &actor.ID, gin.H{
		"request_id": created.ID,
		"to_user_id": toID,
	})
	c.JSON(http.StatusCreated, gin.H{"id": created.ID})
}

// RespondFriendRequest lets the recipient accept or reject a pending request.
// Acceptance writes the canonical friendship row; both outcomes are terminal.
func (h *FriendHandler) RespondFriendRequest(c *gin.Context) {
	actor, ok := currentParty(c)
	if !ok {
		abortUnauthenticated(c)
		return
	}
	if actor.Role != models.RoleTifl {
		respondError(c, apperr.ErrTiflOnly)
		return
	}

	requestID, err := uuid.Parse(c.Param("request_id"))
	if err != nil {
		respondError(c, apperr.InvalidArg("invalid request id"))
		return
	}

	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, apperr.InvalidArg(err.Error()))
		return
	}
	status := models.FriendRequestStatus(body.Status)
	if status != models.FriendRequestAccepted && status != models.FriendRequestRejected {
		respondError(c, apperr.InvalidArg("status must be accepted or rejected"))
		return
	}

	req, err := h.requests.GetByID(c.Request.Context(), requestID)
	if err != nil {
		respondError(c, err)
		return
	}
	if req.ToUserID != actor.ID {
		respondError(c, apperr.ErrNotRecipient)
		return
	}

	if status == models.FriendRequestAccepted {
		err = h.requests.Accept(c.Request.Context(), requestID)
	} else {
		err = h.requests.Reject(c.Request.Context(), requestID)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	observability.IncFriendRequestEvent(string(status))
	h.audit.Emit(c.Request.Context(), "friend_request."+string(status), requestIDFromContext(c), &actor.ID, gin.H{
		"request_id":   requestID,
		"from_user_id": req.FromUserID,
	})
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// SearchFriendCandidates returns tifls matching the query who could still
// receive a friend request: not the caller, not already friends, no pending
// request in either direction. Queries under two characters return an empty
// list, not an error.
func (h *FriendHandler) SearchFriendCandidates(c *gin.Context) {
	actor, ok := currentParty(c)
	if !ok {
		abortUnauthenticated(c)
		return
	}
	if actor.Role != models.RoleTifl {
		respondError(c, apperr.ErrTiflOnly)
		return
	}

	query := strings.TrimSpace(c.Query("q"))
	if len(query) < 2 {
		c.JSON(http.StatusOK, gin.H{"users": []models.User{}})
		return
	}

	friendIDs, err := h.friendships.FriendIDs(c.Request.Context(), actor.ID)
	if err != nil {
		respondError(c, apperr.Wrap(apperr.CodeInternal, "failed to load friends", err))
		return
	}
	pendingIDs, err := h.requests.PendingCounterparties(c.Request.Context(), actor.ID)
	if err != nil {
		respondError(c, apperr.Wrap(apperr.CodeInternal, "failed to load pending requests", err))
		return
	}

	excluded := map[uuid.UUID]struct{}{actor.ID: {}}
	for _, id := range friendIDs {
		excluded[id] = struct{}{}
	}
	for _, id := range pendingIDs {
		excluded[id] = struct{}{}
	}

	matches, err := h.users.SearchTifls(c.Request.Context(), query, friendSearchLimit)
	if err != nil {
		respondError(c, apperr.Wrap(apperr.CodeInternal, "failed to search users", err))
		return
	}

	type candidate struct {
		ID   uuid.UUID `json:"id"`
		Name string    `json:"name"`
	}
	candidates := make([]candidate, 0, len(matches))
	for _, u := range matches {
		if _, skip := excluded[u.ID]; skip {
			continue
		}
		candidates = append(candidates, candidate{ID: u.ID, Name: u.Name})
	}

	c.JSON(http.StatusOK, gin.H{"users": candidates})
}

// NazimContacts returns the caller's local nazim and a regional nazim as
// messaging entry points.
func (h *FriendHandler) NazimContacts(c *gin.Context) {
	actor, ok := currentParty(c)
	if !ok {
		abortUnauthenticated(c)
		return
	}
	if actor.Role != models.RoleTifl {
		respondError(c, apperr.Forbidden("only tifls have nazim contacts"))
		return
	}

	local, regional, err := h.users.NazimContacts(c.Request.Context(), actor.MajlisID)
	if err != nil {
		respondError(c, apperr.Wrap(apperr.CodeInternal, "failed to load contacts", err))
		return
	}

	type contact struct {
		ID   uuid.UUID `json:"id"`
		Name string    `json:"name"`
	}
	resp := gin.H{"local_nazim": nil, "regional_nazim": nil}
	if local != nil {
		name := local.Name
		if name == "" {
			name = "Local Nazim Atfal"
		}
		resp["local_nazim"] = contact{ID: local.ID, Name: name}
	}
	if regional != nil {
		name := regional.Name
		if name == "" {
			name = "Regional Nazim Atfal"
		}
		resp["regional_nazim"] = contact{ID: regional.ID, Name: name}
	}

	c.JSON(http.StatusOK, resp)
}
