package handlers

import (
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"atfal-portal/internal/authz"
	"atfal-portal/internal/directory"
	"atfal-portal/internal/models"
	"atfal-portal/internal/observability"
	"atfal-portal/internal/repositories"
	"atfal-portal/internal/telemetry"
	"atfal-portal/pkg/apperr"
)

// ConversationHandler manages conversation resolution and the message log.
type ConversationHandler struct {
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	friendships   repositories.FriendshipRepository
	users         directory.Directory
	audit         *telemetry.AuditEmitter
}

// NewConversationHandler builds a ConversationHandler.
func NewConversationHandler(conversations repositories.ConversationRepository, messages repositories.MessageRepository, friendships repositories.FriendshipRepository, users directory.Directory, audit *telemetry.AuditEmitter) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		messages:      messages,
		friendships:   friendships,
		users:         users,
		audit:         audit,
	}
}

// StartConversation resolves or creates the single conversation between the
// caller and another user, subject to the contact policy. Repeated calls for
// the same pair return the same conversation id.
func (h *ConversationHandler) StartConversation(c *gin.Context) {
	actor, ok := currentParty(c)
	if !ok {
		abortUnauthenticated(c)
		return
	}

	var req struct {
		OtherUserID string `json:"other_user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.InvalidArg(err.Error()))
		return
	}

	otherID, err := uuid.Parse(req.OtherUserID)
	if err != nil {
		respondError(c, apperr.InvalidArg("invalid other_user_id"))
		return
	}
	if otherID == actor.ID {
		respondError(c, apperr.InvalidArg("cannot message yourself"))
		return
	}

	other, err := h.users.GetUser(c.Request.Context(), otherID)
	if err != nil {
		respondError(c, err)
		return
	}

	// Friendship state only gates the tifl–tifl pairing.
	areFriends := false
	if actor.Role == models.RoleTifl && other.Role == models.RoleTifl {
		areFriends, err = h.friendships.AreFriends(c.Request.Context(), actor.ID, otherID)
		if err != nil {
			respondError(c, apperr.Wrap(apperr.CodeInternal, "failed to check friendship", err))
			return
		}
	}

	decision := authz.CanContact(actor, authz.Party{ID: other.ID, Role: other.Role, MajlisID: other.MajlisID}, areFriends)
	if !decision.Allowed {
		observability.IncContactDenied(decision.Reason)
		respondError(c, apperr.Forbidden(decision.Reason))
		return
	}

	conv, created, err := h.conversations.CreateOrGet(c.Request.Context(), actor.ID, otherID)
	if err != nil {
		respondError(c, err)
		return
	}

	if created {
		observability.IncConversationCreated()
		h.audit.Emit(c.Request.Context(), "conversation.created", requestIDFromContext(c), &actor.ID, gin.H{
			"conversation_id": conv.ID,
			"other_user_id":   otherID,
		})
	}
	c.JSON(http.StatusOK, gin.H{"id": conv.ID})
}

// ListConversations returns the caller's conversations ordered by most recent
// activity, with the other party's name and a last-message preview.
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	actor, ok := currentParty(c)
	if !ok {
		abortUnauthenticated(c)
		return
	}

	summaries, err := h.conversations.ListForUser(c.Request.Context(), actor.ID)
	if err != nil {
		respondError(c, apperr.Wrap(apperr.CodeInternal, "failed to load conversations", err))
		return
	}

	otherIDs := make([]uuid.UUID, 0, len(summaries))
	for _, s := range summaries {
		otherIDs = append(otherIDs, s.OtherUserID)
	}
	names, err := h.users.UsersByIDs(c.Request.Context(), otherIDs)
	if err != nil {
		log.Printf("conversation name lookup failed: %v", err)
		names = map[uuid.UUID]models.User{}
	}

	for i := range summaries {
		summaries[i].OtherName = namePlaceholder
		if u, ok := names[summaries[i].OtherUserID]; ok && u.Name != "" {
			summaries[i].OtherName = u.Name
		}
	}

	c.JSON(http.StatusOK, gin.H{"conversations": summaries})
}

// GetMessages returns a chronological page of messages.
func (h *ConversationHandler) GetMessages(c *gin.Context) {
	actor, ok := currentParty(c)
	if !ok {
		abortUnauthenticated(c)
		return
	}

	conversationID, err := uuid.Parse(c.Param("conversation_id"))
	if err != nil {
		respondError(c, apperr.InvalidArg("invalid conversation id"))
		return
	}
	if err := h.checkAccess(c, conversationID, actor); err != nil {
		respondError(c, err)
		return
	}

	limit := repositories.DefaultPageLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(c, apperr.InvalidArg("invalid limit"))
			return
		}
		limit = parsed
	}

	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			respondError(c, apperr.InvalidArg("before must be an RFC 3339 timestamp"))
			return
		}
		before = &parsed
	}

	msgs, err := h.messages.Page(c.Request.Context(), conversationID, limit, before)
	if err != nil {
		respondError(c, apperr.Wrap(apperr.CodeInternal, "failed to load messages", err))
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostMessage appends a message to the conversation.
func (h *ConversationHandler) PostMessage(c *gin.Context) {
	actor, ok := currentParty(c)
	if !ok {
		abortUnauthenticated(c)
		return
	}

	conversationID, err := uuid.Parse(c.Param("conversation_id"))
	if err != nil {
		respondError(c, apperr.InvalidArg("invalid conversation id"))
		return
	}
	if err := h.checkAccess(c, conversationID, actor); err != nil {
		respondError(c, err)
		return
	}

	var req struct {
		Body string `json:"body"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.InvalidArg(err.Error()))
		return
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		respondError(c, apperr.ErrEmptyBody)
		return
	}

	msg, err := h.messages.Create(c.Request.Context(), conversationID, actor.ID, body)
	if err != nil {
		respondError(c, apperr.Wrap(apperr.CodeInternal, "failed to store message", err))
		return
	}

	observability.IncMessageSent()
	h.audit.Emit(c.Request.Context(), "message.sent", requestIDFromContext(c), &actor.ID, gin.H{
		"conversation_id": conversationID,
		"message_id":      msg.ID,
	})
	c.JSON(http.StatusCreated, msg)
}

// checkAccess allows participants, plus regional nazims for oversight.
func (h *ConversationHandler) checkAccess(c *gin.Context, conversationID uuid.UUID, actor authz.Party) error {
	if _, err := h.conversations.Get(c.Request.Context(), conversationID); err != nil {
		return err
	}

	member, err := h.conversations.IsParticipant(c.Request.Context(), conversationID, actor.ID)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "failed to verify membership", err)
	}
	if member || actor.Role == models.RoleRegionalNazim {
		return nil
	}
	return apperr.ErrNotParticipant
}
