package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"atfal-portal/internal/authz"
	"atfal-portal/internal/middleware"
	"atfal-portal/internal/models"
	"atfal-portal/pkg/apperr"
)

const requestIDContextKey = "request_id"

// namePlaceholder is shown when a counterparty's record cannot be resolved.
const namePlaceholder = "—"

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

// currentParty reads the authenticated caller's identity set by the auth
// middleware.
func currentParty(c *gin.Context) (authz.Party, bool) {
	idVal, ok := c.Get(middleware.ContextUserID)
	if !ok {
		return authz.Party{}, false
	}
	userID, ok := idVal.(uuid.UUID)
	if !ok {
		return authz.Party{}, false
	}

	roleVal, ok := c.Get(middleware.ContextRole)
	if !ok {
		return authz.Party{}, false
	}
	role, ok := roleVal.(models.Role)
	if !ok {
		return authz.Party{}, false
	}

	party := authz.Party{ID: userID, Role: role}
	if majlisVal, ok := c.Get(middleware.ContextMajlisID); ok {
		if majlisID, ok := majlisVal.(uuid.UUID); ok {
			party.MajlisID = &majlisID
		}
	}
	return party, true
}

// respondError maps an error chain to its HTTP status and safe message.
func respondError(c *gin.Context, err error) {
	code := apperr.CodeOf(err)
	c.JSON(apperr.HTTPStatus(code), gin.H{"error": apperr.MessageOf(err)})
}

func abortUnauthenticated(c *gin.Context) {
	respondError(c, apperr.Unauthorized("missing identity"))
}
