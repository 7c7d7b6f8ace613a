package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"atfal-portal/internal/models"
)

// Context keys set by AuthMiddleware.
const (
	ContextUserID   = "userID"
	ContextRole     = "role"
	ContextMajlisID = "majlisID"
)

type portalClaims struct {
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	MajlisID string `json:"majlis_id,omitempty"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates the bearer token issued by the portal and sets the
// caller's identity on the request context.
func AuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		claims := &portalClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		role := models.Role(claims.Role)
		if !role.Valid() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextRole, role)
		if claims.MajlisID != "" {
			if majlisID, err := uuid.Parse(claims.MajlisID); err == nil {
				c.Set(ContextMajlisID, majlisID)
			}
		}
		c.Next()
	}
}

// IssueToken signs a portal token for a user. Used by tests and local tooling;
// production tokens come from the portal itself.
func IssueToken(secret []byte, userID uuid.UUID, role models.Role, majlisID *uuid.UUID) (string, error) {
	claims := portalClaims{
		UserID: userID.String(),
		Role:   string(role),
	}
	if majlisID != nil {
		claims.MajlisID = majlisID.String()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
