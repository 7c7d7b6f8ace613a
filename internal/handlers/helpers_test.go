package handlers

import (
	"github.com/gin-gonic/gin"

	"atfal-portal/internal/authz"
	"atfal-portal/internal/middleware"
)

// newTestRouter builds a router that authenticates every request as the given
// party, matching what the auth middleware would set.
func newTestRouter(party authz.Party) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, party.ID)
		c.Set(middleware.ContextRole, party.Role)
		if party.MajlisID != nil {
			c.Set(middleware.ContextMajlisID, *party.MajlisID)
		}
		c.Next()
	})
	return r
}

func registerFriendRoutes(r *gin.Engine, handler *FriendHandler) {
	r.GET("/friend-requests", handler.ListFriendRequests)
	r.POST("/friend-requests", handler.SendFriendRequest)
	r.PATCH("/friend-requests/:request_id", handler.RespondFriendRequest)
	r.GET("/friends/search", handler.SearchFriendCandidates)
	r.GET("/nazim-contacts", handler.NazimContacts)
}

func registerConversationRoutes(r *gin.Engine, handler *ConversationHandler) {
	r.POST("/conversations", handler.StartConversation)
	r.GET("/conversations", handler.ListConversations)
	r.GET("/conversations/:conversation_id/messages", handler.GetMessages)
	r.POST("/conversations/:conversation_id/messages", handler.PostMessage)
}
