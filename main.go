package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"atfal-portal/internal/db"
	"atfal-portal/internal/directory"
	"atfal-portal/internal/handlers"
	"atfal-portal/internal/middleware"
	"atfal-portal/internal/observability"
	"atfal-portal/internal/rabbitmq"
	"atfal-portal/internal/repositories"
	"atfal-portal/internal/telemetry"
)

const serviceName = "atfal-portal-messaging"

func main() {
	database, err := db.Connect()
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	shutdownTracer, err := observability.InitTracer(context.Background(), serviceName, getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""))
	if err != nil {
		log.Fatalf("failed to init tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Printf("tracer shutdown: %v", err)
		}
	}()

	publisher := rabbitmq.NewPublisher(getEnv("AMQP_URL", ""), getEnv("AMQP_EXCHANGE", "portal.events"))
	defer publisher.Close()
	log.Printf("audit publisher mode=%s", rabbitmq.PublisherMode(publisher))

	audit := telemetry.NewAuditEmitter(publisher, serviceName, getEnv("ENVIRONMENT", "development"))

	users := directory.NewSQLDirectory(database)
	friendshipRepo := repositories.NewFriendshipRepo(database)
	friendRequestRepo := repositories.NewFriendRequestRepo(database)
	conversationRepo := repositories.NewConversationRepo(database)
	messageRepo := repositories.NewMessageRepo(database)

	friendHandler := handlers.NewFriendHandler(friendRequestRepo, friendshipRepo, users, audit)
	conversationHandler := handlers.NewConversationHandler(conversationRepo, messageRepo, friendshipRepo, users, audit)

	router := gin.Default()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	jwtSecret := []byte(getEnv("JWT_SECRET", "dev-secret"))
	authMiddleware := middleware.AuthMiddleware(jwtSecret)

	router.POST("/friend-requests", authMiddleware, friendHandler.SendFriendRequest)
	router.PATCH("/friend-requests/:request_id", authMiddleware, friendHandler.RespondFriendRequest)
	router.GET("/friend-requests", authMiddleware, friendHandler.ListFriendRequests)
	router.GET("/friends/search", authMiddleware, friendHandler.SearchFriendCandidates)
	router.GET("/nazim-contacts", authMiddleware, friendHandler.NazimContacts)

	router.POST("/conversations", authMiddleware, conversationHandler.StartConversation)
	router.GET("/conversations", authMiddleware, conversationHandler.ListConversations)
	router.GET("/conversations/:conversation_id/messages", authMiddleware, conversationHandler.GetMessages)
	router.POST("/conversations/:conversation_id/messages", authMiddleware, conversationHandler.PostMessage)

	handlers.RegisterDebugRoutes(router, audit, getEnv("DEBUG_ROUTES", "") == "true")

	port := getEnv("PORT", "8083")
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
