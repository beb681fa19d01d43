package http

import (
	"time"

	"github.com/gin-gonic/gin"

	appsvc "docuchat/internal/app"
	"docuchat/internal/bootstrap"
	"docuchat/internal/cache"
	"docuchat/internal/pkg/mailer"
	"docuchat/internal/platform/rabbitmq"
	"docuchat/internal/repository"
	"docuchat/internal/transport/http/handler"
	"docuchat/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(middleware.CORS(app.Config.App.CORSOrigins))

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	userRepo := repository.NewUserRepository(app.MySQL)
	sessionRepo := repository.NewSessionRepository(app.MySQL)
	messageRepo := repository.NewMessageRepository(app.MySQL)
	usageRepo := repository.NewUsageStatRepository(app.MySQL)

	historyCache := cache.NewHistoryCache(
		app.Redis,
		time.Duration(app.Config.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(app.Config.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)
	publisher := rabbitmq.NewMessagePublisher(app.MQConn, app.Config.RabbitMQ.MessagePersistQueue)
	mail := mailer.New(
		app.Config.Mail.Host,
		app.Config.Mail.Port,
		app.Config.Mail.Username,
		app.Config.Mail.Password,
		app.Config.Mail.From,
	)

	usageService := appsvc.NewUsageService(usageRepo)
	authService := appsvc.NewAuthService(
		userRepo,
		mail,
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.JWTExpireMinute)*time.Minute,
		time.Duration(app.Config.Auth.ResetExpireMinute)*time.Minute,
	)
	chatService := appsvc.NewChatService(
		sessionRepo,
		messageRepo,
		publisher,
		historyCache,
		app.Responder,
		app.Index,
		usageService,
		app.Config.RAG.MaxContextMessages,
	)
	documentService := appsvc.NewDocumentService(sessionRepo, app.Ingestor, usageService)

	authHandler := handler.NewAuthHandler(authService)
	chatHandler := handler.NewChatHandler(chatService)
	documentHandler := handler.NewDocumentHandler(documentService)
	usageHandler := handler.NewUsageHandler(usageService)

	authJWT := middleware.AuthJWT(app.Config.Auth.JWTSecret)
	chatLimit := middleware.RateLimit(app.Config.RateLimit.ChatPerMinute, app.Config.RateLimit.Burst)

	v1 := router.Group("/api/v1")

	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/verify-email", authHandler.VerifyEmail)
	authGroup.POST("/resend-verification", authHandler.ResendVerification)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/forgot-password", authHandler.ForgotPassword)
	authGroup.POST("/reset-password", authHandler.ResetPassword)
	authGroup.GET("/me", authJWT, authHandler.Me)

	chatGroup := v1.Group("/chat")
	chatGroup.Use(authJWT)
	chatGroup.POST("/messages", chatLimit, chatHandler.StreamChat)
	chatGroup.POST("/sessions", chatHandler.CreateSession)
	chatGroup.GET("/sessions", chatHandler.ListSessions)
	chatGroup.PUT("/sessions/:id", chatHandler.RenameSession)
	chatGroup.DELETE("/sessions/:id", chatHandler.DeleteSession)
	chatGroup.DELETE("/sessions", chatHandler.DeleteAllSessions)
	chatGroup.GET("/history", chatHandler.GetHistory)

	documentGroup := v1.Group("/documents")
	documentGroup.Use(authJWT)
	documentGroup.POST("/upload", documentHandler.Upload)

	v1.GET("/usage", authJWT, usageHandler.Stats)

	return router
}
