package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appsvc "docuchat/internal/app"
	"docuchat/internal/bootstrap"
	"docuchat/internal/cache"
	"docuchat/internal/platform/rabbitmq"
	"docuchat/internal/repository"
	"docuchat/internal/transport/http/handler"
	"docuchat/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	cfg := app.Config
	gin.SetMode(cfg.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	docRepo := repository.NewDocumentRepository(app.MySQL)
	chatRepo := repository.NewChatRepository(app.MySQL)
	messageRepo := repository.NewMessageRepository(app.MySQL)
	categoryRepo := repository.NewCategoryRepository(app.MySQL)
	chatDocRepo := repository.NewChatDocumentRepository(app.MySQL)
	msgDocRepo := repository.NewMessageDocumentRepository(app.MySQL)

	historyCache := cache.NewHistoryCache(
		app.Redis,
		time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(cfg.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)
	publisher := rabbitmq.NewIngestPublisher(app.MQConn, cfg.RabbitMQ.IngestQueue)

	documentService := appsvc.NewDocumentService(docRepo, chatDocRepo, app.Store, app.Index, publisher, cfg.Upload.MaxFileSize)
	resolver := appsvc.NewDocumentResolver(docRepo, chatDocRepo)
	historyLoader := appsvc.NewHistoryLoader(messageRepo, historyCache, cfg.RAG.MaxHistoryPairs)
	responder := appsvc.NewResponder(app.AI, app.AI, app.Index, appsvc.ResponderConfig{
		TopK:           cfg.RAG.TopK,
		AnswerLanguage: cfg.RAG.AnswerLanguage,
		Timeout:        time.Duration(cfg.OpenAI.RequestTimeoutSeconds) * time.Second,
	})
	messageService := appsvc.NewMessageService(
		chatRepo, messageRepo, chatDocRepo, msgDocRepo, categoryRepo,
		resolver, historyLoader, responder,
	)
	chatService := appsvc.NewChatService(chatRepo, messageRepo, chatDocRepo, categoryRepo, historyLoader)
	categoryService := appsvc.NewCategoryService(categoryRepo, chatRepo)

	documentHandler := handler.NewDocumentHandler(documentService)
	chatHandler := handler.NewChatHandler(chatService, messageService)
	categoryHandler := handler.NewCategoryHandler(categoryService)
	messageHandler := handler.NewMessageHandler(messageService)

	limiter := middleware.NewRateLimiter(cfg.RateLimit.MessagesPerMinute, cfg.RateLimit.Burst)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.AuthJWT(cfg.Auth.JWTSecret))

	documents := v1.Group("/documents")
	documents.POST("/upload", documentHandler.Upload)
	documents.GET("", documentHandler.List)
	documents.GET("/:id", documentHandler.Get)
	documents.GET("/:id/status", documentHandler.Status)
	documents.DELETE("/:id", documentHandler.Delete)

	chats := v1.Group("/chats")
	chats.GET("", chatHandler.List)
	chats.POST("/bulk-delete", chatHandler.BulkDelete)
	chats.GET("/:id", chatHandler.Get)
	chats.GET("/:id/messages", chatHandler.ListMessages)
	chats.PATCH("/:id", chatHandler.Update)
	chats.DELETE("/:id/category", chatHandler.RemoveCategory)
	chats.DELETE("/:id", chatHandler.Delete)

	categories := v1.Group("/categories")
	categories.GET("", categoryHandler.List)
	categories.POST("", categoryHandler.Create)
	categories.GET("/:id", categoryHandler.Get)
	categories.PATCH("/:id", categoryHandler.Update)
	categories.DELETE("/:id", categoryHandler.Delete)

	v1.POST("/messages", limiter.Middleware(), messageHandler.Send)

	return router
}
