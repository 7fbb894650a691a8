package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/docuchat/docuchat-backend/internal/http/handlers"
	"github.com/docuchat/docuchat-backend/internal/http/middleware"
	"github.com/docuchat/docuchat-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	HealthHandler  *handlers.HealthHandler
	ChatHandler    *handlers.ChatHandler
	AuthMiddleware *middleware.AuthMiddleware
	AllowOrigins   []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(cfg.Log))

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", cfg.HealthHandler.HealthCheck)

	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())
	{
		api.POST("/documents/:id/messages", cfg.ChatHandler.AskQuestion)
		api.GET("/documents/:id/messages", cfg.ChatHandler.ListMessages)
		api.POST("/documents/:id/embeddings", cfg.ChatHandler.GenerateEmbeddings)
	}

	return router
}
