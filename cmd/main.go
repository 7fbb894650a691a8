package main

import (
	"context"
	"fmt"
	"os"

	"github.com/docuchat/docuchat-backend/internal/clients/firestore"
	"github.com/docuchat/docuchat-backend/internal/clients/openai"
	"github.com/docuchat/docuchat-backend/internal/clients/pinecone"
	"github.com/docuchat/docuchat-backend/internal/clients/redis"
	"github.com/docuchat/docuchat-backend/internal/data/repos"
	"github.com/docuchat/docuchat-backend/internal/http/handlers"
	"github.com/docuchat/docuchat-backend/internal/http/middleware"
	"github.com/docuchat/docuchat-backend/internal/ingestion"
	"github.com/docuchat/docuchat-backend/internal/pkg/envutil"
	"github.com/docuchat/docuchat-backend/internal/pkg/logger"
	"github.com/docuchat/docuchat-backend/internal/rag"
	"github.com/docuchat/docuchat-backend/internal/server"
	"github.com/docuchat/docuchat-backend/internal/services"
)

// Clients and services are constructed once here and reused for the process
// lifetime; nothing re-initializes them per request.
func main() {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	// Clients
	log.Info("Setting up clients...")
	fsClient, err := firestore.New(ctx, log)
	if err != nil {
		log.Error("Could not init Firestore client", "error", err)
		os.Exit(1)
	}
	defer fsClient.Close()

	openaiClient, err := openai.NewClient(log)
	if err != nil {
		log.Error("Could not init OpenAI client", "error", err)
		os.Exit(1)
	}

	pineconeClient, err := pinecone.New(log, pinecone.Config{
		APIKey: os.Getenv("PINECONE_API_KEY"),
	})
	if err != nil {
		log.Error("Could not init Pinecone client", "error", err)
		os.Exit(1)
	}
	vectorStore, err := pinecone.NewVectorStore(log, pineconeClient)
	if err != nil {
		log.Error("Could not init Pinecone vector store", "error", err)
		os.Exit(1)
	}

	docLocker, err := redis.NewDocLocker(log)
	if err != nil {
		log.Error("Could not init doc locker", "error", err)
		os.Exit(1)
	}

	// Repos
	log.Info("Setting up repos...")
	chatRepo := repos.NewChatRepo(fsClient, log)
	documentRepo := repos.NewDocumentRepo(fsClient, log)

	// Services
	log.Info("Setting up services...")
	materializer, err := ingestion.NewMaterializer(log, documentRepo)
	if err != nil {
		log.Error("Could not init materializer", "error", err)
		os.Exit(1)
	}
	indexManager, err := rag.NewIndexManager(log, openaiClient, vectorStore, materializer, docLocker)
	if err != nil {
		log.Error("Could not init index manager", "error", err)
		os.Exit(1)
	}
	pipeline, err := rag.NewPipeline(log, openaiClient, chatRepo, indexManager)
	if err != nil {
		log.Error("Could not init answer pipeline", "error", err)
		os.Exit(1)
	}
	chatService, err := services.NewChatService(log, chatRepo, indexManager, pipeline)
	if err != nil {
		log.Error("Could not init chat service", "error", err)
		os.Exit(1)
	}
	authService, err := services.NewAuthService(log, envutil.String("JWT_SECRET_KEY", ""))
	if err != nil {
		log.Error("Could not init auth service", "error", err)
		os.Exit(1)
	}

	// Handlers + middleware
	log.Info("Setting up handlers...")
	chatHandler := handlers.NewChatHandler(chatService)
	healthHandler := handlers.NewHealthHandler()
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	router := server.NewRouter(server.RouterConfig{
		Log:            log,
		HealthHandler:  healthHandler,
		ChatHandler:    chatHandler,
		AuthMiddleware: authMiddleware,
	})

	port := envutil.String("PORT", "8080")
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
	}
}
