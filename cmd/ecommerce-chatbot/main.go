package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ecommerce-chatbot/internal/api"
	"ecommerce-chatbot/internal/api/handlers"
	"ecommerce-chatbot/internal/repository"
	"ecommerce-chatbot/internal/service"
	"ecommerce-chatbot/pkg/config"
	"ecommerce-chatbot/pkg/logger"
	"ecommerce-chatbot/pkg/postgres"
	"ecommerce-chatbot/pkg/sqlite"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// @title E-commerce Chatbot API
// @version 1.0
// @description FAQ and product search assistant for an online shoe store

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting e-commerce chatbot",
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("embedding_provider", cfg.Embedding.Provider),
	)

	ctx := context.Background()

	// Vector store
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	vectorRepo := repository.NewVectorRepository(db, appLogger)
	if err := vectorRepo.EnsureSchema(ctx); err != nil {
		appLogger.Fatal("Failed to prepare vector store", zap.Error(err))
	}

	// Product catalog, read-only so generated statements cannot write
	catalog, err := sqlite.Open(ctx, cfg.Catalog.Path, true, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to open product catalog", zap.Error(err))
	}
	defer catalog.Close()

	productRepo := repository.NewProductRepository(catalog, appLogger)

	// Model clients
	embedder, err := service.NewEmbedder(ctx, &cfg.Embedding, logger.Named("embedding"))
	if err != nil {
		appLogger.Fatal("Failed to initialize embedder", zap.Error(err))
	}

	backend, err := service.NewChatBackend(ctx, cfg, logger.Named("llm"))
	if err != nil {
		appLogger.Fatal("Failed to initialize chat backend", zap.Error(err))
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.LLM.RateLimit), cfg.LLM.RateBurst)
	llmService := service.NewLLMService(backend, cfg.Retry, limiter, logger.Named("llm"))
	defer llmService.Close()

	// Pipelines
	faqService := service.NewFAQService(vectorRepo, embedder, llmService, &cfg.FAQ, logger.Named("faq"))
	result, err := faqService.Ingest(ctx, cfg.FAQ.DataPath)
	if err != nil {
		appLogger.Fatal("Failed to ingest FAQs", zap.Error(err))
	}
	appLogger.Info("FAQ collection ready",
		zap.String("collection", cfg.FAQ.Collection),
		zap.String("status", string(result.Status)),
		zap.Int("documents", result.Documents),
	)

	routerService, err := service.NewRouterService(ctx, embedder, service.DefaultRoutes(), cfg.Router.Threshold, logger.Named("router"))
	if err != nil {
		appLogger.Fatal("Failed to initialize router", zap.Error(err))
	}

	tokens := service.NewTokenCounter(appLogger)
	sqlService := service.NewSQLService(productRepo, llmService, tokens, &cfg.SQL, logger.Named("sql"))

	chatService := service.NewChatService(routerService, faqService, sqlService, logger.Named("chat"))
	sessionService := service.NewSessionService()

	// Initialize handlers
	chatHandler := handlers.NewChatHandler(chatService, routerService, sessionService, appLogger)

	// Setup router
	app := api.SetupRouter(chatHandler, appLogger, func(c *fiber.Config) {
		c.ReadTimeout = cfg.Server.ReadTimeout
		c.WriteTimeout = cfg.Server.WriteTimeout
	})

	// Start server
	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}
