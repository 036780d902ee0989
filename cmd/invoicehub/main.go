package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"invoicehub/internal/agent"
	"invoicehub/internal/api"
	"invoicehub/internal/api/handlers"
	"invoicehub/internal/repository"
	"invoicehub/internal/service"
	"invoicehub/internal/storage"
	"invoicehub/pkg/auth"
	"invoicehub/pkg/config"
	"invoicehub/pkg/logger"
	"invoicehub/pkg/postgres"

	"go.uber.org/zap"
)

// @title Invoice Hub API
// @version 1.0
// @description Backend for uploading invoices, tracking extraction results and asking an LLM assistant about them.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting Invoice Hub service")

	ctx := context.Background()

	// User and chat-session store
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	userRepo := repository.NewUserRepository(db, appLogger)
	sessionRepo := repository.NewSessionRepository(db, appLogger)

	// Blob store for the source and target buckets
	blobStore, err := storage.NewBlobStore(ctx, cfg.GCS.CredentialsPath, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to create blob store", zap.Error(err))
	}
	defer blobStore.Close()

	// Invoice metadata store
	invoiceStore, err := storage.NewInvoiceStore(ctx, &cfg.Firestore, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to create invoice store", zap.Error(err))
	}
	defer invoiceStore.Close()

	// Chat agent over the invoice metadata
	chatAgent, err := agent.New(ctx, &cfg.Gemini, invoiceStore, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize chat agent", zap.Error(err))
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Expiration, cfg.JWT.RefreshExp)

	// Initialize services
	authService := service.NewAuthService(userRepo, jwtManager, appLogger)
	invoiceService := service.NewInvoiceService(blobStore, invoiceStore, &cfg.GCS, appLogger)
	chatService := service.NewChatService(sessionRepo, chatAgent, appLogger)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, appLogger)
	invoiceHandler := handlers.NewInvoiceHandler(invoiceService, appLogger)
	chatHandler := handlers.NewChatHandler(chatService, appLogger)

	// Setup router
	app := api.SetupRouter(authHandler, invoiceHandler, chatHandler, jwtManager, appLogger)

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
