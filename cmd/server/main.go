package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openmind-ai/openmind-server/internal/api"
	"github.com/openmind-ai/openmind-server/internal/auth"
	"github.com/openmind-ai/openmind-server/internal/config"
	"github.com/openmind-ai/openmind-server/internal/core"
	"github.com/openmind-ai/openmind-server/internal/storage"
	"github.com/openmind-ai/openmind-server/internal/store"
)

func main() {
	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.LogLevel == "DEBUG" {
		log.Println("Service starting in DEBUG mode")
	}

	// Initialize database store
	dbStore, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbStore.Close()

	// Initialize attachment blob store
	blobStore, err := storage.NewLocalBlobStore(cfg.AttachmentDir, cfg.PublicBaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize attachment storage: %v", err)
	}

	// Initialize providers; gemini doubles as the default backend for
	// selections without a stored credential.
	gemini := core.NewGeminiClient()
	providers := core.NewProviderRegistry(
		gemini,
		core.NewOpenAIClient(),
		core.NewAnthropicClient(),
	)

	// Initialize services
	tokens := auth.NewTokenManager(cfg.JWTSecret)
	conversations := core.NewConversationRegistry()
	chatService := core.NewChatService(dbStore, conversations, providers, gemini, cfg.GeminiAPIKey)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(dbStore, tokens, chatService, blobStore)
	router := api.NewRouter(apiHandler)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second, // LLM calls can take time
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give active connections time to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting gracefully")
}
