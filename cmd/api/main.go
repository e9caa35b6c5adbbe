package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/macro-engine/internal/config"
	"github.com/jwebster45206/macro-engine/internal/handlers"
	"github.com/jwebster45206/macro-engine/internal/logger"
	"github.com/jwebster45206/macro-engine/internal/middleware"
	"github.com/jwebster45206/macro-engine/internal/storage"
	"github.com/jwebster45206/macro-engine/pkg/engine"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Macro Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"data_dir", cfg.DataDir,
		"session_ttl", cfg.SessionTTL)

	store, err := storage.NewRedisStorage(cfg.RedisURL, cfg.DataDir, cfg.SessionTTL, log)
	if err != nil {
		log.Error("Failed to create storage", "error", err)
		os.Exit(1)
	}

	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()
	if err := store.WaitForConnection(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	eng := engine.New(log)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(store, log)
	mux.Handle("/health", healthHandler)

	characterHandler := handlers.NewCharacterHandler(log, store, eng)
	mux.Handle("/v1/characters", characterHandler)
	mux.Handle("/v1/characters/", characterHandler)

	macrosHandler := handlers.NewMacrosHandler(log, store)
	mux.Handle("/v1/macros", macrosHandler)
	mux.Handle("/v1/macros/", macrosHandler)

	handler := middleware.LoggerWith(log)(mux)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}
