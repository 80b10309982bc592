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

	"github.com/haln/taskboard/internal/api"
	"github.com/haln/taskboard/internal/cache"
	"github.com/haln/taskboard/internal/config"
	"github.com/haln/taskboard/internal/logger"
	"github.com/haln/taskboard/internal/notify"
	"github.com/haln/taskboard/internal/repository"
	"github.com/haln/taskboard/internal/service"
	"github.com/haln/taskboard/internal/storage"
)

func main() {
	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger := logger.NewDefault()
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	// Initialize repositories
	taskRepo := repository.NewTaskRepository(db)
	jobRepo := repository.NewExportJobRepository(db)

	// Initialize artifact storage
	store, err := storage.New(&cfg.Storage)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize artifact storage")
	}
	ctx := context.Background()
	if bucketed, ok := store.(interface{ EnsureBucket(context.Context) error }); ok {
		if err := bucketed.EnsureBucket(ctx); err != nil {
			appLogger.WithError(err).Fatal("Failed to ensure storage bucket")
		}
	}

	// Initialize result cache
	var resultCache cache.ResultCache
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to connect to redis")
		}
		defer redisCache.Close()
		resultCache = redisCache
		appLogger.WithField("addr", cfg.Redis.Addr).Info("Result cache backed by redis")
	} else {
		resultCache = cache.NewMemoryCache()
	}

	// Initialize notifier
	var notifier notify.Notifier = notify.NewNoopNotifier()
	if cfg.Notify.Enabled && cfg.Notify.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(&notify.WebhookConfig{
			URL:     cfg.Notify.WebhookURL,
			Timeout: cfg.Notify.Timeout,
		})
		appLogger.Info("Export webhook notifications enabled")
	}

	// Initialize services
	exportService := service.NewExportService(
		jobRepo,
		taskRepo,
		store,
		resultCache,
		notifier,
		appLogger,
		&service.ExportConfig{
			BatchSize: cfg.Export.BatchSize,
			CacheTTL:  cfg.Redis.CacheTTL,
		},
	)
	taskService := service.NewTaskService(taskRepo, jobRepo)
	cleanupService := service.NewCleanupService(jobRepo, store, appLogger)

	// Setup router
	router := api.SetupRouter(exportService, taskService, cleanupService, cfg, appLogger)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Fatal("Server forced to shutdown")
	}

	// Let in-flight exports finish, bounded by the shutdown window
	done := make(chan struct{})
	go func() {
		exportService.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		appLogger.Warn("Shutdown window elapsed with exports still running")
	}

	appLogger.Info("Server exited")
}
