package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/haln/taskboard/internal/config"
	"github.com/haln/taskboard/internal/logger"
	"github.com/haln/taskboard/internal/repository"
	"github.com/haln/taskboard/internal/service"
	"github.com/haln/taskboard/internal/storage"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "taskboard-cleanup",
	})
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	retentionDays := flag.Int("retention-days", 0, "Age threshold in days, 0 uses the configured value")
	dryRun := flag.Bool("dry-run", false, "Report what would be removed without deleting anything")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	days := *retentionDays
	if days == 0 {
		days = cfg.Export.RetentionDays
	}

	appLogger.WithFields(logger.Fields{
		"retention_days": days,
		"dry_run":        *dryRun,
	}).Info("Starting retention sweep")

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	// Initialize artifact storage
	store, err := storage.New(&cfg.Storage)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize artifact storage")
	}

	jobRepo := repository.NewExportJobRepository(db)
	cleanupService := service.NewCleanupService(jobRepo, store, appLogger)

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	report, err := cleanupService.Run(ctx, service.CleanupOptions{
		RetentionDays: days,
		DryRun:        *dryRun,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Retention sweep failed")
	}

	for _, itemErr := range report.Errors {
		appLogger.WithFields(logger.Fields{
			logger.FieldJobID: itemErr.JobID,
			"stage":           itemErr.Stage,
		}).Warnf("Cleanup item failed: %s", itemErr.Cause)
	}

	appLogger.WithFields(logger.Fields{
		"jobs_examined":   report.JobsExamined,
		"jobs_deleted":    report.JobsDeleted,
		"files_deleted":   report.FilesDeleted,
		"dirs_pruned":     report.DirsPruned,
		"bytes_reclaimed": report.BytesReclaimed,
		"errors":          len(report.Errors),
		"dry_run":         report.DryRun,
	}).Info("Retention sweep completed")

	if len(report.Errors) > 0 {
		os.Exit(1)
	}
}
