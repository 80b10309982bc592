package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/haln/taskboard/internal/logger"
	"github.com/haln/taskboard/internal/repository"
	"github.com/haln/taskboard/internal/storage"
)

// CleanupService removes export jobs older than the retention window
// together with their stored artifacts. Only terminal jobs (completed or
// failed) are candidates; a job still pending or processing is never
// touched no matter how old it is.
type CleanupService struct {
	jobs   *repository.ExportJobRepository
	store  storage.ArtifactStore
	logger *logger.Logger
}

// CleanupOptions controls one sweep run.
type CleanupOptions struct {
	// RetentionDays is the age threshold in days. Jobs created before
	// now minus this window are candidates. Values below 1 fall back to 7.
	RetentionDays int

	// DryRun reports what the sweep would remove without deleting anything.
	DryRun bool
}

// CleanupItemError records one failed deletion inside an otherwise
// continuing sweep.
type CleanupItemError struct {
	JobID string `json:"job_id"`
	Stage string `json:"stage"` // "artifact" or "record"
	Cause string `json:"cause"`
}

// CleanupReport summarizes one sweep run.
type CleanupReport struct {
	Cutoff         time.Time          `json:"cutoff"`
	JobsExamined   int                `json:"jobs_examined"`
	JobsDeleted    int                `json:"jobs_deleted"`
	FilesDeleted   int                `json:"files_deleted"`
	DirsPruned     int                `json:"dirs_pruned"`
	BytesReclaimed int64              `json:"bytes_reclaimed"`
	DryRun         bool               `json:"dry_run"`
	Errors         []CleanupItemError `json:"errors,omitempty"`
}

// NewCleanupService creates a new cleanup service.
func NewCleanupService(jobs *repository.ExportJobRepository, store storage.ArtifactStore, log *logger.Logger) *CleanupService {
	return &CleanupService{
		jobs:   jobs,
		store:  store,
		logger: log,
	}
}

// Run performs one retention sweep.
//
// Each candidate is handled independently: a failure on one job is recorded
// in the report and the sweep moves on. The artifact is removed before the
// job record; if the artifact delete fails the record is kept so a later
// sweep can retry. An artifact already gone from storage is not an error.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - opts: retention window and dry-run flag.
// Returns:
//   - *CleanupReport: counts and per-item errors for the run.
//   - error: non-nil only when the candidate listing itself fails.
func (s *CleanupService) Run(ctx context.Context, opts CleanupOptions) (*CleanupReport, error) {
	retentionDays := opts.RetentionDays
	if retentionDays < 1 {
		retentionDays = 7
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	ctx = logger.WithFields(ctx, logger.Fields{
		logger.FieldComponent: "cleanup",
	})
	log := logger.FromContext(ctx)

	candidates, err := s.jobs.ListTerminalBefore(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired jobs: %w", err)
	}

	report := &CleanupReport{
		Cutoff:       cutoff,
		JobsExamined: len(candidates),
		DryRun:       opts.DryRun,
	}

	for i := range candidates {
		job := &candidates[i]

		if job.ResultKey != "" {
			size, err := s.store.Stat(ctx, job.ResultKey)
			switch {
			case err == nil:
				if !opts.DryRun {
					if err := s.store.Delete(ctx, job.ResultKey); err != nil && !errors.Is(err, storage.ErrNotExist) {
						report.Errors = append(report.Errors, CleanupItemError{
							JobID: job.ID,
							Stage: "artifact",
							Cause: err.Error(),
						})
						continue
					}
				}
				report.FilesDeleted++
				report.BytesReclaimed += size
			case errors.Is(err, storage.ErrNotExist):
				// Already gone; still delete the record.
			default:
				report.Errors = append(report.Errors, CleanupItemError{
					JobID: job.ID,
					Stage: "artifact",
					Cause: err.Error(),
				})
				continue
			}
		}

		if !opts.DryRun {
			if err := s.jobs.Delete(ctx, job.ID); err != nil {
				report.Errors = append(report.Errors, CleanupItemError{
					JobID: job.ID,
					Stage: "record",
					Cause: err.Error(),
				})
				continue
			}
		}
		report.JobsDeleted++
	}

	if !opts.DryRun {
		if pruner, ok := s.store.(storage.DirPruner); ok {
			pruned, err := pruner.PruneEmptyDirs(ctx)
			if err != nil {
				log.WithError(err).Warn("Failed to prune empty artifact directories")
			}
			report.DirsPruned = pruned
		}
	}

	log.WithFields(logger.Fields{
		"jobs_examined":   report.JobsExamined,
		"jobs_deleted":    report.JobsDeleted,
		"files_deleted":   report.FilesDeleted,
		"bytes_reclaimed": report.BytesReclaimed,
		"errors":          len(report.Errors),
		"dry_run":         report.DryRun,
	}).Info("Retention sweep finished")

	return report, nil
}
