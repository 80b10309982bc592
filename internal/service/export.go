package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/haln/taskboard/internal/cache"
	"github.com/haln/taskboard/internal/domain"
	"github.com/haln/taskboard/internal/logger"
	"github.com/haln/taskboard/internal/notify"
	"github.com/haln/taskboard/internal/repository"
	"github.com/haln/taskboard/internal/serializer"
	"github.com/haln/taskboard/internal/storage"
	"gorm.io/gorm"
)

// TaskSource supplies the filtered, ordered record set an export
// materializes. *repository.TaskRepository satisfies it.
type TaskSource interface {
	Count(ctx context.Context, filter *repository.TaskFilter) (int64, error)
	FindPage(ctx context.Context, filter *repository.TaskFilter, limit, offset int) ([]domain.Task, error)
}

// ExportService drives export jobs through their lifecycle:
// pending -> processing -> completed|failed. Creation is synchronous and
// returns the pending job immediately; fetch/serialize/store runs as an
// independent goroutine per job, tracked so callers can join on shutdown.
type ExportService struct {
	jobs     *repository.ExportJobRepository
	tasks    TaskSource
	store    storage.ArtifactStore
	cache    cache.ResultCache
	notifier notify.Notifier
	logger   *logger.Logger

	batchSize int
	cacheTTL  time.Duration

	wg sync.WaitGroup
}

// ExportConfig holds configuration for the export service.
type ExportConfig struct {
	BatchSize int
	CacheTTL  time.Duration
}

// NewExportService creates a new export service.
func NewExportService(
	jobs *repository.ExportJobRepository,
	tasks TaskSource,
	store storage.ArtifactStore,
	resultCache cache.ResultCache,
	notifier notify.Notifier,
	log *logger.Logger,
	cfg *ExportConfig,
) *ExportService {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	return &ExportService{
		jobs:      jobs,
		tasks:     tasks,
		store:     store,
		cache:     resultCache,
		notifier:  notifier,
		logger:    log,
		batchSize: batchSize,
		cacheTTL:  cacheTTL,
	}
}

// CreateExport handles a new export request. On a cache hit whose referenced
// job is still completed it returns that job without creating a new one.
// Otherwise it persists a pending job, schedules asynchronous processing,
// and returns the pending snapshot immediately; creation never blocks on
// processing.
// Parameters:
//   - ctx: request context; governs only the synchronous creation path.
//   - format: requested artifact format ("csv" or "json").
//   - filters: raw filter mapping; validated before any job is created.
// Returns:
//   - *domain.ExportJob: the cached completed job or the new pending job.
//   - error: ErrInvalidFormat, ErrInvalidFilter, or a job store failure.
func (s *ExportService) CreateExport(ctx context.Context, format string, filters map[string]string) (*domain.ExportJob, error) {
	exportFormat := domain.ExportFormat(format)
	if !exportFormat.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, format)
	}

	taskFilter, err := repository.BuildTaskFilter(filters)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFilter, err)
	}

	cacheKey := ExportCacheKey(exportFormat, filters)
	if cached := s.cachedJob(ctx, cacheKey); cached != nil {
		s.logger.WithFields(logger.Fields{
			logger.FieldJobID:  cached.ID,
			logger.FieldFormat: format,
		}).Info("Export request served from cache")
		return cached, nil
	}

	job := &domain.ExportJob{
		ID:        uuid.New().String(),
		Format:    exportFormat,
		Filters:   domain.FilterMap(filters),
		Status:    domain.ExportStatusPending,
		CreatedAt: time.Now(),
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create export job: %w", err)
	}

	s.logger.WithFields(logger.Fields{
		logger.FieldJobID:  job.ID,
		logger.FieldFormat: format,
	}).Info("Export job created")
	s.notifyTransition(ctx, domain.ExportStatusPending, job, nil)

	s.wg.Add(1)
	go s.process(job.ID, exportFormat, taskFilter, cacheKey)

	return job, nil
}

// Wait blocks until all in-flight export goroutines have finished.
// Called on shutdown and by tests to join background processing.
func (s *ExportService) Wait() {
	s.wg.Wait()
}

// process runs the asynchronous part of one export job. It deliberately
// uses a fresh background context: the job runs to completion or failure
// even if the request that created it has gone away.
func (s *ExportService) process(jobID string, format domain.ExportFormat, taskFilter *repository.TaskFilter, cacheKey string) {
	defer s.wg.Done()

	ctx := logger.WithFields(context.Background(), logger.Fields{
		logger.FieldJobID:     jobID,
		logger.FieldFormat:    string(format),
		logger.FieldComponent: "exporter",
	})
	start := time.Now()

	if err := s.jobs.MarkProcessing(ctx, jobID); err != nil {
		s.failJob(ctx, jobID, fmt.Errorf("failed to start processing: %w", err))
		return
	}
	if job, err := s.jobs.GetByID(ctx, jobID); err == nil {
		s.notifyTransition(ctx, domain.ExportStatusProcessing, job, nil)
	}

	written, resultKey, resultName, err := s.materialize(ctx, format, taskFilter)
	if err != nil {
		s.failJob(ctx, jobID, err)
		return
	}

	if err := s.jobs.MarkCompleted(ctx, jobID, written, resultKey, resultName); err != nil {
		s.failJob(ctx, jobID, fmt.Errorf("failed to record completion: %w", err))
		return
	}

	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Error("Failed to re-read completed job")
		return
	}

	s.cacheResult(ctx, cacheKey, job)
	s.notifyTransition(ctx, domain.ExportStatusCompleted, job, map[string]interface{}{
		"record_count": job.RecordCount,
		"result_name":  job.ResultName,
	})

	logger.With(logger.Fields{
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
		logger.FieldCount:      written,
	}).Info(ctx, "Export completed: result=%s", resultName)
}

// materialize fetches the record set in batches, streams it through the
// serializer into a spool file, and promotes the spool into artifact
// storage. The artifact key is never addressable before promotion, so a
// partial write is never exposed for download.
func (s *ExportService) materialize(ctx context.Context, format domain.ExportFormat, taskFilter *repository.TaskFilter) (int64, string, string, error) {
	total, err := s.tasks.Count(ctx, taskFilter)
	if err != nil {
		return 0, "", "", fmt.Errorf("failed to count tasks: %w", err)
	}

	spool, err := os.CreateTemp("", "taskboard-export-*")
	if err != nil {
		return 0, "", "", fmt.Errorf("failed to create spool file: %w", err)
	}
	spoolName := spool.Name()
	defer func() {
		spool.Close()
		os.Remove(spoolName)
	}()

	writer, err := serializer.New(format, spool)
	if err != nil {
		return 0, "", "", err
	}
	if err := writer.Begin(serializer.Metadata{
		ExportedAt:   time.Now(),
		TotalRecords: total,
		Format:       format,
	}); err != nil {
		return 0, "", "", fmt.Errorf("failed to write artifact header: %w", err)
	}

	var written int64
	for written < total {
		remaining := total - written
		batchLimit := s.batchSize
		if int64(batchLimit) > remaining {
			batchLimit = int(remaining)
		}
		batch, err := s.tasks.FindPage(ctx, taskFilter, batchLimit, int(written))
		if err != nil {
			return 0, "", "", fmt.Errorf("failed to fetch tasks: %w", err)
		}
		if len(batch) == 0 {
			break
		}
		if err := writer.WriteBatch(batch); err != nil {
			return 0, "", "", fmt.Errorf("failed to serialize tasks: %w", err)
		}
		written += int64(len(batch))
	}
	if err := writer.Finish(); err != nil {
		return 0, "", "", fmt.Errorf("failed to finalize artifact: %w", err)
	}

	size, err := spool.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, "", "", fmt.Errorf("failed to measure artifact: %w", err)
	}
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return 0, "", "", fmt.Errorf("failed to rewind spool: %w", err)
	}

	now := time.Now()
	resultName := artifactName(now, format, taskFilter)
	resultKey := now.Format("2006/01") + "/" + resultName

	if err := s.store.Save(ctx, resultKey, spool, size); err != nil {
		return 0, "", "", fmt.Errorf("failed to store artifact: %w", err)
	}

	return written, resultKey, resultName, nil
}

// artifactName builds the artifact filename: a timestamp for humans, a
// random fragment for uniqueness across concurrent jobs, and a "-filtered"
// marker when the filter set is non-empty. The marker is cosmetic; lookups
// always go through the job record's result key.
func artifactName(now time.Time, format domain.ExportFormat, taskFilter *repository.TaskFilter) string {
	suffix := ""
	if taskFilter != nil && !taskFilter.Empty() {
		suffix = "-filtered"
	}
	return fmt.Sprintf("tasks-export-%s-%s%s.%s",
		now.Format("20060102-150405"),
		uuid.New().String()[:8],
		suffix,
		format,
	)
}

// failJob records a terminal failure on the job and notifies. The failure
// never reaches the caller of CreateExport, who already holds the pending
// snapshot.
func (s *ExportService) failJob(ctx context.Context, jobID string, cause error) {
	logger.FromContext(ctx).WithError(cause).Error("Export failed")

	if err := s.jobs.MarkFailed(ctx, jobID, cause.Error()); err != nil {
		logger.FromContext(ctx).WithError(err).Error("Failed to record export failure")
		return
	}
	if job, err := s.jobs.GetByID(ctx, jobID); err == nil {
		s.notifyTransition(ctx, domain.ExportStatusFailed, job, map[string]interface{}{
			"error": cause.Error(),
		})
	}
}

// cachedJob resolves a cache key to a live completed job. Any cache error
// and any entry whose referenced job is missing or not completed count as a
// miss; the cache is never a correctness dependency.
func (s *ExportService) cachedJob(ctx context.Context, key string) *domain.ExportJob {
	snap, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			logger.FromContext(ctx).WithError(err).Warn("Result cache read failed, treating as miss")
		}
		return nil
	}

	job, err := s.jobs.GetByID(ctx, snap.JobID)
	if err != nil || job.Status != domain.ExportStatusCompleted {
		return nil
	}
	return job
}

// cacheResult writes the completed job's snapshot, best-effort.
func (s *ExportService) cacheResult(ctx context.Context, key string, job *domain.ExportJob) {
	snap := &cache.Snapshot{
		JobID:       job.ID,
		ResultName:  job.ResultName,
		RecordCount: job.RecordCount,
		CreatedAt:   job.CreatedAt,
	}
	if err := s.cache.Put(ctx, key, snap, s.cacheTTL); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Result cache write failed")
	}
}

// notifyTransition reports a state change to the notifier sink, best-effort.
func (s *ExportService) notifyTransition(ctx context.Context, status domain.ExportStatus, job *domain.ExportJob, extra map[string]interface{}) {
	if err := s.notifier.Notify(ctx, status, job, extra); err != nil {
		logger.FromContext(ctx).WithFields(logger.Fields{
			logger.FieldJobID:  job.ID,
			logger.FieldStatus: string(status),
		}).WithError(err).Warn("Failed to notify export transition")
	}
}

// GetJob retrieves an export job snapshot by id.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: job ID.
// Returns:
//   - *domain.ExportJob: job record if found.
//   - error: ErrJobNotFound if absent, other errors on query failure.
func (s *ExportService) GetJob(ctx context.Context, id string) (*domain.ExportJob, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to load export job: %w", err)
	}
	return job, nil
}

// ListJobs retrieves a page of export jobs, newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - page: 1-based page number; values below 1 are clamped to 1.
//   - limit: page size; clamped to [1, 100], default 20.
// Returns:
//   - []domain.ExportJob: page of job records.
//   - int64: total number of jobs.
//   - error: non-nil if the query fails.
func (s *ExportService) ListJobs(ctx context.Context, page, limit int) ([]domain.ExportJob, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return s.jobs.List(ctx, limit, (page-1)*limit)
}

// OpenArtifact returns a stream of a completed job's artifact.
//
// Storage is consulted at download time rather than trusting the job
// record: a completed job whose file was removed externally yields
// ErrArtifactMissing, not a stale success.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: job ID.
// Returns:
//   - io.ReadCloser: artifact stream; caller closes.
//   - *domain.ExportJob: the job record, for name and content type.
//   - error: ErrJobNotFound, ErrExportNotReady, ErrArtifactMissing, or an
//     internal failure.
func (s *ExportService) OpenArtifact(ctx context.Context, id string) (io.ReadCloser, *domain.ExportJob, error) {
	job, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if job.Status != domain.ExportStatusCompleted {
		return nil, nil, fmt.Errorf("%w: job is %s", ErrExportNotReady, job.Status)
	}

	reader, err := s.store.Open(ctx, job.ResultKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return nil, nil, ErrArtifactMissing
		}
		return nil, nil, fmt.Errorf("failed to open artifact: %w", err)
	}
	return reader, job, nil
}
