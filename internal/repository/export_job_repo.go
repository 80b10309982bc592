package repository

import (
	"context"
	"time"

	"github.com/haln/taskboard/internal/domain"
	"gorm.io/gorm"
)

// ExportJobRepository handles export job data operations. It is the single
// source of truth for job state; every status transition goes through one of
// the Mark methods below, each of which is a single UPDATE so readers never
// observe a status without its dependent fields.
type ExportJobRepository struct {
	db *gorm.DB
}

// NewExportJobRepository creates a new ExportJobRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *ExportJobRepository: repository instance bound to db.
func NewExportJobRepository(db *gorm.DB) *ExportJobRepository {
	return &ExportJobRepository{db: db}
}

// Create inserts a new export job record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - job: job record to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *ExportJobRepository) Create(ctx context.Context, job *domain.ExportJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// GetByID retrieves an export job by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: job ID.
// Returns:
//   - *domain.ExportJob: job record if found.
//   - error: gorm.ErrRecordNotFound if absent, other errors on query failure.
func (r *ExportJobRepository) GetByID(ctx context.Context, id string) (*domain.ExportJob, error) {
	var job domain.ExportJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// List retrieves a page of export jobs sorted by creation time descending.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum number of records to return.
//   - offset: number of records to skip.
// Returns:
//   - []domain.ExportJob: page of job records.
//   - int64: total number of jobs.
//   - error: non-nil if the query fails.
func (r *ExportJobRepository) List(ctx context.Context, limit, offset int) ([]domain.ExportJob, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.ExportJob{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var jobs []domain.ExportJob
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&jobs).Error; err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

// MarkProcessing transitions a pending job to processing.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: job ID.
// Returns:
//   - error: non-nil if the update fails.
func (r *ExportJobRepository) MarkProcessing(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&domain.ExportJob{}).
		Where("id = ? AND status = ?", id, domain.ExportStatusPending).
		Update("status", domain.ExportStatusProcessing).Error
}

// MarkCompleted transitions a job to completed, recording the result in the
// same UPDATE as the status change. The completed_at guard keeps the
// timestamp write-once even if the transition is retried.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: job ID.
//   - recordCount: number of records written to the artifact.
//   - resultKey: storage key of the artifact.
//   - resultName: human-facing artifact filename.
// Returns:
//   - error: non-nil if the update fails.
func (r *ExportJobRepository) MarkCompleted(ctx context.Context, id string, recordCount int64, resultKey, resultName string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&domain.ExportJob{}).
		Where("id = ? AND completed_at IS NULL", id).
		Updates(map[string]interface{}{
			"status":       domain.ExportStatusCompleted,
			"record_count": recordCount,
			"result_key":   resultKey,
			"result_name":  resultName,
			"completed_at": now,
		}).Error
}

// MarkFailed transitions a job to failed with a human-readable reason.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: job ID.
//   - reason: failure message stored on the job.
// Returns:
//   - error: non-nil if the update fails.
func (r *ExportJobRepository) MarkFailed(ctx context.Context, id, reason string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&domain.ExportJob{}).
		Where("id = ? AND completed_at IS NULL", id).
		Updates(map[string]interface{}{
			"status":       domain.ExportStatusFailed,
			"error":        reason,
			"completed_at": now,
		}).Error
}

// ListTerminalBefore retrieves completed and failed jobs created before the
// cutoff. Pending and processing jobs are excluded regardless of age.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - cutoff: creation-time upper bound.
// Returns:
//   - []domain.ExportJob: expired terminal jobs.
//   - error: non-nil if the query fails.
func (r *ExportJobRepository) ListTerminalBefore(ctx context.Context, cutoff time.Time) ([]domain.ExportJob, error) {
	var jobs []domain.ExportJob
	if err := r.db.WithContext(ctx).
		Where("status IN ?", []domain.ExportStatus{domain.ExportStatusCompleted, domain.ExportStatusFailed}).
		Where("created_at < ?", cutoff).
		Order("created_at ASC").
		Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// Delete removes an export job record by ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: job ID to delete.
// Returns:
//   - error: non-nil if the delete fails.
func (r *ExportJobRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&domain.ExportJob{}, "id = ?", id).Error
}

// CountsByStatus counts export jobs grouped by status.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - map[domain.ExportStatus]int64: record count per status.
//   - error: non-nil if the query fails.
func (r *ExportJobRepository) CountsByStatus(ctx context.Context) (map[domain.ExportStatus]int64, error) {
	type row struct {
		Status domain.ExportStatus
		N      int64
	}
	var rows []row
	if err := r.db.WithContext(ctx).Model(&domain.ExportJob{}).
		Select("status, COUNT(*) as n").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[domain.ExportStatus]int64, len(rows))
	for _, rw := range rows {
		counts[rw.Status] = rw.N
	}
	return counts, nil
}
