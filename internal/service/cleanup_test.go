package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/haln/taskboard/internal/domain"
	"github.com/haln/taskboard/internal/logger"
	"github.com/haln/taskboard/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedExportJob(t *testing.T, fx *exportFixture, id string, status domain.ExportStatus, ageDays int, resultKey string) {
	t.Helper()
	ctx := context.Background()
	job := &domain.ExportJob{
		ID:        id,
		Format:    domain.ExportFormatCSV,
		Status:    status,
		ResultKey: resultKey,
		CreatedAt: time.Now().AddDate(0, 0, -ageDays),
	}
	if status.Terminal() {
		done := job.CreatedAt.Add(time.Minute)
		job.CompletedAt = &done
	}
	require.NoError(t, fx.jobs.Create(ctx, job))

	if resultKey != "" {
		require.NoError(t, fx.store.Save(ctx, resultKey, strings.NewReader("artifact-data"), 13))
	}
}

func newCleanupService(fx *exportFixture, store storage.ArtifactStore) *CleanupService {
	return NewCleanupService(fx.jobs, store, logger.GetDefault())
}

func TestCleanupRemovesExpiredTerminalJobs(t *testing.T) {
	fx := newExportFixture(t)
	ctx := context.Background()

	seedExportJob(t, fx, "old-completed", domain.ExportStatusCompleted, 30, "2026/01/a.csv")
	seedExportJob(t, fx, "old-failed", domain.ExportStatusFailed, 30, "")
	seedExportJob(t, fx, "recent-completed", domain.ExportStatusCompleted, 1, "2026/03/b.csv")
	seedExportJob(t, fx, "old-pending", domain.ExportStatusPending, 30, "")
	seedExportJob(t, fx, "old-processing", domain.ExportStatusProcessing, 30, "")

	svc := newCleanupService(fx, fx.store)
	report, err := svc.Run(ctx, CleanupOptions{RetentionDays: 7})
	require.NoError(t, err)

	assert.Equal(t, 2, report.JobsExamined)
	assert.Equal(t, 2, report.JobsDeleted)
	assert.Equal(t, 1, report.FilesDeleted)
	assert.Equal(t, int64(13), report.BytesReclaimed)
	assert.Empty(t, report.Errors)
	assert.False(t, report.DryRun)
	assert.GreaterOrEqual(t, report.DirsPruned, 1, "emptied artifact directory should be pruned")

	// Expired terminal jobs and their artifacts are gone
	_, err = fx.jobs.GetByID(ctx, "old-completed")
	assert.Error(t, err)
	_, err = fx.jobs.GetByID(ctx, "old-failed")
	assert.Error(t, err)
	exists, err := fx.store.Exists(ctx, "2026/01/a.csv")
	require.NoError(t, err)
	assert.False(t, exists)

	// Recent and non-terminal jobs survive untouched, however old
	for _, id := range []string{"recent-completed", "old-pending", "old-processing"} {
		_, err := fx.jobs.GetByID(ctx, id)
		assert.NoError(t, err, "job %s must survive the sweep", id)
	}
	exists, err = fx.store.Exists(ctx, "2026/03/b.csv")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCleanupDryRunDeletesNothing(t *testing.T) {
	fx := newExportFixture(t)
	ctx := context.Background()

	seedExportJob(t, fx, "old-completed", domain.ExportStatusCompleted, 30, "2026/01/a.csv")
	seedExportJob(t, fx, "old-failed", domain.ExportStatusFailed, 30, "")

	svc := newCleanupService(fx, fx.store)
	dry, err := svc.Run(ctx, CleanupOptions{RetentionDays: 7, DryRun: true})
	require.NoError(t, err)

	assert.True(t, dry.DryRun)
	assert.Equal(t, 2, dry.JobsExamined)
	assert.Equal(t, 2, dry.JobsDeleted)
	assert.Equal(t, 1, dry.FilesDeleted)
	assert.Equal(t, int64(13), dry.BytesReclaimed)
	assert.Zero(t, dry.DirsPruned)

	// Everything is still there
	for _, id := range []string{"old-completed", "old-failed"} {
		_, err := fx.jobs.GetByID(ctx, id)
		assert.NoError(t, err)
	}
	exists, err := fx.store.Exists(ctx, "2026/01/a.csv")
	require.NoError(t, err)
	assert.True(t, exists)

	// A real run reports the same counts the dry run promised
	wet, err := svc.Run(ctx, CleanupOptions{RetentionDays: 7})
	require.NoError(t, err)
	assert.Equal(t, dry.JobsDeleted, wet.JobsDeleted)
	assert.Equal(t, dry.FilesDeleted, wet.FilesDeleted)
	assert.Equal(t, dry.BytesReclaimed, wet.BytesReclaimed)
}

func TestCleanupToleratesMissingArtifact(t *testing.T) {
	fx := newExportFixture(t)
	ctx := context.Background()

	// Completed job whose artifact was already removed out of band
	job := &domain.ExportJob{
		ID:        "orphaned",
		Format:    domain.ExportFormatCSV,
		Status:    domain.ExportStatusCompleted,
		ResultKey: "2026/01/vanished.csv",
		CreatedAt: time.Now().AddDate(0, 0, -30),
	}
	done := job.CreatedAt.Add(time.Minute)
	job.CompletedAt = &done
	require.NoError(t, fx.jobs.Create(ctx, job))

	svc := newCleanupService(fx, fx.store)
	report, err := svc.Run(ctx, CleanupOptions{RetentionDays: 7})
	require.NoError(t, err)

	assert.Equal(t, 1, report.JobsDeleted)
	assert.Zero(t, report.FilesDeleted)
	assert.Empty(t, report.Errors)
	_, err = fx.jobs.GetByID(ctx, "orphaned")
	assert.Error(t, err, "record should be deleted even without an artifact")
}

// faultyStore fails deletes on selected keys.
type faultyStore struct {
	*storage.LocalStore
	failKeys map[string]bool
}

func (s *faultyStore) Delete(ctx context.Context, key string) error {
	if s.failKeys[key] {
		return errors.New("permission denied")
	}
	return s.LocalStore.Delete(ctx, key)
}

func TestCleanupRecordsPerItemErrors(t *testing.T) {
	fx := newExportFixture(t)
	ctx := context.Background()

	seedExportJob(t, fx, "sticky", domain.ExportStatusCompleted, 30, "2026/01/sticky.csv")
	seedExportJob(t, fx, "normal", domain.ExportStatusCompleted, 30, "2026/01/normal.csv")

	store := &faultyStore{LocalStore: fx.store, failKeys: map[string]bool{"2026/01/sticky.csv": true}}
	svc := newCleanupService(fx, store)

	report, err := svc.Run(ctx, CleanupOptions{RetentionDays: 7})
	require.NoError(t, err, "per-item failures must not abort the sweep")

	assert.Equal(t, 2, report.JobsExamined)
	assert.Equal(t, 1, report.JobsDeleted)
	assert.Equal(t, 1, report.FilesDeleted)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "sticky", report.Errors[0].JobID)
	assert.Equal(t, "artifact", report.Errors[0].Stage)

	// The failed item keeps its record so a later sweep can retry
	_, err = fx.jobs.GetByID(ctx, "sticky")
	assert.NoError(t, err)
	_, err = fx.jobs.GetByID(ctx, "normal")
	assert.Error(t, err)
}
