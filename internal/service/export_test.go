package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/haln/taskboard/internal/cache"
	"github.com/haln/taskboard/internal/domain"
	"github.com/haln/taskboard/internal/logger"
	"github.com/haln/taskboard/internal/repository"
	"github.com/haln/taskboard/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	quiet := logger.New(&logger.Config{Level: "error", Output: io.Discard})
	logger.SetDefaultLogger(quiet)
	os.Exit(m.Run())
}

// recordingNotifier captures every transition event for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.ExportStatus
}

func (n *recordingNotifier) Notify(_ context.Context, status domain.ExportStatus, _ *domain.ExportJob, _ map[string]interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, status)
	return nil
}

func (n *recordingNotifier) statuses() []domain.ExportStatus {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.ExportStatus(nil), n.events...)
}

// brokenCache fails every operation, simulating a cache outage.
type brokenCache struct{}

func (brokenCache) Get(context.Context, string) (*cache.Snapshot, error) {
	return nil, errors.New("cache unreachable")
}

func (brokenCache) Put(context.Context, string, *cache.Snapshot, time.Duration) error {
	return errors.New("cache unreachable")
}

// brokenSource fails on Count, simulating a database outage mid-export.
type brokenSource struct{}

func (brokenSource) Count(context.Context, *repository.TaskFilter) (int64, error) {
	return 0, errors.New("source unavailable")
}

func (brokenSource) FindPage(context.Context, *repository.TaskFilter, int, int) ([]domain.Task, error) {
	return nil, errors.New("source unavailable")
}

type exportFixture struct {
	svc      *ExportService
	jobs     *repository.ExportJobRepository
	tasks    *repository.TaskRepository
	store    *storage.LocalStore
	cache    cache.ResultCache
	notifier *recordingNotifier
}

func withSource(t *testing.T, fx *exportFixture, src TaskSource, resultCache cache.ResultCache) *ExportService {
	t.Helper()
	return NewExportService(fx.jobs, src, fx.store, resultCache, fx.notifier, logger.GetDefault(), &ExportConfig{
		BatchSize: 2,
		CacheTTL:  time.Minute,
	})
}

func newExportFixture(t *testing.T) *exportFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Task{}, &domain.ExportJob{}))

	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	fx := &exportFixture{
		jobs:     repository.NewExportJobRepository(db),
		tasks:    repository.NewTaskRepository(db),
		store:    store,
		cache:    cache.NewMemoryCache(),
		notifier: &recordingNotifier{},
	}
	fx.svc = NewExportService(fx.jobs, fx.tasks, fx.store, fx.cache, fx.notifier, logger.GetDefault(), &ExportConfig{
		BatchSize: 2, // small batches so multi-batch paging is exercised
		CacheTTL:  time.Minute,
	})
	return fx
}

func (fx *exportFixture) seedTasks(t *testing.T, n int) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		status := domain.TaskStatusTodo
		if i%2 == 0 {
			status = domain.TaskStatusCompleted
		}
		require.NoError(t, fx.tasks.Create(ctx, &domain.Task{
			ID:        fmt.Sprintf("task-%03d", i),
			Title:     fmt.Sprintf("Task %d", i),
			Status:    status,
			Priority:  domain.TaskPriorityMedium,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
}

func TestCreateExportCompletesJob(t *testing.T) {
	fx := newExportFixture(t)
	fx.seedTasks(t, 5)
	ctx := context.Background()

	job, err := fx.svc.CreateExport(ctx, "csv", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ExportStatusPending, job.Status)
	assert.NotEmpty(t, job.ID)

	fx.svc.Wait()

	done, err := fx.svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExportStatusCompleted, done.Status)
	assert.Equal(t, int64(5), done.RecordCount)
	assert.NotEmpty(t, done.ResultKey)
	require.NotNil(t, done.CompletedAt)
	assert.Empty(t, done.Error)
	assert.True(t, strings.HasSuffix(done.ResultName, ".csv"), "result name %q", done.ResultName)
	assert.NotContains(t, done.ResultName, "-filtered")

	reader, _, err := fx.svc.OpenArtifact(ctx, job.ID)
	require.NoError(t, err)
	defer reader.Close()
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	assert.Len(t, lines, 6, "header plus five rows")
	assert.Contains(t, lines[0], `"id","title"`)

	assert.Equal(t, []domain.ExportStatus{
		domain.ExportStatusPending,
		domain.ExportStatusProcessing,
		domain.ExportStatusCompleted,
	}, fx.notifier.statuses())
}

func TestCreateExportFilteredJSON(t *testing.T) {
	fx := newExportFixture(t)
	fx.seedTasks(t, 6)
	ctx := context.Background()

	job, err := fx.svc.CreateExport(ctx, "json", map[string]string{"status": "completed"})
	require.NoError(t, err)
	fx.svc.Wait()

	done, err := fx.svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExportStatusCompleted, done.Status)
	assert.Equal(t, int64(3), done.RecordCount)
	assert.Contains(t, done.ResultName, "-filtered")
	assert.True(t, strings.HasSuffix(done.ResultName, ".json"), "result name %q", done.ResultName)

	reader, _, err := fx.svc.OpenArtifact(ctx, job.ID)
	require.NoError(t, err)
	defer reader.Close()
	data, err := io.ReadAll(reader)
	require.NoError(t, err)

	var doc struct {
		Metadata struct {
			TotalRecords int64 `json:"totalRecords"`
		} `json:"metadata"`
		Tasks []domain.Task `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, int64(3), doc.Metadata.TotalRecords)
	require.Len(t, doc.Tasks, 3)
	for _, task := range doc.Tasks {
		assert.Equal(t, domain.TaskStatusCompleted, task.Status)
	}
}

func TestCreateExportValidation(t *testing.T) {
	fx := newExportFixture(t)
	ctx := context.Background()

	_, err := fx.svc.CreateExport(ctx, "xml", nil)
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, err = fx.svc.CreateExport(ctx, "csv", map[string]string{"dateFrom": "whenever"})
	assert.ErrorIs(t, err, ErrInvalidFilter)

	// Validation failures must not leave job records behind
	_, total, err := fx.svc.ListJobs(ctx, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCreateExportServedFromCache(t *testing.T) {
	fx := newExportFixture(t)
	fx.seedTasks(t, 3)
	ctx := context.Background()
	filters := map[string]string{"priority": "medium"}

	first, err := fx.svc.CreateExport(ctx, "csv", filters)
	require.NoError(t, err)
	fx.svc.Wait()

	second, err := fx.svc.CreateExport(ctx, "csv", filters)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, domain.ExportStatusCompleted, second.Status)

	_, total, err := fx.svc.ListJobs(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total, "cache hit must not create a second job")

	// A different format is a different request
	third, err := fx.svc.CreateExport(ctx, "json", filters)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
	fx.svc.Wait()
}

func TestCreateExportSurvivesCacheOutage(t *testing.T) {
	fx := newExportFixture(t)
	fx.seedTasks(t, 3)
	ctx := context.Background()

	svc := withSource(t, fx, fx.tasks, brokenCache{})

	job, err := svc.CreateExport(ctx, "csv", nil)
	require.NoError(t, err)
	svc.Wait()

	done, err := svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExportStatusCompleted, done.Status)
	assert.Equal(t, int64(3), done.RecordCount)
}

func TestExportFailureMarksJobFailed(t *testing.T) {
	fx := newExportFixture(t)
	ctx := context.Background()

	svc := withSource(t, fx, brokenSource{}, fx.cache)

	job, err := svc.CreateExport(ctx, "csv", nil)
	require.NoError(t, err)
	svc.Wait()

	failed, err := svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExportStatusFailed, failed.Status)
	assert.Contains(t, failed.Error, "source unavailable")
	assert.Empty(t, failed.ResultKey)
	require.NotNil(t, failed.CompletedAt)

	statuses := fx.notifier.statuses()
	assert.Equal(t, domain.ExportStatusFailed, statuses[len(statuses)-1])
}

func TestStaleCacheEntryTreatedAsMiss(t *testing.T) {
	fx := newExportFixture(t)
	fx.seedTasks(t, 2)
	ctx := context.Background()

	// Entry points at a job that no longer exists
	key := ExportCacheKey(domain.ExportFormatCSV, nil)
	require.NoError(t, fx.cache.Put(ctx, key, &cache.Snapshot{JobID: "vanished"}, time.Minute))

	job, err := fx.svc.CreateExport(ctx, "csv", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ExportStatusPending, job.Status)
	fx.svc.Wait()
}

func TestOpenArtifactStateMapping(t *testing.T) {
	fx := newExportFixture(t)
	fx.seedTasks(t, 2)
	ctx := context.Background()

	_, _, err := fx.svc.OpenArtifact(ctx, "does-not-exist")
	assert.ErrorIs(t, err, ErrJobNotFound)

	// A job that never left pending
	pending := &domain.ExportJob{
		ID:     "pending-job",
		Format: domain.ExportFormatCSV,
		Status: domain.ExportStatusPending,
	}
	require.NoError(t, fx.jobs.Create(ctx, pending))
	_, _, err = fx.svc.OpenArtifact(ctx, pending.ID)
	assert.ErrorIs(t, err, ErrExportNotReady)

	// A completed job whose artifact was removed externally
	job, err := fx.svc.CreateExport(ctx, "csv", nil)
	require.NoError(t, err)
	fx.svc.Wait()
	done, err := fx.svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.NoError(t, fx.store.Delete(ctx, done.ResultKey))

	_, _, err = fx.svc.OpenArtifact(ctx, job.ID)
	assert.ErrorIs(t, err, ErrArtifactMissing)
}

func TestListJobsPagination(t *testing.T) {
	fx := newExportFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, fx.jobs.Create(ctx, &domain.ExportJob{
			ID:        fmt.Sprintf("job-%d", i),
			Format:    domain.ExportFormatCSV,
			Status:    domain.ExportStatusPending,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}))
	}

	jobs, total, err := fx.svc.ListJobs(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, jobs, 2)
	assert.Equal(t, "job-4", jobs[0].ID, "newest first")

	// Out-of-range values are clamped, not rejected
	jobs, _, err = fx.svc.ListJobs(ctx, 0, -1)
	require.NoError(t, err)
	assert.NotEmpty(t, jobs)
}
