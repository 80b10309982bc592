package repository

import (
	"context"
	"testing"
	"time"

	"github.com/haln/taskboard/internal/domain"
)

func seedJob(t *testing.T, repo *ExportJobRepository, job *domain.ExportJob) {
	t.Helper()
	if err := repo.Create(context.Background(), job); err != nil {
		t.Fatalf("Failed to seed job %s: %v", job.ID, err)
	}
}

func TestExportJobLifecycle(t *testing.T) {
	db := openTestDB(t)
	repo := NewExportJobRepository(db)
	ctx := context.Background()

	seedJob(t, repo, &domain.ExportJob{
		ID:     "job-1",
		Format: domain.ExportFormatCSV,
		Status: domain.ExportStatusPending,
	})

	if err := repo.MarkProcessing(ctx, "job-1"); err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}
	job, err := repo.GetByID(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if job.Status != domain.ExportStatusProcessing {
		t.Errorf("Expected processing, got %s", job.Status)
	}
	if job.CompletedAt != nil {
		t.Error("CompletedAt should be unset while processing")
	}

	if err := repo.MarkCompleted(ctx, "job-1", 42, "2026/03/result.csv", "result.csv"); err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}
	job, err = repo.GetByID(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if job.Status != domain.ExportStatusCompleted {
		t.Errorf("Expected completed, got %s", job.Status)
	}
	if job.RecordCount != 42 || job.ResultKey != "2026/03/result.csv" || job.ResultName != "result.csv" {
		t.Errorf("Completion fields not recorded atomically: %+v", job)
	}
	if job.CompletedAt == nil {
		t.Fatal("CompletedAt should be set on completion")
	}
}

func TestCompletedAtIsWriteOnce(t *testing.T) {
	db := openTestDB(t)
	repo := NewExportJobRepository(db)
	ctx := context.Background()

	seedJob(t, repo, &domain.ExportJob{
		ID:     "job-1",
		Format: domain.ExportFormatJSON,
		Status: domain.ExportStatusPending,
	})

	if err := repo.MarkCompleted(ctx, "job-1", 5, "k1", "n1"); err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}
	first, err := repo.GetByID(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}

	// A second terminal transition must not overwrite the record
	if err := repo.MarkFailed(ctx, "job-1", "late failure"); err != nil {
		t.Fatalf("MarkFailed returned unexpected error: %v", err)
	}
	second, err := repo.GetByID(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}

	if second.Status != domain.ExportStatusCompleted {
		t.Errorf("Terminal status was overwritten: %s", second.Status)
	}
	if second.Error != "" {
		t.Errorf("Error field was written after completion: %q", second.Error)
	}
	if !second.CompletedAt.Equal(*first.CompletedAt) {
		t.Errorf("CompletedAt changed: %v -> %v", first.CompletedAt, second.CompletedAt)
	}
}

func TestMarkProcessingRequiresPending(t *testing.T) {
	db := openTestDB(t)
	repo := NewExportJobRepository(db)
	ctx := context.Background()

	now := time.Now()
	seedJob(t, repo, &domain.ExportJob{
		ID:          "job-1",
		Format:      domain.ExportFormatCSV,
		Status:      domain.ExportStatusFailed,
		Error:       "boom",
		CompletedAt: &now,
	})

	if err := repo.MarkProcessing(ctx, "job-1"); err != nil {
		t.Fatalf("MarkProcessing returned unexpected error: %v", err)
	}
	job, err := repo.GetByID(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if job.Status != domain.ExportStatusFailed {
		t.Errorf("Failed job was resumed: %s", job.Status)
	}
}

func TestListTerminalBefore(t *testing.T) {
	db := openTestDB(t)
	repo := NewExportJobRepository(db)
	ctx := context.Background()

	old := time.Now().AddDate(0, 0, -30)
	recent := time.Now().AddDate(0, 0, -1)
	doneAt := time.Now()

	seedJob(t, repo, &domain.ExportJob{ID: "old-completed", Format: domain.ExportFormatCSV, Status: domain.ExportStatusCompleted, CreatedAt: old, CompletedAt: &doneAt})
	seedJob(t, repo, &domain.ExportJob{ID: "old-failed", Format: domain.ExportFormatCSV, Status: domain.ExportStatusFailed, CreatedAt: old, CompletedAt: &doneAt})
	seedJob(t, repo, &domain.ExportJob{ID: "old-pending", Format: domain.ExportFormatCSV, Status: domain.ExportStatusPending, CreatedAt: old})
	seedJob(t, repo, &domain.ExportJob{ID: "old-processing", Format: domain.ExportFormatCSV, Status: domain.ExportStatusProcessing, CreatedAt: old})
	seedJob(t, repo, &domain.ExportJob{ID: "recent-completed", Format: domain.ExportFormatCSV, Status: domain.ExportStatusCompleted, CreatedAt: recent, CompletedAt: &doneAt})

	cutoff := time.Now().AddDate(0, 0, -7)
	jobs, err := repo.ListTerminalBefore(ctx, cutoff)
	if err != nil {
		t.Fatalf("ListTerminalBefore failed: %v", err)
	}

	got := make(map[string]bool, len(jobs))
	for _, job := range jobs {
		got[job.ID] = true
	}
	if len(jobs) != 2 || !got["old-completed"] || !got["old-failed"] {
		t.Errorf("Expected exactly old-completed and old-failed, got %v", got)
	}
}
