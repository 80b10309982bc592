package service

import (
	"context"
	"fmt"

	"github.com/haln/taskboard/internal/domain"
	"github.com/haln/taskboard/internal/repository"
)

// TaskService exposes the dashboard's read surface: filtered task listings
// and status breakdowns.
type TaskService struct {
	tasks *repository.TaskRepository
	jobs  *repository.ExportJobRepository
}

// BoardStats aggregates status counts for the dashboard header.
type BoardStats struct {
	Tasks   map[string]int64 `json:"tasks"`
	Exports map[string]int64 `json:"exports"`
}

// NewTaskService creates a new task service.
func NewTaskService(tasks *repository.TaskRepository, jobs *repository.ExportJobRepository) *TaskService {
	return &TaskService{
		tasks: tasks,
		jobs:  jobs,
	}
}

// ListTasks returns a page of tasks matching the given raw filters.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - filters: raw filter mapping; same vocabulary as exports.
//   - page: 1-based page number; values below 1 are clamped to 1.
//   - limit: page size; clamped to [1, 100], default 20.
// Returns:
//   - []domain.Task: page of matching tasks, newest first.
//   - int64: total number of matching tasks.
//   - error: ErrInvalidFilter on a bad filter value, other errors on
//     query failure.
func (s *TaskService) ListTasks(ctx context.Context, filters map[string]string, page, limit int) ([]domain.Task, int64, error) {
	taskFilter, err := repository.BuildTaskFilter(filters)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s", ErrInvalidFilter, err)
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	total, err := s.tasks.Count(ctx, taskFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	tasks, err := s.tasks.FindPage(ctx, taskFilter, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, total, nil
}

// Stats returns task and export job counts grouped by status.
func (s *TaskService) Stats(ctx context.Context) (*BoardStats, error) {
	taskCounts, err := s.tasks.CountsByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks by status: %w", err)
	}
	jobCounts, err := s.jobs.CountsByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count export jobs by status: %w", err)
	}

	stats := &BoardStats{
		Tasks:   make(map[string]int64, len(taskCounts)),
		Exports: make(map[string]int64, len(jobCounts)),
	}
	for status, n := range taskCounts {
		stats.Tasks[string(status)] = n
	}
	for status, n := range jobCounts {
		stats.Exports[string(status)] = n
	}
	return stats, nil
}
