package repository

import (
	"context"

	"github.com/haln/taskboard/internal/domain"
	"gorm.io/gorm"
)

// TaskRepository handles task data operations.
type TaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *TaskRepository: repository instance bound to db.
func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a new task record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - task: task record to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// GetByID retrieves a task by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: task ID.
// Returns:
//   - *domain.Task: task record if found.
//   - error: non-nil if lookup fails.
func (r *TaskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	var task domain.Task
	if err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// Count counts tasks matching the filter.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - filter: normalized predicate; nil matches all tasks.
// Returns:
//   - int64: number of matching records.
//   - error: non-nil if the query fails.
func (r *TaskRepository) Count(ctx context.Context, filter *TaskFilter) (int64, error) {
	var count int64
	q := filter.apply(r.db.WithContext(ctx).Model(&domain.Task{}))
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindPage retrieves a page of tasks matching the filter, most recently
// created first. The id tiebreak keeps the ordering stable across pages,
// which exports rely on for reproducible output.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - filter: normalized predicate; nil matches all tasks.
//   - limit: maximum number of records to return.
//   - offset: number of records to skip.
// Returns:
//   - []domain.Task: matching task records.
//   - error: non-nil if the query fails.
func (r *TaskRepository) FindPage(ctx context.Context, filter *TaskFilter, limit, offset int) ([]domain.Task, error) {
	var tasks []domain.Task
	q := filter.apply(r.db.WithContext(ctx).Model(&domain.Task{}))
	if err := q.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// CountsByStatus counts tasks grouped by status.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - map[domain.TaskStatus]int64: record count per status.
//   - error: non-nil if the query fails.
func (r *TaskRepository) CountsByStatus(ctx context.Context) (map[domain.TaskStatus]int64, error) {
	type row struct {
		Status domain.TaskStatus
		N      int64
	}
	var rows []row
	if err := r.db.WithContext(ctx).Model(&domain.Task{}).
		Select("status, COUNT(*) as n").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[domain.TaskStatus]int64, len(rows))
	for _, rw := range rows {
		counts[rw.Status] = rw.N
	}
	return counts, nil
}
