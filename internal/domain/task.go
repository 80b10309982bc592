package domain

import "time"

// TaskStatus represents the workflow status of a task.
// Values include TaskStatusTodo, TaskStatusInProgress, and TaskStatusCompleted.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// TaskPriority represents the priority level of a task.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// Task represents a single task on the dashboard.
// Tasks are the records materialized into export artifacts.
type Task struct {
	ID          string       `gorm:"type:text;primaryKey" json:"id"`
	Title       string       `gorm:"type:text;not null" json:"title"`
	Description string       `gorm:"type:text" json:"description"`
	Status      TaskStatus   `gorm:"type:text;index:idx_tasks_status;default:todo" json:"status"`
	Priority    TaskPriority `gorm:"type:text;index:idx_tasks_priority;default:medium" json:"priority"`
	Assignee    string       `gorm:"type:text" json:"assignee,omitempty"`
	DueDate     *time.Time   `json:"due_date,omitempty"`
	CompletedAt *time.Time   `gorm:"index:idx_tasks_completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time    `gorm:"index:idx_tasks_created_at" json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// TableName returns the database table name for Task.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (Task) TableName() string {
	return "tasks"
}
