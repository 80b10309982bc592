package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// ExportFormat enumerates the supported export artifact formats.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatJSON ExportFormat = "json"
)

// Valid reports whether the format is one of the supported values.
func (f ExportFormat) Valid() bool {
	return f == ExportFormatCSV || f == ExportFormatJSON
}

// ExportStatus represents the lifecycle status of an export job.
// Values include ExportStatusPending, ExportStatusProcessing,
// ExportStatusCompleted, and ExportStatusFailed.
type ExportStatus string

const (
	ExportStatusPending    ExportStatus = "pending"
	ExportStatusProcessing ExportStatus = "processing"
	ExportStatusCompleted  ExportStatus = "completed"
	ExportStatusFailed     ExportStatus = "failed"
)

// Terminal reports whether the status is a terminal state.
// Completed and failed jobs are never resumed.
func (s ExportStatus) Terminal() bool {
	return s == ExportStatusCompleted || s == ExportStatusFailed
}

// FilterMap is a custom type for storing the raw export filters as JSON
// in the database. The mapping is opaque at this layer; only the task
// filter builder assigns meaning to its keys.
type FilterMap map[string]string

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded representation of the mapping.
//   - error: non-nil if marshaling fails.
func (m FilterMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (m *FilterMap) Scan(value interface{}) error {
	if value == nil {
		*m = FilterMap{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan FilterMap")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, m)
}

// ExportJob represents one export request's full lifecycle record.
//
// Invariants maintained by the export service:
//   - CompletedAt is set iff the status is terminal, and only once.
//   - ResultKey/ResultName are set iff the status is completed.
//   - Error is set iff the status is failed.
//   - Format and Filters are immutable after creation.
type ExportJob struct {
	ID          string       `gorm:"type:text;primaryKey" json:"id"`
	Format      ExportFormat `gorm:"type:text;not null" json:"format"`
	Filters     FilterMap    `gorm:"type:text" json:"filters"`
	Status      ExportStatus `gorm:"type:text;index:idx_export_jobs_status;default:pending" json:"status"`
	RecordCount int64        `gorm:"default:0" json:"record_count"`
	ResultKey   string       `gorm:"type:text" json:"result_key,omitempty"`
	ResultName  string       `gorm:"type:text" json:"result_name,omitempty"`
	Error       string       `gorm:"type:text" json:"error,omitempty"`
	CreatedAt   time.Time    `gorm:"index:idx_export_jobs_created_at" json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// TableName returns the database table name for ExportJob.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (ExportJob) TableName() string {
	return "export_jobs"
}
