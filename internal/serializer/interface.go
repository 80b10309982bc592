package serializer

import (
	"fmt"
	"io"
	"time"

	"github.com/haln/taskboard/internal/domain"
)

// Metadata describes an export artifact as a whole. The total record count
// is determined by the caller before streaming begins so the JSON writer can
// emit it up front.
type Metadata struct {
	ExportedAt   time.Time
	TotalRecords int64
	Format       domain.ExportFormat
}

// RecordWriter writes an ordered sequence of tasks to an artifact
// incrementally. Implementations hold at most one batch of records in memory
// at a time; the artifact is well-formed only after Finish returns nil.
//
// Usage: Begin once, WriteBatch zero or more times, Finish once.
type RecordWriter interface {
	// Begin writes any artifact prologue (header row, metadata section).
	Begin(meta Metadata) error

	// WriteBatch appends a batch of records to the artifact.
	WriteBatch(tasks []domain.Task) error

	// Finish writes the artifact epilogue and flushes buffered output.
	Finish() error
}

// New creates a RecordWriter for the given format writing to w.
// Parameters:
//   - format: export artifact format.
//   - w: destination for serialized output.
// Returns:
//   - RecordWriter: format-specific writer.
//   - error: non-nil if the format is not supported.
func New(format domain.ExportFormat, w io.Writer) (RecordWriter, error) {
	switch format {
	case domain.ExportFormatCSV:
		return NewCSVWriter(w), nil
	case domain.ExportFormatJSON:
		return NewJSONWriter(w), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %q", format)
	}
}
