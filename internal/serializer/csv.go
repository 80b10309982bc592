package serializer

import (
	"bufio"
	"io"
	"strings"
	"time"

	"github.com/haln/taskboard/internal/domain"
)

// csvHeader is the fixed column header row. Column order is part of the
// artifact contract and must not change between releases.
var csvHeader = []string{
	"id",
	"title",
	"description",
	"status",
	"priority",
	"assignee",
	"due_date",
	"completed_at",
	"created_at",
}

// CSVWriter streams tasks as CSV. Every field is quoted and embedded double
// quotes are doubled; embedded commas and newlines pass through inside the
// quotes unescaped (simple-quoting CSV semantics).
type CSVWriter struct {
	w *bufio.Writer
}

// NewCSVWriter creates a CSVWriter targeting w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: bufio.NewWriter(w)}
}

// Begin writes the header row. The metadata is not represented in CSV output.
func (c *CSVWriter) Begin(_ Metadata) error {
	return c.writeRow(csvHeader)
}

// WriteBatch appends one row per task.
func (c *CSVWriter) WriteBatch(tasks []domain.Task) error {
	for i := range tasks {
		if err := c.writeRow(taskRow(&tasks[i])); err != nil {
			return err
		}
	}
	return nil
}

// Finish flushes buffered output.
func (c *CSVWriter) Finish() error {
	return c.w.Flush()
}

func (c *CSVWriter) writeRow(fields []string) error {
	for i, field := range fields {
		if i > 0 {
			if err := c.w.WriteByte(','); err != nil {
				return err
			}
		}
		if err := c.w.WriteByte('"'); err != nil {
			return err
		}
		if _, err := c.w.WriteString(strings.ReplaceAll(field, `"`, `""`)); err != nil {
			return err
		}
		if err := c.w.WriteByte('"'); err != nil {
			return err
		}
	}
	return c.w.WriteByte('\n')
}

func taskRow(t *domain.Task) []string {
	return []string{
		t.ID,
		t.Title,
		t.Description,
		string(t.Status),
		string(t.Priority),
		t.Assignee,
		formatTimePtr(t.DueDate),
		formatTimePtr(t.CompletedAt),
		t.CreatedAt.Format(time.RFC3339),
	}
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
