package serializer

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/haln/taskboard/internal/domain"
)

// JSONWriter streams tasks as a single JSON object:
//
//	{"metadata":{...},"tasks":[...]}
//
// Records are marshaled one at a time so memory stays bounded regardless of
// record count. The output is valid JSON only after Finish returns nil.
type JSONWriter struct {
	w       *bufio.Writer
	written int64
}

// NewJSONWriter creates a JSONWriter targeting w.
func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{w: bufio.NewWriter(w)}
}

type jsonMetadata struct {
	ExportedAt   string `json:"exportedAt"`
	TotalRecords int64  `json:"totalRecords"`
	Format       string `json:"format"`
}

// Begin writes the metadata section and opens the tasks array.
func (j *JSONWriter) Begin(meta Metadata) error {
	metaBytes, err := json.Marshal(jsonMetadata{
		ExportedAt:   meta.ExportedAt.Format(time.RFC3339),
		TotalRecords: meta.TotalRecords,
		Format:       string(meta.Format),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal export metadata: %w", err)
	}
	if _, err := fmt.Fprintf(j.w, `{"metadata":%s,"tasks":[`, metaBytes); err != nil {
		return err
	}
	return nil
}

// WriteBatch appends a batch of records, placing commas between elements.
func (j *JSONWriter) WriteBatch(tasks []domain.Task) error {
	for i := range tasks {
		if j.written > 0 {
			if err := j.w.WriteByte(','); err != nil {
				return err
			}
		}
		b, err := json.Marshal(&tasks[i])
		if err != nil {
			return fmt.Errorf("failed to marshal task %s: %w", tasks[i].ID, err)
		}
		if _, err := j.w.Write(b); err != nil {
			return err
		}
		j.written++
	}
	return nil
}

// Finish closes the tasks array and the enclosing object, then flushes.
func (j *JSONWriter) Finish() error {
	if _, err := j.w.WriteString("]}"); err != nil {
		return err
	}
	return j.w.Flush()
}
