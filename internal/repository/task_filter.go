package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// FilterError reports a filter value that could not be interpreted.
// It is returned before any query executes.
type FilterError struct {
	Key   string
	Value string
	Cause error
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("invalid filter %q: %q", e.Key, e.Value)
}

func (e *FilterError) Unwrap() error {
	return e.Cause
}

// TaskFilter is the normalized query predicate derived from a raw filter
// mapping. A zero-value filter matches all tasks.
type TaskFilter struct {
	Status        string
	Priority      string
	Search        string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	CompletedFrom *time.Time
	CompletedTo   *time.Time
}

// Empty reports whether the filter constrains nothing.
func (f *TaskFilter) Empty() bool {
	return f.Status == "" && f.Priority == "" && f.Search == "" &&
		f.CreatedFrom == nil && f.CreatedTo == nil &&
		f.CompletedFrom == nil && f.CompletedTo == nil
}

// dateLayouts are the accepted input formats for date filters, tried in order.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
}

// BuildTaskFilter translates a loosely-typed filter mapping into a TaskFilter.
//
// Recognized keys: status, priority (value "all" treated as absent), search,
// dateFrom, dateTo, completedDateFrom, completedDateTo. Unrecognized keys are
// ignored. Malformed date values yield a *FilterError; a bad date is never
// silently coerced into an unbounded range.
// Parameters:
//   - raw: filter names mapped to raw string values.
// Returns:
//   - *TaskFilter: normalized predicate.
//   - error: *FilterError if a date value cannot be parsed.
func BuildTaskFilter(raw map[string]string) (*TaskFilter, error) {
	f := &TaskFilter{}
	if len(raw) == 0 {
		return f, nil
	}

	if v, ok := raw["status"]; ok && v != "" && v != "all" {
		f.Status = v
	}
	if v, ok := raw["priority"]; ok && v != "" && v != "all" {
		f.Priority = v
	}
	if v, ok := raw["search"]; ok && v != "" {
		f.Search = v
	}

	var err error
	if f.CreatedFrom, err = parseDateFilter(raw, "dateFrom", false); err != nil {
		return nil, err
	}
	if f.CreatedTo, err = parseDateFilter(raw, "dateTo", true); err != nil {
		return nil, err
	}
	if f.CompletedFrom, err = parseDateFilter(raw, "completedDateFrom", false); err != nil {
		return nil, err
	}
	if f.CompletedTo, err = parseDateFilter(raw, "completedDateTo", true); err != nil {
		return nil, err
	}

	return f, nil
}

// parseDateFilter parses an optional date value from the raw mapping.
// Date-only upper bounds are extended to the end of the day so the bound
// stays inclusive.
func parseDateFilter(raw map[string]string, key string, upper bool) (*time.Time, error) {
	v, ok := raw[key]
	if !ok || v == "" {
		return nil, nil
	}

	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, v)
		if err != nil {
			continue
		}
		if upper && layout == "2006-01-02" {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return &t, nil
	}

	return nil, &FilterError{Key: key, Value: v, Cause: fmt.Errorf("unparseable date")}
}

// apply appends the filter's predicates to a tasks query.
// Parameters:
//   - q: base GORM query against the tasks table.
// Returns:
//   - *gorm.DB: query with predicates applied.
func (f *TaskFilter) apply(q *gorm.DB) *gorm.DB {
	if f == nil {
		return q
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Priority != "" {
		q = q.Where("priority = ?", f.Priority)
	}
	if f.Search != "" {
		// LOWER+LIKE keeps the match case-insensitive on both SQLite and Postgres
		pattern := "%" + escapeLike(f.Search) + "%"
		q = q.Where("LOWER(title) LIKE LOWER(?) ESCAPE '\\' OR LOWER(description) LIKE LOWER(?) ESCAPE '\\'", pattern, pattern)
	}
	if f.CreatedFrom != nil {
		q = q.Where("created_at >= ?", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		q = q.Where("created_at <= ?", *f.CreatedTo)
	}
	if f.CompletedFrom != nil {
		q = q.Where("completed_at >= ?", *f.CompletedFrom)
	}
	if f.CompletedTo != nil {
		q = q.Where("completed_at <= ?", *f.CompletedTo)
	}
	return q
}

// escapeLike escapes LIKE metacharacters in user-supplied search text.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
