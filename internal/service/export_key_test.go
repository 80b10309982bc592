package service

import (
	"testing"

	"github.com/haln/taskboard/internal/domain"
)

// TestExportCacheKeyDeterministic verifies that equivalent requests always
// produce the same key regardless of map iteration order
func TestExportCacheKeyDeterministic(t *testing.T) {
	testCases := []struct {
		name    string
		format  domain.ExportFormat
		filters map[string]string
	}{
		{
			name:    "no filters",
			format:  domain.ExportFormatCSV,
			filters: nil,
		},
		{
			name:   "single filter",
			format: domain.ExportFormatCSV,
			filters: map[string]string{
				"status": "completed",
			},
		},
		{
			name:   "multiple filters",
			format: domain.ExportFormatJSON,
			filters: map[string]string{
				"status":   "todo",
				"priority": "high",
				"search":   "deploy",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			key1 := ExportCacheKey(tc.format, tc.filters)
			key2 := ExportCacheKey(tc.format, tc.filters)
			key3 := ExportCacheKey(tc.format, tc.filters)

			if key1 != key2 || key1 != key3 {
				t.Errorf("Key not stable across calls: %s, %s, %s", key1, key2, key3)
			}
			if len(key1) != 64 {
				t.Errorf("Invalid key length: got %d, want 64", len(key1))
			}
		})
	}
}

// TestExportCacheKeyOrderInsensitive verifies that filter insertion order
// does not change the key
func TestExportCacheKeyOrderInsensitive(t *testing.T) {
	a := map[string]string{}
	a["status"] = "todo"
	a["priority"] = "high"
	a["search"] = "deploy"

	b := map[string]string{}
	b["search"] = "deploy"
	b["priority"] = "high"
	b["status"] = "todo"

	keyA := ExportCacheKey(domain.ExportFormatCSV, a)
	keyB := ExportCacheKey(domain.ExportFormatCSV, b)
	if keyA != keyB {
		t.Errorf("Equivalent filters produced different keys: %s != %s", keyA, keyB)
	}
}

// TestExportCacheKeyUniqueness verifies that distinct requests produce
// distinct keys
func TestExportCacheKeyUniqueness(t *testing.T) {
	base := ExportCacheKey(domain.ExportFormatCSV, map[string]string{"status": "todo"})

	variants := map[string]string{
		"different format": ExportCacheKey(domain.ExportFormatJSON, map[string]string{"status": "todo"}),
		"different value":  ExportCacheKey(domain.ExportFormatCSV, map[string]string{"status": "completed"}),
		"different key":    ExportCacheKey(domain.ExportFormatCSV, map[string]string{"priority": "todo"}),
		"extra filter":     ExportCacheKey(domain.ExportFormatCSV, map[string]string{"status": "todo", "priority": "high"}),
		"no filters":       ExportCacheKey(domain.ExportFormatCSV, nil),
	}

	for name, key := range variants {
		if key == base {
			t.Errorf("%s should produce a different key than the base request", name)
		}
	}
}

// TestExportCacheKeyBoundaryCollision verifies that key/value boundaries are
// unambiguous: {"ab": "c"} and {"a": "bc"} must not collide
func TestExportCacheKeyBoundaryCollision(t *testing.T) {
	keyA := ExportCacheKey(domain.ExportFormatCSV, map[string]string{"ab": "c"})
	keyB := ExportCacheKey(domain.ExportFormatCSV, map[string]string{"a": "bc"})
	if keyA == keyB {
		t.Errorf("Shifted key/value boundary produced a collision: %s", keyA)
	}
}
