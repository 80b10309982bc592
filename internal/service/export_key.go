package service

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/haln/taskboard/internal/domain"
)

// ExportCacheKey produces the deterministic cache key for an export request.
//
// Filter keys are sorted before hashing so two requests with the same
// filters in different insertion order map to the same key; serializing the
// map naively would make the key order-sensitive. The format is folded into
// the digest so identical filters with different formats never collide.
// Parameters:
//   - format: export artifact format.
//   - filters: raw filter mapping as received from the caller.
// Returns:
//   - string: hex-encoded SHA-256 digest.
func ExportCacheKey(format domain.ExportFormat, filters map[string]string) string {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	h.Write([]byte(format))
	h.Write([]byte{0})
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{1})
		h.Write([]byte(filters[k]))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
