// Package ingest implements the per-tenant, per-atom-kind controller: decode,
// redact, schema-sync, append, and idempotent virtual-view synchronization.
package ingest

import (
	"fmt"
	"strings"

	"github.com/spaolacci/murmur3"
)

// DatasetID derives the tenant's warehouse dataset name deterministically
// from the team id. The sanitized id keeps datasets human-readable; the
// murmur3 suffix keeps two team ids that sanitize identically from
// colliding.
func DatasetID(teamID string) string {
	return fmt.Sprintf("vivial_%s_%08x", sanitizeDatasetID(teamID), murmur3.Sum32([]byte(teamID)))
}

// sanitizeDatasetID lower-cases and maps the team id onto the warehouse
// dataset charset (letters, digits, underscores), truncating long ids.
func sanitizeDatasetID(teamID string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(teamID) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := b.String()
	if len(s) > 64 {
		s = s[:64]
	}
	return s
}
