package ingest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/spaolacci/murmur3"
	"github.com/stretchr/testify/assert"
)

func TestDatasetID(t *testing.T) {
	id := DatasetID("Acme Corp")
	assert.Equal(t, fmt.Sprintf("vivial_acme_corp_%08x", murmur3.Sum32([]byte("Acme Corp"))), id)
}

func TestDatasetID_Deterministic(t *testing.T) {
	assert.Equal(t, DatasetID("team-1"), DatasetID("team-1"))
}

func TestDatasetID_DistinctTeamsDistinctDatasets(t *testing.T) {
	// "team 1" and "team_1" sanitize identically; the hash suffix keeps them
	// apart.
	a := DatasetID("team 1")
	b := DatasetID("team_1")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "vivial_team_1_"))
	assert.True(t, strings.HasPrefix(b, "vivial_team_1_"))
}

func TestSanitizeDatasetID(t *testing.T) {
	assert.Equal(t, "acme_corp", sanitizeDatasetID("Acme Corp"))
	assert.Equal(t, "team_1", sanitizeDatasetID("team-1"))
	assert.Equal(t, "_______", sanitizeDatasetID("!@#$%^&"))
}

func TestSanitizeDatasetID_Truncates(t *testing.T) {
	long := strings.Repeat("a", 100)
	s := sanitizeDatasetID(long)
	assert.Len(t, s, 64)

	// The full dataset id stays within the warehouse's length bounds.
	assert.LessOrEqual(t, len(DatasetID(long)), 64+len("vivial_")+1+8)
}
