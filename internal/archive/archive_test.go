package archive

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocalArchiver(t *testing.T) *Archiver {
	t.Helper()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return NewArchiver(store)
}

func TestArchiver_RoundTrip(t *testing.T) {
	a := newLocalArchiver(t)
	ctx := context.Background()

	payloads := []map[string]interface{}{
		{"action": "click", "timestamp": float64(1700000000)},
		{"action": "page_view"},
	}

	require.NoError(t, a.Archive(ctx, "team_1", "atoms_browser_events", payloads))

	keys, err := a.List(ctx, "team_1", "atoms_browser_events")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "archive/team_1/atoms_browser_events/"))
	assert.True(t, strings.HasSuffix(keys[0], ".json.sz"))

	got, err := a.Read(ctx, keys[0])
	require.NoError(t, err)
	assert.Equal(t, payloads, got)
}

func TestArchiver_EmptyBatchWritesNothing(t *testing.T) {
	a := newLocalArchiver(t)
	ctx := context.Background()

	require.NoError(t, a.Archive(ctx, "team_1", "atoms_browser_events", nil))

	keys, err := a.List(ctx, "team_1", "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestArchiver_BatchesNeverOverwrite(t *testing.T) {
	a := newLocalArchiver(t)
	ctx := context.Background()

	batch := []map[string]interface{}{{"action": "click"}}
	require.NoError(t, a.Archive(ctx, "team_1", "atoms_browser_events", batch))
	require.NoError(t, a.Archive(ctx, "team_1", "atoms_browser_events", batch))

	keys, err := a.List(ctx, "team_1", "atoms_browser_events")
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestArchiver_ListScopesByTeamAndTable(t *testing.T) {
	a := newLocalArchiver(t)
	ctx := context.Background()

	batch := []map[string]interface{}{{"action": "click"}}
	require.NoError(t, a.Archive(ctx, "team_1", "atoms_browser_events", batch))
	require.NoError(t, a.Archive(ctx, "team_1", "atoms_db_events_v1", batch))
	require.NoError(t, a.Archive(ctx, "team_2", "atoms_browser_events", batch))

	keys, err := a.List(ctx, "team_1", "")
	require.NoError(t, err)
	assert.Len(t, keys, 2)

	keys, err = a.List(ctx, "team_1", "atoms_db_events_v1")
	require.NoError(t, err)
	assert.Len(t, keys, 1)

	keys, err = a.List(ctx, "team_3", "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestLocalStorage_GetMissingObject(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "archive/team_1/nope.json.sz")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestLocalStorage_Exists(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := store.Exists(ctx, "a/b.txt")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, "a/b.txt", []byte("data")))

	ok, err = store.Exists(ctx, "a/b.txt")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalStorage_PutOverwrites(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "a/b.txt", []byte("one")))
	require.NoError(t, store.Put(ctx, "a/b.txt", []byte("two")))

	data, err := store.Get(ctx, "a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), data)
}
