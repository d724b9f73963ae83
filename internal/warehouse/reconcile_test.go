package warehouse

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	verrors "github.com/bricker/vivial-sub003/internal/errors"
	"github.com/bricker/vivial-sub003/pkg/types"
)

func eventSpec() types.TableSpec {
	return types.TableSpec{
		TableID:      "atoms_browser_events",
		FriendlyName: "Browser Events",
		Description:  "Raw browser interaction atoms.",
		Schema: []*types.FieldSchema{
			{Name: "action", Type: types.FieldString},
			{Name: "timestamp", Type: types.FieldTimestamp},
		},
	}
}

func TestGetAndSyncOrCreateTable_CreatesWhenAbsent(t *testing.T) {
	fake := NewFake()
	ctx := context.Background()

	table, err := GetAndSyncOrCreateTable(ctx, fake, "vivial_acme_deadbeef", eventSpec(), false)
	require.NoError(t, err)
	assert.Equal(t, "vivial_acme_deadbeef", table.DatasetID)
	assert.Equal(t, "atoms_browser_events", table.TableID)
	assert.Equal(t, "Browser Events", table.FriendlyName)

	stored, err := fake.GetTable(ctx, "vivial_acme_deadbeef", "atoms_browser_events")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, types.SchemasMatch(eventSpec().Schema, stored.Schema))
}

func TestGetAndSyncOrCreateTable_ReturnsLiveWhenSchemasMatch(t *testing.T) {
	fake := NewFake()
	ctx := context.Background()

	_, err := GetAndSyncOrCreateTable(ctx, fake, "ds", eventSpec(), false)
	require.NoError(t, err)

	// Prime a failure that would surface if anything tried to update.
	fake.UpdateTableErr = errors.New("should not be called")

	table, err := GetAndSyncOrCreateTable(ctx, fake, "ds", eventSpec(), false)
	require.NoError(t, err)
	assert.Equal(t, "atoms_browser_events", table.TableID)
}

func TestGetAndSyncOrCreateTable_PushesAdditiveSchemaDrift(t *testing.T) {
	fake := NewFake()
	ctx := context.Background()

	_, err := GetAndSyncOrCreateTable(ctx, fake, "ds", eventSpec(), false)
	require.NoError(t, err)

	widened := eventSpec()
	widened.Schema = append(widened.Schema, &types.FieldSchema{Name: "visitor_id", Type: types.FieldString})

	table, err := GetAndSyncOrCreateTable(ctx, fake, "ds", widened, false)
	require.NoError(t, err)
	assert.True(t, types.SchemasMatch(widened.Schema, table.Schema))
	assert.True(t, types.SchemasMatch(widened.Schema, fake.TableSchema("ds", "atoms_browser_events")),
		"declared schema pushed to the warehouse")
}

func TestGetAndSyncOrCreateTable_RejectedUpdateNonStrict(t *testing.T) {
	fake := NewFake()
	ctx := context.Background()

	_, err := GetAndSyncOrCreateTable(ctx, fake, "ds", eventSpec(), false)
	require.NoError(t, err)

	fake.UpdateTableErr = errors.New("narrowing not allowed")

	narrowed := eventSpec()
	narrowed.Schema = narrowed.Schema[:1]

	// Non-strict: the rejection is swallowed and the live table comes back.
	table, err := GetAndSyncOrCreateTable(ctx, fake, "ds", narrowed, false)
	require.NoError(t, err)
	assert.True(t, types.SchemasMatch(eventSpec().Schema, table.Schema),
		"live schema returned, not the rejected declaration")
}

func TestGetAndSyncOrCreateTable_RejectedUpdateStrict(t *testing.T) {
	fake := NewFake()
	ctx := context.Background()

	_, err := GetAndSyncOrCreateTable(ctx, fake, "ds", eventSpec(), true)
	require.NoError(t, err)

	fake.UpdateTableErr = errors.New("narrowing not allowed")

	narrowed := eventSpec()
	narrowed.Schema = narrowed.Schema[:1]

	_, err = GetAndSyncOrCreateTable(ctx, fake, "ds", narrowed, true)
	require.Error(t, err)
	assert.Equal(t, verrors.CodeSchemaUpdateRejected, verrors.GetCode(err))
}

func TestGetAndSyncOrCreateTable_CreateRaceIsBenign(t *testing.T) {
	fake := NewFake()
	ctx := context.Background()

	// Simulate a concurrent creator winning between GetTable and CreateTable:
	// the fake returns ErrAlreadyExists from CreateTable when the table is
	// present, and raceClient hides it from the initial GetTable.
	require.NoError(t, fake.CreateTable(ctx, &Table{
		DatasetID: "ds", TableID: "atoms_browser_events", Schema: eventSpec().Schema,
	}))

	table, err := GetAndSyncOrCreateTable(ctx, &raceClient{Fake: fake}, "ds", eventSpec(), false)
	require.NoError(t, err)
	assert.Equal(t, "atoms_browser_events", table.TableID)
}

// raceClient reports every table as absent so CreateTable hits the
// already-exists path.
type raceClient struct {
	*Fake
}

func (c *raceClient) GetTable(ctx context.Context, datasetID, tableID string) (*Table, error) {
	return nil, nil
}
