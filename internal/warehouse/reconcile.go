package warehouse

import (
	"context"
	"errors"
	"log"

	verrors "github.com/bricker/vivial-sub003/internal/errors"
	"github.com/bricker/vivial-sub003/pkg/types"
)

// GetAndSyncOrCreateTable ensures the tenant's table exists and its live
// schema matches the declared TableSpec, creating the dataset and table as
// needed. Schema drift is reconciled additively by pushing the declared
// schema to the warehouse.
//
// A schema update the warehouse rejects (e.g. a column was removed from the
// declaration) is logged and swallowed when strict is false, and returned as
// an error when strict is true. Production runs non-strict to stay
// available; everything else fails loudly so unsafe migrations surface
// during development.
func GetAndSyncOrCreateTable(ctx context.Context, c Client, datasetID string, spec types.TableSpec, strict bool) (*Table, error) {
	if err := c.GetOrCreateDataset(ctx, datasetID); err != nil {
		return nil, verrors.NewWarehouseError(verrors.CodeDatasetCreateFailed,
			"failed to ensure dataset "+datasetID, err)
	}

	declared := &Table{
		DatasetID:    datasetID,
		TableID:      spec.TableID,
		FriendlyName: spec.FriendlyName,
		Description:  spec.Description,
		Schema:       spec.Schema,
	}

	live, err := c.GetTable(ctx, datasetID, spec.TableID)
	if err != nil {
		return nil, verrors.NewWarehouseError(verrors.CodeTableCreateFailed,
			"failed to look up table "+spec.TableID, err)
	}

	if live == nil {
		err := c.CreateTable(ctx, declared)
		if err != nil && !errors.Is(err, ErrAlreadyExists) {
			return nil, verrors.NewWarehouseError(verrors.CodeTableCreateFailed,
				"failed to create table "+spec.TableID, err)
		}
		return declared, nil
	}

	if types.SchemasMatch(live.Schema, spec.Schema) {
		return live, nil
	}

	log.Printf("warehouse: schema drift detected on %s.%s, pushing declared schema", datasetID, spec.TableID)
	if err := c.UpdateTable(ctx, declared); err != nil {
		werr := verrors.NewWarehouseError(verrors.CodeSchemaUpdateRejected,
			"warehouse rejected schema update for "+spec.TableID, err)
		if strict {
			return nil, werr
		}
		log.Printf("[WARN] warehouse: %v", werr)
		return live, nil
	}

	return declared, nil
}
