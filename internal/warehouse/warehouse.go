// Package warehouse provides the analytics-warehouse client abstraction:
// dataset/table/view management, additive schema reconciliation, best-effort
// row appends with per-row error reporting, and SQL queries. Implementations
// include BigQuery and an in-memory fake for testing.
package warehouse

import (
	"context"
	"errors"
	"fmt"

	"github.com/bricker/vivial-sub003/pkg/types"
)

// Common errors for warehouse operations.
var (
	// ErrAlreadyExists reports that a create raced with another creator.
	// Callers treat it as benign: the object exists either way.
	ErrAlreadyExists = errors.New("warehouse: object already exists")

	// ErrDone signals the end of a row iterator.
	ErrDone = errors.New("warehouse: no more rows")
)

// Table describes a live warehouse table (or view) as the warehouse reports
// it.
type Table struct {
	DatasetID    string
	TableID      string
	FriendlyName string
	Description  string
	Schema       []*types.FieldSchema
	ViewQuery    string
}

// RowError reports a single failed row in a best-effort append.
type RowError struct {
	Index int
	Err   error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Index, e.Err)
}

// RowIterator yields query result rows until ErrDone.
type RowIterator interface {
	Next() (map[string]interface{}, error)
}

// Client abstracts the warehouse. All operations are potential suspension
// points; callers tolerate latency and partial failure at each one
// independently.
type Client interface {
	// GetOrCreateDataset idempotently ensures the dataset exists.
	GetOrCreateDataset(ctx context.Context, datasetID string) error

	// GetTable retrieves a table definition, or nil when absent.
	GetTable(ctx context.Context, datasetID, tableID string) (*Table, error)

	// CreateTable creates a table; ErrAlreadyExists when a concurrent
	// creator won.
	CreateTable(ctx context.Context, t *Table) error

	// UpdateTable pushes schema, friendly name, and description to the
	// live table.
	UpdateTable(ctx context.Context, t *Table) error

	// GetOrCreateView creates the view, or updates its query and
	// description when it already exists.
	GetOrCreateView(ctx context.Context, datasetID string, view types.ViewSpec) error

	// AppendRows appends rows best-effort. Row-level failures come back as
	// RowErrors; the returned error is reserved for call-level failures.
	AppendRows(ctx context.Context, datasetID, tableID string, rows []map[string]interface{}) ([]RowError, error)

	// Query runs a SQL query and returns a row iterator.
	Query(ctx context.Context, sql string) (RowIterator, error)

	// Close releases the client's resources.
	Close() error
}
