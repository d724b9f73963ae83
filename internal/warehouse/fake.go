package warehouse

import (
	"context"
	"fmt"
	"sync"

	"github.com/bricker/vivial-sub003/pkg/types"
)

// Fake is an in-memory Client for tests. It records every dataset, table,
// view, and appended row, and can be primed with per-row append failures and
// operation errors.
type Fake struct {
	mu sync.Mutex

	datasets map[string]bool
	tables   map[string]*Table
	views    map[string]types.ViewSpec
	rows     map[string][]map[string]interface{}

	// ViewCreateCalls counts GetOrCreateView invocations per dataset/view.
	ViewCreateCalls map[string]int

	// NextAppendRowErrors is returned (and cleared) by the next AppendRows.
	NextAppendRowErrors []RowError

	// UpdateTableErr, if set, fails every UpdateTable call.
	UpdateTableErr error

	// ViewErr, if set, fails every GetOrCreateView call.
	ViewErr error

	// QueryResults is returned by Query.
	QueryResults []map[string]interface{}
}

// NewFake creates an empty in-memory warehouse.
func NewFake() *Fake {
	return &Fake{
		datasets:        make(map[string]bool),
		tables:          make(map[string]*Table),
		views:           make(map[string]types.ViewSpec),
		rows:            make(map[string][]map[string]interface{}),
		ViewCreateCalls: make(map[string]int),
	}
}

func key(datasetID, tableID string) string {
	return datasetID + "/" + tableID
}

// GetOrCreateDataset idempotently ensures the dataset exists.
func (f *Fake) GetOrCreateDataset(ctx context.Context, datasetID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.datasets[datasetID] = true
	return nil
}

// GetTable retrieves a table definition, or nil when absent.
func (f *Fake) GetTable(ctx context.Context, datasetID, tableID string) (*Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tables[key(datasetID, tableID)]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

// CreateTable creates a table; ErrAlreadyExists when it already does.
func (f *Fake) CreateTable(ctx context.Context, t *Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := key(t.DatasetID, t.TableID)
	if _, ok := f.tables[k]; ok {
		return ErrAlreadyExists
	}
	cp := *t
	f.tables[k] = &cp
	return nil
}

// UpdateTable replaces the stored table definition.
func (f *Fake) UpdateTable(ctx context.Context, t *Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.UpdateTableErr != nil {
		return f.UpdateTableErr
	}
	k := key(t.DatasetID, t.TableID)
	if _, ok := f.tables[k]; !ok {
		return fmt.Errorf("fake: table %s not found", k)
	}
	cp := *t
	f.tables[k] = &cp
	return nil
}

// GetOrCreateView records the view, replacing any previous definition.
func (f *Fake) GetOrCreateView(ctx context.Context, datasetID string, view types.ViewSpec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := key(datasetID, view.ViewID)
	f.ViewCreateCalls[k]++
	if f.ViewErr != nil {
		return f.ViewErr
	}
	f.views[k] = view
	return nil
}

// AppendRows stores the rows and returns any primed per-row errors.
func (f *Fake) AppendRows(ctx context.Context, datasetID, tableID string, rows []map[string]interface{}) ([]RowError, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := key(datasetID, tableID)
	f.rows[k] = append(f.rows[k], rows...)
	rowErrs := f.NextAppendRowErrors
	f.NextAppendRowErrors = nil
	return rowErrs, nil
}

// fakeRowIterator yields a fixed result set.
type fakeRowIterator struct {
	rows []map[string]interface{}
	pos  int
}

func (it *fakeRowIterator) Next() (map[string]interface{}, error) {
	if it.pos >= len(it.rows) {
		return nil, ErrDone
	}
	row := it.rows[it.pos]
	it.pos++
	return row, nil
}

// Query returns the primed result set.
func (f *Fake) Query(ctx context.Context, sql string) (RowIterator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &fakeRowIterator{rows: f.QueryResults}, nil
}

// Close is a no-op.
func (f *Fake) Close() error { return nil }

// Rows returns the rows appended to a table.
func (f *Fake) Rows(datasetID, tableID string) []map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]interface{}(nil), f.rows[key(datasetID, tableID)]...)
}

// View returns the recorded view definition and whether it exists.
func (f *Fake) View(datasetID, viewID string) (types.ViewSpec, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.views[key(datasetID, viewID)]
	return v, ok
}

// ViewCount returns the number of recorded views in a dataset.
func (f *Fake) ViewCount(datasetID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for k := range f.views {
		if len(k) > len(datasetID) && k[:len(datasetID)] == datasetID && k[len(datasetID)] == '/' {
			n++
		}
	}
	return n
}

// TableSchema returns the stored schema for a table, or nil.
func (f *Fake) TableSchema(datasetID, tableID string) []*types.FieldSchema {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tables[key(datasetID, tableID)]
	if !ok {
		return nil
	}
	return t.Schema
}
