package warehouse

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/bricker/vivial-sub003/pkg/types"
)

// BigQueryClient implements Client against Google BigQuery.
type BigQueryClient struct {
	client *bigquery.Client
}

// NewBigQueryClient creates a BigQuery-backed warehouse client for the
// given GCP project. Credentials come from the ambient environment.
func NewBigQueryClient(ctx context.Context, projectID string) (*BigQueryClient, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("warehouse: failed to create bigquery client: %w", err)
	}
	return &BigQueryClient{client: client}, nil
}

// GetOrCreateDataset idempotently ensures the dataset exists.
func (c *BigQueryClient) GetOrCreateDataset(ctx context.Context, datasetID string) error {
	ds := c.client.Dataset(datasetID)
	if _, err := ds.Metadata(ctx); err == nil {
		return nil
	} else if !isNotFound(err) {
		return fmt.Errorf("warehouse: failed to look up dataset %s: %w", datasetID, err)
	}

	err := ds.Create(ctx, &bigquery.DatasetMetadata{})
	if err != nil && !isConflict(err) {
		return fmt.Errorf("warehouse: failed to create dataset %s: %w", datasetID, err)
	}
	return nil
}

// GetTable retrieves a table definition, or nil when absent.
func (c *BigQueryClient) GetTable(ctx context.Context, datasetID, tableID string) (*Table, error) {
	md, err := c.client.Dataset(datasetID).Table(tableID).Metadata(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("warehouse: failed to look up table %s.%s: %w", datasetID, tableID, err)
	}
	return &Table{
		DatasetID:    datasetID,
		TableID:      tableID,
		FriendlyName: md.Name,
		Description:  md.Description,
		Schema:       fromBigQuerySchema(md.Schema),
		ViewQuery:    md.ViewQuery,
	}, nil
}

// CreateTable creates a table; ErrAlreadyExists when a concurrent creator
// won.
func (c *BigQueryClient) CreateTable(ctx context.Context, t *Table) error {
	md := &bigquery.TableMetadata{
		Name:        t.FriendlyName,
		Description: t.Description,
		Schema:      toBigQuerySchema(t.Schema),
	}
	err := c.client.Dataset(t.DatasetID).Table(t.TableID).Create(ctx, md)
	if err != nil {
		if isConflict(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("warehouse: failed to create table %s.%s: %w", t.DatasetID, t.TableID, err)
	}
	return nil
}

// UpdateTable pushes schema, friendly name, and description to the live
// table.
func (c *BigQueryClient) UpdateTable(ctx context.Context, t *Table) error {
	update := bigquery.TableMetadataToUpdate{
		Name:        t.FriendlyName,
		Description: t.Description,
		Schema:      toBigQuerySchema(t.Schema),
	}
	_, err := c.client.Dataset(t.DatasetID).Table(t.TableID).Update(ctx, update, "")
	if err != nil {
		return fmt.Errorf("warehouse: failed to update table %s.%s: %w", t.DatasetID, t.TableID, err)
	}
	return nil
}

// GetOrCreateView creates the view, or updates its query and description
// when it already exists.
func (c *BigQueryClient) GetOrCreateView(ctx context.Context, datasetID string, view types.ViewSpec) error {
	tbl := c.client.Dataset(datasetID).Table(view.ViewID)

	md := &bigquery.TableMetadata{
		Name:        view.FriendlyName,
		Description: view.Description,
		ViewQuery:   view.Query,
	}
	err := tbl.Create(ctx, md)
	if err == nil {
		return nil
	}
	if !isConflict(err) {
		return fmt.Errorf("warehouse: failed to create view %s.%s: %w", datasetID, view.ViewID, err)
	}

	update := bigquery.TableMetadataToUpdate{
		Name:        view.FriendlyName,
		Description: view.Description,
		ViewQuery:   view.Query,
	}
	if _, err := tbl.Update(ctx, update, ""); err != nil {
		return fmt.Errorf("warehouse: failed to update view %s.%s: %w", datasetID, view.ViewID, err)
	}
	return nil
}

// rowSaver adapts a decoded row map to the streaming-insert interface. The
// insert id gives BigQuery a best-effort dedup key for retried appends.
type rowSaver struct {
	row      map[string]bigquery.Value
	insertID string
}

func (r rowSaver) Save() (map[string]bigquery.Value, string, error) {
	return r.row, r.insertID, nil
}

// AppendRows appends rows best-effort via the streaming API. Invalid rows
// are skipped by the warehouse and reported back per-row.
func (c *BigQueryClient) AppendRows(ctx context.Context, datasetID, tableID string, rows []map[string]interface{}) ([]RowError, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	savers := make([]rowSaver, 0, len(rows))
	for _, row := range rows {
		savers = append(savers, rowSaver{
			row:      toBigQueryRow(row),
			insertID: uuid.New().String(),
		})
	}

	inserter := c.client.Dataset(datasetID).Table(tableID).Inserter()
	inserter.SkipInvalidRows = true

	err := inserter.Put(ctx, savers)
	if err == nil {
		return nil, nil
	}

	var multi bigquery.PutMultiError
	if errors.As(err, &multi) {
		rowErrs := make([]RowError, 0, len(multi))
		for _, e := range multi {
			e := e
			rowErrs = append(rowErrs, RowError{Index: e.RowIndex, Err: &e})
		}
		return rowErrs, nil
	}
	return nil, fmt.Errorf("warehouse: append to %s.%s failed: %w", datasetID, tableID, err)
}

// bqRowIterator adapts the BigQuery iterator to RowIterator.
type bqRowIterator struct {
	it *bigquery.RowIterator
}

func (b *bqRowIterator) Next() (map[string]interface{}, error) {
	var row map[string]bigquery.Value
	err := b.it.Next(&row)
	if err != nil {
		if err == iterator.Done {
			return nil, ErrDone
		}
		return nil, err
	}
	out := make(map[string]interface{}, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out, nil
}

// Query runs a SQL query and returns a row iterator.
func (c *BigQueryClient) Query(ctx context.Context, sql string) (RowIterator, error) {
	it, err := c.client.Query(sql).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("warehouse: query failed: %w", err)
	}
	return &bqRowIterator{it: it}, nil
}

// Close releases the underlying BigQuery client.
func (c *BigQueryClient) Close() error {
	return c.client.Close()
}

// toBigQuerySchema converts the declared schema tree to BigQuery's.
func toBigQuerySchema(fields []*types.FieldSchema) bigquery.Schema {
	schema := make(bigquery.Schema, 0, len(fields))
	for _, f := range fields {
		bf := &bigquery.FieldSchema{
			Name:        f.Name,
			Type:        toBigQueryFieldType(f.Type),
			Repeated:    f.Repeated,
			Required:    f.Required,
			Description: f.Description,
		}
		if len(f.Fields) > 0 {
			bf.Schema = toBigQuerySchema(f.Fields)
		}
		schema = append(schema, bf)
	}
	return schema
}

// fromBigQuerySchema converts a live BigQuery schema back to the declared
// representation. Redactable markers are declaration-side only and do not
// round-trip.
func fromBigQuerySchema(schema bigquery.Schema) []*types.FieldSchema {
	fields := make([]*types.FieldSchema, 0, len(schema))
	for _, bf := range schema {
		f := &types.FieldSchema{
			Name:        bf.Name,
			Type:        fromBigQueryFieldType(bf.Type),
			Repeated:    bf.Repeated,
			Required:    bf.Required,
			Description: bf.Description,
		}
		if len(bf.Schema) > 0 {
			f.Fields = fromBigQuerySchema(bf.Schema)
		}
		fields = append(fields, f)
	}
	return fields
}

func toBigQueryFieldType(t types.FieldType) bigquery.FieldType {
	switch t {
	case types.FieldString:
		return bigquery.StringFieldType
	case types.FieldInteger:
		return bigquery.IntegerFieldType
	case types.FieldFloat:
		return bigquery.FloatFieldType
	case types.FieldBoolean:
		return bigquery.BooleanFieldType
	case types.FieldTimestamp:
		return bigquery.TimestampFieldType
	case types.FieldJSON:
		return bigquery.JSONFieldType
	case types.FieldRecord:
		return bigquery.RecordFieldType
	}
	return bigquery.StringFieldType
}

func fromBigQueryFieldType(t bigquery.FieldType) types.FieldType {
	switch t {
	case bigquery.StringFieldType:
		return types.FieldString
	case bigquery.IntegerFieldType:
		return types.FieldInteger
	case bigquery.FloatFieldType:
		return types.FieldFloat
	case bigquery.BooleanFieldType:
		return types.FieldBoolean
	case bigquery.TimestampFieldType:
		return types.FieldTimestamp
	case bigquery.JSONFieldType:
		return types.FieldJSON
	case bigquery.RecordFieldType:
		return types.FieldRecord
	}
	return types.FieldString
}

// toBigQueryRow converts a decoded row (nested maps and lists) to BigQuery
// values.
func toBigQueryRow(row map[string]interface{}) map[string]bigquery.Value {
	out := make(map[string]bigquery.Value, len(row))
	for k, v := range row {
		out[k] = toBigQueryValue(v)
	}
	return out
}

func toBigQueryValue(v interface{}) bigquery.Value {
	switch node := v.(type) {
	case map[string]interface{}:
		return toBigQueryRow(node)
	case []interface{}:
		list := make([]bigquery.Value, 0, len(node))
		for _, item := range node {
			list = append(list, toBigQueryValue(item))
		}
		return list
	default:
		return v
	}
}

// isNotFound reports whether the error is an HTTP 404 from the BigQuery API.
func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}

// isConflict reports whether the error is an HTTP 409 from the BigQuery API.
func isConflict(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict
}
