package record

import (
	"time"

	"github.com/bricker/vivial-sub003/internal/errors"
	"github.com/bricker/vivial-sub003/internal/views"
	"github.com/bricker/vivial-sub003/pkg/types"
)

// DatabaseEventAtom is one observed database mutation in the customer
// application.
type DatabaseEventAtom struct {
	Timestamp       *time.Time
	Operation       string
	TableName       string
	DBName          *string
	Statement       *string
	StatementValues []KeyedValue
	Correlation     CorrelationContext
}

// DatabaseEventsTable declares the database atom table.
func DatabaseEventsTable() types.TableSpec {
	schema := []*types.FieldSchema{
		{Name: "timestamp", Type: types.FieldTimestamp, Description: "When the event was observed"},
		{Name: "operation", Type: types.FieldString, Required: true, Description: "The SQL operation, e.g. INSERT"},
		{Name: "table_name", Type: types.FieldString, Required: true},
		{Name: "db_name", Type: types.FieldString},
		{Name: "statement", Type: types.FieldString, Redactable: true, Description: "The SQL statement as observed"},
		KeyedValueSchema("statement_values", "Bound statement parameters"),
	}
	schema = append(schema, CorrelationSchema()...)
	return types.TableSpec{
		TableID:      "atoms_db_events_v1",
		FriendlyName: "Database Events",
		Description:  "Raw database mutation atoms",
		Schema:       schema,
	}
}

// DatabaseEventFromPayload decodes a raw database-event payload. Operation
// and table name are the discriminating fields; a payload missing either is
// rejected.
func DatabaseEventFromPayload(payload map[string]interface{}, dec Decrypter) (Atom, error) {
	res := Resource(payload)
	operation := res.optString("operation")
	tableName := res.optString("table_name")
	if operation == nil || tableName == nil {
		return nil, errors.NewValidationError(errors.CodeMissingField, "database event is missing operation or table_name")
	}

	ts := res.optTime("timestamp")
	return &DatabaseEventAtom{
		Timestamp:       ts,
		Operation:       *operation,
		TableName:       *tableName,
		DBName:          res.optString("db_name"),
		Statement:       res.optString("statement"),
		StatementValues: KeyedValuesFromMap(res.optMap("statement_values")),
		Correlation:     CorrelationFromResource(res.optResource("corr_ctx"), ts, dec),
	}, nil
}

// Row returns the warehouse row for this atom.
func (a *DatabaseEventAtom) Row() map[string]interface{} {
	row := map[string]interface{}{
		"operation":  a.Operation,
		"table_name": a.TableName,
	}
	putTime(row, "timestamp", a.Timestamp)
	putString(row, "db_name", a.DBName)
	putString(row, "statement", a.Statement)
	if vals := keyedValueRows(a.StatementValues); vals != nil {
		row["statement_values"] = vals
	}
	a.Correlation.addTo(row)
	return row
}

// ViewSpecs returns the single view implied by this atom's
// (operation, table_name) trigger.
func (a *DatabaseEventAtom) ViewSpecs(datasetID string, table types.TableSpec) []types.ViewSpec {
	return []types.ViewSpec{views.DatabaseEventView(datasetID, table, a.Operation, a.TableName)}
}
