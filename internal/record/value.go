// Package record implements the typed, nested record model for atoms: the
// value types that normalize heterogeneous event payloads into warehouse rows,
// each carrying its own schema declaration.
package record

import (
	"encoding/json"
	"log"

	"github.com/bricker/vivial-sub003/pkg/types"
)

// KeyedValue is a key/value pair whose value occupies exactly one of the
// typed slots. At most one slot is ever populated; all slots stay nil when
// the value is null or cannot be serialized.
type KeyedValue struct {
	Key          string
	StringValue  *string
	BoolValue    *bool
	NumericValue *float64
	JSONValue    *string
}

// NewKeyedValue builds a KeyedValue from an arbitrary decoded JSON value.
// Slot checks run in a fixed priority order: string, then boolean, then
// numeric (booleans must be distinguished before numerics), then opaque
// JSON. An unserializable value logs and leaves every slot nil.
func NewKeyedValue(key string, value interface{}) KeyedValue {
	kv := KeyedValue{Key: key}
	if value == nil {
		return kv
	}

	switch v := value.(type) {
	case string:
		kv.StringValue = &v
	case bool:
		kv.BoolValue = &v
	case float64:
		kv.NumericValue = &v
	case float32:
		f := float64(v)
		kv.NumericValue = &f
	case int:
		f := float64(v)
		kv.NumericValue = &f
	case int64:
		f := float64(v)
		kv.NumericValue = &f
	case json.Number:
		if f, err := v.Float64(); err == nil {
			kv.NumericValue = &f
		} else {
			s := v.String()
			kv.StringValue = &s
		}
	default:
		raw, err := json.Marshal(value)
		if err != nil {
			log.Printf("[WARN] record: keyed value %q is not serializable, dropping value: %v", key, err)
			return kv
		}
		s := string(raw)
		kv.JSONValue = &s
	}

	return kv
}

// KeyedValuesFromMap converts a raw map into keyed values, one per entry.
// Iteration order is not significant; the warehouse column is repeated.
func KeyedValuesFromMap(m map[string]interface{}) []KeyedValue {
	if len(m) == 0 {
		return nil
	}
	values := make([]KeyedValue, 0, len(m))
	for k, v := range m {
		values = append(values, NewKeyedValue(k, v))
	}
	return values
}

// Row returns the warehouse row fragment for this keyed value.
func (kv KeyedValue) Row() map[string]interface{} {
	row := map[string]interface{}{"key": kv.Key}
	if kv.StringValue != nil {
		row["string_value"] = *kv.StringValue
	}
	if kv.BoolValue != nil {
		row["bool_value"] = *kv.BoolValue
	}
	if kv.NumericValue != nil {
		row["numeric_value"] = *kv.NumericValue
	}
	if kv.JSONValue != nil {
		row["json_value"] = *kv.JSONValue
	}
	return row
}

// keyedValueRows converts a slice of keyed values to row fragments,
// returning nil for an empty slice so the column is absent, not empty.
func keyedValueRows(values []KeyedValue) []interface{} {
	if len(values) == 0 {
		return nil
	}
	rows := make([]interface{}, 0, len(values))
	for _, kv := range values {
		rows = append(rows, kv.Row())
	}
	return rows
}

// KeyedValueSchema returns the schema for a repeated keyed-value column.
// Value slots are always redactable: free-form key/value bags are exactly
// where callers put text we cannot anticipate.
func KeyedValueSchema(name, description string) *types.FieldSchema {
	return &types.FieldSchema{
		Name:        name,
		Type:        types.FieldRecord,
		Repeated:    true,
		Description: description,
		Fields: []*types.FieldSchema{
			{Name: "key", Type: types.FieldString},
			{Name: "string_value", Type: types.FieldString, Redactable: true},
			{Name: "bool_value", Type: types.FieldBoolean},
			{Name: "numeric_value", Type: types.FieldFloat},
			{Name: "json_value", Type: types.FieldJSON, Redactable: true},
		},
	}
}
