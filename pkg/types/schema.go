package types

import "sort"

// FieldType is the warehouse column type of a field.
type FieldType string

const (
	FieldString    FieldType = "STRING"
	FieldInteger   FieldType = "INTEGER"
	FieldFloat     FieldType = "FLOAT"
	FieldBoolean   FieldType = "BOOLEAN"
	FieldTimestamp FieldType = "TIMESTAMP"
	FieldJSON      FieldType = "JSON"
	FieldRecord    FieldType = "RECORD"
)

// FieldSchema describes one (possibly nested) column of an atom table or view.
type FieldSchema struct {
	// Name is the column name
	Name string `json:"name"`

	// Type is the warehouse column type
	Type FieldType `json:"type"`

	// Repeated indicates the column holds a list of values
	Repeated bool `json:"repeated,omitempty"`

	// Required indicates the column cannot contain NULL values
	Required bool `json:"required,omitempty"`

	// Description is the human-readable column description
	Description string `json:"description,omitempty"`

	// Redactable marks a column whose string leaves may carry PII free text
	// and must pass through the redaction pass before persistence
	Redactable bool `json:"redactable,omitempty"`

	// Fields holds the nested schema for RECORD columns
	Fields []*FieldSchema `json:"fields,omitempty"`
}

// TableSpec is the authoritative declaration of an atom table's layout.
type TableSpec struct {
	TableID      string         `json:"table_id"`
	FriendlyName string         `json:"friendly_name"`
	Description  string         `json:"description"`
	Schema       []*FieldSchema `json:"schema"`
}

// ViewSpec declares a virtual-event view over an atom table.
// Query is authoritative; Schema is documentation only.
type ViewSpec struct {
	ViewID       string         `json:"view_id"`
	FriendlyName string         `json:"friendly_name"`
	Description  string         `json:"description"`
	Query        string         `json:"query"`
	Schema       []*FieldSchema `json:"schema,omitempty"`
}

// FlattenSchema returns the sorted, fully-qualified field names of a schema,
// recursing into nested RECORD fields. Two schemas describe the same column
// layout iff their flattened name lists are equal.
func FlattenSchema(fields []*FieldSchema) []string {
	var names []string
	var walk func(prefix string, fs []*FieldSchema)
	walk = func(prefix string, fs []*FieldSchema) {
		for _, f := range fs {
			qualified := f.Name
			if prefix != "" {
				qualified = prefix + "." + f.Name
			}
			names = append(names, qualified)
			if len(f.Fields) > 0 {
				walk(qualified, f.Fields)
			}
		}
	}
	walk("", fields)
	sort.Strings(names)
	return names
}

// SchemasMatch reports whether two schemas have identical flattened layouts.
func SchemasMatch(a, b []*FieldSchema) bool {
	fa, fb := FlattenSchema(a), FlattenSchema(b)
	if len(fa) != len(fb) {
		return false
	}
	for i := range fa {
		if fa[i] != fb[i] {
			return false
		}
	}
	return true
}
