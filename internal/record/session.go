package record

import (
	"time"

	"github.com/bricker/vivial-sub003/pkg/types"
)

// Session describes the visitor session an atom was observed in.
type Session struct {
	ID             *string
	StartTimestamp *time.Time
	DurationMs     *float64
}

// SessionSchema returns the schema for a session record column.
func SessionSchema() *types.FieldSchema {
	return &types.FieldSchema{
		Name:        "session",
		Type:        types.FieldRecord,
		Description: "The visitor session during which this atom was observed",
		Fields: []*types.FieldSchema{
			{Name: "id", Type: types.FieldString},
			{Name: "start_timestamp", Type: types.FieldTimestamp},
			{Name: "duration_ms", Type: types.FieldFloat, Description: "Milliseconds between session start and this atom"},
		},
	}
}

// SessionFromResource maps an upstream session object into a Session.
// DurationMs is derived from the atom's event timestamp and the session
// start; it stays nil when either operand is absent.
func SessionFromResource(resource Resource, eventTimestamp *time.Time) *Session {
	if resource == nil {
		return nil
	}
	s := &Session{
		ID:             resource.optString("id"),
		StartTimestamp: resource.optTime("start_timestamp"),
	}
	if eventTimestamp != nil && s.StartTimestamp != nil {
		ms := eventTimestamp.Sub(*s.StartTimestamp).Seconds() * 1000
		s.DurationMs = &ms
	}
	return s
}

// Row returns the warehouse row fragment for the session.
func (s *Session) Row() map[string]interface{} {
	if s == nil {
		return nil
	}
	row := map[string]interface{}{}
	putString(row, "id", s.ID)
	putTime(row, "start_timestamp", s.StartTimestamp)
	putFloat(row, "duration_ms", s.DurationMs)
	return row
}
