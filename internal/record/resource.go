package record

import (
	"encoding/json"
	"time"
)

// Resource is a loosely-structured upstream payload object. Constructors read
// from it tolerantly: absent or mistyped attributes decode to nil fields.
type Resource map[string]interface{}

// optString returns the attribute as a string pointer, or nil when absent,
// null, mistyped, or empty.
func (r Resource) optString(key string) *string {
	v, ok := r[key]
	if !ok || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}

// optFloat returns the attribute as a float pointer, or nil when absent or
// not numeric.
func (r Resource) optFloat(key string) *float64 {
	v, ok := r[key]
	if !ok || v == nil {
		return nil
	}
	switch n := v.(type) {
	case float64:
		return &n
	case float32:
		f := float64(n)
		return &f
	case int:
		f := float64(n)
		return &f
	case int64:
		f := float64(n)
		return &f
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return &f
		}
	}
	return nil
}

// optBool returns the attribute as a bool pointer, or nil when absent or not
// a boolean.
func (r Resource) optBool(key string) *bool {
	v, ok := r[key]
	if !ok || v == nil {
		return nil
	}
	b, ok := v.(bool)
	if !ok {
		return nil
	}
	return &b
}

// optTime decodes the attribute as an event timestamp: epoch seconds (with
// fractional part) or an RFC 3339 string. Returns nil for anything else.
func (r Resource) optTime(key string) *time.Time {
	v, ok := r[key]
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case float64:
		ts := time.Unix(int64(t), int64((t-float64(int64(t)))*1e9)).UTC()
		return &ts
	case json.Number:
		if f, err := t.Float64(); err == nil {
			ts := time.Unix(int64(f), int64((f-float64(int64(f)))*1e9)).UTC()
			return &ts
		}
	case string:
		if ts, err := time.Parse(time.RFC3339, t); err == nil {
			ts = ts.UTC()
			return &ts
		}
	case time.Time:
		ts := t.UTC()
		return &ts
	}
	return nil
}

// optResource returns a nested object attribute, or nil when absent or not
// an object.
func (r Resource) optResource(key string) Resource {
	v, ok := r[key]
	if !ok || v == nil {
		return nil
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	return Resource(m)
}

// optMap returns a nested object attribute as a plain map.
func (r Resource) optMap(key string) map[string]interface{} {
	return map[string]interface{}(r.optResource(key))
}

// optSlice returns a list attribute, or nil when absent or not a list.
func (r Resource) optSlice(key string) []interface{} {
	v, ok := r[key]
	if !ok || v == nil {
		return nil
	}
	s, ok := v.([]interface{})
	if !ok {
		return nil
	}
	return s
}

// putString sets row[name] when the value is present.
func putString(row map[string]interface{}, name string, v *string) {
	if v != nil {
		row[name] = *v
	}
}

// putFloat sets row[name] when the value is present.
func putFloat(row map[string]interface{}, name string, v *float64) {
	if v != nil {
		row[name] = *v
	}
}

// putBool sets row[name] when the value is present.
func putBool(row map[string]interface{}, name string, v *bool) {
	if v != nil {
		row[name] = *v
	}
}

// putTime sets row[name] when the value is present.
func putTime(row map[string]interface{}, name string, v *time.Time) {
	if v != nil {
		row[name] = *v
	}
}
