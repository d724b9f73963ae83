package record

import (
	"log"
	"net/url"
	"strings"

	"github.com/bricker/vivial-sub003/pkg/types"
)

// QueryParam is one query-string key/value pair. Repeated keys produce
// multiple entries; order and blank values are preserved.
type QueryParam struct {
	Key   string
	Value string
}

// URL is the decomposed form of a raw URL string.
type URL struct {
	Raw         *string
	Protocol    *string
	Domain      *string
	Path        *string
	Hash        *string
	QueryParams []QueryParam
}

// URLSchema returns the schema for a URL record column.
func URLSchema(name, description string) *types.FieldSchema {
	return &types.FieldSchema{
		Name:        name,
		Type:        types.FieldRecord,
		Description: description,
		Fields: []*types.FieldSchema{
			{Name: "raw", Type: types.FieldString, Redactable: true, Description: "The URL exactly as observed"},
			{Name: "protocol", Type: types.FieldString},
			{Name: "domain", Type: types.FieldString},
			{Name: "path", Type: types.FieldString},
			{Name: "hash", Type: types.FieldString},
			{
				Name:     "query_params",
				Type:     types.FieldRecord,
				Repeated: true,
				Fields: []*types.FieldSchema{
					{Name: "key", Type: types.FieldString},
					{Name: "value", Type: types.FieldString, Redactable: true},
				},
			},
		},
	}
}

// ParseURL decomposes a raw URL string. The trailing slash is stripped from
// the path and an empty path or fragment becomes nil. An unparseable string
// still yields a URL carrying the raw value.
func ParseURL(raw string) *URL {
	if raw == "" {
		return nil
	}
	u := &URL{Raw: &raw}

	parsed, err := url.Parse(raw)
	if err != nil {
		log.Printf("[WARN] record: unparseable url, keeping raw only: %v", err)
		return u
	}

	if parsed.Scheme != "" {
		scheme := parsed.Scheme
		u.Protocol = &scheme
	}
	if parsed.Hostname() != "" {
		host := parsed.Hostname()
		u.Domain = &host
	}

	path := strings.TrimSuffix(parsed.Path, "/")
	if path != "" {
		u.Path = &path
	}

	if parsed.Fragment != "" {
		frag := parsed.Fragment
		u.Hash = &frag
	}

	u.QueryParams = parseQueryParams(parsed.RawQuery)
	return u
}

// parseQueryParams splits a raw query string preserving order, duplicate
// keys, and blank values. url.Values is deliberately not used here: it
// collapses ordering into a map.
func parseQueryParams(rawQuery string) []QueryParam {
	if rawQuery == "" {
		return nil
	}
	var params []QueryParam
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		if v, err := url.QueryUnescape(value); err == nil {
			value = v
		}
		params = append(params, QueryParam{Key: key, Value: value})
	}
	return params
}

// URLFromResource reads a raw URL string attribute and decomposes it.
func URLFromResource(resource Resource, key string) *URL {
	raw := resource.optString(key)
	if raw == nil {
		return nil
	}
	return ParseURL(*raw)
}

// Row returns the warehouse row fragment for the URL.
func (u *URL) Row() map[string]interface{} {
	if u == nil {
		return nil
	}
	row := map[string]interface{}{}
	putString(row, "raw", u.Raw)
	putString(row, "protocol", u.Protocol)
	putString(row, "domain", u.Domain)
	putString(row, "path", u.Path)
	putString(row, "hash", u.Hash)
	if len(u.QueryParams) > 0 {
		params := make([]interface{}, 0, len(u.QueryParams))
		for _, p := range u.QueryParams {
			params = append(params, map[string]interface{}{"key": p.Key, "value": p.Value})
		}
		row["query_params"] = params
	}
	return row
}
