// Package redact implements the metadata-driven redaction pass: a
// reflection-free walk over decoded atom rows that finds string leaves at
// schema paths marked redactable and rewrites them through an external text
// classifier, preserving structure.
package redact

import (
	"context"
	"log"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/bricker/vivial-sub003/pkg/types"
)

// Redactor replaces PII free-text spans in each input with category
// placeholder tokens. This is a collaborator boundary; the classifier itself
// is external.
type Redactor interface {
	Redact(ctx context.Context, texts []string) ([]string, error)
}

// segment is one step of a path into a nested row: a map key or list index.
type segment struct {
	key     string
	index   int
	isIndex bool
}

// leaf is one scalar value in a flattened row, with both the navigable path
// and its dotted-string form used for pattern matching.
type leaf struct {
	path   []segment
	dotted string
	value  interface{}
}

// Rows runs the redaction pass over decoded atom rows, in place. All matched
// string leaves across the batch go to the classifier in one call. A
// classifier failure logs and leaves every row un-redacted; the pass never
// fails the batch.
func Rows(ctx context.Context, r Redactor, schema []*types.FieldSchema, rows []map[string]interface{}) {
	if r == nil || len(rows) == 0 {
		return
	}
	patterns := Patterns(schema)
	if len(patterns) == 0 {
		return
	}

	// Collect matched string leaves across the whole batch. Row index rides
	// along so values can be written back to their source row.
	type match struct {
		row  int
		leaf leaf
	}
	var matches []match
	for i, row := range rows {
		for _, lf := range flatten(row) {
			if _, ok := lf.value.(string); !ok {
				continue
			}
			for _, p := range patterns {
				if p.MatchString(lf.dotted) {
					matches = append(matches, match{row: i, leaf: lf})
					break
				}
			}
		}
	}
	if len(matches) == 0 {
		return
	}

	// Deterministic ordering keeps the classifier batch stable.
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].row != matches[j].row {
			return matches[i].row < matches[j].row
		}
		return matches[i].leaf.dotted < matches[j].leaf.dotted
	})

	texts := make([]string, len(matches))
	for i, m := range matches {
		texts[i] = m.leaf.value.(string)
	}

	redacted, err := r.Redact(ctx, texts)
	if err != nil {
		log.Printf("[WARN] redact: classifier call failed, persisting %d values un-redacted: %v", len(texts), err)
		return
	}
	if len(redacted) != len(texts) {
		log.Printf("[WARN] redact: classifier returned %d values for %d inputs, persisting un-redacted", len(redacted), len(texts))
		return
	}

	for i, m := range matches {
		set(rows[m.row], m.leaf.path, redacted[i])
	}
}

// Patterns compiles the dotted-path patterns for the schema's redactable
// fields. Repeated fields expand to index-wildcarded patterns.
func Patterns(schema []*types.FieldSchema) []*regexp.Regexp {
	var patterns []*regexp.Regexp
	var walk func(prefix string, fields []*types.FieldSchema)
	walk = func(prefix string, fields []*types.FieldSchema) {
		for _, f := range fields {
			p := prefix + regexp.QuoteMeta(f.Name)
			if f.Repeated {
				p += `\.\d+`
			}
			if len(f.Fields) > 0 {
				walk(p+`\.`, f.Fields)
				continue
			}
			if f.Redactable {
				patterns = append(patterns, regexp.MustCompile("^"+p+"$"))
			}
		}
	}
	walk("", schema)
	return patterns
}

// flatten walks a nested row into scalar leaves. List indices become numeric
// segments; a map key containing a path separator or quote is quoted in the
// dotted form so it cannot be confused with a separator.
func flatten(row map[string]interface{}) []leaf {
	var leaves []leaf
	var walk func(path []segment, dotted string, v interface{})
	walk = func(path []segment, dotted string, v interface{}) {
		switch node := v.(type) {
		case map[string]interface{}:
			for k, child := range node {
				seg := segment{key: k}
				childDotted := joinDotted(dotted, quoteKey(k))
				walk(append(append([]segment{}, path...), seg), childDotted, child)
			}
		case []interface{}:
			for i, child := range node {
				seg := segment{index: i, isIndex: true}
				childDotted := joinDotted(dotted, strconv.Itoa(i))
				walk(append(append([]segment{}, path...), seg), childDotted, child)
			}
		default:
			leaves = append(leaves, leaf{path: path, dotted: dotted, value: v})
		}
	}
	walk(nil, "", row)
	return leaves
}

func joinDotted(prefix, seg string) string {
	if prefix == "" {
		return seg
	}
	return prefix + "." + seg
}

// quoteKey quotes a map key that would otherwise be ambiguous in a dotted
// path (a literal "." inside the key, or a quote character).
func quoteKey(k string) string {
	if strings.ContainsAny(k, `."`) {
		return strconv.Quote(k)
	}
	return k
}

// set writes a value back into a nested row at the given path. The path came
// from flattening the same row, so every step resolves.
func set(row map[string]interface{}, path []segment, value interface{}) {
	var node interface{} = row
	for i, seg := range path {
		last := i == len(path)-1
		if seg.isIndex {
			list := node.([]interface{})
			if last {
				list[seg.index] = value
				return
			}
			node = list[seg.index]
		} else {
			m := node.(map[string]interface{})
			if last {
				m[seg.key] = value
				return
			}
			node = m[seg.key]
		}
	}
}

// Noop is a Redactor that returns its inputs unchanged, used when redaction
// is disabled.
type Noop struct{}

// Redact returns the inputs unchanged.
func (Noop) Redact(ctx context.Context, texts []string) ([]string, error) {
	return texts, nil
}
