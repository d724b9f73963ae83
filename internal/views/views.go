// Package views builds virtual-event view definitions: pure functions mapping
// an atom's discriminating fields to a view id, readable name, description,
// and the SQL query that defines the view over the raw atom table.
package views

import (
	"fmt"
	"strings"

	"github.com/bricker/vivial-sub003/pkg/types"
)

// pastTense maps database operations to their past-tense verb.
var pastTense = map[string]string{
	"INSERT": "Created",
	"UPDATE": "Updated",
	"DELETE": "Deleted",
	"SELECT": "Queried",
}

// DatabaseEventView builds the view implied by one (operation, table_name)
// database-event trigger. "insert" on "accounts" yields view id
// "account_created", name "Account Created", description
// "An account was created."
func DatabaseEventView(datasetID string, table types.TableSpec, operation, tableName string) types.ViewSpec {
	op := strings.ToUpper(strings.TrimSpace(operation))
	verb, mapped := pastTense[op]
	if !mapped {
		verb = titleize(op)
	}

	subject := singularize(tableName)
	friendly := fmt.Sprintf("%s %s", titleize(subject), verb)

	description := friendly
	if mapped {
		description = fmt.Sprintf("%s %s was %s.",
			indefiniteArticle(subject), strings.ToLower(subject), strings.ToLower(verb))
	}

	query := fmt.Sprintf(
		"SELECT * FROM %s WHERE UPPER(operation) = '%s' AND table_name = '%s'",
		tableRef(datasetID, table.TableID), sqlEscape(op), sqlEscape(tableName))

	return types.ViewSpec{
		ViewID:       slugify(friendly),
		FriendlyName: friendly,
		Description:  description,
		Query:        query,
		Schema:       table.Schema,
	}
}

// HTTPServerEventView builds the view implied by one HTTP-method trigger.
func HTTPServerEventView(datasetID string, table types.TableSpec, method string) types.ViewSpec {
	m := strings.ToUpper(strings.TrimSpace(method))
	return types.ViewSpec{
		ViewID:       "http_server_" + strings.ToLower(m),
		FriendlyName: fmt.Sprintf("HTTP Server %s Request", m),
		Description:  fmt.Sprintf("An HTTP %s request was received by the server.", m),
		Query: fmt.Sprintf(
			"SELECT * FROM %s WHERE UPPER(request_method) = '%s'",
			tableRef(datasetID, table.TableID), sqlEscape(m)),
		Schema: table.Schema,
	}
}

// ClickView is the static view over browser click atoms.
func ClickView(datasetID string, table types.TableSpec) types.ViewSpec {
	return types.ViewSpec{
		ViewID:       "click",
		FriendlyName: "Click",
		Description:  "An element was clicked.",
		Query: fmt.Sprintf(
			"SELECT * FROM %s WHERE action = 'click'",
			tableRef(datasetID, table.TableID)),
		Schema: table.Schema,
	}
}

// FormSubmissionView is the static view over browser form-submission atoms.
func FormSubmissionView(datasetID string, table types.TableSpec) types.ViewSpec {
	return types.ViewSpec{
		ViewID:       "form_submission",
		FriendlyName: "Form Submission",
		Description:  "A form was submitted.",
		Query: fmt.Sprintf(
			"SELECT * FROM %s WHERE action = 'form_submission'",
			tableRef(datasetID, table.TableID)),
		Schema: table.Schema,
	}
}

// PageViewView is the static view over browser page-view atoms. Consecutive
// page views from the same visitor and session with no intervening
// interaction are collapsed to the last of the run, so redirect chains count
// as one view.
func PageViewView(datasetID string, table types.TableSpec) types.ViewSpec {
	query := fmt.Sprintf(
		"SELECT * EXCEPT (next_action) FROM ("+
			"SELECT *, LEAD(action) OVER (PARTITION BY visitor_id, session.id ORDER BY timestamp) AS next_action "+
			"FROM %s"+
			") WHERE action = 'page_view' AND (next_action IS NULL OR next_action != 'page_view')",
		tableRef(datasetID, table.TableID))

	return types.ViewSpec{
		ViewID:       "page_view",
		FriendlyName: "Page View",
		Description:  "A page was viewed.",
		Query:        query,
		Schema:       table.Schema,
	}
}

// tableRef renders a fully-qualified, backtick-quoted table reference.
func tableRef(datasetID, tableID string) string {
	return fmt.Sprintf("`%s.%s`", datasetID, tableID)
}

// sqlEscape escapes single quotes for embedding in a string literal.
func sqlEscape(s string) string {
	return strings.ReplaceAll(s, "'", `\'`)
}

// titleize upper-cases the first letter of each underscore- or
// space-separated word: "sign_up" -> "Sign Up".
func titleize(s string) string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r == '_' || r == ' ' || r == '-'
	})
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// slugify lower-cases and snake-cases a readable name: "Account Created" ->
// "account_created".
func slugify(s string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// singularize strips the plural suffix from a table name: "accounts" ->
// "account", "entries" -> "entry". Table names that are not standard English
// plurals pass through unchanged.
func singularize(s string) string {
	lower := strings.ToLower(s)
	switch {
	case strings.HasSuffix(lower, "ies") && len(lower) > 3:
		return s[:len(s)-3] + "y"
	case strings.HasSuffix(lower, "sses"), strings.HasSuffix(lower, "shes"), strings.HasSuffix(lower, "ches"), strings.HasSuffix(lower, "xes"):
		return s[:len(s)-2]
	case strings.HasSuffix(lower, "ss"):
		return s
	case strings.HasSuffix(lower, "s"):
		return s[:len(s)-1]
	}
	return s
}

// indefiniteArticle selects the grammatically correct capitalized article
// for the start of a sentence: "An" before a vowel sound, "A" otherwise.
func indefiniteArticle(word string) string {
	if word == "" {
		return "A"
	}
	switch strings.ToLower(word[:1]) {
	case "a", "e", "i", "o", "u":
		return "An"
	}
	return "A"
}
