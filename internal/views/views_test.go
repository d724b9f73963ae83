package views

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bricker/vivial-sub003/pkg/types"
)

func testTable() types.TableSpec {
	return types.TableSpec{
		TableID: "atoms_db_events_v1",
		Schema:  []*types.FieldSchema{{Name: "operation", Type: types.FieldString}},
	}
}

func TestDatabaseEventView_Naming(t *testing.T) {
	cases := []struct {
		operation   string
		tableName   string
		viewID      string
		friendly    string
		description string
	}{
		{"insert", "accounts", "account_created", "Account Created", "An account was created."},
		{"UPDATE", "accounts", "account_updated", "Account Updated", "An account was updated."},
		{"delete", "entries", "entry_deleted", "Entry Deleted", "An entry was deleted."},
		{"select", "documents", "document_queried", "Document Queried", "A document was queried."},
		{"insert", "addresses", "address_created", "Address Created", "An address was created."},
		{"insert", "class", "class_created", "Class Created", "A class was created."},
	}

	for _, tc := range cases {
		v := DatabaseEventView("ds_1", testTable(), tc.operation, tc.tableName)
		assert.Equal(t, tc.viewID, v.ViewID, "%s/%s", tc.operation, tc.tableName)
		assert.Equal(t, tc.friendly, v.FriendlyName)
		assert.Equal(t, tc.description, v.Description)
	}
}

func TestDatabaseEventView_UnmappedOperation(t *testing.T) {
	v := DatabaseEventView("ds_1", testTable(), "truncate", "accounts")
	assert.Equal(t, "account_truncate", v.ViewID)
	assert.Equal(t, "Account Truncate", v.FriendlyName)
	// No invented sentence for operations without a past-tense mapping.
	assert.Equal(t, "Account Truncate", v.Description)
}

func TestDatabaseEventView_Query(t *testing.T) {
	v := DatabaseEventView("ds_1", testTable(), "insert", "accounts")
	assert.Equal(t,
		"SELECT * FROM `ds_1.atoms_db_events_v1` WHERE UPPER(operation) = 'INSERT' AND table_name = 'accounts'",
		v.Query)
}

func TestDatabaseEventView_EscapesQuotes(t *testing.T) {
	v := DatabaseEventView("ds_1", testTable(), "insert", "o'things")
	assert.Contains(t, v.Query, `table_name = 'o\'things'`)
}

func TestHTTPServerEventView(t *testing.T) {
	table := types.TableSpec{TableID: "atoms_http_server_events"}
	v := HTTPServerEventView("ds_1", table, "post")
	assert.Equal(t, "http_server_post", v.ViewID)
	assert.Equal(t, "HTTP Server POST Request", v.FriendlyName)
	assert.Equal(t, "An HTTP POST request was received by the server.", v.Description)
	assert.Equal(t,
		"SELECT * FROM `ds_1.atoms_http_server_events` WHERE UPPER(request_method) = 'POST'",
		v.Query)
}

func TestBrowserViews(t *testing.T) {
	table := types.TableSpec{TableID: "atoms_browser_events"}

	click := ClickView("ds_1", table)
	assert.Equal(t, "click", click.ViewID)
	assert.Contains(t, click.Query, "action = 'click'")

	form := FormSubmissionView("ds_1", table)
	assert.Equal(t, "form_submission", form.ViewID)
	assert.Equal(t, "A form was submitted.", form.Description)
}

func TestPageViewView_CollapsesRedirectRuns(t *testing.T) {
	table := types.TableSpec{TableID: "atoms_browser_events"}
	v := PageViewView("ds_1", table)

	assert.Equal(t, "page_view", v.ViewID)
	// The collapse keeps the last of each consecutive run of page views per
	// visitor and session.
	assert.Contains(t, v.Query, "LEAD(action) OVER (PARTITION BY visitor_id, session.id ORDER BY timestamp)")
	assert.Contains(t, v.Query, "next_action IS NULL OR next_action != 'page_view'")
	assert.True(t, strings.HasPrefix(v.Query, "SELECT * EXCEPT (next_action)"))
}

type browserHit struct {
	visitor string
	session string
	action  string
	ts      int
}

// survivingPageViews applies the window rule the page-view query encodes:
// within each (visitor, session) partition ordered by timestamp, a page view
// survives when the next event in its partition is absent or not a page view.
func survivingPageViews(hits []browserHit) []int {
	sorted := make([]browserHit, len(hits))
	copy(sorted, hits)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ts < sorted[j].ts })

	var kept []int
	for i, h := range sorted {
		if h.action != "page_view" {
			continue
		}
		var next *browserHit
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j].visitor == h.visitor && sorted[j].session == h.session {
				next = &sorted[j]
				break
			}
		}
		if next == nil || next.action != "page_view" {
			kept = append(kept, h.ts)
		}
	}
	return kept
}

// TestPageViewView_InterleavedSessionCollapse walks the collapse rule over an
// interleaved stream from two visitors and three sessions: exactly the last
// page view of each maximal consecutive run inside a session survives, and a
// neighboring session's events never break or extend a run.
func TestPageViewView_InterleavedSessionCollapse(t *testing.T) {
	hits := []browserHit{
		{"alice", "s1", "page_view", 1}, // redirect: next in (alice, s1) is the page view at ts 2
		{"alice", "s1", "page_view", 2}, // survives: next in (alice, s1) is the click at ts 4
		{"bob", "s2", "page_view", 3},   // redirect: next in (bob, s2) is the page view at ts 5
		{"alice", "s1", "click", 4},
		{"bob", "s2", "page_view", 5},   // survives: next in (bob, s2) is the click at ts 8
		{"alice", "s3", "page_view", 6}, // survives: alone in (alice, s3)
		{"alice", "s1", "page_view", 7}, // redirect: next in (alice, s1) is the page view at ts 9
		{"bob", "s2", "click", 8},
		{"alice", "s1", "page_view", 9}, // survives: last in (alice, s1)
	}

	// ts 2 only survives because the partition is per visitor and session:
	// its global successor (ts 3) is another page view, from bob. Likewise
	// ts 6 survives only because alice's s3 is a separate partition from s1.
	assert.Equal(t, []int{2, 5, 6, 9}, survivingPageViews(hits))

	// The query names the same partition keys, ordering, and predicate the
	// evaluator above implements.
	v := PageViewView("ds_1", types.TableSpec{TableID: "atoms_browser_events"})
	assert.Contains(t, v.Query, "PARTITION BY visitor_id, session.id ORDER BY timestamp")
	assert.Contains(t, v.Query, "next_action IS NULL OR next_action != 'page_view'")
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "account_created", slugify("Account Created"))
	assert.Equal(t, "http_2xx_ok", slugify("HTTP 2xx (OK)"))
	assert.Equal(t, "a_b", slugify("  a -- b  "))
}

func TestSingularize(t *testing.T) {
	cases := map[string]string{
		"accounts":  "account",
		"entries":   "entry",
		"addresses": "address",
		"boxes":     "box",
		"dishes":    "dish",
		"churches":  "church",
		"class":     "class",
		"data":      "data",
	}
	for in, want := range cases {
		assert.Equal(t, want, singularize(in), "singularize(%q)", in)
	}
}

func TestIndefiniteArticle(t *testing.T) {
	assert.Equal(t, "An", indefiniteArticle("account"))
	assert.Equal(t, "An", indefiniteArticle("entry"))
	assert.Equal(t, "A", indefiniteArticle("document"))
	assert.Equal(t, "A", indefiniteArticle(""))
}
