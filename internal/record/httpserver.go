package record

import (
	"time"

	"github.com/bricker/vivial-sub003/internal/errors"
	"github.com/bricker/vivial-sub003/internal/views"
	"github.com/bricker/vivial-sub003/pkg/types"
)

// HTTPServerEventAtom is one HTTP request observed by the customer
// application's server.
type HTTPServerEventAtom struct {
	Timestamp     *time.Time
	RequestMethod string
	RequestURL    *URL
	Origin        *string
	Headers       []KeyedValue
	Correlation   CorrelationContext
}

// HTTPServerEventsTable declares the HTTP-server atom table.
func HTTPServerEventsTable() types.TableSpec {
	schema := []*types.FieldSchema{
		{Name: "timestamp", Type: types.FieldTimestamp, Description: "When the event was observed"},
		{Name: "request_method", Type: types.FieldString, Required: true, Description: "The HTTP method, e.g. GET"},
		URLSchema("request_url", "The requested URL"),
		{Name: "origin", Type: types.FieldString},
		KeyedValueSchema("headers", "Request headers the customer application chose to report"),
	}
	schema = append(schema, CorrelationSchema()...)
	return types.TableSpec{
		TableID:      "atoms_http_server_events",
		FriendlyName: "HTTP Server Events",
		Description:  "Raw server-side HTTP request atoms",
		Schema:       schema,
	}
}

// HTTPServerEventFromPayload decodes a raw HTTP-server-event payload. The
// request method is the discriminating field; a payload without one is
// rejected.
func HTTPServerEventFromPayload(payload map[string]interface{}, dec Decrypter) (Atom, error) {
	res := Resource(payload)
	method := res.optString("request_method")
	if method == nil {
		return nil, errors.NewValidationError(errors.CodeMissingField, "http server event is missing request_method")
	}

	ts := res.optTime("timestamp")
	return &HTTPServerEventAtom{
		Timestamp:     ts,
		RequestMethod: *method,
		RequestURL:    URLFromResource(res, "request_url"),
		Origin:        res.optString("origin"),
		Headers:       KeyedValuesFromMap(res.optMap("headers")),
		Correlation:   CorrelationFromResource(res.optResource("corr_ctx"), ts, dec),
	}, nil
}

// Row returns the warehouse row for this atom.
func (a *HTTPServerEventAtom) Row() map[string]interface{} {
	row := map[string]interface{}{"request_method": a.RequestMethod}
	putTime(row, "timestamp", a.Timestamp)
	if u := a.RequestURL.Row(); u != nil {
		row["request_url"] = u
	}
	putString(row, "origin", a.Origin)
	if headers := keyedValueRows(a.Headers); headers != nil {
		row["headers"] = headers
	}
	a.Correlation.addTo(row)
	return row
}

// ViewSpecs returns the single view implied by this atom's method trigger.
func (a *HTTPServerEventAtom) ViewSpecs(datasetID string, table types.TableSpec) []types.ViewSpec {
	return []types.ViewSpec{views.HTTPServerEventView(datasetID, table, a.RequestMethod)}
}
