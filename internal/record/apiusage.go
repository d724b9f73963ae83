package record

import (
	"time"

	"github.com/bricker/vivial-sub003/internal/errors"
	"github.com/bricker/vivial-sub003/pkg/types"
)

// APIUsageEventAtom is one observed use of a third-party API by the customer
// application.
type APIUsageEventAtom struct {
	Timestamp   *time.Time
	Service     *string
	EventName   string
	Quantity    *float64
	Extra       []KeyedValue
	Correlation CorrelationContext
}

// APIUsageEventsTable declares the third-party-API-usage atom table.
func APIUsageEventsTable() types.TableSpec {
	schema := []*types.FieldSchema{
		{Name: "timestamp", Type: types.FieldTimestamp, Description: "When the event was observed"},
		{Name: "service", Type: types.FieldString, Description: "The third-party service, e.g. stripe"},
		{Name: "event_name", Type: types.FieldString, Required: true},
		{Name: "quantity", Type: types.FieldFloat, Description: "Usage quantity, in the service's own unit"},
		KeyedValueSchema("extra", "Additional usage properties supplied by the customer application"),
	}
	schema = append(schema, CorrelationSchema()...)
	return types.TableSpec{
		TableID:      "atoms_api_usage_events",
		FriendlyName: "API Usage Events",
		Description:  "Raw third-party API usage atoms",
		Schema:       schema,
	}
}

// APIUsageEventFromPayload decodes a raw API-usage payload. The event name
// is the discriminating field; a payload without one is rejected.
func APIUsageEventFromPayload(payload map[string]interface{}, dec Decrypter) (Atom, error) {
	res := Resource(payload)
	eventName := res.optString("event_name")
	if eventName == nil {
		return nil, errors.NewValidationError(errors.CodeMissingField, "api usage event is missing event_name")
	}

	ts := res.optTime("timestamp")
	return &APIUsageEventAtom{
		Timestamp:   ts,
		Service:     res.optString("service"),
		EventName:   *eventName,
		Quantity:    res.optFloat("quantity"),
		Extra:       KeyedValuesFromMap(res.optMap("extra")),
		Correlation: CorrelationFromResource(res.optResource("corr_ctx"), ts, dec),
	}, nil
}

// Row returns the warehouse row for this atom.
func (a *APIUsageEventAtom) Row() map[string]interface{} {
	row := map[string]interface{}{"event_name": a.EventName}
	putTime(row, "timestamp", a.Timestamp)
	putString(row, "service", a.Service)
	putFloat(row, "quantity", a.Quantity)
	if extra := keyedValueRows(a.Extra); extra != nil {
		row["extra"] = extra
	}
	a.Correlation.addTo(row)
	return row
}

// ViewSpecs returns no views: API usage atoms imply no virtual events.
func (a *APIUsageEventAtom) ViewSpecs(datasetID string, table types.TableSpec) []types.ViewSpec {
	return nil
}
