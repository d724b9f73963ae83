package record

import (
	"time"

	"github.com/bricker/vivial-sub003/internal/errors"
	"github.com/bricker/vivial-sub003/internal/views"
	"github.com/bricker/vivial-sub003/pkg/types"
)

// Browser actions with a first-class virtual-event view.
const (
	ActionClick          = "click"
	ActionFormSubmission = "form_submission"
	ActionPageView       = "page_view"
)

// BrowserEventAtom is one observed browser interaction.
type BrowserEventAtom struct {
	Timestamp   *time.Time
	Action      string
	Target      *Target
	Device      *Device
	CurrentPage *CurrentPage
	Correlation CorrelationContext
	Extra       []KeyedValue
}

// BrowserEventsTable declares the browser atom table.
func BrowserEventsTable() types.TableSpec {
	schema := []*types.FieldSchema{
		{Name: "timestamp", Type: types.FieldTimestamp, Description: "When the event was observed"},
		{Name: "action", Type: types.FieldString, Required: true, Description: "The browser action, e.g. click, page_view"},
	}
	schema = append(schema, CorrelationSchema()...)
	schema = append(schema,
		TargetSchema(),
		DeviceSchema(),
		CurrentPageSchema(),
		KeyedValueSchema("extra", "Additional event properties supplied by the customer application"),
	)
	return types.TableSpec{
		TableID:      "atoms_browser_events",
		FriendlyName: "Browser Events",
		Description:  "Raw browser interaction atoms",
		Schema:       schema,
	}
}

// BrowserEventFromPayload decodes a raw browser-event payload. The action is
// the discriminating field; a payload without one is rejected.
func BrowserEventFromPayload(payload map[string]interface{}, dec Decrypter) (Atom, error) {
	res := Resource(payload)
	action := res.optString("action")
	if action == nil {
		return nil, errors.NewValidationError(errors.CodeMissingField, "browser event is missing action")
	}

	ts := res.optTime("timestamp")
	return &BrowserEventAtom{
		Timestamp:   ts,
		Action:      *action,
		Target:      TargetFromResource(res.optResource("target")),
		Device:      DeviceFromResource(res.optResource("device")),
		CurrentPage: CurrentPageFromResource(res.optResource("current_page")),
		Correlation: CorrelationFromResource(res.optResource("corr_ctx"), ts, dec),
		Extra:       KeyedValuesFromMap(res.optMap("extra")),
	}, nil
}

// Row returns the warehouse row for this atom.
func (a *BrowserEventAtom) Row() map[string]interface{} {
	row := map[string]interface{}{"action": a.Action}
	putTime(row, "timestamp", a.Timestamp)
	a.Correlation.addTo(row)
	if t := a.Target.Row(); t != nil {
		row["target"] = t
	}
	if d := a.Device.Row(); d != nil {
		row["device"] = d
	}
	if p := a.CurrentPage.Row(); p != nil {
		row["current_page"] = p
	}
	if extra := keyedValueRows(a.Extra); extra != nil {
		row["extra"] = extra
	}
	return row
}

// ViewSpecs returns the static view for recognized browser actions; atoms
// with unrecognized actions imply no views.
func (a *BrowserEventAtom) ViewSpecs(datasetID string, table types.TableSpec) []types.ViewSpec {
	switch a.Action {
	case ActionClick:
		return []types.ViewSpec{views.ClickView(datasetID, table)}
	case ActionFormSubmission:
		return []types.ViewSpec{views.FormSubmissionView(datasetID, table)}
	case ActionPageView:
		return []types.ViewSpec{views.PageViewView(datasetID, table)}
	}
	return nil
}
