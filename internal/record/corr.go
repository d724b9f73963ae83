package record

import (
	"time"

	"github.com/bricker/vivial-sub003/pkg/types"
)

// CorrelationContext carries the visitor identity shared by all atom kinds:
// visitor id, session, traffic source, and (possibly encrypted) account.
// Payloads nest it under the "corr_ctx" key.
type CorrelationContext struct {
	VisitorID     *string
	Session       *Session
	TrafficSource *TrafficSource
	Account       *Account
}

// CorrelationSchema returns the shared correlation columns, in the order
// they appear in every atom table.
func CorrelationSchema() []*types.FieldSchema {
	return []*types.FieldSchema{
		{Name: "visitor_id", Type: types.FieldString, Description: "Anonymous visitor identifier"},
		SessionSchema(),
		TrafficSourceSchema(),
		AccountSchema(),
	}
}

// CorrelationFromResource maps the corr_ctx payload object into a
// CorrelationContext. The atom's event timestamp feeds session duration
// derivation; the decrypter handles encrypted account ids.
func CorrelationFromResource(resource Resource, eventTimestamp *time.Time, dec Decrypter) CorrelationContext {
	if resource == nil {
		return CorrelationContext{}
	}
	return CorrelationContext{
		VisitorID:     resource.optString("visitor_id"),
		Session:       SessionFromResource(resource.optResource("session"), eventTimestamp),
		TrafficSource: TrafficSourceFromResource(resource.optResource("traffic_source")),
		Account:       AccountFromResource(resource.optResource("account"), dec),
	}
}

// addTo writes the correlation columns into an atom row.
func (c CorrelationContext) addTo(row map[string]interface{}) {
	putString(row, "visitor_id", c.VisitorID)
	if s := c.Session.Row(); s != nil {
		row["session"] = s
	}
	if ts := c.TrafficSource.Row(); ts != nil {
		row["traffic_source"] = ts
	}
	if a := c.Account.Row(); a != nil {
		row["account"] = a
	}
}
