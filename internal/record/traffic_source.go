package record

import (
	"time"

	"github.com/bricker/vivial-sub003/pkg/types"
)

// clickIDFields are the advertising click-id parameters tracked as first-class
// columns, in schema order.
var clickIDFields = []string{
	"gclid",      // Google Ads
	"dclid",      // Google Display
	"gbraid",     // Google iOS app campaigns
	"wbraid",     // Google web-to-app
	"fbclid",     // Facebook
	"msclkid",    // Microsoft Ads
	"ttclid",     // TikTok
	"twclid",     // Twitter
	"li_fat_id",  // LinkedIn
	"mc_eid",     // Mailchimp
	"igshid",     // Instagram
	"epik",       // Pinterest
	"qclid",      // Quora
	"sccid",      // Snapchat
	"irclickid",  // Impact Radius
}

// utmFields are the standard campaign attribution parameters.
var utmFields = []string{
	"utm_source",
	"utm_medium",
	"utm_campaign",
	"utm_term",
	"utm_content",
}

// TrafficSource describes how the visitor arrived: referrer, ad click ids,
// and campaign parameters captured at session start.
type TrafficSource struct {
	Timestamp           *time.Time
	BrowserReferrer     *string
	ClickIDs            map[string]*string
	UTM                 map[string]*string
	OtherTrackingParams []KeyedValue
}

// TrafficSourceSchema returns the schema for a traffic-source record column.
func TrafficSourceSchema() *types.FieldSchema {
	fields := []*types.FieldSchema{
		{Name: "timestamp", Type: types.FieldTimestamp},
		{Name: "browser_referrer", Type: types.FieldString, Redactable: true},
	}
	for _, name := range clickIDFields {
		fields = append(fields, &types.FieldSchema{Name: name, Type: types.FieldString})
	}
	for _, name := range utmFields {
		fields = append(fields, &types.FieldSchema{Name: name, Type: types.FieldString})
	}
	fields = append(fields, KeyedValueSchema("other_tracking_params", "Tracking parameters not recognized as click ids or utm parameters"))

	return &types.FieldSchema{
		Name:        "traffic_source",
		Type:        types.FieldRecord,
		Description: "How the visitor arrived at the application",
		Fields:      fields,
	}
}

// TrafficSourceFromResource maps an upstream traffic-source object into a
// TrafficSource.
func TrafficSourceFromResource(resource Resource) *TrafficSource {
	if resource == nil {
		return nil
	}
	ts := &TrafficSource{
		Timestamp:       resource.optTime("timestamp"),
		BrowserReferrer: resource.optString("browser_referrer"),
		ClickIDs:        make(map[string]*string, len(clickIDFields)),
		UTM:             make(map[string]*string, len(utmFields)),
	}
	for _, name := range clickIDFields {
		ts.ClickIDs[name] = resource.optString(name)
	}
	for _, name := range utmFields {
		ts.UTM[name] = resource.optString(name)
	}
	ts.OtherTrackingParams = KeyedValuesFromMap(resource.optMap("other_tracking_params"))
	return ts
}

// Row returns the warehouse row fragment for the traffic source.
func (ts *TrafficSource) Row() map[string]interface{} {
	if ts == nil {
		return nil
	}
	row := map[string]interface{}{}
	putTime(row, "timestamp", ts.Timestamp)
	putString(row, "browser_referrer", ts.BrowserReferrer)
	for _, name := range clickIDFields {
		putString(row, name, ts.ClickIDs[name])
	}
	for _, name := range utmFields {
		putString(row, name, ts.UTM[name])
	}
	if params := keyedValueRows(ts.OtherTrackingParams); params != nil {
		row["other_tracking_params"] = params
	}
	return row
}
