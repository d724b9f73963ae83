package record

import "github.com/bricker/vivial-sub003/pkg/types"

// Target describes the page element a browser atom acted on.
type Target struct {
	Type       *string
	ID         *string
	Content    *string
	Attributes []KeyedValue
}

// TargetSchema returns the schema for a target record column.
func TargetSchema() *types.FieldSchema {
	return &types.FieldSchema{
		Name:        "target",
		Type:        types.FieldRecord,
		Description: "The page element this atom acted on",
		Fields: []*types.FieldSchema{
			{Name: "type", Type: types.FieldString},
			{Name: "id", Type: types.FieldString},
			{Name: "content", Type: types.FieldString, Redactable: true, Description: "Visible text content of the element"},
			KeyedValueSchema("attributes", "HTML attributes of the element"),
		},
	}
}

// TargetFromResource maps an upstream target object into a Target.
func TargetFromResource(resource Resource) *Target {
	if resource == nil {
		return nil
	}
	return &Target{
		Type:       resource.optString("type"),
		ID:         resource.optString("id"),
		Content:    resource.optString("content"),
		Attributes: KeyedValuesFromMap(resource.optMap("attributes")),
	}
}

// Row returns the warehouse row fragment for the target.
func (t *Target) Row() map[string]interface{} {
	if t == nil {
		return nil
	}
	row := map[string]interface{}{}
	putString(row, "type", t.Type)
	putString(row, "id", t.ID)
	putString(row, "content", t.Content)
	if attrs := keyedValueRows(t.Attributes); attrs != nil {
		row["attributes"] = attrs
	}
	return row
}

// CurrentPage describes the page the visitor was on when the atom occurred.
type CurrentPage struct {
	URL   *URL
	Title *string
}

// CurrentPageSchema returns the schema for a current-page record column.
func CurrentPageSchema() *types.FieldSchema {
	return &types.FieldSchema{
		Name:        "current_page",
		Type:        types.FieldRecord,
		Description: "The page the visitor was on when this atom occurred",
		Fields: []*types.FieldSchema{
			URLSchema("url", "The page URL"),
			{Name: "title", Type: types.FieldString, Redactable: true},
		},
	}
}

// CurrentPageFromResource maps an upstream current-page object into a
// CurrentPage.
func CurrentPageFromResource(resource Resource) *CurrentPage {
	if resource == nil {
		return nil
	}
	return &CurrentPage{
		URL:   URLFromResource(resource, "url"),
		Title: resource.optString("title"),
	}
}

// Row returns the warehouse row fragment for the current page.
func (p *CurrentPage) Row() map[string]interface{} {
	if p == nil {
		return nil
	}
	row := map[string]interface{}{}
	if u := p.URL.Row(); u != nil {
		row["url"] = u
	}
	putString(row, "title", p.Title)
	return row
}
