package record

import "github.com/bricker/vivial-sub003/pkg/types"

// Brand is one user-agent brand/version pair reported by the browser.
type Brand struct {
	Brand   *string
	Version *string
}

// Device describes the browser and device an atom was observed on.
type Device struct {
	UserAgent       *string
	Brands          []Brand
	Platform        *string
	PlatformVersion *string
	Mobile          *bool
	ScreenWidth     *float64
	ScreenHeight    *float64
	Language        *string
}

// DeviceSchema returns the schema for a device record column.
func DeviceSchema() *types.FieldSchema {
	return &types.FieldSchema{
		Name:        "device",
		Type:        types.FieldRecord,
		Description: "The browser and device this atom was observed on",
		Fields: []*types.FieldSchema{
			{Name: "user_agent", Type: types.FieldString, Redactable: true},
			{
				Name:     "brands",
				Type:     types.FieldRecord,
				Repeated: true,
				Fields: []*types.FieldSchema{
					{Name: "brand", Type: types.FieldString},
					{Name: "version", Type: types.FieldString},
				},
			},
			{Name: "platform", Type: types.FieldString},
			{Name: "platform_version", Type: types.FieldString},
			{Name: "mobile", Type: types.FieldBoolean},
			{Name: "screen_width", Type: types.FieldFloat},
			{Name: "screen_height", Type: types.FieldFloat},
			{Name: "language", Type: types.FieldString},
		},
	}
}

// DeviceFromResource maps an upstream device object into a Device.
func DeviceFromResource(resource Resource) *Device {
	if resource == nil {
		return nil
	}
	d := &Device{
		UserAgent:       resource.optString("user_agent"),
		Platform:        resource.optString("platform"),
		PlatformVersion: resource.optString("platform_version"),
		Mobile:          resource.optBool("mobile"),
		ScreenWidth:     resource.optFloat("screen_width"),
		ScreenHeight:    resource.optFloat("screen_height"),
		Language:        resource.optString("language"),
	}
	for _, item := range resource.optSlice("brands") {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		br := Resource(m)
		d.Brands = append(d.Brands, Brand{
			Brand:   br.optString("brand"),
			Version: br.optString("version"),
		})
	}
	return d
}

// Row returns the warehouse row fragment for the device.
func (d *Device) Row() map[string]interface{} {
	if d == nil {
		return nil
	}
	row := map[string]interface{}{}
	putString(row, "user_agent", d.UserAgent)
	if len(d.Brands) > 0 {
		brands := make([]interface{}, 0, len(d.Brands))
		for _, b := range d.Brands {
			brand := map[string]interface{}{}
			putString(brand, "brand", b.Brand)
			putString(brand, "version", b.Version)
			brands = append(brands, brand)
		}
		row["brands"] = brands
	}
	putString(row, "platform", d.Platform)
	putString(row, "platform_version", d.PlatformVersion)
	putBool(row, "mobile", d.Mobile)
	putFloat(row, "screen_width", d.ScreenWidth)
	putFloat(row, "screen_height", d.ScreenHeight)
	putString(row, "language", d.Language)
	return row
}
