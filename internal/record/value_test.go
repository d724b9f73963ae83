package record

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slotCount(kv KeyedValue) int {
	n := 0
	if kv.StringValue != nil {
		n++
	}
	if kv.BoolValue != nil {
		n++
	}
	if kv.NumericValue != nil {
		n++
	}
	if kv.JSONValue != nil {
		n++
	}
	return n
}

func TestNewKeyedValue_SlotSelection(t *testing.T) {
	kv := NewKeyedValue("k", "hello")
	require.NotNil(t, kv.StringValue)
	assert.Equal(t, "hello", *kv.StringValue)
	assert.Equal(t, 1, slotCount(kv))

	kv = NewKeyedValue("k", true)
	require.NotNil(t, kv.BoolValue)
	assert.True(t, *kv.BoolValue)
	assert.Equal(t, 1, slotCount(kv))

	kv = NewKeyedValue("k", float64(42.5))
	require.NotNil(t, kv.NumericValue)
	assert.Equal(t, 42.5, *kv.NumericValue)
	assert.Equal(t, 1, slotCount(kv))

	kv = NewKeyedValue("k", map[string]interface{}{"nested": []interface{}{float64(1)}})
	require.NotNil(t, kv.JSONValue)
	assert.JSONEq(t, `{"nested":[1]}`, *kv.JSONValue)
	assert.Equal(t, 1, slotCount(kv))
}

func TestNewKeyedValue_NullLeavesAllSlotsNil(t *testing.T) {
	kv := NewKeyedValue("k", nil)
	assert.Equal(t, "k", kv.Key)
	assert.Equal(t, 0, slotCount(kv))
}

func TestNewKeyedValue_UnserializableLeavesAllSlotsNil(t *testing.T) {
	kv := NewKeyedValue("k", func() {})
	assert.Equal(t, 0, slotCount(kv))
	assert.Equal(t, map[string]interface{}{"key": "k"}, kv.Row())
}

// TestProperty_KeyedValueSlotExclusivity validates that for any decoded JSON
// value, at most one typed slot is ever populated.
func TestProperty_KeyedValueSlotExclusivity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("strings populate exactly the string slot", prop.ForAll(
		func(s string) bool {
			kv := NewKeyedValue("k", s)
			return slotCount(kv) == 1 && kv.StringValue != nil && *kv.StringValue == s
		},
		gen.AnyString(),
	))

	properties.Property("numbers populate exactly the numeric slot", prop.ForAll(
		func(f float64) bool {
			kv := NewKeyedValue("k", f)
			return slotCount(kv) == 1 && kv.NumericValue != nil && *kv.NumericValue == f
		},
		gen.Float64Range(-1e12, 1e12),
	))

	properties.Property("booleans populate exactly the bool slot", prop.ForAll(
		func(b bool) bool {
			kv := NewKeyedValue("k", b)
			return slotCount(kv) == 1 && kv.BoolValue != nil && *kv.BoolValue == b
		},
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestKeyedValuesFromMap(t *testing.T) {
	values := KeyedValuesFromMap(map[string]interface{}{
		"a": "text",
		"b": float64(1),
	})
	require.Len(t, values, 2)
	byKey := map[string]KeyedValue{}
	for _, kv := range values {
		byKey[kv.Key] = kv
	}
	assert.NotNil(t, byKey["a"].StringValue)
	assert.NotNil(t, byKey["b"].NumericValue)

	assert.Nil(t, KeyedValuesFromMap(nil))
	assert.Nil(t, KeyedValuesFromMap(map[string]interface{}{}))
}
