package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccess(t *testing.T) {
	env := Success("done", nil)

	assert.True(t, env.OK)
	assert.Equal(t, "done", env.Message)
	assert.NotNil(t, env.Data)
	assert.Empty(t, env.ErrorCode)

	ts, err := env.Time()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, ts.Location())
	assert.WithinDuration(t, time.Now(), ts, time.Minute)
}

func TestFailure(t *testing.T) {
	env := Failure("Stage with ID x not found", ErrorHandleNotFound)

	assert.False(t, env.OK)
	assert.Equal(t, ErrorHandleNotFound, env.ErrorCode)
	assert.NotNil(t, env.Data)
	assert.Empty(t, env.Data)
}

func TestEnvelopeJSON(t *testing.T) {
	t.Run("success omits error code", func(t *testing.T) {
		raw, err := json.Marshal(Success("ok", map[string]interface{}{"count": 1}))
		require.NoError(t, err)

		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &decoded))
		assert.Equal(t, true, decoded["ok"])
		assert.NotContains(t, decoded, "error_code")
		assert.Contains(t, decoded, "timestamp")
		assert.Equal(t, map[string]interface{}{"count": float64(1)}, decoded["data"])
	})

	t.Run("failure carries code and empty data", func(t *testing.T) {
		raw, err := json.Marshal(Failure("bad", ErrorValidation))
		require.NoError(t, err)

		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &decoded))
		assert.Equal(t, false, decoded["ok"])
		assert.Equal(t, "ValidationError", decoded["error_code"])
		assert.Equal(t, map[string]interface{}{}, decoded["data"])
	})
}

func TestInputSchema(t *testing.T) {
	lo, hi := 0.0, 1.0
	tool := Tool{
		Name: "create_material",
		Params: []Param{
			{Name: "handle", Type: ParamString, Required: true},
			{Name: "diffuse_color", Type: ParamVector3, Default: []float64{0.8, 0.8, 0.8}, Min: &lo, Max: &hi},
			{Name: "material_type", Type: ParamString, Enum: []string{"preview_surface"}},
		},
	}

	schema := tool.InputSchema()
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []string{"handle"}, schema["required"])

	props := schema["properties"].(map[string]interface{})
	color := props["diffuse_color"].(map[string]interface{})
	assert.Equal(t, "array", color["type"])
	assert.Equal(t, 3, color["minItems"])
	assert.Equal(t, 1.0, color["items"].(map[string]interface{})["maximum"])

	kind := props["material_type"].(map[string]interface{})
	assert.Equal(t, []string{"preview_surface"}, kind["enum"])
}

func TestInputSchemaWithoutRequired(t *testing.T) {
	schema := Tool{Name: "get_registry_status"}.InputSchema()
	assert.NotContains(t, schema, "required")
	assert.Empty(t, schema["properties"])
}

func TestInputSchemaExclusiveMinimum(t *testing.T) {
	zero := 0.0
	schema := Tool{Name: "create_primitive", Params: []Param{
		{Name: "size", Type: ParamNumber, Min: &zero, ExclusiveMin: true},
	}}.InputSchema()

	size := schema["properties"].(map[string]interface{})["size"].(map[string]interface{})
	assert.Equal(t, 0.0, size["exclusiveMinimum"])
	assert.NotContains(t, size, "minimum")
}
