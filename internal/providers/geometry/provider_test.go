package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/scenemcp/internal/domain/tools/toolstest"
	"github.com/GriffinCanCode/scenemcp/internal/scene/schema"
	"github.com/GriffinCanCode/scenemcp/internal/shared/types"
)

func TestDefinePrim(t *testing.T) {
	h := toolstest.New(t, NewProvider())
	handle := h.CreateStage("a.usda", schema.TemplateEmpty)

	env := h.MustCall("define_prim", map[string]interface{}{"handle": handle, "prim_path": "/World/Rig/Arm"})
	assert.Equal(t, "/World/Rig/Arm", env.Data["prim_path"])
	assert.Equal(t, schema.TypeXform, env.Data["prim_type"])

	st := h.Stage(handle)
	parent, err := st.Prim("/World/Rig")
	require.NoError(t, err)
	assert.Equal(t, schema.TypeXform, parent.Type)

	env = h.Call("define_prim", map[string]interface{}{"handle": handle, "prim_path": "/World/X", "prim_type": "Banana"})
	assert.Equal(t, types.ErrorValidation, env.ErrorCode)

	env = h.Call("define_prim", map[string]interface{}{"handle": handle, "prim_path": "World"})
	assert.Equal(t, types.ErrorValidation, env.ErrorCode)
}

func TestCreatePrimitive(t *testing.T) {
	h := toolstest.New(t, NewProvider())
	handle := h.CreateStage("a.usda", schema.TemplateEmpty)

	env := h.MustCall("create_primitive", map[string]interface{}{
		"handle":    handle,
		"prim_path": "/World/Ball",
		"geometry":  "sphere",
		"size":      2,
	})
	assert.Equal(t, schema.TypeSphere, env.Data["prim_type"])
	assert.Equal(t, [][]float64{{-1, -1, -1}, {1, 1, 1}}, env.Data["extent"])

	prim, err := h.Stage(handle).Prim("/World/Ball")
	require.NoError(t, err)
	radius, ok := prim.Attribute("radius")
	require.True(t, ok)
	assert.Equal(t, 1.0, radius.Value)

	env = h.Call("create_primitive", map[string]interface{}{"handle": handle, "prim_path": "/World/Bad", "size": 0})
	assert.Equal(t, types.ErrorValidation, env.ErrorCode)
	assert.Contains(t, env.Message, "must be > 0")
}

func TestCreateMesh(t *testing.T) {
	h := toolstest.New(t, NewProvider())
	handle := h.CreateStage("a.usda", schema.TemplateEmpty)

	env := h.MustCall("create_mesh", map[string]interface{}{
		"handle":              handle,
		"prim_path":           "/World/Tri",
		"points":              []interface{}{[]interface{}{0, 0, 0}, []interface{}{2, 0, 0}, []interface{}{0, 3, 0}},
		"face_vertex_counts":  []interface{}{3},
		"face_vertex_indices": []interface{}{0, 1, 2},
	})
	assert.Equal(t, 3, env.Data["points"])
	assert.Equal(t, 1, env.Data["face_count"])
	assert.Equal(t, [][]float64{{0, 0, 0}, {2, 3, 0}}, env.Data["extent"])

	env = h.Call("create_mesh", map[string]interface{}{
		"handle":              handle,
		"prim_path":           "/World/Broken",
		"points":              []interface{}{[]interface{}{0, 0, 0}},
		"face_vertex_counts":  []interface{}{3},
		"face_vertex_indices": []interface{}{0, 1, 2},
	})
	assert.Equal(t, types.ErrorValidation, env.ErrorCode)
	_, err := h.Stage(handle).Prim("/World/Broken")
	assert.Error(t, err, "invalid topology must not leave a prim behind")
}

func TestCreateReference(t *testing.T) {
	h := toolstest.New(t, NewProvider())
	handle := h.CreateStage("a.usda", schema.TemplateEmpty)

	env := h.MustCall("create_reference", map[string]interface{}{
		"handle":              handle,
		"prim_path":           "/World/Chair",
		"reference_file_path": "props/chair.usda",
	})
	assert.Equal(t, "", env.Data["reference_prim_path"])

	prim, err := h.Stage(handle).Prim("/World/Chair")
	require.NoError(t, err)
	require.Len(t, prim.References, 1)
	assert.Equal(t, "props/chair.usda", prim.References[0].AssetPath)

	env = h.Call("create_reference", map[string]interface{}{
		"handle":              handle,
		"prim_path":           "/World/Chair",
		"reference_file_path": "props/chair.usda",
		"reference_prim_path": "relative",
	})
	assert.Equal(t, types.ErrorValidation, env.ErrorCode)
}

func TestSetTransform(t *testing.T) {
	h := toolstest.New(t, NewProvider())
	handle := h.CreateStage("a.usda", schema.TemplateBasic)

	env := h.MustCall("set_transform", map[string]interface{}{
		"handle":    handle,
		"prim_path": "/World/Camera",
		"translate": []interface{}{1, 2, 3},
		"scale":     []interface{}{2, 2, 2},
	})
	matrix := env.Data["matrix"].([]float64)
	require.Len(t, matrix, 16)
	assert.InDeltaSlice(t, []float64{
		2, 0, 0, 1,
		0, 2, 0, 2,
		0, 0, 2, 3,
		0, 0, 0, 1,
	}, matrix, 1e-9)

	prim, err := h.Stage(handle).Prim("/World/Camera")
	require.NoError(t, err)
	order, ok := prim.Attribute("xformOpOrder")
	require.True(t, ok)
	assert.Equal(t, schema.XformOpOrder, order.Value)

	env = h.Call("set_transform", map[string]interface{}{"handle": handle, "prim_path": "/World/Missing"})
	assert.Equal(t, types.ErrorValidation, env.ErrorCode)
}

func TestPathFormPersists(t *testing.T) {
	h := toolstest.New(t, NewProvider())
	handle := h.CreateStage("a.usda", schema.TemplateEmpty)
	h.MustCall("close_stage", map[string]interface{}{"handle": handle})

	path := h.Path("a.usda")
	h.MustCall("create_primitive_by_path", map[string]interface{}{"source_path": path, "prim_path": "/World/Box"})

	prim, err := h.Reopen(path).Prim("/World/Box")
	require.NoError(t, err)
	assert.Equal(t, schema.TypeCube, prim.Type)
	assert.Equal(t, 0, h.Registry.Len())
}
