package inspect

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/scenemcp/internal/domain/tools/toolstest"
	"github.com/GriffinCanCode/scenemcp/internal/scene"
	"github.com/GriffinCanCode/scenemcp/internal/scene/docstore"
	"github.com/GriffinCanCode/scenemcp/internal/scene/schema"
	"github.com/GriffinCanCode/scenemcp/internal/shared/types"
)

func TestAnalyzeStage(t *testing.T) {
	h := toolstest.New(t, NewProvider())
	handle := h.CreateStage("basic.usda", schema.TemplateBasic)

	env := h.MustCall("analyze_stage", map[string]interface{}{"handle": handle})
	assert.Equal(t, "Y", env.Data["up_axis"])
	assert.Equal(t, "/World", env.Data["default_prim"])
	assert.Equal(t, 4, env.Data["prim_count"])
	assert.Equal(t, 2, env.Data["max_depth"])
	assert.Equal(t, 0, env.Data["animated_attributes"])
	assert.Equal(t, 0, env.Data["rigid_bodies"])

	byType := env.Data["prim_types"].(map[string]int)
	assert.Equal(t, map[string]int{"Xform": 1, "Camera": 1, "DistantLight": 1, "Mesh": 1}, byType)

	prims := env.Data["prims"].([]map[string]interface{})
	require.Len(t, prims, 4)
	assert.Equal(t, "/World", prims[0]["path"])
}

func TestAnalyzeEmptyStage(t *testing.T) {
	st := docstore.NewStage("/tmp/empty.usda")
	res, err := NewProvider().analyze(context.Background(), st, nil)
	require.NoError(t, err)

	assert.Nil(t, res.Data["default_prim"])
	assert.Equal(t, 0, res.Data["prim_count"])
	assert.Empty(t, res.Data["prims"])
}

func TestAnalyzeCountsAnimationAndBodies(t *testing.T) {
	st := docstore.NewStage("/tmp/anim.usda")
	_, _, err := schema.DefinePrimitive(st, "/World/Ball", "sphere", 1)
	require.NoError(t, err)
	require.NoError(t, schema.ApplyRigidBody(st, "/World/Ball", schema.Body{Mass: 2, Dynamic: true}))
	_, err = schema.SetKeyframe(st, "/World/Ball", schema.Keyframe{Attribute: "radius", Time: 10, Value: 2.0})
	require.NoError(t, err)

	res, err := NewProvider().analyze(context.Background(), st, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Data["animated_attributes"])
	assert.Equal(t, 1, res.Data["rigid_bodies"])
	assert.Equal(t, []float64{0, 10}, res.Data["time_code_range"])
}

func TestListPrims(t *testing.T) {
	h := toolstest.New(t, NewProvider())
	handle := h.CreateStage("basic.usda", schema.TemplateBasic)

	env := h.MustCall("list_prims", map[string]interface{}{"handle": handle, "prim_path": "/World"})
	assert.Equal(t, 4, env.Data["count"])
	assert.Equal(t, "/World", env.Data["start_path"])

	env = h.MustCall("list_prims", map[string]interface{}{"handle": handle, "pattern": "/World/*Light"})
	prims := env.Data["prims"].([]map[string]interface{})
	require.Len(t, prims, 1)
	assert.Equal(t, "/World/Light", prims[0]["path"])
	assert.Equal(t, "DistantLight", prims[0]["type"])

	env = h.Call("list_prims", map[string]interface{}{"handle": handle, "pattern": "[bad"})
	assert.Equal(t, types.ErrorValidation, env.ErrorCode)

	env = h.Call("list_prims", map[string]interface{}{"handle": handle, "prim_path": "/Nowhere"})
	assert.Equal(t, types.ErrorValidation, env.ErrorCode)
}

func TestVisualizeText(t *testing.T) {
	h := toolstest.New(t, NewProvider())
	handle := h.CreateStage("basic.usda", schema.TemplateBasic)

	env := h.MustCall("visualize_scene_graph", map[string]interface{}{"handle": handle})
	assert.Equal(t, "text", env.Data["format"])
	assert.Equal(t, 4, env.Data["prim_count"])

	want := strings.Join([]string{
		"/",
		"└── World (Xform)",
		"    ├── Camera (Camera)",
		"    ├── Light (DistantLight)",
		"    └── GroundPlane (Mesh)",
		"",
	}, "\n")
	assert.Equal(t, want, env.Data["visualization"])
}

func TestVisualizeJSONWithDepth(t *testing.T) {
	st := docstore.NewStage("/tmp/deep.usda")
	_, err := st.DefinePrim("/A/B/C", schema.TypeXform)
	require.NoError(t, err)

	tree, count, err := buildTree(st, scene.Root, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	m := tree.toMap()
	assert.Equal(t, "/", m["name"])
	children := m["children"].([]map[string]interface{})
	require.Len(t, children, 1)
	assert.Equal(t, "A", children[0]["name"])
	grand := children[0]["children"].([]map[string]interface{})
	require.Len(t, grand, 1)
	assert.Equal(t, "B", grand[0]["name"])
	assert.Empty(t, grand[0]["children"])

	sub, count, err := buildTree(st, "/A", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, "A", sub.Name)
	require.Len(t, sub.Children, 1)
	assert.Equal(t, "B", sub.Children[0].Name)
}
