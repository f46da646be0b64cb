package providers

import (
	"os"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/scenemcp/internal/domain/tools"
	"github.com/GriffinCanCode/scenemcp/internal/domain/tools/toolstest"
	"github.com/GriffinCanCode/scenemcp/internal/scene/schema"
	"github.com/GriffinCanCode/scenemcp/internal/shared/types"
)

func TestRegisterAll(t *testing.T) {
	d := tools.New(tools.Config{})
	require.NoError(t, RegisterAll(d))

	var handle, path, single int
	for _, tool := range d.Tools() {
		switch tool.Form {
		case types.FormHandle:
			handle++
		case types.FormPath:
			path++
		default:
			single++
		}
	}
	assert.Equal(t, 24, handle)
	assert.Equal(t, handle, path)
	assert.Equal(t, 7, single)

	assert.Error(t, RegisterAll(d), "registering twice collides")
}

// step is one call made through both forms
type step struct {
	tool   string
	params map[string]interface{}
}

var steps = []step{
	{"define_prim", map[string]interface{}{"prim_path": "/World/Props", "prim_type": "Scope"}},
	{"create_primitive", map[string]interface{}{"prim_path": "/World/Props/Box", "size": 2}},
	{"create_primitive", map[string]interface{}{"prim_path": "/World/Props/Ball", "geometry": "sphere"}},
	{"create_mesh", map[string]interface{}{
		"prim_path":           "/World/Props/Tri",
		"points":              []interface{}{[]interface{}{0, 0, 0}, []interface{}{1, 0, 0}, []interface{}{0, 1, 0}},
		"face_vertex_counts":  []interface{}{3},
		"face_vertex_indices": []interface{}{0, 1, 2},
	}},
	{"create_reference", map[string]interface{}{"prim_path": "/World/Chair", "reference_file_path": "chair.usda", "reference_prim_path": "/Chair"}},
	{"set_transform", map[string]interface{}{"prim_path": "/World/Props/Box", "translate": []interface{}{0, 1, 0}, "rotate": []interface{}{0, 45, 0}}},
	{"create_material", map[string]interface{}{"material_path": "/World/Looks/Red", "diffuse_color": []interface{}{1, 0, 0}}},
	{"bind_material", map[string]interface{}{"prim_path": "/World/Props/Box", "material_path": "/World/Looks/Red"}},
	{"create_texture_material", map[string]interface{}{"material_path": "/World/Looks/Wood", "texture_file_path": "wood.png"}},
	{"setup_physics_scene", map[string]interface{}{}},
	{"add_rigid_body", map[string]interface{}{"prim_path": "/World/Props/Ball", "mass": 3}},
	{"add_collision", map[string]interface{}{"prim_path": "/World/Props/Ball", "collision_type": "sphere"}},
	{"create_joint", map[string]interface{}{"joint_path": "/World/Weld", "body0_path": "/World/Props/Box", "body1_path": "/World/Props/Ball"}},
	{"update_rigid_body", map[string]interface{}{"prim_path": "/World/Props/Ball", "mass": 4, "velocity": []interface{}{0, 0, 1}}},
	{"create_joint", map[string]interface{}{"joint_path": "/World/Hinge", "joint_type": "revolute", "body0_path": "/World/Props/Box", "body1_path": "/World/Props/Ball"}},
	{"configure_joint", map[string]interface{}{"joint_path": "/World/Hinge", "axis": "Y", "lower_limit": -30, "upper_limit": 30}},
	{"remove_joint", map[string]interface{}{"joint_path": "/World/Weld"}},
	{"update_material", map[string]interface{}{"material_path": "/World/Looks/Red", "roughness": 0.1}},
	{"set_keyframe", map[string]interface{}{"prim_path": "/World/Props/Ball", "attribute_name": "radius", "time": 12, "value": 0.75}},
	{"create_animation", map[string]interface{}{
		"prim_path":      "/World/Props/Ball",
		"attribute_name": "radius",
		"keyframes":      []interface{}{map[string]interface{}{"time": 0, "value": 0.5}, map[string]interface{}{"time": 24, "value": 1.0}},
	}},
	{"create_transform_animation", map[string]interface{}{
		"prim_path":           "/World/Props/Box",
		"translate_keyframes": []interface{}{map[string]interface{}{"time": 0, "value": []interface{}{0, 1, 0}}, map[string]interface{}{"time": 24, "value": []interface{}{0, 3, 0}}},
		"time_range":          []interface{}{0, 48},
	}},
	{"remove_collision", map[string]interface{}{"prim_path": "/World/Props/Ball"}},
	{"remove_rigid_body", map[string]interface{}{"prim_path": "/World/Props/Ball"}},
	{"list_prims", map[string]interface{}{"prim_path": "/World/Props"}},
	{"visualize_scene_graph", map[string]interface{}{"format": "json"}},
	{"analyze_stage", map[string]interface{}{}},
	{"define_prim", map[string]interface{}{"prim_path": "/World/Bad", "prim_type": "Teapot"}},
	{"bind_material", map[string]interface{}{"prim_path": "/World/Props/Box", "material_path": "/World/Props/Ball"}},
}

func withIdentifier(params map[string]interface{}, key, value string) map[string]interface{} {
	out := map[string]interface{}{key: value}
	for k, v := range params {
		out[k] = v
	}
	return out
}

// wire is data as a client sees it after JSON encoding
func wire(t *testing.T, data map[string]interface{}) interface{} {
	t.Helper()
	raw, err := sonic.ConfigStd.Marshal(data)
	require.NoError(t, err)
	var out interface{}
	require.NoError(t, sonic.ConfigStd.Unmarshal(raw, &out))
	return out
}

// Both forms of every capability must produce the same envelope and leave
// the same document behind.
func TestFormsAgree(t *testing.T) {
	h := toolstest.New(t, Scene()...)
	handleA := h.CreateStage("a.usda", schema.TemplateBasic)
	handleB := h.CreateStage("b.usda", schema.TemplateBasic)
	h.MustCall("close_stage", map[string]interface{}{"handle": handleB})
	pathB := h.Path("b.usda")

	covered := map[string]bool{}
	ignoreSource := cmp.FilterPath(func(p cmp.Path) bool {
		mi, ok := p.Last().(cmp.MapIndex)
		return ok && mi.Key().String() == tools.ParamSourcePath
	}, cmp.Ignore())

	for _, s := range steps {
		byHandle := h.Call(s.tool, withIdentifier(s.params, tools.ParamHandle, handleA))
		byPath := h.Call(s.tool+tools.PathSuffix, withIdentifier(s.params, tools.ParamSourcePath, pathB))

		assert.Equal(t, byHandle.OK, byPath.OK, s.tool)
		assert.Equal(t, byHandle.ErrorCode, byPath.ErrorCode, s.tool)
		assert.Equal(t, byHandle.Message, byPath.Message, s.tool)
		if diff := cmp.Diff(wire(t, byHandle.Data), wire(t, byPath.Data), ignoreSource); diff != "" {
			t.Errorf("%s payload differs between forms (-handle +path):\n%s", s.tool, diff)
		}
		if byHandle.OK {
			assert.Equal(t, h.Path("a.usda"), byHandle.Data[tools.ParamSourcePath], s.tool)
			assert.Equal(t, pathB, byPath.Data[tools.ParamSourcePath], s.tool)
		}
		covered[s.tool] = true
	}

	h.MustCall("close_stage", map[string]interface{}{"handle": handleA})
	a, err := os.ReadFile(h.Path("a.usda"))
	require.NoError(t, err)
	b, err := os.ReadFile(pathB)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))

	for _, p := range Scene() {
		for _, c := range p.Capabilities() {
			assert.True(t, covered[c.Name], "%s is not exercised through both forms", c.Name)
		}
	}
}
