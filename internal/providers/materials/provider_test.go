package materials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/scenemcp/internal/domain/tools/toolstest"
	"github.com/GriffinCanCode/scenemcp/internal/providers/geometry"
	"github.com/GriffinCanCode/scenemcp/internal/scene/schema"
	"github.com/GriffinCanCode/scenemcp/internal/shared/types"
)

// pngHeader is enough of a PNG for content sniffing
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 13, 'I', 'H', 'D', 'R', 0, 0, 0, 1, 0, 0, 0, 1, 8, 2, 0, 0, 0}

func TestCreateMaterial(t *testing.T) {
	h := toolstest.New(t, NewProvider())
	handle := h.CreateStage("a.usda", schema.TemplateEmpty)

	env := h.MustCall("create_material", map[string]interface{}{
		"handle":        handle,
		"material_path": "/World/Looks/Red",
		"diffuse_color": []interface{}{1, 0, 0},
		"roughness":     0.2,
	})
	assert.Equal(t, "/World/Looks/Red", env.Data["material_path"])
	assert.Equal(t, "/World/Looks/Red/PreviewSurface", env.Data["surface_shader_path"])
	assert.Equal(t, PreviewSurface, env.Data["material_type"])

	st := h.Stage(handle)
	shader, err := st.Prim("/World/Looks/Red/PreviewSurface")
	require.NoError(t, err)
	diffuse, ok := shader.Attribute("inputs:diffuseColor")
	require.True(t, ok)
	assert.Equal(t, []float64{1, 0, 0}, diffuse.Value)
	roughness, _ := shader.Attribute("inputs:roughness")
	assert.Equal(t, 0.2, roughness.Value)

	material, err := st.Prim("/World/Looks/Red")
	require.NoError(t, err)
	rel, ok := material.Relationship("outputs:surface.connect")
	require.True(t, ok)
	assert.Equal(t, []string{"/World/Looks/Red/PreviewSurface.outputs:surface"}, rel.Targets)
}

func TestCreateMaterialRanges(t *testing.T) {
	h := toolstest.New(t, NewProvider())
	handle := h.CreateStage("a.usda", schema.TemplateEmpty)

	for _, params := range []map[string]interface{}{
		{"diffuse_color": []interface{}{1.5, 0, 0}},
		{"emissive_color": []interface{}{-1, 0, 0}},
		{"metallic": 2},
		{"opacity": -0.5},
		{"material_type": "pbr"},
	} {
		params["handle"] = handle
		params["material_path"] = "/World/Looks/Bad"
		env := h.Call("create_material", params)
		assert.Equal(t, types.ErrorValidation, env.ErrorCode, params)
	}
}

func TestBindMaterial(t *testing.T) {
	h := toolstest.New(t, NewProvider(), geometry.NewProvider())
	handle := h.CreateStage("a.usda", schema.TemplateEmpty)

	h.MustCall("create_primitive", map[string]interface{}{"handle": handle, "prim_path": "/World/Box"})
	h.MustCall("create_material", map[string]interface{}{"handle": handle, "material_path": "/World/Looks/Grey"})

	h.MustCall("bind_material", map[string]interface{}{
		"handle":        handle,
		"prim_path":     "/World/Box",
		"material_path": "/World/Looks/Grey",
	})

	box, err := h.Stage(handle).Prim("/World/Box")
	require.NoError(t, err)
	assert.True(t, box.HasAPI(schema.MaterialBindingAPI))
	rel, ok := box.Relationship(schema.BindingRel)
	require.True(t, ok)
	assert.Equal(t, []string{"/World/Looks/Grey"}, rel.Targets)

	env := h.Call("bind_material", map[string]interface{}{
		"handle":        handle,
		"prim_path":     "/World/Looks/Grey",
		"material_path": "/World/Box",
	})
	assert.Equal(t, types.ErrorValidation, env.ErrorCode, "target must be a Material")

	env = h.Call("bind_material", map[string]interface{}{
		"handle":        handle,
		"prim_path":     "/World/Missing",
		"material_path": "/World/Looks/Grey",
	})
	assert.Equal(t, types.ErrorValidation, env.ErrorCode)
}

func TestCreateTextureMaterial(t *testing.T) {
	h := toolstest.New(t, NewProvider())
	handle := h.CreateStage("a.usda", schema.TemplateEmpty)
	require.NoError(t, os.MkdirAll(h.Path("tex"), 0o755))
	require.NoError(t, os.WriteFile(h.Path("tex/rough.png"), pngHeader, 0o644))

	env := h.MustCall("create_texture_material", map[string]interface{}{
		"handle":            handle,
		"material_path":     "/World/Looks/Rough",
		"texture_file_path": "tex/rough.png",
		"texture_type":      "roughness",
	})
	assert.Equal(t, true, env.Data["texture_found"])
	assert.Equal(t, "image/png", env.Data["texture_mime"])
	assert.Equal(t, "/World/Looks/Rough/Texture", env.Data["texture_shader_path"])

	surface, err := h.Stage(handle).Prim("/World/Looks/Rough/PreviewSurface")
	require.NoError(t, err)
	rel, ok := surface.Relationship("inputs:roughness.connect")
	require.True(t, ok)
	assert.Equal(t, []string{"/World/Looks/Rough/Texture.outputs:r"}, rel.Targets)
}

func TestCreateTextureMaterialMissingFileAllowed(t *testing.T) {
	h := toolstest.New(t, NewProvider())
	handle := h.CreateStage("a.usda", schema.TemplateEmpty)

	env := h.MustCall("create_texture_material", map[string]interface{}{
		"handle":            handle,
		"material_path":     "/World/Looks/Later",
		"texture_file_path": "not/yet/there.png",
	})
	assert.Equal(t, false, env.Data["texture_found"])
	assert.Equal(t, "diffuse", env.Data["texture_type"])
}

func TestCreateTextureMaterialRejectsNonImage(t *testing.T) {
	h := toolstest.New(t, NewProvider())
	handle := h.CreateStage("a.usda", schema.TemplateEmpty)
	notes := filepath.Join(h.Dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("just some text\n"), 0o644))

	env := h.Call("create_texture_material", map[string]interface{}{
		"handle":            handle,
		"material_path":     "/World/Looks/Text",
		"texture_file_path": notes,
	})
	assert.Equal(t, types.ErrorValidation, env.ErrorCode)
	assert.Contains(t, env.Message, "not an image")

	_, err := h.Stage(handle).Prim("/World/Looks/Text")
	assert.Error(t, err)
}

func TestUpdateMaterial(t *testing.T) {
	h := toolstest.New(t, NewProvider(), geometry.NewProvider())
	handle := h.CreateStage("a.usda", schema.TemplateEmpty)
	h.MustCall("create_material", map[string]interface{}{"handle": handle, "material_path": "/World/Looks/Red"})
	h.MustCall("create_primitive", map[string]interface{}{"handle": handle, "prim_path": "/World/Box"})

	env := h.MustCall("update_material", map[string]interface{}{
		"handle":        handle,
		"material_path": "/World/Looks/Red",
		"diffuse_color": []interface{}{1, 0, 0},
		"metallic":      1,
	})
	assert.Equal(t, []string{"inputs:diffuseColor", "inputs:metallic"}, env.Data["updated"])

	shader, err := h.Stage(handle).Prim("/World/Looks/Red/PreviewSurface")
	require.NoError(t, err)
	diffuse, _ := shader.Attribute("inputs:diffuseColor")
	assert.Equal(t, []float64{1, 0, 0}, diffuse.Value)
	metallic, _ := shader.Attribute("inputs:metallic")
	assert.Equal(t, 1.0, metallic.Value)
	roughness, _ := shader.Attribute("inputs:roughness")
	assert.Equal(t, 0.5, roughness.Value)

	env = h.MustCall("update_material", map[string]interface{}{"handle": handle, "material_path": "/World/Looks/Red"})
	assert.Empty(t, env.Data["updated"])

	for name, args := range map[string]map[string]interface{}{
		"opacity out of range": {"material_path": "/World/Looks/Red", "opacity": 1.5},
		"color out of range":   {"material_path": "/World/Looks/Red", "diffuse_color": []interface{}{2, 0, 0}},
		"not a material":       {"material_path": "/World/Box", "roughness": 0.1},
		"missing material":     {"material_path": "/World/Looks/Blue", "roughness": 0.1},
	} {
		args["handle"] = handle
		env := h.Call("update_material", args)
		assert.Equal(t, types.ErrorValidation, env.ErrorCode, name)
	}
}
