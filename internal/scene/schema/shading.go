package schema

import (
	"fmt"

	"github.com/GriffinCanCode/scenemcp/internal/scene"
)

// API schema and relationship names used for shading
const (
	MaterialBindingAPI = "MaterialBindingAPI"
	BindingRel         = "material:binding"
	SurfaceOutput      = "outputs:surface"
)

// Shader ids
const (
	PreviewSurfaceID = "UsdPreviewSurface"
	UVTextureID      = "UsdUVTexture"
	PrimvarReaderID  = "UsdPrimvarReader_float2"
)

// Surface is the set of UsdPreviewSurface inputs a material authors
type Surface struct {
	Diffuse   Vec3
	Emissive  Vec3
	Metallic  float64
	Roughness float64
	Opacity   float64
}

// DefaultSurface is a mid-grey dielectric
var DefaultSurface = Surface{
	Diffuse:   Vec3{0.8, 0.8, 0.8},
	Roughness: 0.5,
	Opacity:   1,
}

// Validate checks every scalar lies in [0, 1].
func (s Surface) Validate() error {
	scalars := map[string]float64{"metallic": s.Metallic, "roughness": s.Roughness, "opacity": s.Opacity}
	for name, v := range scalars {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s must be within [0, 1], got %g", scene.ErrInvalidArgument, name, v)
		}
	}
	return nil
}

// SurfaceUpdate changes selected surface inputs. Nil fields are left as
// authored.
type SurfaceUpdate struct {
	Diffuse   *Vec3
	Emissive  *Vec3
	Metallic  *float64
	Roughness *float64
	Opacity   *float64
}

// UpdateMaterial rewrites inputs on the PreviewSurface shader of an existing
// material and returns the names of the inputs it changed.
func UpdateMaterial(st scene.Stage, path string, u SurfaceUpdate) ([]string, error) {
	scalars := []struct {
		name  string
		input string
		v     *float64
	}{
		{"metallic", "inputs:metallic", u.Metallic},
		{"roughness", "inputs:roughness", u.Roughness},
		{"opacity", "inputs:opacity", u.Opacity},
	}
	for _, s := range scalars {
		if s.v != nil && (*s.v < 0 || *s.v > 1) {
			return nil, fmt.Errorf("%w: %s must be within [0, 1], got %g", scene.ErrInvalidArgument, s.name, *s.v)
		}
	}

	m, err := RequirePrim(st, path)
	if err != nil {
		return nil, err
	}
	if m.Type != TypeMaterial {
		return nil, fmt.Errorf("%w: %s is a %q, not a Material", scene.ErrInvalidArgument, path, m.Type)
	}
	shader := scene.Join(path, "PreviewSurface")
	if _, err := st.Prim(shader); err != nil {
		return nil, fmt.Errorf("%w: material %s has no PreviewSurface shader", scene.ErrInvalidArgument, path)
	}

	var attrs []scene.Attribute
	if u.Diffuse != nil {
		attrs = append(attrs, attr("inputs:diffuseColor", ValueColor3f, u.Diffuse.Slice()))
	}
	if u.Emissive != nil {
		attrs = append(attrs, attr("inputs:emissiveColor", ValueColor3f, u.Emissive.Slice()))
	}
	for _, s := range scalars {
		if s.v != nil {
			attrs = append(attrs, attr(s.input, ValueFloat, *s.v))
		}
	}
	return attrNames(attrs), setAttrs(st, shader, attrs...)
}

// MaterialPaths names the prims a material recipe authored
type MaterialPaths struct {
	Material string `json:"material_path"`
	Surface  string `json:"surface_shader_path"`
	Texture  string `json:"texture_shader_path,omitempty"`
	Reader   string `json:"primvar_reader_path,omitempty"`
}

// DefineMaterial authors a Material with a PreviewSurface shader child
// whose surface output drives the material.
func DefineMaterial(st scene.Stage, path string, s Surface) (MaterialPaths, error) {
	if err := s.Validate(); err != nil {
		return MaterialPaths{}, err
	}
	if _, err := DefineWithXformParents(st, path, TypeMaterial); err != nil {
		return MaterialPaths{}, err
	}

	shader := scene.Join(path, "PreviewSurface")
	if _, err := st.DefinePrim(shader, TypeShader); err != nil {
		return MaterialPaths{}, err
	}
	err := setAttrs(st, shader,
		attr("info:id", ValueToken, PreviewSurfaceID),
		attr("inputs:diffuseColor", ValueColor3f, s.Diffuse.Slice()),
		attr("inputs:emissiveColor", ValueColor3f, s.Emissive.Slice()),
		attr("inputs:metallic", ValueFloat, s.Metallic),
		attr("inputs:roughness", ValueFloat, s.Roughness),
		attr("inputs:opacity", ValueFloat, s.Opacity),
		attr(SurfaceOutput, ValueToken, nil),
	)
	if err != nil {
		return MaterialPaths{}, err
	}
	if err := connect(st, path, SurfaceOutput, shader, SurfaceOutput); err != nil {
		return MaterialPaths{}, err
	}
	return MaterialPaths{Material: path, Surface: shader}, nil
}

// TextureSlot describes which surface input a texture drives
type TextureSlot struct {
	Input   string
	Channel string
	Type    string
}

// TextureSlots maps texture kinds to surface inputs
var TextureSlots = map[string]TextureSlot{
	"diffuse":   {Input: "inputs:diffuseColor", Channel: "outputs:rgb", Type: ValueFloat3},
	"normal":    {Input: "inputs:normal", Channel: "outputs:rgb", Type: ValueFloat3},
	"roughness": {Input: "inputs:roughness", Channel: "outputs:r", Type: ValueFloat},
	"metallic":  {Input: "inputs:metallic", Channel: "outputs:r", Type: ValueFloat},
	"opacity":   {Input: "inputs:opacity", Channel: "outputs:r", Type: ValueFloat},
	"emissive":  {Input: "inputs:emissiveColor", Channel: "outputs:rgb", Type: ValueFloat3},
	"occlusion": {Input: "inputs:occlusion", Channel: "outputs:r", Type: ValueFloat},
}

// TextureKinds lists the keys of TextureSlots in a stable order
var TextureKinds = []string{"diffuse", "normal", "roughness", "metallic", "opacity", "emissive", "occlusion"}

// DefineTextureMaterial authors a PreviewSurface material whose input for
// kind is driven by a UsdUVTexture reading file through the st primvar.
func DefineTextureMaterial(st scene.Stage, path, file, kind string) (MaterialPaths, error) {
	slot, ok := TextureSlots[kind]
	if !ok {
		return MaterialPaths{}, fmt.Errorf("%w: unknown texture type %q", scene.ErrInvalidArgument, kind)
	}
	if file == "" {
		return MaterialPaths{}, fmt.Errorf("%w: texture file is empty", scene.ErrInvalidArgument)
	}

	paths, err := DefineMaterial(st, path, DefaultSurface)
	if err != nil {
		return MaterialPaths{}, err
	}

	paths.Reader = scene.Join(path, "PrimvarReader")
	if _, err := st.DefinePrim(paths.Reader, TypeShader); err != nil {
		return MaterialPaths{}, err
	}
	if err := setAttrs(st, paths.Reader,
		attr("info:id", ValueToken, PrimvarReaderID),
		attr("inputs:varname", ValueToken, "st"),
		attr("outputs:result", "float2", nil),
	); err != nil {
		return MaterialPaths{}, err
	}

	paths.Texture = scene.Join(path, "Texture")
	if _, err := st.DefinePrim(paths.Texture, TypeShader); err != nil {
		return MaterialPaths{}, err
	}
	if err := setAttrs(st, paths.Texture,
		attr("info:id", ValueToken, UVTextureID),
		attr("inputs:file", ValueAsset, file),
		attr("inputs:st", "float2", nil),
		attr(slot.Channel, slot.Type, nil),
	); err != nil {
		return MaterialPaths{}, err
	}

	if err := connect(st, paths.Texture, "inputs:st", paths.Reader, "outputs:result"); err != nil {
		return MaterialPaths{}, err
	}
	if err := connect(st, paths.Surface, slot.Input, paths.Texture, slot.Channel); err != nil {
		return MaterialPaths{}, err
	}
	return paths, nil
}

// BindMaterial binds material to prim through MaterialBindingAPI.
func BindMaterial(st scene.Stage, primPath, materialPath string) error {
	if _, err := RequirePrim(st, primPath); err != nil {
		return err
	}
	m, err := RequirePrim(st, materialPath)
	if err != nil {
		return err
	}
	if m.Type != TypeMaterial {
		return fmt.Errorf("%w: %s is a %q, not a Material", scene.ErrInvalidArgument, materialPath, m.Type)
	}
	if err := st.ApplyAPI(primPath, MaterialBindingAPI); err != nil {
		return err
	}
	return st.SetRelationship(primPath, BindingRel, []string{materialPath})
}

// connect records a shading connection from dst's input to src's output.
func connect(st scene.Stage, dst, input, src, output string) error {
	return st.SetRelationship(dst, input+".connect", []string{src + "." + output})
}
