package materials

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/GriffinCanCode/scenemcp/internal/domain/tools"
	"github.com/GriffinCanCode/scenemcp/internal/scene"
	"github.com/GriffinCanCode/scenemcp/internal/scene/schema"
	"github.com/GriffinCanCode/scenemcp/internal/shared/types"
)

// PreviewSurface is the only material model authored
const PreviewSurface = "preview_surface"

// Provider implements material authoring and binding
type Provider struct{}

// NewProvider creates a materials provider
func NewProvider() *Provider {
	return &Provider{}
}

func (p *Provider) Name() string { return "materials" }

var materialPath = types.Param{Name: "material_path", Type: types.ParamString, Description: "Absolute path of the material prim, e.g. /World/Looks/Red", Required: true}

// Capabilities returns the material tools
func (p *Provider) Capabilities() []tools.Capability {
	unit := func(name, desc string, def float64) types.Param {
		return types.Param{Name: name, Type: types.ParamNumber, Description: desc, Default: def, Min: tools.Bound(0), Max: tools.Bound(1)}
	}
	return []tools.Capability{
		{
			Name:        "create_material",
			Description: "Create a preview-surface material",
			Category:    types.CategoryMaterials,
			Mutates:     true,
			Params: []types.Param{
				materialPath,
				{Name: "material_type", Type: types.ParamString, Description: "Material model", Default: PreviewSurface, Enum: []string{PreviewSurface}},
				{Name: "diffuse_color", Type: types.ParamVector3, Description: "Base color, RGB in [0, 1]", Default: []float64{0.8, 0.8, 0.8}, Min: tools.Bound(0), Max: tools.Bound(1)},
				{Name: "emissive_color", Type: types.ParamVector3, Description: "Emission, RGB", Default: []float64{0, 0, 0}, Min: tools.Bound(0)},
				unit("metallic", "Metalness", 0),
				unit("roughness", "Roughness", 0.5),
				unit("opacity", "Opacity", 1),
			},
			Run: p.createMaterial,
		},
		{
			Name:        "bind_material",
			Description: "Bind a material to a prim",
			Category:    types.CategoryMaterials,
			Mutates:     true,
			Params: []types.Param{
				{Name: "prim_path", Type: types.ParamString, Description: "Prim to bind to", Required: true},
				materialPath,
			},
			Run: p.bindMaterial,
		},
		{
			Name:        "create_texture_material",
			Description: "Create a preview-surface material whose input is driven by an image texture",
			Category:    types.CategoryMaterials,
			Mutates:     true,
			Params: []types.Param{
				materialPath,
				{Name: "texture_file_path", Type: types.ParamString, Description: "Image file; relative paths resolve against the stage directory", Required: true},
				{Name: "texture_type", Type: types.ParamString, Description: "Surface input the texture drives", Default: "diffuse", Enum: schema.TextureKinds},
			},
			Run: p.createTextureMaterial,
		},
		{
			Name:        "update_material",
			Description: "Change inputs of an existing preview-surface material",
			Category:    types.CategoryMaterials,
			Mutates:     true,
			Params: []types.Param{
				materialPath,
				{Name: "diffuse_color", Type: types.ParamVector3, Description: "Base color, RGB in [0, 1]", Min: tools.Bound(0), Max: tools.Bound(1)},
				{Name: "emissive_color", Type: types.ParamVector3, Description: "Emission, RGB", Min: tools.Bound(0)},
				optional(unit("metallic", "Metalness", 0)),
				optional(unit("roughness", "Roughness", 0)),
				optional(unit("opacity", "Opacity", 0)),
			},
			Run: p.updateMaterial,
		},
	}
}

func optional(p types.Param) types.Param {
	p.Default = nil
	return p
}

func (p *Provider) createMaterial(_ context.Context, st scene.Stage, args tools.Args) (tools.Result, error) {
	path := args.String("material_path")
	surface := schema.Surface{
		Diffuse:   args.Vec3("diffuse_color"),
		Emissive:  args.Vec3("emissive_color"),
		Metallic:  args.Float("metallic"),
		Roughness: args.Float("roughness"),
		Opacity:   args.Float("opacity"),
	}
	paths, err := schema.DefineMaterial(st, path, surface)
	if err != nil {
		return tools.Result{}, err
	}
	return tools.Result{
		Message: fmt.Sprintf("Material created at %s", path),
		Data: map[string]interface{}{
			"material_path":       paths.Material,
			"surface_shader_path": paths.Surface,
			"material_type":       args.String("material_type"),
		},
	}, nil
}

func (p *Provider) updateMaterial(_ context.Context, st scene.Stage, args tools.Args) (tools.Result, error) {
	path := args.String("material_path")
	var u schema.SurfaceUpdate
	if args.Has("diffuse_color") {
		v := args.Vec3("diffuse_color")
		u.Diffuse = &v
	}
	if args.Has("emissive_color") {
		v := args.Vec3("emissive_color")
		u.Emissive = &v
	}
	for name, dst := range map[string]**float64{"metallic": &u.Metallic, "roughness": &u.Roughness, "opacity": &u.Opacity} {
		if args.Has(name) {
			v := args.Float(name)
			*dst = &v
		}
	}

	updated, err := schema.UpdateMaterial(st, path, u)
	if err != nil {
		return tools.Result{}, err
	}
	return tools.Result{
		Message: fmt.Sprintf("Material %s updated", path),
		Data: map[string]interface{}{
			"material_path": path,
			"updated":       updated,
		},
	}, nil
}

func (p *Provider) bindMaterial(_ context.Context, st scene.Stage, args tools.Args) (tools.Result, error) {
	prim, material := args.String("prim_path"), args.String("material_path")
	if err := schema.BindMaterial(st, prim, material); err != nil {
		return tools.Result{}, err
	}
	return tools.Result{
		Message: fmt.Sprintf("Material %s bound to %s", material, prim),
		Data: map[string]interface{}{
			"prim_path":     prim,
			"material_path": material,
		},
	}, nil
}

func (p *Provider) createTextureMaterial(_ context.Context, st scene.Stage, args tools.Args) (tools.Result, error) {
	path := args.String("material_path")
	file := args.String("texture_file_path")
	kind := args.String("texture_type")

	mime, found, err := sniffTexture(st.Path(), file)
	if err != nil {
		return tools.Result{}, err
	}

	paths, err := schema.DefineTextureMaterial(st, path, file, kind)
	if err != nil {
		return tools.Result{}, err
	}
	return tools.Result{
		Message: fmt.Sprintf("Texture material created at %s", path),
		Data: map[string]interface{}{
			"material_path":       paths.Material,
			"surface_shader_path": paths.Surface,
			"texture_shader_path": paths.Texture,
			"texture_file_path":   file,
			"texture_type":        kind,
			"texture_found":       found,
			"texture_mime":        mime,
		},
	}, nil
}

// sniffTexture checks a texture that exists on disk is an image. A missing
// file is allowed; it may be resolved later by whatever consumes the stage.
func sniffTexture(stagePath, file string) (string, bool, error) {
	resolved := file
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(filepath.Dir(stagePath), file)
	}
	info, err := os.Stat(resolved)
	if err != nil || info.IsDir() {
		return "", false, nil
	}

	mt, err := mimetype.DetectFile(resolved)
	if err != nil {
		return "", true, fmt.Errorf("inspect texture %s: %w", resolved, err)
	}
	if !strings.HasPrefix(mt.String(), "image/") {
		return mt.String(), true, tools.Errorf(types.ErrorValidation, "Texture %s is %s, not an image", file, mt.String())
	}
	return mt.String(), true, nil
}
