package geometry

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/scenemcp/internal/domain/tools"
	"github.com/GriffinCanCode/scenemcp/internal/scene"
	"github.com/GriffinCanCode/scenemcp/internal/scene/schema"
	"github.com/GriffinCanCode/scenemcp/internal/shared/types"
)

// Provider implements prim definition, primitives, meshes, references and transforms
type Provider struct{}

// NewProvider creates a geometry provider
func NewProvider() *Provider {
	return &Provider{}
}

func (p *Provider) Name() string { return "geometry" }

var primPath = types.Param{Name: "prim_path", Type: types.ParamString, Description: "Absolute prim path, e.g. /World/Cube", Required: true}

// Capabilities returns the geometry tools
func (p *Provider) Capabilities() []tools.Capability {
	return []tools.Capability{
		{
			Name:        "define_prim",
			Description: "Define a prim of the given type, creating missing parents as Xforms",
			Category:    types.CategoryGeometry,
			Mutates:     true,
			Params: []types.Param{
				primPath,
				{Name: "prim_type", Type: types.ParamString, Description: "Prim type", Default: schema.TypeXform, Enum: schema.DefinableTypes},
			},
			Run: p.definePrim,
		},
		{
			Name:        "create_primitive",
			Description: "Create a primitive shape of the given overall size",
			Category:    types.CategoryGeometry,
			Mutates:     true,
			Params: []types.Param{
				primPath,
				{Name: "geometry", Type: types.ParamString, Description: "Shape", Default: "cube", Enum: schema.Primitives},
				{Name: "size", Type: types.ParamNumber, Description: "Edge length or diameter", Default: 1.0, Min: tools.Bound(0), ExclusiveMin: true},
			},
			Run: p.createPrimitive,
		},
		{
			Name:        "create_mesh",
			Description: "Create a polygon mesh from points and face topology",
			Category:    types.CategoryGeometry,
			Mutates:     true,
			Params: []types.Param{
				primPath,
				{Name: "points", Type: types.ParamPointList, Description: "Vertex positions as [x, y, z]", Required: true},
				{Name: "face_vertex_counts", Type: types.ParamIntegerList, Description: "Vertices per face", Required: true, Min: tools.Bound(3)},
				{Name: "face_vertex_indices", Type: types.ParamIntegerList, Description: "Point indices, face by face", Required: true, Min: tools.Bound(0)},
			},
			Run: p.createMesh,
		},
		{
			Name:        "create_reference",
			Description: "Add a reference to another document on a prim, defining the prim if needed",
			Category:    types.CategoryGeometry,
			Mutates:     true,
			Params: []types.Param{
				primPath,
				{Name: "reference_file_path", Type: types.ParamString, Description: "Document to reference", Required: true},
				{Name: "reference_prim_path", Type: types.ParamString, Description: "Prim inside the referenced document; empty uses its default prim", Default: ""},
			},
			Run: p.createReference,
		},
		{
			Name:        "set_transform",
			Description: "Set translate, rotate (degrees, XYZ order) and scale on a prim",
			Category:    types.CategoryGeometry,
			Mutates:     true,
			Params: []types.Param{
				primPath,
				{Name: "translate", Type: types.ParamVector3, Description: "Translation", Default: []float64{0, 0, 0}},
				{Name: "rotate", Type: types.ParamVector3, Description: "Rotation in degrees about X, Y, Z", Default: []float64{0, 0, 0}},
				{Name: "scale", Type: types.ParamVector3, Description: "Scale", Default: []float64{1, 1, 1}},
			},
			Run: p.setTransform,
		},
	}
}

func (p *Provider) definePrim(_ context.Context, st scene.Stage, args tools.Args) (tools.Result, error) {
	path, typeName := args.String("prim_path"), args.String("prim_type")
	prim, err := schema.DefineWithXformParents(st, path, typeName)
	if err != nil {
		return tools.Result{}, err
	}
	return tools.Result{
		Message: fmt.Sprintf("Prim %s defined", path),
		Data: map[string]interface{}{
			"prim_path": prim.Path,
			"prim_type": prim.Type,
		},
	}, nil
}

func (p *Provider) createPrimitive(_ context.Context, st scene.Stage, args tools.Args) (tools.Result, error) {
	path, shape, size := args.String("prim_path"), args.String("geometry"), args.Float("size")
	typeName, extent, err := schema.DefinePrimitive(st, path, shape, size)
	if err != nil {
		return tools.Result{}, err
	}
	return tools.Result{
		Message: fmt.Sprintf("Created %s at %s", shape, path),
		Data: map[string]interface{}{
			"prim_path": path,
			"prim_type": typeName,
			"geometry":  shape,
			"size":      size,
			"extent":    extent.Values(),
		},
	}, nil
}

func (p *Provider) createMesh(_ context.Context, st scene.Stage, args tools.Args) (tools.Result, error) {
	path := args.String("prim_path")
	mesh := schema.Mesh{
		Points:  args.Points("points"),
		Counts:  args.Ints("face_vertex_counts"),
		Indices: args.Ints("face_vertex_indices"),
	}
	extent, err := schema.DefineMesh(st, path, mesh)
	if err != nil {
		return tools.Result{}, err
	}
	return tools.Result{
		Message: fmt.Sprintf("Mesh created at %s", path),
		Data: map[string]interface{}{
			"prim_path":  path,
			"points":     len(mesh.Points),
			"face_count": len(mesh.Counts),
			"extent":     extent.Values(),
		},
	}, nil
}

func (p *Provider) createReference(_ context.Context, st scene.Stage, args tools.Args) (tools.Result, error) {
	path := args.String("prim_path")
	ref := scene.Reference{
		AssetPath: args.String("reference_file_path"),
		PrimPath:  args.String("reference_prim_path"),
	}
	if ref.PrimPath != "" {
		if err := scene.ValidatePath(ref.PrimPath); err != nil {
			return tools.Result{}, err
		}
	}

	if _, err := st.Prim(path); err != nil {
		if _, err := schema.DefineWithXformParents(st, path, ""); err != nil {
			return tools.Result{}, err
		}
	}
	if err := st.AddReference(path, ref); err != nil {
		return tools.Result{}, err
	}
	return tools.Result{
		Message: fmt.Sprintf("Reference added to %s", path),
		Data: map[string]interface{}{
			"prim_path":           path,
			"reference_file_path": ref.AssetPath,
			"reference_prim_path": ref.PrimPath,
		},
	}, nil
}

func (p *Provider) setTransform(_ context.Context, st scene.Stage, args tools.Args) (tools.Result, error) {
	path := args.String("prim_path")
	t, r, s := args.Vec3("translate"), args.Vec3("rotate"), args.Vec3("scale")
	matrix, err := schema.SetTransform(st, path, t, r, s)
	if err != nil {
		return tools.Result{}, err
	}
	return tools.Result{
		Message: fmt.Sprintf("Transform set on %s", path),
		Data: map[string]interface{}{
			"prim_path": path,
			"translate": t.Slice(),
			"rotate":    r.Slice(),
			"scale":     s.Slice(),
			"matrix":    matrix,
		},
	}, nil
}
