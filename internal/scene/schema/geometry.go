package schema

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/GriffinCanCode/scenemcp/internal/scene"
)

// Primitive shapes accepted by DefinePrimitive
var Primitives = []string{"cube", "sphere", "cylinder", "cone", "capsule", "plane"}

// DefaultDisplayColor is authored on new meshes
var DefaultDisplayColor = Vec3{0.8, 0.8, 0.8}

// Mesh is polygon data in face-varying layout
type Mesh struct {
	Points  []Vec3
	Counts  []int
	Indices []int
}

// Validate checks the topology against the point list.
func (m Mesh) Validate() error {
	if len(m.Points) == 0 {
		return fmt.Errorf("%w: mesh needs at least one point", scene.ErrInvalidArgument)
	}
	if len(m.Counts) == 0 {
		return fmt.Errorf("%w: mesh needs at least one face", scene.ErrInvalidArgument)
	}
	total := 0
	for i, c := range m.Counts {
		if c < 3 {
			return fmt.Errorf("%w: face %d has %d vertices, need at least 3", scene.ErrInvalidArgument, i, c)
		}
		total += c
	}
	if total != len(m.Indices) {
		return fmt.Errorf("%w: face vertex counts sum to %d but %d indices were given", scene.ErrInvalidArgument, total, len(m.Indices))
	}
	for i, idx := range m.Indices {
		if idx < 0 || idx >= len(m.Points) {
			return fmt.Errorf("%w: index %d at position %d is outside 0..%d", scene.ErrInvalidArgument, idx, i, len(m.Points)-1)
		}
	}
	return nil
}

// Extent is an axis-aligned bounding box, min then max
type Extent [2]Vec3

// Values returns the extent in float3[] layout
func (e Extent) Values() [][]float64 {
	return [][]float64{e[0].Slice(), e[1].Slice()}
}

// ComputeExtent bounds the points.
func ComputeExtent(points []Vec3) Extent {
	var e Extent
	if len(points) == 0 {
		return e
	}
	col := make([]float64, len(points))
	for axis := 0; axis < 3; axis++ {
		for i, p := range points {
			col[i] = p[axis]
		}
		e[0][axis] = floats.Min(col)
		e[1][axis] = floats.Max(col)
	}
	return e
}

// DefineMesh authors a Mesh prim and returns its extent.
func DefineMesh(st scene.Stage, path string, m Mesh) (Extent, error) {
	if err := m.Validate(); err != nil {
		return Extent{}, err
	}
	prim, err := DefineWithXformParents(st, path, TypeMesh)
	if err != nil {
		return Extent{}, err
	}

	points := make([][]float64, len(m.Points))
	for i, p := range m.Points {
		points[i] = p.Slice()
	}
	extent := ComputeExtent(m.Points)

	attrs := []scene.Attribute{
		attr("points", ValuePoint3f, points),
		attr("faceVertexCounts", ValueIntArr, append([]int(nil), m.Counts...)),
		attr("faceVertexIndices", ValueIntArr, append([]int(nil), m.Indices...)),
		attr("extent", ValueFloat3Arr, extent.Values()),
	}
	if _, ok := prim.Attribute("primvars:displayColor"); !ok {
		attrs = append(attrs, attr("primvars:displayColor", ValueColor3Arr, [][]float64{DefaultDisplayColor.Slice()}))
	}
	return extent, setAttrs(st, path, attrs...)
}

// PlaneMesh is a square in the XZ plane centred on the origin.
func PlaneMesh(size float64) Mesh {
	h := size / 2
	return Mesh{
		Points:  []Vec3{{-h, 0, -h}, {h, 0, -h}, {h, 0, h}, {-h, 0, h}},
		Counts:  []int{4},
		Indices: []int{0, 1, 2, 3},
	}
}

// DefinePrimitive authors one of Primitives with the given overall size.
func DefinePrimitive(st scene.Stage, path, shape string, size float64) (string, Extent, error) {
	if size <= 0 {
		return "", Extent{}, fmt.Errorf("%w: size must be positive, got %g", scene.ErrInvalidArgument, size)
	}
	h := size / 2
	box := Extent{{-h, -h, -h}, {h, h, h}}

	var typeName string
	var attrs []scene.Attribute
	switch shape {
	case "cube":
		typeName = TypeCube
		attrs = []scene.Attribute{attr("size", ValueDouble, size)}
	case "sphere":
		typeName = TypeSphere
		attrs = []scene.Attribute{attr("radius", ValueDouble, h)}
	case "cylinder", "cone":
		typeName = TypeCylinder
		if shape == "cone" {
			typeName = TypeCone
		}
		attrs = []scene.Attribute{
			attr("radius", ValueDouble, h),
			attr("height", ValueDouble, size),
			attr("axis", ValueToken, "Y"),
		}
	case "capsule":
		typeName = TypeCapsule
		attrs = []scene.Attribute{
			attr("radius", ValueDouble, h),
			attr("height", ValueDouble, size),
			attr("axis", ValueToken, "Y"),
		}
		box = Extent{{-h, -size, -h}, {h, size, h}}
	case "plane":
		extent, err := DefineMesh(st, path, PlaneMesh(size))
		return TypeMesh, extent, err
	default:
		return "", Extent{}, fmt.Errorf("%w: unknown primitive %q", scene.ErrInvalidArgument, shape)
	}

	if _, err := DefineWithXformParents(st, path, typeName); err != nil {
		return "", Extent{}, err
	}
	attrs = append(attrs, attr("extent", ValueFloat3Arr, box.Values()))
	return typeName, box, setAttrs(st, path, attrs...)
}

// XformOpOrder is the op order authored by SetTransform
var XformOpOrder = []string{"xformOp:translate", "xformOp:rotateXYZ", "xformOp:scale"}

// SetTransform authors translate/rotate/scale ops on an existing prim and
// returns the composed local matrix, row-major.
func SetTransform(st scene.Stage, path string, translate, rotate, scale Vec3) ([]float64, error) {
	if _, err := RequirePrim(st, path); err != nil {
		return nil, err
	}
	err := setAttrs(st, path,
		attr("xformOp:translate", ValueDouble3, translate.Slice()),
		attr("xformOp:rotateXYZ", ValueFloat3, rotate.Slice()),
		attr("xformOp:scale", ValueFloat3, scale.Slice()),
		attr("xformOpOrder", ValueTokenArr, append([]string(nil), XformOpOrder...)),
	)
	if err != nil {
		return nil, err
	}
	return RowMajor(TransformMatrix(translate, rotate, scale)), nil
}

// RowMajor lays the matrix out row by row.
func RowMajor(m mat.Matrix) []float64 {
	r, c := m.Dims()
	out := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		out = append(out, mat.Row(nil, i, m)...)
	}
	return out
}

// TransformMatrix composes T * Rz * Ry * Rx * S for column vectors.
// Rotation angles are in degrees.
func TransformMatrix(translate, rotate, scale Vec3) *mat.Dense {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	cx, sx := math.Cos(rad(rotate[0])), math.Sin(rad(rotate[0]))
	cy, sy := math.Cos(rad(rotate[1])), math.Sin(rad(rotate[1]))
	cz, sz := math.Cos(rad(rotate[2])), math.Sin(rad(rotate[2]))

	t := mat.NewDense(4, 4, []float64{
		1, 0, 0, translate[0],
		0, 1, 0, translate[1],
		0, 0, 1, translate[2],
		0, 0, 0, 1,
	})
	rx := mat.NewDense(4, 4, []float64{
		1, 0, 0, 0,
		0, cx, -sx, 0,
		0, sx, cx, 0,
		0, 0, 0, 1,
	})
	ry := mat.NewDense(4, 4, []float64{
		cy, 0, sy, 0,
		0, 1, 0, 0,
		-sy, 0, cy, 0,
		0, 0, 0, 1,
	})
	rz := mat.NewDense(4, 4, []float64{
		cz, -sz, 0, 0,
		sz, cz, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
	s := mat.NewDense(4, 4, []float64{
		scale[0], 0, 0, 0,
		0, scale[1], 0, 0,
		0, 0, scale[2], 0,
		0, 0, 0, 1,
	})

	var m mat.Dense
	m.Product(t, rz, ry, rx, s)
	return &m
}
