// Package schema authors well-known prim types, attributes and API schemas
// on top of scene.Stage. Providers validate caller input; the functions here
// assume a well-formed request and only guard what the engine cannot.
package schema

import (
	"errors"
	"fmt"

	"github.com/GriffinCanCode/scenemcp/internal/scene"
)

// Prim types
const (
	TypeXform        = "Xform"
	TypeScope        = "Scope"
	TypeMesh         = "Mesh"
	TypeSphere       = "Sphere"
	TypeCube         = "Cube"
	TypeCylinder     = "Cylinder"
	TypeCone         = "Cone"
	TypeCapsule      = "Capsule"
	TypePoints       = "Points"
	TypeCamera       = "Camera"
	TypeDistantLight = "DistantLight"
	TypeDomeLight    = "DomeLight"
	TypeSphereLight  = "SphereLight"
	TypeRectLight    = "RectLight"
	TypeMaterial     = "Material"
	TypeShader       = "Shader"
	TypePhysicsScene = "PhysicsScene"
)

// DefinableTypes are the prim types define_prim accepts
var DefinableTypes = []string{
	TypeXform, TypeScope, TypeMesh, TypeSphere, TypeCube, TypeCylinder, TypeCone,
	TypeCapsule, TypePoints, TypeCamera, TypeDistantLight, TypeDomeLight,
	TypeSphereLight, TypeRectLight,
}

// Attribute value types
const (
	ValueBool      = "bool"
	ValueDouble    = "double"
	ValueFloat     = "float"
	ValueString    = "string"
	ValueToken     = "token"
	ValueAsset     = "asset"
	ValueDouble3   = "double3"
	ValueFloat3    = "float3"
	ValueColor3f   = "color3f"
	ValueVector3f  = "vector3f"
	ValuePoint3f   = "point3f[]"
	ValueFloat3Arr = "float3[]"
	ValueColor3Arr = "color3f[]"
	ValueIntArr    = "int[]"
	ValueTokenArr  = "token[]"
	ValueDoubleArr = "double[]"
	ValueDouble3Ar = "double3[]"
	ValueDict      = "dictionary"
)

// Vec3 is a 3-component vector
type Vec3 [3]float64

// Slice returns the vector as a value suitable for an attribute
func (v Vec3) Slice() []float64 {
	return []float64{v[0], v[1], v[2]}
}

// DefineWithXformParents defines path, first creating any missing ancestor as an Xform.
func DefineWithXformParents(st scene.Stage, path, typeName string) (scene.Prim, error) {
	if err := scene.ValidatePath(path); err != nil {
		return scene.Prim{}, err
	}
	for _, anc := range scene.Ancestors(path) {
		_, err := st.Prim(anc)
		if err == nil {
			continue
		}
		if !errors.Is(err, scene.ErrPrimNotFound) {
			return scene.Prim{}, err
		}
		if _, err := st.DefinePrim(anc, TypeXform); err != nil {
			return scene.Prim{}, err
		}
	}
	return st.DefinePrim(path, typeName)
}

// RequirePrim returns the prim at path or an error naming it.
func RequirePrim(st scene.Stage, path string) (scene.Prim, error) {
	p, err := st.Prim(path)
	if err != nil {
		if errors.Is(err, scene.ErrPrimNotFound) {
			return scene.Prim{}, fmt.Errorf("%w: no prim at %s", scene.ErrPrimNotFound, path)
		}
		return scene.Prim{}, err
	}
	return p, nil
}

func setAttrs(st scene.Stage, path string, attrs ...scene.Attribute) error {
	for _, a := range attrs {
		if err := st.SetAttribute(path, a); err != nil {
			return fmt.Errorf("set %s.%s: %w", path, a.Name, err)
		}
	}
	return nil
}

func attrNames(attrs []scene.Attribute) []string {
	names := make([]string, 0, len(attrs))
	for _, a := range attrs {
		names = append(names, a.Name)
	}
	return names
}

func attr(name, typeName string, value interface{}) scene.Attribute {
	return scene.Attribute{Name: name, TypeName: typeName, Value: value}
}

// InferTypeName picks an attribute type for an untyped value.
func InferTypeName(v interface{}) string {
	switch x := v.(type) {
	case bool:
		return ValueBool
	case float64, float32, int, int64, int32:
		return ValueDouble
	case string:
		return ValueString
	case []float64:
		if len(x) == 3 {
			return ValueDouble3
		}
		return ValueDoubleArr
	case [][]float64:
		return ValueDouble3Ar
	case []interface{}:
		return inferList(x)
	case map[string]interface{}:
		return ValueDict
	default:
		return ValueString
	}
}

func inferList(xs []interface{}) string {
	allNumbers, allStrings, allTriples := true, true, len(xs) > 0
	for _, x := range xs {
		switch v := x.(type) {
		case float64, int, int64:
			allStrings, allTriples = false, false
		case string:
			allNumbers, allTriples = false, false
		case []interface{}:
			allNumbers, allStrings = false, false
			if len(v) != 3 {
				allTriples = false
			}
		default:
			allNumbers, allStrings, allTriples = false, false, false
		}
	}
	switch {
	case allNumbers && len(xs) == 3:
		return ValueDouble3
	case allNumbers:
		return ValueDoubleArr
	case allStrings:
		return ValueTokenArr
	case allTriples:
		return ValueDouble3Ar
	default:
		return ValueString
	}
}
