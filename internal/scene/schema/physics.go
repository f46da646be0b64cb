package schema

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/GriffinCanCode/scenemcp/internal/scene"
)

// Physics API schemas
const (
	RigidBodyAPI     = "PhysicsRigidBodyAPI"
	MassAPI          = "PhysicsMassAPI"
	CollisionAPI     = "PhysicsCollisionAPI"
	MeshCollisionAPI = "PhysicsMeshCollisionAPI"
)

// StandardGravity in m/s^2
const StandardGravity = 9.81

// CollisionShapes accepted by ApplyCollision
var CollisionShapes = []string{"mesh", "box", "sphere", "capsule", "plane"}

// Approximations accepted for mesh colliders
var Approximations = []string{
	"none", "convexHull", "convexDecomposition", "meshSimplification", "boundingCube", "boundingSphere",
}

// DefinePhysicsScene authors a PhysicsScene prim. The gravity direction is
// normalized before it is written and returned.
func DefinePhysicsScene(st scene.Stage, path string, direction Vec3, magnitude float64) (Vec3, error) {
	dir := direction.Slice()
	norm := floats.Norm(dir, 2)
	if norm == 0 {
		return Vec3{}, fmt.Errorf("%w: gravity direction must be non-zero", scene.ErrInvalidArgument)
	}
	if magnitude < 0 {
		return Vec3{}, fmt.Errorf("%w: gravity magnitude must not be negative, got %g", scene.ErrInvalidArgument, magnitude)
	}
	floats.Scale(1/norm, dir)

	if _, err := DefineWithXformParents(st, path, TypePhysicsScene); err != nil {
		return Vec3{}, err
	}
	err := setAttrs(st, path,
		attr("physics:gravityDirection", ValueVector3f, dir),
		attr("physics:gravityMagnitude", ValueFloat, magnitude),
	)
	return Vec3{dir[0], dir[1], dir[2]}, err
}

// Body describes rigid body parameters
type Body struct {
	Mass     float64
	Dynamic  bool
	Velocity Vec3
}

// ApplyRigidBody makes an existing prim a rigid body. A non-dynamic body is
// kinematic.
func ApplyRigidBody(st scene.Stage, path string, b Body) error {
	if b.Mass < 0 {
		return fmt.Errorf("%w: mass must not be negative, got %g", scene.ErrInvalidArgument, b.Mass)
	}
	if _, err := RequirePrim(st, path); err != nil {
		return err
	}
	for _, api := range []string{RigidBodyAPI, MassAPI} {
		if err := st.ApplyAPI(path, api); err != nil {
			return err
		}
	}
	return setAttrs(st, path,
		attr("physics:rigidBodyEnabled", ValueBool, true),
		attr("physics:kinematicEnabled", ValueBool, !b.Dynamic),
		attr("physics:mass", ValueFloat, b.Mass),
		attr("physics:velocity", ValueVector3f, b.Velocity.Slice()),
	)
}

// BodyUpdate changes selected rigid body parameters. Nil fields are left
// as authored.
type BodyUpdate struct {
	Mass     *float64
	Dynamic  *bool
	Velocity *Vec3
}

// UpdateRigidBody rewrites the given parameters of an existing rigid body
// and returns the names of the attributes it changed.
func UpdateRigidBody(st scene.Stage, path string, u BodyUpdate) ([]string, error) {
	if u.Mass != nil && *u.Mass < 0 {
		return nil, fmt.Errorf("%w: mass must not be negative, got %g", scene.ErrInvalidArgument, *u.Mass)
	}
	p, err := RequirePrim(st, path)
	if err != nil {
		return nil, err
	}
	if !p.HasAPI(RigidBodyAPI) {
		return nil, fmt.Errorf("%w: %s is not a rigid body", scene.ErrInvalidArgument, path)
	}

	var attrs []scene.Attribute
	if u.Mass != nil {
		if err := st.ApplyAPI(path, MassAPI); err != nil {
			return nil, err
		}
		attrs = append(attrs, attr("physics:mass", ValueFloat, *u.Mass))
	}
	if u.Dynamic != nil {
		attrs = append(attrs,
			attr("physics:rigidBodyEnabled", ValueBool, true),
			attr("physics:kinematicEnabled", ValueBool, !*u.Dynamic),
		)
	}
	if u.Velocity != nil {
		attrs = append(attrs, attr("physics:velocity", ValueVector3f, u.Velocity.Slice()))
	}
	return attrNames(attrs), setAttrs(st, path, attrs...)
}

var rigidBodyProps = []string{
	"physics:rigidBodyEnabled", "physics:kinematicEnabled", "physics:mass", "physics:velocity",
}

// RemoveRigidBody strips rigid body and mass schemas and their attributes.
// It reports whether the prim was a rigid body.
func RemoveRigidBody(st scene.Stage, path string) (bool, error) {
	return strip(st, path, []string{RigidBodyAPI, MassAPI}, rigidBodyProps)
}

var collisionProps = []string{"physics:collisionEnabled", "physics:collisionShape", "physics:approximation"}

// RemoveCollision strips collision schemas and their attributes. It reports
// whether the prim had collision enabled.
func RemoveCollision(st scene.Stage, path string) (bool, error) {
	return strip(st, path, []string{CollisionAPI, MeshCollisionAPI}, collisionProps)
}

// strip reports whether the first api was applied.
func strip(st scene.Stage, path string, apis, props []string) (bool, error) {
	if _, err := RequirePrim(st, path); err != nil {
		return false, err
	}
	had := false
	for i, api := range apis {
		removed, err := st.RemoveAPI(path, api)
		if err != nil {
			return false, err
		}
		if i == 0 {
			had = removed
		}
	}
	for _, name := range props {
		if _, err := st.RemoveProperty(path, name); err != nil {
			return false, err
		}
	}
	return had, nil
}

// ApplyCollision enables collision on an existing prim. The approximation
// only applies to mesh colliders.
func ApplyCollision(st scene.Stage, path, shape, approximation string) error {
	if !contains(CollisionShapes, shape) {
		return fmt.Errorf("%w: unknown collision type %q", scene.ErrInvalidArgument, shape)
	}
	if approximation == "" {
		approximation = "convexHull"
	}
	if shape == "mesh" && !contains(Approximations, approximation) {
		return fmt.Errorf("%w: unknown approximation %q", scene.ErrInvalidArgument, approximation)
	}
	if _, err := RequirePrim(st, path); err != nil {
		return err
	}
	if err := st.ApplyAPI(path, CollisionAPI); err != nil {
		return err
	}
	attrs := []scene.Attribute{
		attr("physics:collisionEnabled", ValueBool, true),
		attr("physics:collisionShape", ValueToken, shape),
	}
	if shape == "mesh" {
		if err := st.ApplyAPI(path, MeshCollisionAPI); err != nil {
			return err
		}
		attrs = append(attrs, attr("physics:approximation", ValueToken, approximation))
	}
	return setAttrs(st, path, attrs...)
}

// JointTypes maps joint kinds to prim types
var JointTypes = map[string]string{
	"fixed":     "PhysicsFixedJoint",
	"revolute":  "PhysicsRevoluteJoint",
	"prismatic": "PhysicsPrismaticJoint",
	"spherical": "PhysicsSphericalJoint",
	"distance":  "PhysicsDistanceJoint",
}

// JointKinds lists the keys of JointTypes in a stable order
var JointKinds = []string{"fixed", "revolute", "prismatic", "spherical", "distance"}

// Joint connects two bodies. Nil break limits leave the joint unbreakable.
type Joint struct {
	Kind        string
	Body0       string
	Body1       string
	BreakForce  *float64
	BreakTorque *float64
}

// DefineJoint authors a joint prim between two existing prims and returns
// its prim type.
func DefineJoint(st scene.Stage, path string, j Joint) (string, error) {
	typeName, ok := JointTypes[j.Kind]
	if !ok {
		return "", fmt.Errorf("%w: unknown joint type %q", scene.ErrInvalidArgument, j.Kind)
	}
	for _, limit := range []*float64{j.BreakForce, j.BreakTorque} {
		if limit != nil && *limit < 0 {
			return "", fmt.Errorf("%w: break limits must not be negative", scene.ErrInvalidArgument)
		}
	}
	for _, body := range []string{j.Body0, j.Body1} {
		if _, err := RequirePrim(st, body); err != nil {
			return "", err
		}
	}

	if _, err := DefineWithXformParents(st, path, typeName); err != nil {
		return "", err
	}
	if err := st.SetRelationship(path, "physics:body0", []string{j.Body0}); err != nil {
		return "", err
	}
	if err := st.SetRelationship(path, "physics:body1", []string{j.Body1}); err != nil {
		return "", err
	}

	var attrs []scene.Attribute
	switch j.Kind {
	case "revolute":
		attrs = append(attrs, attr("physics:axis", ValueToken, "Z"))
	case "prismatic":
		attrs = append(attrs, attr("physics:axis", ValueToken, "X"))
	}
	if j.BreakForce != nil {
		attrs = append(attrs, attr("physics:breakForce", ValueFloat, *j.BreakForce))
	}
	if j.BreakTorque != nil {
		attrs = append(attrs, attr("physics:breakTorque", ValueFloat, *j.BreakTorque))
	}
	return typeName, setAttrs(st, path, attrs...)
}

// JointKindOf returns the joint kind of the prim at path, or an error if it
// is not a joint.
func JointKindOf(st scene.Stage, path string) (string, error) {
	p, err := RequirePrim(st, path)
	if err != nil {
		return "", err
	}
	for _, kind := range JointKinds {
		if JointTypes[kind] == p.Type {
			return kind, nil
		}
	}
	return "", fmt.Errorf("%w: %s is a %q, not a joint", scene.ErrInvalidArgument, path, p.Type)
}

// JointAxes accepted for revolute and prismatic joints
var JointAxes = []string{"X", "Y", "Z"}

// JointLimits changes selected joint parameters. Nil fields are left as
// authored.
type JointLimits struct {
	Axis        string
	Lower       *float64
	Upper       *float64
	MinDistance *float64
	MaxDistance *float64
}

// ConfigureJoint applies limits that fit the joint kind and returns the kind
// and the names of the attributes it changed. Axis and lower/upper limits
// apply to revolute and prismatic joints, distances to distance joints.
func ConfigureJoint(st scene.Stage, path string, l JointLimits) (string, []string, error) {
	kind, err := JointKindOf(st, path)
	if err != nil {
		return "", nil, err
	}
	axial := kind == "revolute" || kind == "prismatic"

	var attrs []scene.Attribute
	if l.Axis != "" {
		if !axial {
			return "", nil, fmt.Errorf("%w: axis does not apply to %s joints", scene.ErrInvalidArgument, kind)
		}
		if !contains(JointAxes, l.Axis) {
			return "", nil, fmt.Errorf("%w: unknown axis %q", scene.ErrInvalidArgument, l.Axis)
		}
		attrs = append(attrs, attr("physics:axis", ValueToken, l.Axis))
	}
	if l.Lower != nil || l.Upper != nil {
		if !axial {
			return "", nil, fmt.Errorf("%w: limits do not apply to %s joints", scene.ErrInvalidArgument, kind)
		}
		if l.Lower != nil && l.Upper != nil && *l.Lower > *l.Upper {
			return "", nil, fmt.Errorf("%w: lower limit %g exceeds upper limit %g", scene.ErrInvalidArgument, *l.Lower, *l.Upper)
		}
		if l.Lower != nil {
			attrs = append(attrs, attr("physics:lowerLimit", ValueFloat, *l.Lower))
		}
		if l.Upper != nil {
			attrs = append(attrs, attr("physics:upperLimit", ValueFloat, *l.Upper))
		}
	}
	if l.MinDistance != nil || l.MaxDistance != nil {
		if kind != "distance" {
			return "", nil, fmt.Errorf("%w: distances do not apply to %s joints", scene.ErrInvalidArgument, kind)
		}
		if l.MinDistance != nil && l.MaxDistance != nil && *l.MinDistance > *l.MaxDistance {
			return "", nil, fmt.Errorf("%w: min distance %g exceeds max distance %g", scene.ErrInvalidArgument, *l.MinDistance, *l.MaxDistance)
		}
		if l.MinDistance != nil {
			attrs = append(attrs, attr("physics:minDistance", ValueFloat, *l.MinDistance))
		}
		if l.MaxDistance != nil {
			attrs = append(attrs, attr("physics:maxDistance", ValueFloat, *l.MaxDistance))
		}
	}

	return kind, attrNames(attrs), setAttrs(st, path, attrs...)
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
