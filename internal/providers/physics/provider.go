package physics

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/scenemcp/internal/domain/tools"
	"github.com/GriffinCanCode/scenemcp/internal/scene"
	"github.com/GriffinCanCode/scenemcp/internal/scene/schema"
	"github.com/GriffinCanCode/scenemcp/internal/shared/types"
)

// Provider implements physics scene, rigid body, collision and joint authoring
type Provider struct{}

// NewProvider creates a physics provider
func NewProvider() *Provider {
	return &Provider{}
}

func (p *Provider) Name() string { return "physics" }

var primPath = types.Param{Name: "prim_path", Type: types.ParamString, Description: "Absolute path of an existing prim", Required: true}

// Capabilities returns the physics tools
func (p *Provider) Capabilities() []tools.Capability {
	return []tools.Capability{
		{
			Name:        "setup_physics_scene",
			Description: "Create a physics scene with gravity",
			Category:    types.CategoryPhysics,
			Mutates:     true,
			Params: []types.Param{
				{Name: "scene_path", Type: types.ParamString, Description: "Path of the physics scene prim", Default: "/World/PhysicsScene"},
				{Name: "gravity_direction", Type: types.ParamVector3, Description: "Gravity direction, normalized before use", Default: []float64{0, -1, 0}},
				{Name: "gravity_magnitude", Type: types.ParamNumber, Description: "Gravity in m/s^2", Default: schema.StandardGravity, Min: tools.Bound(0)},
			},
			Run: p.setupScene,
		},
		{
			Name:        "add_rigid_body",
			Description: "Make a prim a rigid body",
			Category:    types.CategoryPhysics,
			Mutates:     true,
			Params: []types.Param{
				primPath,
				{Name: "mass", Type: types.ParamNumber, Description: "Mass in kg", Default: 1.0, Min: tools.Bound(0)},
				{Name: "dynamic", Type: types.ParamBoolean, Description: "Simulated when true, kinematic when false", Default: true},
				{Name: "initial_velocity", Type: types.ParamVector3, Description: "Initial linear velocity", Default: []float64{0, 0, 0}},
			},
			Run: p.addRigidBody,
		},
		{
			Name:        "add_collision",
			Description: "Enable collision on a prim",
			Category:    types.CategoryPhysics,
			Mutates:     true,
			Params: []types.Param{
				primPath,
				{Name: "collision_type", Type: types.ParamString, Description: "Collider shape", Default: "mesh", Enum: schema.CollisionShapes},
				{Name: "approximation", Type: types.ParamString, Description: "Mesh collider approximation", Default: "convexHull", Enum: schema.Approximations},
			},
			Run: p.addCollision,
		},
		{
			Name:        "create_joint",
			Description: "Connect two prims with a physics joint",
			Category:    types.CategoryPhysics,
			Mutates:     true,
			Params: []types.Param{
				{Name: "joint_path", Type: types.ParamString, Description: "Path of the joint prim", Required: true},
				{Name: "joint_type", Type: types.ParamString, Description: "Joint kind", Default: "fixed", Enum: schema.JointKinds},
				{Name: "body0_path", Type: types.ParamString, Description: "First body", Required: true},
				{Name: "body1_path", Type: types.ParamString, Description: "Second body", Required: true},
				{Name: "break_force", Type: types.ParamNumber, Description: "Force that breaks the joint; omit for unbreakable", Min: tools.Bound(0)},
				{Name: "break_torque", Type: types.ParamNumber, Description: "Torque that breaks the joint; omit for unbreakable", Min: tools.Bound(0)},
			},
			Run: p.createJoint,
		},
		{
			Name:        "update_rigid_body",
			Description: "Change the mass, simulation mode or velocity of a rigid body",
			Category:    types.CategoryPhysics,
			Mutates:     true,
			Params: []types.Param{
				primPath,
				{Name: "mass", Type: types.ParamNumber, Description: "Mass in kg", Min: tools.Bound(0)},
				{Name: "dynamic", Type: types.ParamBoolean, Description: "Simulated when true, kinematic when false"},
				{Name: "velocity", Type: types.ParamVector3, Description: "Linear velocity"},
			},
			Run: p.updateRigidBody,
		},
		{
			Name:        "remove_rigid_body",
			Description: "Remove rigid body and mass properties from a prim",
			Category:    types.CategoryPhysics,
			Mutates:     true,
			Params:      []types.Param{primPath},
			Run:         p.removeRigidBody,
		},
		{
			Name:        "remove_collision",
			Description: "Disable collision on a prim",
			Category:    types.CategoryPhysics,
			Mutates:     true,
			Params:      []types.Param{primPath},
			Run:         p.removeCollision,
		},
		{
			Name:        "configure_joint",
			Description: "Set the axis and limits of a joint",
			Category:    types.CategoryPhysics,
			Mutates:     true,
			Params: []types.Param{
				jointPath,
				{Name: "axis", Type: types.ParamString, Description: "Revolute or prismatic axis", Enum: schema.JointAxes},
				{Name: "lower_limit", Type: types.ParamNumber, Description: "Revolute or prismatic lower limit"},
				{Name: "upper_limit", Type: types.ParamNumber, Description: "Revolute or prismatic upper limit"},
				{Name: "min_distance", Type: types.ParamNumber, Description: "Distance joint minimum", Min: tools.Bound(0)},
				{Name: "max_distance", Type: types.ParamNumber, Description: "Distance joint maximum", Min: tools.Bound(0)},
			},
			Run: p.configureJoint,
		},
		{
			Name:        "remove_joint",
			Description: "Delete a joint prim",
			Category:    types.CategoryPhysics,
			Mutates:     true,
			Params:      []types.Param{jointPath},
			Run:         p.removeJoint,
		},
	}
}

var jointPath = types.Param{Name: "joint_path", Type: types.ParamString, Description: "Absolute path of an existing joint", Required: true}

func (p *Provider) setupScene(_ context.Context, st scene.Stage, args tools.Args) (tools.Result, error) {
	path := args.String("scene_path")
	magnitude := args.Float("gravity_magnitude")
	dir, err := schema.DefinePhysicsScene(st, path, args.Vec3("gravity_direction"), magnitude)
	if err != nil {
		return tools.Result{}, err
	}
	return tools.Result{
		Message: fmt.Sprintf("Physics scene created at %s", path),
		Data: map[string]interface{}{
			"scene_path":        path,
			"gravity_direction": dir.Slice(),
			"gravity_magnitude": magnitude,
		},
	}, nil
}

func (p *Provider) addRigidBody(_ context.Context, st scene.Stage, args tools.Args) (tools.Result, error) {
	path := args.String("prim_path")
	body := schema.Body{
		Mass:     args.Float("mass"),
		Dynamic:  args.Bool("dynamic"),
		Velocity: args.Vec3("initial_velocity"),
	}
	if err := schema.ApplyRigidBody(st, path, body); err != nil {
		return tools.Result{}, err
	}
	return tools.Result{
		Message: fmt.Sprintf("Rigid body added to %s", path),
		Data: map[string]interface{}{
			"prim_path":        path,
			"mass":             body.Mass,
			"dynamic":          body.Dynamic,
			"initial_velocity": body.Velocity.Slice(),
		},
	}, nil
}

func (p *Provider) addCollision(_ context.Context, st scene.Stage, args tools.Args) (tools.Result, error) {
	path := args.String("prim_path")
	shape, approx := args.String("collision_type"), args.String("approximation")
	if err := schema.ApplyCollision(st, path, shape, approx); err != nil {
		return tools.Result{}, err
	}

	data := map[string]interface{}{
		"prim_path":      path,
		"collision_type": shape,
	}
	if shape == "mesh" {
		data["approximation"] = approx
	}
	return tools.Result{
		Message: fmt.Sprintf("Collision added to %s", path),
		Data:    data,
	}, nil
}

func (p *Provider) createJoint(_ context.Context, st scene.Stage, args tools.Args) (tools.Result, error) {
	path := args.String("joint_path")
	joint := schema.Joint{
		Kind:  args.String("joint_type"),
		Body0: args.String("body0_path"),
		Body1: args.String("body1_path"),
	}
	if args.Has("break_force") {
		f := args.Float("break_force")
		joint.BreakForce = &f
	}
	if args.Has("break_torque") {
		t := args.Float("break_torque")
		joint.BreakTorque = &t
	}

	typeName, err := schema.DefineJoint(st, path, joint)
	if err != nil {
		return tools.Result{}, err
	}
	return tools.Result{
		Message: fmt.Sprintf("%s joint created at %s", joint.Kind, path),
		Data: map[string]interface{}{
			"joint_path": path,
			"joint_type": joint.Kind,
			"prim_type":  typeName,
			"body0_path": joint.Body0,
			"body1_path": joint.Body1,
		},
	}, nil
}

func (p *Provider) updateRigidBody(_ context.Context, st scene.Stage, args tools.Args) (tools.Result, error) {
	path := args.String("prim_path")
	var u schema.BodyUpdate
	if args.Has("mass") {
		m := args.Float("mass")
		u.Mass = &m
	}
	if args.Has("dynamic") {
		d := args.Bool("dynamic")
		u.Dynamic = &d
	}
	if args.Has("velocity") {
		v := args.Vec3("velocity")
		u.Velocity = &v
	}

	updated, err := schema.UpdateRigidBody(st, path, u)
	if err != nil {
		return tools.Result{}, err
	}
	return tools.Result{
		Message: fmt.Sprintf("Rigid body updated on %s", path),
		Data: map[string]interface{}{
			"prim_path": path,
			"updated":   updated,
		},
	}, nil
}

func (p *Provider) removeRigidBody(_ context.Context, st scene.Stage, args tools.Args) (tools.Result, error) {
	path := args.String("prim_path")
	had, err := schema.RemoveRigidBody(st, path)
	if err != nil {
		return tools.Result{}, err
	}
	return tools.Result{
		Message: fmt.Sprintf("Rigid body removed from %s", path),
		Data: map[string]interface{}{
			"prim_path":      path,
			"had_rigid_body": had,
		},
	}, nil
}

func (p *Provider) removeCollision(_ context.Context, st scene.Stage, args tools.Args) (tools.Result, error) {
	path := args.String("prim_path")
	had, err := schema.RemoveCollision(st, path)
	if err != nil {
		return tools.Result{}, err
	}
	return tools.Result{
		Message: fmt.Sprintf("Collision removed from %s", path),
		Data: map[string]interface{}{
			"prim_path":     path,
			"had_collision": had,
		},
	}, nil
}

func (p *Provider) configureJoint(_ context.Context, st scene.Stage, args tools.Args) (tools.Result, error) {
	path := args.String("joint_path")
	limits := schema.JointLimits{Axis: args.String("axis")}
	for name, dst := range map[string]**float64{
		"lower_limit":  &limits.Lower,
		"upper_limit":  &limits.Upper,
		"min_distance": &limits.MinDistance,
		"max_distance": &limits.MaxDistance,
	} {
		if args.Has(name) {
			v := args.Float(name)
			*dst = &v
		}
	}

	kind, updated, err := schema.ConfigureJoint(st, path, limits)
	if err != nil {
		return tools.Result{}, err
	}
	return tools.Result{
		Message: fmt.Sprintf("%s joint at %s configured", kind, path),
		Data: map[string]interface{}{
			"joint_path": path,
			"joint_type": kind,
			"updated":    updated,
		},
	}, nil
}

func (p *Provider) removeJoint(_ context.Context, st scene.Stage, args tools.Args) (tools.Result, error) {
	path := args.String("joint_path")
	kind, err := schema.JointKindOf(st, path)
	if err != nil {
		return tools.Result{}, err
	}
	if err := st.RemovePrim(path); err != nil {
		return tools.Result{}, err
	}
	return tools.Result{
		Message: fmt.Sprintf("%s joint removed from %s", kind, path),
		Data: map[string]interface{}{
			"joint_path": path,
			"joint_type": kind,
		},
	}, nil
}
