package schema

import (
	"fmt"

	"github.com/GriffinCanCode/scenemcp/internal/scene"
)

// Stage templates
const (
	TemplateEmpty   = "empty"
	TemplateBasic   = "basic"
	TemplatePhysics = "physics"
)

// Templates lists the accepted template names
var Templates = []string{TemplateEmpty, TemplateBasic, TemplatePhysics}

// GroundSize is the edge length of template ground planes
const GroundSize = 100.0

// ApplyTemplate populates a fresh stage and sets its up axis and default prim.
func ApplyTemplate(st scene.Stage, template, upAxis string) error {
	if upAxis != scene.AxisY && upAxis != scene.AxisZ {
		return fmt.Errorf("%w: up axis must be Y or Z, got %q", scene.ErrInvalidArgument, upAxis)
	}

	root := "/World"
	switch template {
	case "", TemplateEmpty:
		root = "/root"
		if _, err := st.DefinePrim(root, TypeXform); err != nil {
			return err
		}
	case TemplateBasic:
		if err := basicTemplate(st, root); err != nil {
			return err
		}
	case TemplatePhysics:
		if err := physicsTemplate(st, root, upAxis); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown template %q", scene.ErrInvalidArgument, template)
	}

	md := st.Metadata()
	md.UpAxis = upAxis
	md.DefaultPrim = root
	return st.SetMetadata(md)
}

func basicTemplate(st scene.Stage, root string) error {
	if _, err := st.DefinePrim(root, TypeXform); err != nil {
		return err
	}

	camera := scene.Join(root, "Camera")
	if _, err := st.DefinePrim(camera, TypeCamera); err != nil {
		return err
	}
	if err := setAttrs(st, camera,
		attr("focalLength", ValueFloat, 24.0),
		attr("clippingRange", "float2", []float64{0.01, 10000}),
		attr("focusDistance", ValueFloat, 5.0),
	); err != nil {
		return err
	}

	if _, err := st.DefinePrim(scene.Join(root, "Light"), TypeDistantLight); err != nil {
		return err
	}
	if err := setAttrs(st, scene.Join(root, "Light"), attr("inputs:intensity", ValueFloat, 1000.0)); err != nil {
		return err
	}

	_, err := DefineMesh(st, scene.Join(root, "GroundPlane"), PlaneMesh(GroundSize))
	return err
}

func physicsTemplate(st scene.Stage, root, upAxis string) error {
	if _, err := st.DefinePrim(root, TypeXform); err != nil {
		return err
	}

	down := Vec3{0, -1, 0}
	if upAxis == scene.AxisZ {
		down = Vec3{0, 0, -1}
	}
	if _, err := DefinePhysicsScene(st, scene.Join(root, "PhysicsScene"), down, StandardGravity); err != nil {
		return err
	}

	ground := scene.Join(root, "GroundPlane")
	if _, err := DefineMesh(st, ground, PlaneMesh(GroundSize)); err != nil {
		return err
	}
	return ApplyCollision(st, ground, "plane", "")
}
