package animation

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/scenemcp/internal/domain/tools"
	"github.com/GriffinCanCode/scenemcp/internal/scene"
	"github.com/GriffinCanCode/scenemcp/internal/scene/schema"
	"github.com/GriffinCanCode/scenemcp/internal/shared/types"
)

// Provider implements keyframe animation
type Provider struct{}

// NewProvider creates an animation provider
func NewProvider() *Provider {
	return &Provider{}
}

func (p *Provider) Name() string { return "animation" }

// Capabilities returns the animation tools
func (p *Provider) Capabilities() []tools.Capability {
	return []tools.Capability{
		{
			Name:        "set_keyframe",
			Description: "Author a time sample on a prim attribute, widening the stage time range to include it",
			Category:    types.CategoryAnimation,
			Mutates:     true,
			Params: []types.Param{
				primPath,
				{Name: "attribute_name", Type: types.ParamString, Description: "Attribute to animate, e.g. xformOp:translate", Required: true},
				{Name: "time", Type: types.ParamNumber, Description: "Time code", Required: true},
				{Name: "value", Type: types.ParamAny, Description: "Value at that time", Required: true},
				{Name: "interpolation", Type: types.ParamString, Description: "Interpolation to the next sample", Default: "linear", Enum: schema.Interpolations},
			},
			Run: p.setKeyframe,
		},
		{
			Name:        "create_animation",
			Description: "Author a series of keyframes on one prim attribute",
			Category:    types.CategoryAnimation,
			Mutates:     true,
			Params: []types.Param{
				primPath,
				{Name: "attribute_name", Type: types.ParamString, Description: "Attribute to animate, e.g. xformOp:translate", Required: true},
				{Name: "keyframes", Type: types.ParamKeyframeList, Description: "Keyframes with time, value and optional interpolation", Required: true},
				timeRange,
			},
			Run: p.createAnimation,
		},
		{
			Name:        "create_transform_animation",
			Description: "Keyframe the translate, rotate and scale ops of a prim",
			Category:    types.CategoryAnimation,
			Mutates:     true,
			Params: []types.Param{
				primPath,
				{Name: "translate_keyframes", Type: types.ParamKeyframeList, Description: "Translation keyframes, values are [x, y, z]"},
				{Name: "rotate_keyframes", Type: types.ParamKeyframeList, Description: "Rotation keyframes in degrees, values are [x, y, z]"},
				{Name: "scale_keyframes", Type: types.ParamKeyframeList, Description: "Scale keyframes, values are [x, y, z]"},
				timeRange,
			},
			Run: p.createTransformAnimation,
		},
	}
}

var (
	primPath  = types.Param{Name: "prim_path", Type: types.ParamString, Description: "Absolute path of an existing prim", Required: true}
	timeRange = types.Param{Name: "time_range", Type: types.ParamNumberList, Description: "Explicit [start, end] time codes for the stage"}
)

// rangeArg returns the explicit time range, if one was given.
func rangeArg(args tools.Args) (*schema.TimeRange, error) {
	if !args.Has("time_range") {
		return nil, nil
	}
	fs := args.Floats("time_range")
	if len(fs) != 2 {
		return nil, tools.Errorf(types.ErrorValidation, "Parameter time_range must be [start, end], got %d numbers", len(fs))
	}
	return &schema.TimeRange{fs[0], fs[1]}, nil
}

func (p *Provider) setKeyframe(_ context.Context, st scene.Stage, args tools.Args) (tools.Result, error) {
	path := args.String("prim_path")
	k := schema.Keyframe{
		Attribute:     args.String("attribute_name"),
		Time:          args.Float("time"),
		Value:         args.Value("value"),
		Interpolation: args.String("interpolation"),
	}
	typeName, err := schema.SetKeyframe(st, path, k)
	if err != nil {
		return tools.Result{}, err
	}

	md := st.Metadata()
	return tools.Result{
		Message: fmt.Sprintf("Keyframe set on %s.%s at %g", path, k.Attribute, k.Time),
		Data: map[string]interface{}{
			"prim_path":       path,
			"attribute_name":  k.Attribute,
			"attribute_type":  typeName,
			"time":            k.Time,
			"value":           k.Value,
			"interpolation":   k.Interpolation,
			"time_code_range": []float64{md.StartTimeCode, md.EndTimeCode},
		},
	}, nil
}

func (p *Provider) createAnimation(_ context.Context, st scene.Stage, args tools.Args) (tools.Result, error) {
	path := args.String("prim_path")
	r, err := rangeArg(args)
	if err != nil {
		return tools.Result{}, err
	}
	a := schema.Animation{
		Attribute: args.String("attribute_name"),
		Keys:      args.Keyframes("keyframes"),
		Range:     r,
	}
	typeName, err := schema.Animate(st, path, a)
	if err != nil {
		return tools.Result{}, err
	}

	md := st.Metadata()
	return tools.Result{
		Message: fmt.Sprintf("Animation of %d keyframes set on %s.%s", len(a.Keys), path, a.Attribute),
		Data: map[string]interface{}{
			"prim_path":       path,
			"attribute_name":  a.Attribute,
			"attribute_type":  typeName,
			"keyframes_set":   len(a.Keys),
			"time_code_range": []float64{md.StartTimeCode, md.EndTimeCode},
		},
	}, nil
}

func (p *Provider) createTransformAnimation(_ context.Context, st scene.Stage, args tools.Args) (tools.Result, error) {
	path := args.String("prim_path")
	r, err := rangeArg(args)
	if err != nil {
		return tools.Result{}, err
	}
	counts, err := schema.AnimateTransform(st, path, schema.TransformAnimation{
		Translate: args.Keyframes("translate_keyframes"),
		Rotate:    args.Keyframes("rotate_keyframes"),
		Scale:     args.Keyframes("scale_keyframes"),
		Range:     r,
	})
	if err != nil {
		return tools.Result{}, err
	}

	md := st.Metadata()
	return tools.Result{
		Message: fmt.Sprintf("Transform animation set on %s", path),
		Data: map[string]interface{}{
			"prim_path":       path,
			"keyframes_set":   counts,
			"time_code_range": []float64{md.StartTimeCode, md.EndTimeCode},
		},
	}, nil
}
