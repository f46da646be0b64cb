package inspect

import (
	"context"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/GriffinCanCode/scenemcp/internal/domain/tools"
	"github.com/GriffinCanCode/scenemcp/internal/scene"
	"github.com/GriffinCanCode/scenemcp/internal/scene/schema"
	"github.com/GriffinCanCode/scenemcp/internal/shared/types"
)

// Visualization formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Provider implements read-only stage inspection
type Provider struct{}

// NewProvider creates an inspect provider
func NewProvider() *Provider {
	return &Provider{}
}

func (p *Provider) Name() string { return "inspect" }

// Capabilities returns the inspection tools
func (p *Provider) Capabilities() []tools.Capability {
	return []tools.Capability{
		{
			Name:        "analyze_stage",
			Description: "Summarize a stage: metadata, prim counts by type, and every prim with its attributes",
			Category:    types.CategoryInspect,
			Run:         p.analyze,
		},
		{
			Name:        "list_prims",
			Description: "List prims under a path, optionally filtered by a glob over prim paths",
			Category:    types.CategoryInspect,
			Params: []types.Param{
				{Name: "prim_path", Type: types.ParamString, Description: "Prim to start from", Default: scene.Root},
				{Name: "pattern", Type: types.ParamString, Description: "Glob over prim paths, e.g. /World/**/Cube*", Default: ""},
			},
			Run: p.listPrims,
		},
		{
			Name:        "visualize_scene_graph",
			Description: "Render the prim hierarchy as an indented text tree or nested JSON",
			Category:    types.CategoryInspect,
			Params: []types.Param{
				{Name: "root_path", Type: types.ParamString, Description: "Prim to start from", Default: scene.Root},
				{Name: "format", Type: types.ParamString, Description: "Output format", Default: FormatText, Enum: []string{FormatText, FormatJSON}},
				{Name: "max_depth", Type: types.ParamInteger, Description: "Levels below root to include; 0 means all", Default: 0, Min: tools.Bound(0)},
			},
			Run: p.visualize,
		},
	}
}

func (p *Provider) analyze(_ context.Context, st scene.Stage, _ tools.Args) (tools.Result, error) {
	md := st.Metadata()

	var (
		prims    []map[string]interface{}
		byType   = map[string]int{}
		maxDepth int
		animated int
		bodies   int
	)
	err := st.Traverse(scene.Root, func(prim scene.Prim) error {
		typeName := prim.Type
		if typeName == "" {
			typeName = "untyped"
		}
		byType[typeName]++
		if depth := len(scene.Ancestors(prim.Path)) + 1; depth > maxDepth {
			maxDepth = depth
		}
		if prim.HasAPI(schema.RigidBodyAPI) {
			bodies++
		}

		attrs := make([]map[string]interface{}, 0, len(prim.Attributes))
		for _, a := range prim.Attributes {
			entry := map[string]interface{}{"name": a.Name, "type": a.TypeName}
			if a.Value != nil {
				entry["value"] = a.Value
			}
			if len(a.TimeSamples) > 0 {
				animated++
				entry["time_samples"] = len(a.TimeSamples)
			}
			attrs = append(attrs, entry)
		}
		prims = append(prims, map[string]interface{}{
			"path":       prim.Path,
			"type":       prim.Type,
			"active":     prim.Active,
			"attributes": attrs,
		})
		return nil
	})
	if err != nil {
		return tools.Result{}, err
	}
	if prims == nil {
		prims = []map[string]interface{}{}
	}

	var defaultPrim interface{}
	if md.DefaultPrim != "" {
		defaultPrim = md.DefaultPrim
	}
	return tools.Result{
		Message: "Stage analysis complete",
		Data: map[string]interface{}{
			"up_axis":             md.UpAxis,
			"default_prim":        defaultPrim,
			"time_code_range":     []float64{md.StartTimeCode, md.EndTimeCode},
			"prim_count":          len(prims),
			"prim_types":          byType,
			"max_depth":           maxDepth,
			"animated_attributes": animated,
			"rigid_bodies":        bodies,
			"prims":               prims,
		},
	}, nil
}

func (p *Provider) listPrims(_ context.Context, st scene.Stage, args tools.Args) (tools.Result, error) {
	root := args.String("prim_path")
	pattern := args.String("pattern")
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return tools.Result{}, tools.Errorf(types.ErrorValidation, "Invalid pattern: %s", pattern)
	}

	prims := make([]map[string]interface{}, 0)
	err := st.Traverse(root, func(prim scene.Prim) error {
		if pattern != "" {
			if ok, _ := doublestar.Match(pattern, prim.Path); !ok {
				return nil
			}
		}
		prims = append(prims, map[string]interface{}{
			"path":     prim.Path,
			"type":     prim.Type,
			"active":   prim.Active,
			"children": prim.Children,
		})
		return nil
	})
	if err != nil {
		return tools.Result{}, err
	}

	return tools.Result{
		Message: "Prims listed successfully",
		Data: map[string]interface{}{
			"start_path": root,
			"pattern":    pattern,
			"prims":      prims,
			"count":      len(prims),
		},
	}, nil
}
