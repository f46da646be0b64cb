package tools

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/scenemcp/internal/domain/stage"
	"github.com/GriffinCanCode/scenemcp/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/scenemcp/internal/scene"
	"github.com/GriffinCanCode/scenemcp/internal/scene/schema"
	"github.com/GriffinCanCode/scenemcp/internal/shared/types"
)

func (d *Dispatcher) lifecycleCommands() []Command {
	return []Command{
		{
			Name:        "create_stage",
			Description: "Create a new stage document from a template, save it, and open it",
			Category:    types.CategoryLifecycle,
			Params: []types.Param{
				{Name: ParamSourcePath, Type: types.ParamString, Description: "Path of the new document", Required: true},
				{Name: "template", Type: types.ParamString, Description: "Initial content", Default: schema.TemplateEmpty, Enum: schema.Templates},
				{Name: "up_axis", Type: types.ParamString, Description: "Up axis", Default: scene.AxisY, Enum: []string{scene.AxisY, scene.AxisZ}},
			},
			Run: d.createStage,
		},
		{
			Name:        "open_stage",
			Description: "Open a stage document and return its handle. A document already open is returned as is",
			Category:    types.CategoryLifecycle,
			Params: []types.Param{
				{Name: ParamSourcePath, Type: types.ParamString, Description: "Path of the document", Required: true},
				{Name: "create_if_missing", Type: types.ParamBoolean, Description: "Create an empty document when none exists", Default: false},
			},
			Run: d.openStage,
		},
		{
			Name:        "save_stage",
			Description: "Write an open stage to its document if it has unsaved changes",
			Category:    types.CategoryLifecycle,
			Params:      []types.Param{handleParam},
			Run:         d.saveStage,
		},
		{
			Name:        "close_stage",
			Description: "Close an open stage, saving unsaved changes first unless told not to",
			Category:    types.CategoryLifecycle,
			Params: []types.Param{
				handleParam,
				{Name: "save_if_modified", Type: types.ParamBoolean, Description: "Save unsaved changes before closing", Default: true},
			},
			Run: d.closeStage,
		},
	}
}

// opened is the outcome of one create or open flight
type opened struct {
	handle  stage.Handle
	path    string
	created bool
	cached  bool
}

// single runs fn once per path among concurrent callers. ran is false for
// callers that received another caller's result.
func (d *Dispatcher) single(ctx context.Context, path string, fn func(context.Context) (opened, error)) (o opened, ran bool, err error) {
	v, err, _ := d.opens.Do(path, func() (interface{}, error) {
		ran = true
		return fn(context.WithoutCancel(ctx))
	})
	if err != nil {
		return opened{}, ran, err
	}
	return v.(opened), ran, nil
}

func (d *Dispatcher) createStage(ctx context.Context, args Args) (Result, error) {
	path, err := filepath.Abs(args.String(ParamSourcePath))
	if err != nil {
		return Result{}, validationf("Invalid source_path: %v", err)
	}
	template, upAxis := args.String("template"), args.String("up_axis")

	o, ran, err := d.single(ctx, path, func(ctx context.Context) (opened, error) {
		if _, ok := d.registry.Lookup(path); ok || d.engine.Exists(path) {
			return opened{}, validationf("Stage file already exists: %s", path)
		}
		doc, err := d.engine.Create(ctx, path)
		if err != nil {
			if errors.Is(err, scene.ErrExists) {
				return opened{}, validationf("Stage file already exists: %s", path)
			}
			return opened{}, fmt.Errorf("create %s: %w", path, err)
		}
		if err := d.initialize(ctx, doc, template, upAxis); err != nil {
			return opened{}, err
		}
		h := d.registry.Register(ctx, doc.Path(), doc)
		return opened{handle: h, path: doc.Path(), created: true}, nil
	})
	if err != nil {
		return Result{}, err
	}
	if !ran {
		return Result{}, validationf("Stage file already exists: %s", path)
	}

	return Result{
		Message: "Stage created successfully",
		Data: map[string]interface{}{
			ParamHandle:     o.handle.String(),
			ParamSourcePath: o.path,
			"template":      template,
			"up_axis":       upAxis,
		},
	}, nil
}

// initialize applies a template to a new document and writes it. The
// document is closed on failure.
func (d *Dispatcher) initialize(ctx context.Context, doc scene.Stage, template, upAxis string) error {
	fail := func(err error) error {
		if cerr := doc.Close(); cerr != nil {
			d.logger.Warn("failed to close stage", zap.String("source_path", doc.Path()), zap.Error(cerr))
		}
		return err
	}
	if err := schema.ApplyTemplate(doc, template, upAxis); err != nil {
		return fail(err)
	}
	if err := resilience.CallWithTimeout(ctx, d.flushTimeout, doc.Flush); err != nil {
		return fail(flushFailed(doc.Path(), err))
	}
	return nil
}

func (d *Dispatcher) openStage(ctx context.Context, args Args) (Result, error) {
	path, err := filepath.Abs(args.String(ParamSourcePath))
	if err != nil {
		return Result{}, validationf("Invalid source_path: %v", err)
	}
	createIfMissing := args.Bool("create_if_missing")

	o, ran, err := d.single(ctx, path, func(ctx context.Context) (opened, error) {
		return d.open(ctx, path, createIfMissing)
	})
	if err != nil {
		return Result{}, err
	}
	if !ran {
		o.cached, o.created = true, false
	}

	msg := "Stage opened successfully"
	switch {
	case o.cached:
		msg = "Stage already open"
	case o.created:
		msg = "Stage created successfully"
	}
	return Result{Message: msg, Data: openData(o.handle, o.path, o.cached, o.created)}, nil
}

func (d *Dispatcher) open(ctx context.Context, path string, createIfMissing bool) (opened, error) {
	if h, ok := d.registry.Lookup(path); ok {
		return opened{handle: h, path: path, cached: true}, nil
	}

	var doc scene.Stage
	var err error
	created := false
	switch {
	case d.engine.Exists(path):
		doc, err = d.engine.Open(ctx, path)
		if err != nil {
			if errors.Is(err, scene.ErrNotExist) {
				return opened{}, sourceNotFound(path)
			}
			return opened{}, fmt.Errorf("open %s: %w", path, err)
		}
	case createIfMissing:
		doc, err = d.engine.Create(ctx, path)
		if err != nil {
			return opened{}, fmt.Errorf("create %s: %w", path, err)
		}
		if err := d.initialize(ctx, doc, schema.TemplateEmpty, scene.AxisY); err != nil {
			return opened{}, err
		}
		created = true
	default:
		return opened{}, sourceNotFound(path)
	}

	h := d.registry.Register(ctx, doc.Path(), doc)
	return opened{handle: h, path: doc.Path(), created: created}, nil
}

func openData(h stage.Handle, path string, cached, created bool) map[string]interface{} {
	return map[string]interface{}{
		ParamHandle:     h.String(),
		ParamSourcePath: path,
		"cached":        cached,
		"created":       created,
	}
}

func (d *Dispatcher) saveStage(ctx context.Context, args Args) (Result, error) {
	h := stage.Handle(args.String(ParamHandle))
	path, err := d.registry.SourcePath(h)
	if err != nil {
		return Result{}, handleNotFound(h)
	}

	saved, err := d.registry.Save(ctx, h)
	if err != nil {
		if errors.Is(err, stage.ErrHandleNotFound) {
			return Result{}, handleNotFound(h)
		}
		return Result{}, flushFailed(path, err)
	}

	msg := "Stage saved successfully"
	if !saved {
		msg = "Stage has no unsaved changes"
	}
	return Result{
		Message: msg,
		Data: map[string]interface{}{
			ParamHandle:     h.String(),
			ParamSourcePath: path,
			"saved":         saved,
		},
	}, nil
}

func (d *Dispatcher) closeStage(ctx context.Context, args Args) (Result, error) {
	h := stage.Handle(args.String(ParamHandle))
	save := args.Bool("save_if_modified")

	path, err := d.registry.SourcePath(h)
	if err != nil {
		return Result{}, handleNotFound(h)
	}
	modified := d.registry.IsModified(h)

	if !d.registry.Unregister(ctx, h, save) {
		return Result{}, handleNotFound(h)
	}
	return Result{
		Message: "Stage closed successfully",
		Data: map[string]interface{}{
			ParamHandle:           h.String(),
			ParamSourcePath:       path,
			"had_unsaved_changes": modified,
			"save_attempted":      modified && save,
		},
	}, nil
}
