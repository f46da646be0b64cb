package tools

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/GriffinCanCode/scenemcp/internal/domain/stage"
	"github.com/GriffinCanCode/scenemcp/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/scenemcp/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/scenemcp/internal/scene"
	"github.com/GriffinCanCode/scenemcp/internal/shared/id"
	"github.com/GriffinCanCode/scenemcp/internal/shared/types"
)

// unknownToolLabel keeps metric cardinality bounded for bad tool names
const unknownToolLabel = "unknown"

// Config wires a Dispatcher
type Config struct {
	Registry     *stage.Registry
	Engine       scene.Engine
	Logger       *zap.Logger
	Metrics      *monitoring.Metrics
	Journal      Journal
	FlushTimeout time.Duration
}

type tool struct {
	def  types.Tool
	call CommandFunc
}

// Dispatcher routes named tool calls to capabilities and commands and wraps
// every outcome in an Envelope.
type Dispatcher struct {
	registry     *stage.Registry
	engine       scene.Engine
	logger       *zap.Logger
	metrics      *monitoring.Metrics
	journal      Journal
	flushTimeout time.Duration

	// opens collapses concurrent create and open calls for one path
	opens singleflight.Group

	mu    sync.RWMutex
	tools map[string]*tool
	order []string
}

// New creates a dispatcher with the lifecycle and administrative tools
// already registered.
func New(cfg Config) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.FlushTimeout
	if timeout <= 0 {
		timeout = stage.DefaultFlushTimeout
	}

	d := &Dispatcher{
		registry:     cfg.Registry,
		engine:       cfg.Engine,
		logger:       logger.Named("dispatcher"),
		metrics:      cfg.Metrics,
		journal:      cfg.Journal,
		flushTimeout: timeout,
		tools:        make(map[string]*tool),
	}
	for _, c := range append(d.lifecycleCommands(), d.adminCommands()...) {
		if err := d.addCommand(c); err != nil {
			panic(err)
		}
	}
	return d
}

// Register adds every capability and command of p
func (d *Dispatcher) Register(p Provider) error {
	for _, c := range p.Capabilities() {
		if err := d.addCapability(c); err != nil {
			return fmt.Errorf("provider %s: %w", p.Name(), err)
		}
	}
	if cp, ok := p.(CommandProvider); ok {
		for _, c := range cp.Commands() {
			if err := d.addCommand(c); err != nil {
				return fmt.Errorf("provider %s: %w", p.Name(), err)
			}
		}
	}
	return nil
}

// Tools returns the catalogue in registration order
func (d *Dispatcher) Tools() []types.Tool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]types.Tool, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.tools[name].def)
	}
	return out
}

// Tool looks up one catalogue entry
func (d *Dispatcher) Tool(name string) (types.Tool, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	t, ok := d.tools[name]
	if !ok {
		return types.Tool{}, false
	}
	return t.def, true
}

// Dispatch runs the named tool. It never returns an error: every failure,
// including a panic inside the tool, becomes a failed Envelope.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, params map[string]interface{}) (env types.Envelope) {
	reqID, ok := id.FromContext(ctx)
	if !ok {
		reqID = id.NewRequestID()
	}
	started := time.Now()
	logger := d.logger.With(zap.String("request_id", reqID.String()), zap.String("tool", name))

	d.mu.RLock()
	t, ok := d.tools[name]
	d.mu.RUnlock()

	label := name
	if !ok {
		label = unknownToolLabel
	}
	timer := monitoring.NewTimer(d.metrics, label)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("tool panicked", zap.Any("panic", r), zap.Stack("stack"))
			env = types.Failure(fmt.Sprintf("Tool %s failed: %v", name, r), types.ErrorAdapter)
		}
		duration := timer.Stop(string(env.ErrorCode))
		d.record(Call{
			RequestID: reqID.String(),
			Tool:      name,
			OK:        env.OK,
			ErrorCode: env.ErrorCode,
			Message:   env.Message,
			Started:   started,
			Duration:  duration,
		})
		if env.OK {
			logger.Debug("tool call completed", zap.Duration("duration", duration))
		} else {
			logger.Info("tool call failed",
				zap.String("code", string(env.ErrorCode)),
				zap.String("message", env.Message),
				zap.Duration("duration", duration))
		}
	}()

	if !ok {
		return types.Failure(fmt.Sprintf("Unknown tool: %s", name), types.ErrorUnknownTool)
	}

	args, err := bind(t.def.Params, params)
	if err != nil {
		return types.Failure(MessageOf(err), CodeOf(err))
	}

	res, err := t.call(ctx, args)
	if err != nil {
		if CodeOf(err) == types.ErrorAdapter {
			logger.Warn("engine error", zap.Error(err))
		}
		return types.Failure(MessageOf(err), CodeOf(err))
	}
	return types.Success(res.Message, res.Data)
}

func (d *Dispatcher) record(c Call) {
	if d.journal != nil {
		d.journal.Record(c)
	}
}

func (d *Dispatcher) addCapability(c Capability) error {
	if c.Run == nil {
		return fmt.Errorf("capability %s has no implementation", c.Name)
	}
	handle := types.Tool{
		Name:        c.Name,
		Description: c.Description,
		Category:    c.Category,
		Form:        types.FormHandle,
		Mutates:     c.Mutates,
		Params:      withIdentifier(handleParam, c.Params),
	}
	path := types.Tool{
		Name:        c.Name + PathSuffix,
		Description: c.Description + " (opens the document at source_path for this call only)",
		Category:    c.Category,
		Form:        types.FormPath,
		Mutates:     c.Mutates,
		Params:      withIdentifier(sourcePathParam, c.Params),
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, name := range []string{handle.Name, path.Name} {
		if _, exists := d.tools[name]; exists {
			return fmt.Errorf("tool %s already registered", name)
		}
	}
	d.addLocked(&tool{def: handle, call: d.handleForm(c)})
	d.addLocked(&tool{def: path, call: d.pathForm(c)})
	return nil
}

func (d *Dispatcher) addCommand(c Command) error {
	if c.Run == nil {
		return fmt.Errorf("command %s has no implementation", c.Name)
	}
	def := types.Tool{
		Name:        c.Name,
		Description: c.Description,
		Category:    c.Category,
		Form:        types.FormNone,
		Params:      append([]types.Param{}, c.Params...),
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.tools[c.Name]; exists {
		return fmt.Errorf("tool %s already registered", c.Name)
	}
	d.addLocked(&tool{def: def, call: c.Run})
	return nil
}

func (d *Dispatcher) addLocked(t *tool) {
	d.tools[t.def.Name] = t
	d.order = append(d.order, t.def.Name)
}

var (
	handleParam = types.Param{
		Name:        ParamHandle,
		Type:        types.ParamString,
		Description: "Handle of an open stage, as returned by open_stage or create_stage",
		Required:    true,
	}
	sourcePathParam = types.Param{
		Name:        ParamSourcePath,
		Type:        types.ParamString,
		Description: "Path of an existing stage document",
		Required:    true,
	}
)

func withIdentifier(ident types.Param, params []types.Param) []types.Param {
	out := make([]types.Param, 0, len(params)+1)
	out = append(out, ident)
	return append(out, params...)
}

// handleForm resolves the stage through the registry and marks it modified
// after a mutating call.
func (d *Dispatcher) handleForm(c Capability) CommandFunc {
	return func(ctx context.Context, args Args) (Result, error) {
		h := stage.Handle(args.String(ParamHandle))
		doc, err := d.registry.Get(h)
		if err != nil {
			return Result{}, handleNotFound(h)
		}

		res, err := d.run(ctx, c, doc, args)
		if c.Mutates && (err == nil || CodeOf(err) == types.ErrorAdapter) {
			// Engine failures may leave partial edits behind, so they count too.
			if !d.registry.MarkModified(h) {
				return Result{}, handleNotFound(h)
			}
		}
		return res, err
	}
}

// pathForm opens the document for one call, flushing it after a successful
// mutation. Nothing is registered. A document that is already open is
// edited through its registered copy instead, so the two never diverge.
func (d *Dispatcher) pathForm(c Capability) CommandFunc {
	return func(ctx context.Context, args Args) (Result, error) {
		path, err := filepath.Abs(args.String(ParamSourcePath))
		if err != nil {
			return Result{}, validationf("Invalid source_path: %v", err)
		}
		if h, ok := d.registry.Lookup(path); ok {
			if doc, err := d.registry.Get(h); err == nil {
				return d.throughRegistry(ctx, c, h, doc, args)
			}
		}
		if !d.engine.Exists(path) {
			return Result{}, sourceNotFound(path)
		}
		doc, err := d.engine.Open(ctx, path)
		if err != nil {
			return Result{}, fmt.Errorf("open %s: %w", path, err)
		}
		defer func() {
			if err := doc.Close(); err != nil {
				d.logger.Warn("failed to close stage", zap.String("source_path", path), zap.Error(err))
			}
		}()

		res, err := d.run(ctx, c, doc, args)
		if err != nil {
			return res, err
		}
		if c.Mutates {
			if err := resilience.CallWithTimeout(ctx, d.flushTimeout, doc.Flush); err != nil {
				return Result{}, flushFailed(path, err)
			}
		}
		return res, nil
	}
}

// throughRegistry runs a path form call on an open stage and saves it.
func (d *Dispatcher) throughRegistry(ctx context.Context, c Capability, h stage.Handle, doc scene.Stage, args Args) (Result, error) {
	res, err := d.run(ctx, c, doc, args)
	if !c.Mutates || (err != nil && CodeOf(err) != types.ErrorAdapter) {
		return res, err
	}
	if !d.registry.MarkModified(h) {
		return Result{}, handleNotFound(h)
	}
	if err != nil {
		return res, err
	}
	if _, serr := d.registry.Save(ctx, h); serr != nil {
		return Result{}, flushFailed(doc.Path(), serr)
	}
	return res, nil
}

func (d *Dispatcher) run(ctx context.Context, c Capability, doc scene.Stage, args Args) (Result, error) {
	res, err := c.Run(ctx, doc, args)
	if err != nil {
		return Result{}, err
	}
	if res.Data == nil {
		res.Data = map[string]interface{}{}
	}
	res.Data[ParamSourcePath] = doc.Path()
	return res, nil
}

// Categories returns the distinct catalogue categories, sorted
func (d *Dispatcher) Categories() []string {
	seen := map[string]bool{}
	for _, t := range d.Tools() {
		seen[string(t.Category)] = true
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
