// Package scenetest provides an in-memory scene engine that records flushes
// and closes and can be told to fail or block them.
package scenetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/GriffinCanCode/scenemcp/internal/scene"
	"github.com/GriffinCanCode/scenemcp/internal/scene/docstore"
)

// Stage is an in-memory stage whose Flush never touches the filesystem.
type Stage struct {
	*docstore.Stage

	mu       sync.Mutex
	flushes  int
	closes   int
	calls    []string
	flushErr error
	onFlush  func(ctx context.Context) error
}

var _ scene.Stage = (*Stage)(nil)

// NewStage returns an empty recorded stage
func NewStage(path string) *Stage {
	return &Stage{Stage: docstore.NewStage(path)}
}

// FailFlush makes every following Flush return err (nil restores success).
func (s *Stage) FailFlush(err error) {
	s.mu.Lock()
	s.flushErr = err
	s.mu.Unlock()
}

// OnFlush installs a hook run at the start of every Flush.
func (s *Stage) OnFlush(fn func(ctx context.Context) error) {
	s.mu.Lock()
	s.onFlush = fn
	s.mu.Unlock()
}

// Flush records the call and returns the configured outcome
func (s *Stage) Flush(ctx context.Context) error {
	s.mu.Lock()
	s.flushes++
	s.calls = append(s.calls, "flush")
	hook, err := s.onFlush, s.flushErr
	s.mu.Unlock()

	if hook != nil {
		if herr := hook(ctx); herr != nil {
			return herr
		}
	}
	return err
}

// Close records the call and releases the document
func (s *Stage) Close() error {
	s.mu.Lock()
	s.closes++
	s.calls = append(s.calls, "close")
	s.mu.Unlock()
	return s.Stage.Close()
}

// Flushes returns how many times Flush was called
func (s *Stage) Flushes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushes
}

// Closes returns how many times Close was called
func (s *Stage) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// Calls returns "flush" and "close" in the order they happened
func (s *Stage) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Engine hands out recorded stages. A path "exists" once it was added
// or a stage created for it has flushed successfully.
type Engine struct {
	mu       sync.Mutex
	existing map[string]bool
	stages   []*Stage
	flushErr error
}

var _ scene.Engine = (*Engine)(nil)

// NewEngine creates an engine with the given paths already present
func NewEngine(paths ...string) *Engine {
	e := &Engine{existing: make(map[string]bool)}
	for _, p := range paths {
		e.existing[p] = true
	}
	return e
}

// FailFlushes makes stages handed out from now on fail every Flush with err.
func (e *Engine) FailFlushes(err error) {
	e.mu.Lock()
	e.flushErr = err
	e.mu.Unlock()
}

// Create returns a new recorded stage for a path that does not exist yet
func (e *Engine) Create(ctx context.Context, path string) (scene.Stage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.Exists(path) {
		return nil, fmt.Errorf("%w: %s", scene.ErrExists, path)
	}
	return e.track(path), nil
}

// Open returns a new, empty recorded stage for an existing path
func (e *Engine) Open(ctx context.Context, path string) (scene.Stage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !e.Exists(path) {
		return nil, fmt.Errorf("%w: %s", scene.ErrNotExist, path)
	}
	return e.track(path), nil
}

// Exists reports whether path is present
func (e *Engine) Exists(path string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.existing[path]
}

// Stages returns every stage handed out, in order
func (e *Engine) Stages() []*Stage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Stage(nil), e.stages...)
}

func (e *Engine) track(path string) *Stage {
	st := NewStage(path)

	e.mu.Lock()
	st.flushErr = e.flushErr
	e.stages = append(e.stages, st)
	e.mu.Unlock()

	st.OnFlush(func(context.Context) error {
		st.mu.Lock()
		failing := st.flushErr != nil
		st.mu.Unlock()
		if !failing {
			e.mu.Lock()
			e.existing[path] = true
			e.mu.Unlock()
		}
		return nil
	})
	return st
}
