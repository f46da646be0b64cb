// Package toolstest runs tools against real stage documents in a temporary
// directory.
package toolstest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/scenemcp/internal/domain/stage"
	"github.com/GriffinCanCode/scenemcp/internal/domain/tools"
	"github.com/GriffinCanCode/scenemcp/internal/scene"
	"github.com/GriffinCanCode/scenemcp/internal/scene/docstore"
	"github.com/GriffinCanCode/scenemcp/internal/shared/types"
)

// Harness is a dispatcher over a docstore engine rooted in Dir
type Harness struct {
	T          *testing.T
	Dir        string
	Registry   *stage.Registry
	Engine     *docstore.Engine
	Dispatcher *tools.Dispatcher
}

// New registers providers on a fresh dispatcher. Open stages are closed
// without saving when the test ends.
func New(t *testing.T, providers ...tools.Provider) *Harness {
	t.Helper()
	h := &Harness{
		T:        t,
		Dir:      t.TempDir(),
		Registry: stage.NewRegistry(),
		Engine:   docstore.New(),
	}
	h.Dispatcher = tools.New(tools.Config{Registry: h.Registry, Engine: h.Engine})
	for _, p := range providers {
		require.NoError(t, h.Dispatcher.Register(p))
	}
	t.Cleanup(func() {
		for _, handle := range h.Registry.Stats().Handles {
			h.Registry.Unregister(context.Background(), handle, false)
		}
	})
	return h
}

// Path returns name inside the harness directory
func (h *Harness) Path(name string) string {
	return filepath.Join(h.Dir, name)
}

// Call dispatches one tool
func (h *Harness) Call(name string, params map[string]interface{}) types.Envelope {
	return h.Dispatcher.Dispatch(context.Background(), name, params)
}

// MustCall dispatches one tool and fails the test unless it succeeds
func (h *Harness) MustCall(name string, params map[string]interface{}) types.Envelope {
	h.T.Helper()
	env := h.Call(name, params)
	require.True(h.T, env.OK, "%s: %s (%s)", name, env.Message, env.ErrorCode)
	return env
}

// CreateStage creates name from template and returns its handle
func (h *Harness) CreateStage(name, template string) string {
	h.T.Helper()
	env := h.MustCall("create_stage", map[string]interface{}{
		"source_path": h.Path(name),
		"template":    template,
	})
	return env.Data["handle"].(string)
}

// Stage returns the open document behind handle
func (h *Harness) Stage(handle string) scene.Stage {
	h.T.Helper()
	st, err := h.Registry.Get(stage.Handle(handle))
	require.NoError(h.T, err)
	return st
}

// Reopen loads a document from disk, independent of the registry
func (h *Harness) Reopen(path string) scene.Stage {
	h.T.Helper()
	st, err := h.Engine.Open(context.Background(), path)
	require.NoError(h.T, err)
	h.T.Cleanup(func() { _ = st.Close() })
	return st
}
