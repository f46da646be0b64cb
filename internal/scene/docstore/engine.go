package docstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/GriffinCanCode/scenemcp/internal/scene"
)

// Engine opens stage documents from the local filesystem.
type Engine struct{}

var _ scene.Engine = (*Engine)(nil)

// New creates a filesystem-backed engine
func New() *Engine {
	return &Engine{}
}

// Create starts an empty document; nothing is written until Flush.
func (e *Engine) Create(ctx context.Context, path string) (scene.Stage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := absolute(path)
	if err != nil {
		return nil, err
	}
	if e.Exists(path) {
		return nil, fmt.Errorf("%w: %s", scene.ErrExists, path)
	}
	return newStage(path), nil
}

// Open loads the document at path.
func (e *Engine) Open(ctx context.Context, path string) (scene.Stage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := absolute(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", scene.ErrNotExist, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	doc, err := decode(path, data)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	st := newStage(path)
	if err := st.load(doc); err != nil {
		return nil, err
	}
	return st, nil
}

// Exists reports whether a regular file is present at path.
func (e *Engine) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func absolute(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty document path", scene.ErrInvalidArgument)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return abs, nil
}
