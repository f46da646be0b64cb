package tools

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/GriffinCanCode/scenemcp/internal/domain/stage"
	"github.com/GriffinCanCode/scenemcp/internal/scene"
	"github.com/GriffinCanCode/scenemcp/internal/shared/types"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want types.ErrorCode
	}{
		{"classified", Errorf(types.ErrorUnknownTool, "nope"), types.ErrorUnknownTool},
		{"wrapped classified", fmt.Errorf("outer: %w", validationf("bad")), types.ErrorValidation},
		{"flush error", &stage.FlushError{SourcePath: "/a.usda", Err: errors.New("disk full")}, types.ErrorFlush},
		{"handle sentinel", fmt.Errorf("get: %w", stage.ErrHandleNotFound), types.ErrorHandleNotFound},
		{"missing document", fmt.Errorf("open: %w", scene.ErrNotExist), types.ErrorSourceNotFound},
		{"unknown tool sentinel", ErrUnknownTool, types.ErrorUnknownTool},
		{"invalid path", fmt.Errorf("%w: a/b", scene.ErrInvalidPath), types.ErrorValidation},
		{"missing prim", fmt.Errorf("%w: /World", scene.ErrPrimNotFound), types.ErrorValidation},
		{"invalid argument", scene.ErrInvalidArgument, types.ErrorValidation},
		{"already exists", scene.ErrExists, types.ErrorValidation},
		{"anything else", errors.New("engine exploded"), types.ErrorAdapter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "Stage with ID abc not found", MessageOf(handleNotFound("abc")))
	assert.Equal(t, "Stage file not found: /x.usda", MessageOf(sourceNotFound("/x.usda")))
	assert.Equal(t, "Failed to save stage /x.usda: disk full", MessageOf(flushFailed("/x.usda", errors.New("disk full"))))
	assert.Equal(t, "plain", MessageOf(errors.New("plain")))
}

func TestErrorUnwrap(t *testing.T) {
	err := handleNotFound("abc")
	assert.ErrorIs(t, err, stage.ErrHandleNotFound)
	assert.ErrorIs(t, sourceNotFound("/x"), ErrSourceNotFound)
	assert.ErrorIs(t, validationf("bad"), ErrValidation)
}
