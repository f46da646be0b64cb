package tools

import (
	"errors"
	"fmt"

	"github.com/GriffinCanCode/scenemcp/internal/domain/stage"
	"github.com/GriffinCanCode/scenemcp/internal/scene"
	"github.com/GriffinCanCode/scenemcp/internal/shared/types"
)

var (
	ErrUnknownTool    = errors.New("unknown tool")
	ErrValidation     = errors.New("invalid parameters")
	ErrSourceNotFound = errors.New("source document not found")
)

// Error carries a classified failure with the message shown to the caller.
type Error struct {
	Code types.ErrorCode
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return fmt.Sprintf("%s: %v", e.Msg, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds a classified error with a formatted message
func Errorf(code types.ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

func validationf(format string, args ...interface{}) *Error {
	return &Error{Code: types.ErrorValidation, Msg: fmt.Sprintf(format, args...), Err: ErrValidation}
}

func handleNotFound(h stage.Handle) *Error {
	return &Error{
		Code: types.ErrorHandleNotFound,
		Msg:  fmt.Sprintf("Stage with ID %s not found", h),
		Err:  stage.ErrHandleNotFound,
	}
}

func sourceNotFound(path string) *Error {
	return &Error{
		Code: types.ErrorSourceNotFound,
		Msg:  fmt.Sprintf("Stage file not found: %s", path),
		Err:  ErrSourceNotFound,
	}
}

func flushFailed(path string, err error) *Error {
	return &Error{
		Code: types.ErrorFlush,
		Msg:  fmt.Sprintf("Failed to save stage %s", path),
		Err:  err,
	}
}

// CodeOf classifies err. Anything unrecognized is an adapter failure.
func CodeOf(err error) types.ErrorCode {
	var te *Error
	if errors.As(err, &te) && te.Code != "" {
		return te.Code
	}
	var fe *stage.FlushError
	switch {
	case errors.As(err, &fe):
		return types.ErrorFlush
	case errors.Is(err, stage.ErrHandleNotFound):
		return types.ErrorHandleNotFound
	case errors.Is(err, ErrSourceNotFound), errors.Is(err, scene.ErrNotExist):
		return types.ErrorSourceNotFound
	case errors.Is(err, ErrUnknownTool):
		return types.ErrorUnknownTool
	case errors.Is(err, ErrValidation),
		errors.Is(err, scene.ErrInvalidPath),
		errors.Is(err, scene.ErrInvalidArgument),
		errors.Is(err, scene.ErrPrimNotFound),
		errors.Is(err, scene.ErrExists):
		return types.ErrorValidation
	default:
		return types.ErrorAdapter
	}
}

// MessageOf is the caller-facing text for err.
func MessageOf(err error) string {
	var te *Error
	if errors.As(err, &te) && te.Msg != "" {
		if te.Code == types.ErrorFlush && te.Err != nil {
			return te.Error()
		}
		return te.Msg
	}
	return err.Error()
}
