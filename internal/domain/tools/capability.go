package tools

import (
	"context"
	"time"

	"github.com/GriffinCanCode/scenemcp/internal/scene"
	"github.com/GriffinCanCode/scenemcp/internal/shared/types"
)

// Identifier parameter names
const (
	ParamHandle     = "handle"
	ParamSourcePath = "source_path"
)

// PathSuffix names the path form of a capability
const PathSuffix = "_by_path"

// Result is what a tool returns on success
type Result struct {
	Message string
	Data    map[string]interface{}
}

// RunFunc operates on one open stage. Args excludes the stage identifier.
type RunFunc func(ctx context.Context, st scene.Stage, args Args) (Result, error)

// Capability is a stage operation. The dispatcher exposes it twice: as
// Name, taking a handle, and as Name+PathSuffix, taking a source path.
type Capability struct {
	Name        string
	Description string
	Category    types.Category
	Params      []types.Param
	Mutates     bool
	Run         RunFunc
}

// CommandFunc runs a tool that is not bound to one stage
type CommandFunc func(ctx context.Context, args Args) (Result, error)

// Command is a tool with a single form
type Command struct {
	Name        string
	Description string
	Category    types.Category
	Params      []types.Param
	Run         CommandFunc
}

// Provider contributes capabilities
type Provider interface {
	Name() string
	Capabilities() []Capability
}

// CommandProvider is implemented by providers that also contribute commands
type CommandProvider interface {
	Commands() []Command
}

// Journal receives one record per dispatched call
type Journal interface {
	Record(Call)
}

// Call summarizes a finished dispatch
type Call struct {
	RequestID string
	Tool      string
	OK        bool
	ErrorCode types.ErrorCode
	Message   string
	Started   time.Time
	Duration  time.Duration
}
