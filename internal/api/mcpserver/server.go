// Package mcpserver exposes the tool catalogue over the Model Context
// Protocol. Every catalogue tool becomes one MCP tool whose result is the
// JSON envelope as text content.
package mcpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/scenemcp/internal/shared/types"
)

const instructions = "Scene stage tools. Open a stage with open_stage or create_stage and pass " +
	"the returned handle to later calls, or use the _by_path variants for one-off edits. " +
	"Call save_stage before close_stage to keep changes."

// Dispatcher runs named tools
type Dispatcher interface {
	Tools() []types.Tool
	Dispatch(ctx context.Context, name string, params map[string]interface{}) types.Envelope
}

// Server is an MCP server backed by a Dispatcher
type Server struct {
	mcp        *mcp.Server
	dispatcher Dispatcher
	logger     *zap.Logger
}

// New registers every tool of d on a new MCP server
func New(d Dispatcher, name, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		mcp: mcp.NewServer(
			&mcp.Implementation{Name: name, Version: version},
			&mcp.ServerOptions{Instructions: instructions},
		),
		dispatcher: d,
		logger:     logger.Named("mcp"),
	}
	for _, t := range d.Tools() {
		s.mcp.AddTool(&mcp.Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema(),
			Annotations: &mcp.ToolAnnotations{ReadOnlyHint: !t.Mutates},
		}, s.handler(t.Name))
	}
	return s
}

// MCP returns the underlying protocol server
func (s *Server) MCP() *mcp.Server {
	return s.mcp
}

// RunStdio serves one client over stdin/stdout until ctx is cancelled or
// the client disconnects.
func (s *Server) RunStdio(ctx context.Context) error {
	s.logger.Info("serving MCP over stdio")
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Handler serves the streamable HTTP transport
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcp
	}, nil)
}

func (s *Server) handler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		params := map[string]interface{}{}
		if req.Params != nil && len(req.Params.Arguments) > 0 {
			if err := sonic.Unmarshal(req.Params.Arguments, &params); err != nil {
				env := types.Failure("Arguments must be a JSON object: "+err.Error(), types.ErrorValidation)
				return result(env)
			}
			if params == nil {
				params = map[string]interface{}{}
			}
		}
		return result(s.dispatcher.Dispatch(ctx, name, params))
	}
}

// result renders env as the text content of a tool result
func result(env types.Envelope) (*mcp.CallToolResult, error) {
	text, err := sonic.MarshalString(env)
	if err != nil {
		return nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: !env.OK,
	}, nil
}
