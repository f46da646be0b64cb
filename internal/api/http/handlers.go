package http

import (
	"context"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/scenemcp/internal/api/middleware"
	"github.com/GriffinCanCode/scenemcp/internal/domain/stage"
	"github.com/GriffinCanCode/scenemcp/internal/shared/types"
)

// Dispatcher runs named tools
type Dispatcher interface {
	Tools() []types.Tool
	Tool(name string) (types.Tool, bool)
	Dispatch(ctx context.Context, name string, params map[string]interface{}) types.Envelope
}

// StatusReporter describes the running server
type StatusReporter interface {
	Status() map[string]interface{}
}

// Handlers contains all HTTP handlers
type Handlers struct {
	service    string
	version    string
	dispatcher Dispatcher
	status     StatusReporter
	registry   *stage.Registry
	logger     *zap.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(service, version string, d Dispatcher, status StatusReporter, registry *stage.Registry, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		service:    service,
		version:    version,
		dispatcher: d,
		status:     status,
		registry:   registry,
		logger:     logger.Named("http"),
	}
}

// Root handles the liveness check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": h.service,
		"version": h.version,
	})
}

// Health reports uptime, runtime and registry state
func (h *Handlers) Health(c *gin.Context) {
	body := gin.H{"status": "healthy"}
	if h.status != nil {
		for k, v := range h.status.Status() {
			body[k] = v
		}
		body["status"] = "healthy"
	}
	c.JSON(http.StatusOK, body)
}

// Registry reports open stages in LRU order
func (h *Handlers) Registry(c *gin.Context) {
	if h.registry == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "registry not configured"})
		return
	}
	c.JSON(http.StatusOK, h.registry.Stats().ToMap())
}

// ListTools returns the catalogue, optionally filtered by ?category= and ?form=
func (h *Handlers) ListTools(c *gin.Context) {
	category := c.Query("category")
	form := c.Query("form")

	all := h.dispatcher.Tools()
	out := make([]types.Tool, 0, len(all))
	categories := map[string]int{}
	for _, t := range all {
		if category != "" && string(t.Category) != category {
			continue
		}
		if form != "" && string(t.Form) != form {
			continue
		}
		out = append(out, t)
		categories[string(t.Category)]++
	}

	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	sort.Strings(names)

	c.JSON(http.StatusOK, gin.H{
		"tools":      out,
		"count":      len(out),
		"categories": names,
	})
}

// GetTool returns one catalogue entry with its input schema
func (h *Handlers) GetTool(c *gin.Context) {
	name := c.Param("name")
	t, ok := h.dispatcher.Tool(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown tool: " + name})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tool":         t,
		"input_schema": t.InputSchema(),
	})
}

// CallTool runs {"tool": ..., "params": {...}} and returns the envelope.
// A tool failure is still a 200; only a malformed body is rejected.
func (h *Handlers) CallTool(c *gin.Context) {
	var req types.CallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid call request: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.dispatch(c, req.Tool, req.Params))
}

// CallNamed runs the tool named in the path with {"params": {...}}
func (h *Handlers) CallNamed(c *gin.Context) {
	var req types.ToolParams
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid params: " + err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, h.dispatch(c, c.Param("name"), req.Params))
}

func (h *Handlers) dispatch(c *gin.Context, tool string, params map[string]interface{}) types.Envelope {
	if params == nil {
		params = map[string]interface{}{}
	}
	env := h.dispatcher.Dispatch(c.Request.Context(), tool, params)
	if !env.OK {
		h.logger.Debug("tool call failed",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("tool", tool),
			zap.String("code", string(env.ErrorCode)))
	}
	return env
}
