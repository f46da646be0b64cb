package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/scenemcp/internal/api/middleware"
	"github.com/GriffinCanCode/scenemcp/internal/shared/types"
)

// Server-sent event names
const (
	EventStart  = "start"
	EventResult = "result"
)

// StreamCall runs a tool and reports it as server-sent events: a start event
// as soon as the call is accepted, then the envelope.
func (h *Handlers) StreamCall(c *gin.Context) {
	var req types.CallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid call request: " + err.Error()})
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent(EventStart, gin.H{
		"tool":       req.Tool,
		"request_id": middleware.GetRequestID(c),
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	})
	c.Writer.Flush()

	env := h.dispatch(c, req.Tool, req.Params)
	c.SSEvent(EventResult, env)
	c.Writer.Flush()
}
