package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/scenemcp/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/scenemcp/internal/shared/types"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Dispatcher runs named tools
type Dispatcher interface {
	Tools() []types.Tool
	Dispatch(ctx context.Context, name string, params map[string]interface{}) types.Envelope
}

// Message is a client request
type Message struct {
	Type   string                 `json:"type"`
	ID     string                 `json:"id,omitempty"`
	Tool   string                 `json:"tool,omitempty"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// Handler manages WebSocket connections
type Handler struct {
	dispatcher Dispatcher
	metrics    *monitoring.Metrics
	logger     *zap.Logger

	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	closed bool
}

// NewHandler creates a new WebSocket handler
func NewHandler(d Dispatcher, metrics *monitoring.Metrics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		dispatcher: d,
		metrics:    metrics,
		logger:     logger.Named("ws"),
		conns:      make(map[*websocket.Conn]struct{}),
	}
}

// HandleConnection upgrades the request and serves messages until the
// client goes away or Shutdown is called.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	if !h.track(conn) {
		_ = conn.Close()
		return
	}
	defer h.untrack(conn)

	h.metrics.IncWSConnections()
	defer h.metrics.DecWSConnections()

	conn.SetReadLimit(maxMessageSize)
	ctx := c.Request.Context()

	h.send(conn, map[string]interface{}{
		"type":    "system",
		"message": "Connected to scene tool server",
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}
		h.metrics.RecordWSMessage("in")

		var msg Message
		if err := sonic.Unmarshal(raw, &msg); err != nil {
			h.sendError(conn, "", "invalid message: "+err.Error())
			continue
		}

		switch msg.Type {
		case "call":
			h.handleCall(ctx, conn, msg)
		case "list_tools":
			catalogue := h.dispatcher.Tools()
			h.send(conn, map[string]interface{}{
				"type":  "tools",
				"id":    msg.ID,
				"tools": catalogue,
				"count": len(catalogue),
			})
		case "ping":
			h.send(conn, map[string]interface{}{"type": "pong", "id": msg.ID})
		default:
			h.sendError(conn, msg.ID, "unknown message type: "+msg.Type)
		}
	}
}

func (h *Handler) handleCall(ctx context.Context, conn *websocket.Conn, msg Message) {
	if msg.Tool == "" {
		h.sendError(conn, msg.ID, "call requires a tool name")
		return
	}
	params := msg.Params
	if params == nil {
		params = map[string]interface{}{}
	}
	env := h.dispatcher.Dispatch(ctx, msg.Tool, params)
	h.send(conn, map[string]interface{}{
		"type":     "result",
		"id":       msg.ID,
		"envelope": env,
	})
}

// Shutdown closes every open connection and refuses new ones
func (h *Handler) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	deadline := time.Now().Add(writeWait)
	for conn := range h.conns {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), deadline)
		_ = conn.Close()
	}
}

// Connections is the number of open connections
func (h *Handler) Connections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *Handler) track(conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.conns[conn] = struct{}{}
	return true
}

func (h *Handler) untrack(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

func (h *Handler) send(conn *websocket.Conn, msg map[string]interface{}) {
	if _, ok := msg["timestamp"]; !ok {
		msg["timestamp"] = time.Now().Unix()
	}
	raw, err := sonic.Marshal(msg)
	if err != nil {
		h.logger.Error("websocket encode failed", zap.Error(err))
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		h.logger.Debug("websocket write failed", zap.Error(err))
		return
	}
	h.metrics.RecordWSMessage("out")
}

func (h *Handler) sendError(conn *websocket.Conn, id, message string) {
	h.send(conn, map[string]interface{}{
		"type":    "error",
		"id":      id,
		"message": message,
	})
}
