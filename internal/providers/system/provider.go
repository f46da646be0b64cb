package system

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/GriffinCanCode/scenemcp/internal/domain/stage"
	"github.com/GriffinCanCode/scenemcp/internal/domain/tools"
	"github.com/GriffinCanCode/scenemcp/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/scenemcp/internal/shared/types"
)

// DefaultJournalSize is how many recent calls are kept
const DefaultJournalSize = 1000

// Provider reports server status and keeps a journal of recent tool calls
type Provider struct {
	startTime time.Time
	version   string
	registry  *stage.Registry
	metrics   *monitoring.Metrics
	calls     *CallBuffer
}

// CallBuffer is a thread-safe circular buffer of call records
type CallBuffer struct {
	entries []*CallEntry
	head    int
	size    int
	maxSize int
	mu      sync.RWMutex
}

// CallEntry is one journaled tool call
type CallEntry struct {
	Timestamp  time.Time       `json:"timestamp"`
	RequestID  string          `json:"request_id"`
	Tool       string          `json:"tool"`
	OK         bool            `json:"ok"`
	ErrorCode  types.ErrorCode `json:"error_code,omitempty"`
	Message    string          `json:"message"`
	DurationMS float64         `json:"duration_ms"`
}

var (
	_ tools.Provider        = (*Provider)(nil)
	_ tools.CommandProvider = (*Provider)(nil)
	_ tools.Journal         = (*Provider)(nil)
)

// NewProvider creates a system provider. registry and metrics may be nil.
func NewProvider(version string, registry *stage.Registry, metrics *monitoring.Metrics) *Provider {
	return &Provider{
		startTime: time.Now(),
		version:   version,
		registry:  registry,
		metrics:   metrics,
		calls:     NewCallBuffer(DefaultJournalSize),
	}
}

// NewCallBuffer creates a new circular buffer for call records
func NewCallBuffer(maxSize int) *CallBuffer {
	if maxSize < 1 {
		maxSize = 1
	}
	return &CallBuffer{
		entries: make([]*CallEntry, maxSize),
		maxSize: maxSize,
	}
}

// Add inserts an entry, overwriting the oldest when full
func (cb *CallBuffer) Add(entry *CallEntry) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.entries[cb.head] = entry
	cb.head = (cb.head + 1) % cb.maxSize
	if cb.size < cb.maxSize {
		cb.size++
	}
}

// Len returns the number of entries held
func (cb *CallBuffer) Len() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.size
}

// GetRecent returns up to limit entries, newest first. A non-empty filter
// keeps only entries whose outcome ("ok" or an error code) matches it.
func (cb *CallBuffer) GetRecent(limit int, filter string) []CallEntry {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	if limit > cb.size || limit <= 0 {
		limit = cb.size
	}

	result := make([]CallEntry, 0, limit)
	for i := 0; i < cb.size && len(result) < limit; i++ {
		idx := (cb.head - 1 - i + cb.maxSize) % cb.maxSize
		entry := cb.entries[idx]
		if entry == nil {
			continue
		}
		if filter == "" || outcome(entry) == filter {
			result = append(result, *entry)
		}
	}
	return result
}

func outcome(e *CallEntry) string {
	if e.OK {
		return "ok"
	}
	return string(e.ErrorCode)
}

func (s *Provider) Name() string { return "system" }

// Capabilities is empty; every system tool is a command
func (s *Provider) Capabilities() []tools.Capability { return nil }

// Commands returns the status tools
func (s *Provider) Commands() []tools.Command {
	outcomes := []string{"ok"}
	for _, code := range types.ErrorCodes {
		outcomes = append(outcomes, string(code))
	}
	return []tools.Command{
		{
			Name:        "get_server_status",
			Description: "Report uptime, runtime details, call counters and registry status",
			Category:    types.CategoryAdmin,
			Run:         s.status,
		},
		{
			Name:        "get_call_log",
			Description: "List recent tool calls, newest first",
			Category:    types.CategoryAdmin,
			Params: []types.Param{
				{Name: "limit", Type: types.ParamInteger, Description: "Maximum entries to return", Default: 100, Min: tools.Bound(1)},
				{Name: "outcome", Type: types.ParamString, Description: "Only calls with this outcome", Enum: outcomes},
			},
			Run: s.callLog,
		},
	}
}

// Record journals a finished call
func (s *Provider) Record(c tools.Call) {
	s.calls.Add(&CallEntry{
		Timestamp:  c.Started.UTC(),
		RequestID:  c.RequestID,
		Tool:       c.Tool,
		OK:         c.OK,
		ErrorCode:  c.ErrorCode,
		Message:    c.Message,
		DurationMS: float64(c.Duration.Microseconds()) / 1000,
	})
}

// Info returns runtime details
func (s *Provider) Info() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]interface{}{
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"cpus":         runtime.NumCPU(),
		"goroutines":   runtime.NumGoroutine(),
		"memory_alloc": m.Alloc / 1024 / 1024,      // MB
		"memory_total": m.TotalAlloc / 1024 / 1024, // MB
		"memory_sys":   m.Sys / 1024 / 1024,        // MB
	}
}

// Uptime is time since the provider was created
func (s *Provider) Uptime() time.Duration {
	return time.Since(s.startTime)
}

// Status is the payload of get_server_status and the HTTP health check
func (s *Provider) Status() map[string]interface{} {
	data := map[string]interface{}{
		"status":         "running",
		"version":        s.version,
		"started_at":     s.startTime.UTC().Format(time.RFC3339),
		"uptime_seconds": s.Uptime().Seconds(),
		"runtime":        s.Info(),
		"calls":          s.metrics.Snapshot(),
	}
	if s.registry != nil {
		data["registry"] = s.registry.Stats().ToMap()
	}
	return data
}

func (s *Provider) status(_ context.Context, _ tools.Args) (tools.Result, error) {
	return tools.Result{Message: "Server is running", Data: s.Status()}, nil
}

func (s *Provider) callLog(_ context.Context, args tools.Args) (tools.Result, error) {
	calls := s.calls.GetRecent(args.Int("limit"), args.String("outcome"))
	return tools.Result{
		Message: "Recent tool calls",
		Data: map[string]interface{}{
			"calls": calls,
			"count": len(calls),
		},
	}, nil
}
