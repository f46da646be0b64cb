package monitoring

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndependentRegistries(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.RecordToolCall("analyze_stage", "", time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.ToolCalls.WithLabelValues("analyze_stage", "ok")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.ToolCalls.WithLabelValues("analyze_stage", "ok")))
}

func TestRecordToolCall(t *testing.T) {
	m := NewMetrics()

	m.RecordToolCall("save_stage", "", 10*time.Millisecond)
	m.RecordToolCall("save_stage", "FlushFailure", 20*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolCalls.WithLabelValues("save_stage", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolCalls.WithLabelValues("save_stage", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolErrors.WithLabelValues("save_stage", "FlushFailure")))

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.ToolCalls)
	assert.Equal(t, int64(1), snap.ToolErrors)
	assert.InDelta(t, 0.03, snap.TotalTime, 0.001)
}

func TestStageMetrics(t *testing.T) {
	m := NewMetrics()

	m.SetStages(4, 1)
	m.AddEvictions(2)
	m.AddEvictions(0)
	m.RecordFlush(nil)
	m.RecordFlush(errors.New("disk full"))
	m.RecordMaintenancePass(nil)

	assert.Equal(t, 4.0, testutil.ToFloat64(m.StagesOpen))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StagesModified))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.StageEvictions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageFlushes.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MaintenancePasses.WithLabelValues("ok")))
	assert.Equal(t, int64(1), m.Snapshot().FlushErrors)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordToolCall("x", "", time.Second)
		m.SetStages(1, 1)
		m.AddEvictions(1)
		m.RecordFlush(nil)
		m.RecordMaintenancePass(nil)
		m.IncWSConnections()
		m.DecWSConnections()
		m.RecordWSMessage("in")
		m.RecordHTTPRequest("GET", "/", "200", time.Second)
		NewTimer(m, "x").Stop("")
	})
	assert.Equal(t, Snapshot{}, m.Snapshot())
	assert.Zero(t, m.Uptime())
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/tools/:name", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tools/create_mesh", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/tools/:name", "204")))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "scenemcp_http_requests_total")
	assert.Contains(t, string(body), "scenemcp_uptime_seconds")
}
