/*
Package monitoring provides Prometheus metrics for the scene tool server.

# Overview

Every Metrics value owns a private prometheus.Registry, so the collector can
be created per server and per test without duplicate-registration panics.
All recording methods accept a nil receiver.

# Metrics

- HTTP requests (count, latency) by route template
- Tool invocations (count, latency, errors by code)
- Stage registry occupancy, evictions, flush outcomes
- Maintenance scheduler passes
- WebSocket connections and messages
- Uptime

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics, "create_mesh")
	// ... dispatch ...
	timer.Stop(string(env.ErrorCode))
*/
package monitoring
