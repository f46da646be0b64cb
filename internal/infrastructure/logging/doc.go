// Package logging provides structured logging using uber/zap.
//
// Two encodings are supported:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// When the server speaks MCP over stdio, logs must go to stderr; use
// StdioConfig to build such a logger.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("Server starting", zap.String("transport", "http"))
//	logger.Component("registry").Warn("Flush failed", zap.Error(err))
package logging
