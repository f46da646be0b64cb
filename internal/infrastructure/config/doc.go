// Package config provides 12-factor configuration management for the scene tool server.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags override environment variables.
//
// Configuration Sections:
//   - Server: transport selection and HTTP listen address
//   - Stage: registry capacity, maintenance interval, flush timeout
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting for the HTTP transport
//
// Environment Variables:
//   - HOST, PORT, TRANSPORT
//   - STAGE_CACHE_SIZE, STAGE_MAINTENANCE_INTERVAL, STAGE_FLUSH_TIMEOUT
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
