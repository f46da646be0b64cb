// Command scenemcp serves scene stage tools.
//
// By default it speaks MCP over stdin/stdout, so an assistant can launch it
// directly. With --transport http it listens on HOST:PORT and serves the
// same catalogue as plain JSON, server-sent events, WebSocket and MCP
// streamable HTTP on /mcp.
//
// Configuration comes from the environment (TRANSPORT, HOST, PORT,
// STAGE_CACHE_SIZE, STAGE_MAINTENANCE_INTERVAL, STAGE_FLUSH_TIMEOUT,
// LOG_LEVEL, LOG_DEV, RATE_LIMIT_*); flags override it.
//
// Usage:
//
//	scenemcp                          # MCP over stdio
//	scenemcp serve --transport http -p 8080
//	scenemcp tools --category geometry
package main
