// Package ws serves tool calls over a WebSocket.
//
// Message Types (Client → Server):
//   - call: {"type": "call", "id": "1", "tool": "analyze_stage", "params": {...}}
//   - list_tools: request the catalogue
//   - ping: keep-alive
//
// Message Types (Server → Client):
//   - system: greeting sent on connect
//   - result: {"type": "result", "id": "1", "envelope": {...}}
//   - tools: the catalogue
//   - pong
//   - error: the message could not be understood
//
// Calls on one connection run in order. The id is echoed back unchanged.
//
// Example Usage:
//
//	handler := ws.NewHandler(dispatcher, metrics, logger)
//	router.GET("/ws", handler.HandleConnection)
package ws
