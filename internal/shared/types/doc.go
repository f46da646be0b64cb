// Package types provides shared data structures for the scene tool server.
//
// Core Types:
//   - Envelope: Uniform result of every tool invocation
//   - ErrorCode: Machine-readable failure category carried by an Envelope
//   - Tool, Param: Catalogue entries describing invocable tools
//   - CallRequest: Transport-level tool call body
//
// Example Usage:
//
//	env := types.Success("Stage opened", map[string]interface{}{
//	    "handle":      handle,
//	    "source_path": path,
//	})
package types
