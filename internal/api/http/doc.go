/*
Package http serves the tool catalogue as plain JSON over HTTP.

Routes:

	GET  /               liveness
	GET  /health         uptime, runtime and registry state
	GET  /registry       open stages, least recently used first
	GET  /tools          catalogue (?category=geometry&form=path)
	GET  /tools/:name    one tool with its JSON Schema
	POST /tools/call     {"tool": "analyze_stage", "params": {"handle": "..."}}
	POST /tools/call/stream  same body, answered as server-sent events
	POST /tools/:name    {"params": {...}}

Every call endpoint answers 200 with a types.Envelope, including failed
calls. Only a malformed request body gets 400.
*/
package http
