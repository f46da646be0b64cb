/*
Package tools turns scene operations into named tool calls.

Providers contribute capabilities, each of which operates on one open stage.
The dispatcher exposes every capability in two forms:

	analyze_stage          {"handle": "..."}       stage held in the registry
	analyze_stage_by_path  {"source_path": "..."}  document opened for this call only

Both forms take the same remaining parameters with the same defaults and
return the same data. A mutating handle-form call marks the stage modified;
a mutating path-form call writes the document before closing it.

Commands are single-form tools such as create_stage and get_registry_status.

Every call returns a types.Envelope. Failures carry one of the error codes
in types.ErrorCodes; CodeOf maps internal errors onto them.
*/
package tools
