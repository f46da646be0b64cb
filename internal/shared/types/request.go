package types

// CallRequest is the body of a tool call over HTTP or WebSocket
type CallRequest struct {
	Tool   string                 `json:"tool" binding:"required"`
	Params map[string]interface{} `json:"params"`
}

// ToolParams is the body of POST /tools/:name
type ToolParams struct {
	Params map[string]interface{} `json:"params"`
}
