package http

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the handlers on r
func RegisterRoutes(r gin.IRouter, h *Handlers) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/registry", h.Registry)

	tools := r.Group("/tools")
	{
		tools.GET("", h.ListTools)
		tools.GET("/:name", h.GetTool)
		tools.POST("/call", h.CallTool)
		tools.POST("/call/stream", h.StreamCall)
		tools.POST("/:name", h.CallNamed)
	}
}
