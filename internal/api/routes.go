package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/suryadaiv/playground-server/internal/collab"
)

// RouterConfig carries the boundary policies applied in front of the handlers.
type RouterConfig struct {
	AllowedOrigins []string
	RateLimiter    *RateLimiter
	MaxBodyBytes   int64
}

// RegisterRoutes mounts the HTTP API and the websocket endpoint.
func RegisterRoutes(r *gin.Engine, h *Handler, ws *collab.Handler, cfg RouterConfig) {
	r.Use(CORSMiddleware(cfg.AllowedOrigins))

	api := r.Group("/api")
	{
		api.POST("/run",
			bodyLimit(cfg.MaxBodyBytes),
			RateLimitMiddleware(cfg.RateLimiter),
			h.Run)
		api.GET("/health", h.Health)
	}

	r.GET("/ws", ws.Serve)
}

// bodyLimit caps the request body; oversized payloads fail JSON binding and
// surface as a 400 rather than buffering arbitrarily large programs.
func bodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
