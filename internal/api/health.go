package api

import "github.com/gin-gonic/gin"

// HealthHandler provides liveness and readiness endpoints.
//
// Responsibilities:
//   - /healthz: basic liveness probe (always 200 OK).
//   - /readyz: readiness probe, backed by a pluggable check (typically
//     "is the pipeline constructed", since the provider is only reached
//     lazily per fetch).
type HealthHandler struct {
	check func() error
}

// NewHealthHandler constructs a HealthHandler with the given readiness
// check. A nil check means always ready.
func NewHealthHandler(check func() error) *HealthHandler {
	return &HealthHandler{check: check}
}

// Register mounts the health and readiness endpoints on the router.
func (h *HealthHandler) Register(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.GET("/readyz", func(c *gin.Context) {
		if h.check != nil && h.check() != nil {
			c.JSON(503, gin.H{"status": "degraded"})
			return
		}
		c.JSON(200, gin.H{"status": "ready"})
	})
}
