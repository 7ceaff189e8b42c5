package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/guttosm/indexpulse/internal/middleware"
)

// NewRouter creates a Gin engine with routes configured. It receives a
// Handler with the pipeline already injected.
//
// Responsibilities:
//   - Registers global middlewares (RequestID, Logger, Recovery, RateLimiter).
//   - Adds request timeout handling (10 seconds); safe here because every
//     route answers from in-memory state, never from the provider.
//   - Mounts Swagger docs (/swagger/*any).
//   - Configures API v1 routes (/api/v1).
//
// Note:
//   - Health and readiness endpoints (/healthz, /readyz) are registered
//     in app.InitializeApp().
func NewRouter(handler *Handler) *gin.Engine {
	router := gin.New()

	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.RecoveryMiddleware(),
		middleware.ErrorHandler,
		middleware.RateLimiter(),
	)

	router.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/scenarios", handler.ListScenarios)
		v1.POST("/scenarios/start", handler.StartAll)
		v1.GET("/scenarios/:label", handler.GetScenario)
		v1.POST("/scenarios/:label/start", handler.Start)
		v1.POST("/scenarios/:label/retry", handler.Retry)
		v1.POST("/scenarios/:label/cancel", handler.Cancel)
		v1.GET("/scenarios/:label/series", handler.GetSeries)
		v1.GET("/scenarios/:label/chart", handler.GetChart)
		v1.POST("/custom", handler.CustomRun)
	}

	return router
}
