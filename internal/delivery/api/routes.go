package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/FreePeak/db-copilot/internal/logger"
)

// NewRouter builds the gin engine with every route registered.
//
//	POST /v1/turns             run a conversational turn
//	POST /v1/route             classify a transcript only
//	GET  /v1/operations        list published operations (?scope=all|data|ui)
//	POST /v1/operations/:name  run one operation (?dry_run=true)
//	GET  /v1/audit             list audit records
//	GET  /healthz              datastore health
//	GET  /metrics              prometheus metrics
func NewRouter(handlers *Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger())

	router.GET("/healthz", handlers.HandleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	RegisterRoutes(v1, handlers)
	return router
}

// RegisterRoutes registers the /v1 endpoints on a router group
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	rg.POST("/turns", handlers.HandleTurn)
	rg.POST("/route", handlers.HandleRoute)

	ops := rg.Group("/operations")
	{
		ops.GET("", handlers.HandleListOperations)
		ops.POST("/:name", handlers.HandleExecuteOperation)
	}

	rg.GET("/audit", handlers.HandleListAudit)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
