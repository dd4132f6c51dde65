package api

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"QuoteSentinel/internal/collector"
)

// NewRouter builds the HTTP API over the coordinator. Batches triggered over
// HTTP run under ctx, so they stop when the process shuts down.
func NewRouter(ctx context.Context, coord *collector.Coordinator) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger())

	h := NewQuoteController(ctx, coord)

	router.GET("/health", h.Health)

	api := router.Group("/api/v1")
	{
		api.GET("/health", h.Health)
		api.GET("/status", h.GetStatus)
		api.POST("/prefetch", h.TriggerPrefetch)

		symbols := api.Group("/symbols")
		{
			symbols.GET("", h.GetSymbols)
			symbols.POST("", h.AddSymbol)
			symbols.DELETE("/:symbol", h.RemoveSymbol)
		}

		api.GET("/quotes/:symbol", h.GetQuotes)
		api.GET("/recommendation/:symbol", h.GetRecommendation)
	}
	return router
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/health" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		if c.Writer.Status() >= 400 || duration > time.Second {
			log.Printf("[INFO] %s %s %d %v", c.Request.Method, path, c.Writer.Status(), duration)
		}
	}
}
