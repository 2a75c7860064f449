// Package httpapi serves the latest validated listing set to external pollers.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rigwild/raspberry-instock-check/internal/models"
)

// ViewSource exposes the latest validated listing set.
type ViewSource interface {
	Latest() (models.View, bool)
}

// Options configures the router.
type Options struct {
	// RatePerMinute is the number of requests one client may make per minute. Zero disables the limit.
	RatePerMinute int
	// TrustProxy makes the client address come from X-Forwarded-For.
	TrustProxy bool
}

// NewRouter builds the read-only API.
func NewRouter(log *slog.Logger, source ViewSource, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	if !opts.TrustProxy {
		// Only fails on malformed CIDRs.
		_ = router.SetTrustedProxies(nil)
	}

	if opts.RatePerMinute > 0 {
		router.Use(newIPLimiter(opts.RatePerMinute, time.Minute, time.Now).middleware())
	}
	router.Use(corsMiddleware())

	router.GET("/", func(c *gin.Context) {
		view, ok := source.Latest()
		if !ok {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no validated data yet"})
			return
		}
		c.JSON(http.StatusOK, view)
	})
	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	return router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Accept")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.DebugContext(
			c.Request.Context(),
			"HTTP request",
			"op", "httpapi.request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"client", c.ClientIP(),
			"duration", time.Since(start),
		)
	}
}
