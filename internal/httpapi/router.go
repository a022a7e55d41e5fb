// Package httpapi exposes the style engine over HTTP with gin.
package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/dshills/styletwin/internal/logger"
)

type RouterConfig struct {
	StyleHandler    *StyleHandler
	Logger          *logger.Logger
	CORSOrigins     []string
	MaxRequestBytes int64
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(cfg.Logger))
	r.Use(CORS(cfg.CORSOrigins))
	if cfg.MaxRequestBytes > 0 {
		r.Use(LimitBody(cfg.MaxRequestBytes))
	}

	h := cfg.StyleHandler
	r.GET("/healthz", h.HealthCheck)

	api := r.Group("/api")
	{
		api.POST("/process-sample", h.ProcessSample)
		api.POST("/drift-detect", h.DriftDetect)
		api.POST("/style-twin", h.StyleTwin)
		api.POST("/chat", h.Chat)
		api.GET("/profiles/:userId", h.GetProfile)
		api.GET("/profiles/:userId/history", h.ListHistory)
	}
	return r
}

// CORS allows the given origins. An empty list or "*" allows any origin
// without credentials.
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "X-Requested-With"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

// LimitBody caps request bodies at n bytes.
func LimitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if log == nil {
			return
		}

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := []interface{}{
			"method", strings.ToUpper(c.Request.Method),
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}

		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}
