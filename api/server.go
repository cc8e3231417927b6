// Package api exposes the research service over HTTP
package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"trendscout/logging"
	"trendscout/orchestrator"
)

// NewRouter constructs a Gin engine with registered routes
func NewRouter(svc *orchestrator.Service, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logging.OrNop(logger).Named("http")))

	RegisterResearchRoutes(r, svc)
	RegisterSettingsRoutes(r, svc)
	RegisterHealthRoutes(r, svc)
	return r
}

// requestLogger logs one line per request after it is served
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func errorBody(msg string, err error) gin.H {
	h := gin.H{"error": msg}
	if err != nil {
		h["detail"] = err.Error()
	}
	return h
}
