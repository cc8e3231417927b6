package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trendscout/orchestrator"
)

// RegisterHealthRoutes registers health check endpoints
func RegisterHealthRoutes(r *gin.Engine, svc *orchestrator.Service) {
	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "active_runs": len(svc.Active())})
	})
}
