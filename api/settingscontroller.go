package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"trendscout/orchestrator"
	"trendscout/settings"
	"trendscout/types"
)

// RegisterSettingsRoutes registers business settings endpoints
func RegisterSettingsRoutes(r *gin.Engine, svc *orchestrator.Service) {
	g := r.Group("/api/settings")
	g.GET("", func(c *gin.Context) { withStore(c, svc, listSettings) })
	g.GET("/:id", func(c *gin.Context) { withStore(c, svc, getSettings) })
	g.PUT("/:id", func(c *gin.Context) { withStore(c, svc, putSettings) })
	g.DELETE("/:id", func(c *gin.Context) { withStore(c, svc, deleteSettings) })
}

func withStore(c *gin.Context, svc *orchestrator.Service, fn func(*gin.Context, settings.Store)) {
	store := svc.Settings()
	if store == nil {
		c.JSON(http.StatusServiceUnavailable, errorBody("settings store is not configured", nil))
		return
	}
	fn(c, store)
}

func listSettings(c *gin.Context, store settings.Store) {
	recs, err := store.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("failed to list settings", err))
		return
	}
	if recs == nil {
		recs = []settings.Record{}
	}
	c.JSON(http.StatusOK, recs)
}

func getSettings(c *gin.Context, store settings.Store) {
	rec, err := store.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, settings.ErrNotFound) {
		c.JSON(http.StatusNotFound, errorBody("settings not found", nil))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("failed to load settings", err))
		return
	}
	c.JSON(http.StatusOK, rec)
}

func putSettings(c *gin.Context, store settings.Store) {
	var session types.SessionContext
	if err := c.ShouldBindJSON(&session); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid session context", err))
		return
	}
	rec, err := store.Put(c.Request.Context(), c.Param("id"), session)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("failed to save settings", err))
		return
	}
	c.JSON(http.StatusOK, rec)
}

func deleteSettings(c *gin.Context, store settings.Store) {
	err := store.Delete(c.Request.Context(), c.Param("id"))
	if errors.Is(err, settings.ErrNotFound) {
		c.JSON(http.StatusNotFound, errorBody("settings not found", nil))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("failed to delete settings", err))
		return
	}
	c.Status(http.StatusNoContent)
}
