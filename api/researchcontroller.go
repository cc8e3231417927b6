package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"trendscout/orchestrator"
	"trendscout/types"
)

// RegisterResearchRoutes registers run submission and lookup endpoints
func RegisterResearchRoutes(r *gin.Engine, svc *orchestrator.Service) {
	h := &researchController{svc: svc}
	r.POST("/api/research", h.handleResearch)
	r.GET("/api/runs/:id", h.handleRun)
	r.GET("/api/sessions/:id/runs", h.handleSessionRuns)
}

type researchController struct {
	svc *orchestrator.Service
}

// ResearchRequest is the body of POST /api/research
type ResearchRequest struct {
	Query      string                `json:"query" binding:"required"`
	SessionID  string                `json:"session_id"`
	SettingsID string                `json:"settings_id"`
	Session    *types.SessionContext `json:"session_context"`
}

func (r ResearchRequest) toRequest() orchestrator.Request {
	req := orchestrator.Request{Query: r.Query, SessionID: r.SessionID, SettingsID: r.SettingsID}
	if r.Session != nil {
		req.Session = *r.Session
	}
	return req
}

// handleResearch runs a query. With ?async=true it returns 202 and the run id;
// otherwise it blocks and returns the full report.
func (h *researchController) handleResearch(c *gin.Context) {
	var body ResearchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid request body", err))
		return
	}

	async, _ := strconv.ParseBool(c.Query("async"))
	if async {
		runID, err := h.svc.Start(c.Request.Context(), body.toRequest())
		if err != nil {
			h.respondSubmitError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"run_id": runID, "status_url": "/api/runs/" + runID})
		return
	}

	report, err := h.svc.Execute(c.Request.Context(), body.toRequest())
	if err != nil {
		h.respondSubmitError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *researchController) respondSubmitError(c *gin.Context, err error) {
	if errors.Is(err, orchestrator.ErrInvalidRequest) {
		c.JSON(http.StatusBadRequest, errorBody("invalid research request", err))
		return
	}
	c.JSON(http.StatusInternalServerError, errorBody("failed to start research", err))
}

func (h *researchController) handleRun(c *gin.Context) {
	status, err := h.svc.Status(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, orchestrator.ErrRunNotFound):
		c.JSON(http.StatusNotFound, errorBody("run not found", nil))
	case err != nil:
		c.JSON(http.StatusInternalServerError, errorBody("failed to load run", err))
	default:
		c.JSON(http.StatusOK, status)
	}
}

func (h *researchController) handleSessionRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	ids, err := h.svc.SessionRuns(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("failed to list runs", err))
		return
	}
	if ids == nil {
		ids = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"session_id": c.Param("id"), "run_ids": ids})
}
