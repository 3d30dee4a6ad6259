package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pulseboard/internal/models"
	"pulseboard/internal/repository"
	"pulseboard/internal/service"
)

type SyncHandler struct {
	Refresh *service.RefreshService
	Repo    repository.Repository

	// RefreshKey, when set, gates manual refreshes behind the
	// x-refresh-key header.
	RefreshKey string
}

func (h *SyncHandler) Register(r *gin.Engine) {
	r.POST("/api/refresh-all", h.refreshAll)
	r.GET("/api/sync-runs", h.listSyncRuns)
}

// @Summary Trigger a full sync run across all sources
// @Tags sync
// @Success 200 {object} service.RefreshResult
// @Router /api/refresh-all [post]
func (h *SyncHandler) refreshAll(c *gin.Context) {
	if h.Refresh == nil {
		Error(c, http.StatusInternalServerError, "refresh service unavailable", nil)
		return
	}
	if h.RefreshKey != "" && c.GetHeader("x-refresh-key") != h.RefreshKey {
		Error(c, http.StatusUnauthorized, "invalid refresh key", nil)
		return
	}

	result, err := h.Refresh.Run(c.Request.Context(), models.TriggerManual)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	// Partial success still reads as success to the caller; only a run
	// where every source failed is an error.
	if result.Status == models.RunStatusFailed {
		c.JSON(http.StatusInternalServerError, apiResponse{
			Code:    http.StatusInternalServerError,
			Message: strings.Join(result.Errors, "; "),
			Data:    result,
		})
		return
	}
	Ok(c, result, nil)
}

// @Summary List recent sync runs
// @Tags sync
// @Success 200 {array} models.SyncRun
// @Router /api/sync-runs [get]
func (h *SyncHandler) listSyncRuns(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 20)
	runs, err := h.Repo.ListSyncRuns(c.Request.Context(), limit)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, runs, map[string]any{"limit": limit, "count": len(runs)})
}
