package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pulseboard/internal/service"
)

type DashboardHandler struct {
	Dashboard *service.DashboardService
}

func (h *DashboardHandler) Register(r *gin.Engine) {
	r.GET("/api/dashboard", h.getDashboard)
}

// @Summary Aggregated dashboard read model
// @Tags dashboard
// @Success 200 {object} service.DashboardPayload
// @Router /api/dashboard [get]
func (h *DashboardHandler) getDashboard(c *gin.Context) {
	if h.Dashboard == nil {
		Error(c, http.StatusInternalServerError, "dashboard service unavailable", nil)
		return
	}
	payload, err := h.Dashboard.Build(c.Request.Context())
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, payload, nil)
}
