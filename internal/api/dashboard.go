package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"project-tracker/internal/metrics"
	"project-tracker/internal/service"
)

type dashboardResponse struct {
	Success   bool         `json:"success"`
	Error     string       `json:"error,omitempty"`
	Data      service.Data `json:"data"`
	Timestamp string       `json:"timestamp"`
}

// dashboardData answers the live-update payload. Failures still return a
// complete, zeroed payload so the page can keep polling.
func (h *handler) dashboardData(c echo.Context) error {
	now := h.now()
	data, err := h.svc.Dashboard.Data(c.Request().Context())
	if err != nil {
		metrics.RecordDashboardFailure()
		h.logger.WithError(err).WithFields(log.Fields{"endpoint": "dashboard_data"}).Error("dashboard data failed")
		return c.JSON(http.StatusInternalServerError, dashboardResponse{
			Success:   false,
			Error:     err.Error(),
			Data:      service.ZeroData(),
			Timestamp: now.Format(time.RFC3339Nano),
		})
	}
	return c.JSON(http.StatusOK, dashboardResponse{
		Success:   true,
		Data:      data,
		Timestamp: now.Format(time.RFC3339Nano),
	})
}

type activityFailure struct {
	Error   string             `json:"error"`
	Results []service.Activity `json:"results"`
}

func (h *handler) recentActivity(c echo.Context) error {
	feed, err := h.svc.Dashboard.RecentActivity(c.Request().Context(), h.now())
	if err != nil {
		metrics.RecordDashboardFailure()
		h.logger.WithError(err).WithFields(log.Fields{"endpoint": "recent_activity"}).Error("recent activity failed")
		return c.JSON(http.StatusInternalServerError, activityFailure{Error: err.Error(), Results: []service.Activity{}})
	}
	return c.JSON(http.StatusOK, feed)
}
