package handler

import (
	"net/http"

	"github.com/SergeiKhy/geolink/internal/middleware"
	"github.com/SergeiKhy/geolink/internal/response"
	"github.com/SergeiKhy/geolink/internal/service"
	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	analytics  service.AnalyticsService
	activities service.ActivityService
}

func NewDashboardHandler(analytics service.AnalyticsService, activities service.ActivityService) *DashboardHandler {
	return &DashboardHandler{analytics: analytics, activities: activities}
}

func (h *DashboardHandler) Stats(c *gin.Context) {
	userID, _ := middleware.UserIDFromContext(c)

	stats, err := h.analytics.Stats(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, response.OK(stats, "Stats fetched successfully"))
}

func (h *DashboardHandler) Activities(c *gin.Context) {
	userID, _ := middleware.UserIDFromContext(c)

	activities, err := h.activities.Recent(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, response.OK(activities, "Activities fetched successfully"))
}

func (h *DashboardHandler) GeoStats(c *gin.Context) {
	userID, _ := middleware.UserIDFromContext(c)

	stats, err := h.analytics.GeoStats(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, response.OK(stats, "Geo stats fetched successfully"))
}
