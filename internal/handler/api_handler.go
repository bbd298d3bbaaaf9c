package handler

import (
	"errors"
	"net/http"

	"github.com/SergeiKhy/email-tracker/internal/repository"
	"github.com/SergeiKhy/email-tracker/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// APIHandler read-эндпоинты статистики и генерация идентификаторов
type APIHandler struct {
	tracking service.TrackingService
	stats    service.StatsService
	logger   *zap.Logger
}

func NewAPIHandler(tracking service.TrackingService, stats service.StatsService, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		tracking: tracking,
		stats:    stats,
		logger:   logger,
	}
}

// NewID godoc
// @Summary Generate a tracking identifier
// @Description Returns a fresh opaque tracking id. Nothing is persisted until the first event arrives.
// @Tags api
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/new-id [get]
func (h *APIHandler) NewID(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"tracking_id": h.tracking.NewTrackingID(),
	})
}

// GetOpens godoc
// @Summary List open events
// @Description All open events, newest first, optionally filtered by tracking id.
// @Tags api
// @Produce json
// @Param id query string false "Tracking identifier"
// @Success 200 {object} map[string][]models.OpenEvent
// @Failure 500 {object} ErrorResponse
// @Router /api/opens [get]
func (h *APIHandler) GetOpens(c *gin.Context) {
	opens, err := h.stats.GetOpens(c.Request.Context(), c.Query("id"))
	if err != nil {
		h.logger.Error("Failed to list opens", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to list opens",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"opens": opens})
}

// GetStats godoc
// @Summary Aggregate statistics
// @Description Totals over all tracking summaries.
// @Tags api
// @Produce json
// @Success 200 {object} models.Stats
// @Failure 500 {object} ErrorResponse
// @Router /api/stats [get]
func (h *APIHandler) GetStats(c *gin.Context) {
	stats, err := h.stats.GetStats(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to get stats",
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetDetails godoc
// @Summary Per-identifier details
// @Description Tracking summary merged with its confirmed opens and clicks.
// @Tags api
// @Produce json
// @Param trackingID path string true "Tracking identifier"
// @Success 200 {object} models.TrackingDetails
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/details/{trackingID} [get]
func (h *APIHandler) GetDetails(c *gin.Context) {
	trackingID := c.Param("trackingID")

	details, err := h.stats.GetDetails(c.Request.Context(), trackingID)
	if err != nil {
		if errors.Is(err, repository.ErrSummaryNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Unknown tracking identifier",
			})
			return
		}
		h.logger.Error("Failed to get details", zap.String("tracking_id", trackingID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to get details",
		})
		return
	}

	c.JSON(http.StatusOK, details)
}

// Home сервисный баннер с картой эндпоинтов
func (h *APIHandler) Home(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Email Open Tracker API is running",
		"endpoints": gin.H{
			"track":       "/track?id=<tracking_id>",
			"track_final": "/track-final/<tracking_id>/<attempt_id>",
			"click":       "/click?uid=<tracking_id>&url=<destination>",
			"new_id":      "/api/new-id",
			"opens":       "/api/opens?id=<optional tracking_id>",
			"stats":       "/api/stats",
			"details":     "/api/details/<tracking_id>",
		},
	})
}

// HealthCheck godoc
// @Summary Health check
// @Tags api
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/health [get]
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "email-tracker",
	})
}
