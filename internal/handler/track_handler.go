package handler

import (
	"encoding/base64"
	"net"
	"net/http"
	"strings"

	"github.com/SergeiKhy/email-tracker/internal/models"
	"github.com/SergeiKhy/email-tracker/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 1×1 прозрачный PNG, 67 байт. Тот же constant, что вшивается в письма.
var transparentPNG = func() []byte {
	data, err := base64.StdEncoding.DecodeString(
		"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==")
	if err != nil {
		panic(err)
	}
	return data
}()

// TrackHandler пиксельные и click-эндпоинты.
// /track и /track-final обязаны отвечать пикселем при любой внутренней
// ошибке: битая картинка в письме недопустима. /click обязан отдать
// редирект, даже если запись клика не удалась.
type TrackHandler struct {
	tracking       service.TrackingService
	clicks         service.ClickService
	clickProcessor service.ClickProcessor
	logger         *zap.Logger
}

func NewTrackHandler(
	tracking service.TrackingService,
	clicks service.ClickService,
	clickProcessor service.ClickProcessor,
	logger *zap.Logger,
) *TrackHandler {
	return &TrackHandler{
		tracking:       tracking,
		clicks:         clicks,
		clickProcessor: clickProcessor,
		logger:         logger,
	}
}

// TrackInitial godoc
// @Summary Initial tracking pixel hit
// @Description First hop: redirects rendering clients to the confirmation URL. Persists nothing.
// @Tags tracking
// @Produce png
// @Param id query string false "Tracking identifier"
// @Success 200 {string} binary "Transparent pixel (no id supplied)"
// @Success 307 {object} nil "Redirect to confirmation URL"
// @Router /track [get]
func (h *TrackHandler) TrackInitial(c *gin.Context) {
	trackingID := c.Query("id")
	if trackingID == "" {
		// Без id всё равно отдаём пиксель, чтобы не показать битую картинку
		h.servePixel(c)
		return
	}

	// 307 заставляет honest-клиент повторить тот же GET, а простые
	// прокси, не следующие редиректам, отваливаются на этом хопе
	c.Redirect(http.StatusTemporaryRedirect, h.tracking.ConfirmationURL(trackingID))
}

// TrackFinal godoc
// @Summary Confirmation hit
// @Description Second hop: classifies, enriches and persists the open event. Always answers with the pixel.
// @Tags tracking
// @Produce png
// @Param trackingID path string true "Tracking identifier"
// @Param attemptID path string true "Attempt identifier minted at the first hop"
// @Success 200 {string} binary "Transparent pixel"
// @Router /track-final/{trackingID}/{attemptID} [get]
func (h *TrackHandler) TrackFinal(c *gin.Context) {
	req := &models.OpenRequest{
		TrackingID: c.Param("trackingID"),
		AttemptID:  c.Param("attemptID"),
		IPAddress:  clientIP(c),
		UserAgent:  c.Request.UserAgent(),
	}

	if _, err := h.tracking.ConfirmOpen(c.Request.Context(), req); err != nil {
		// Ошибка хранилища глотается: клиент в любом случае получает пиксель
		h.logger.Error("Failed to record open",
			zap.String("tracking_id", req.TrackingID),
			zap.Error(err),
		)
	}

	h.servePixel(c)
}

// Click godoc
// @Summary Tracked link redirect
// @Description Validates parameters, queues the click event and redirects to the destination.
// @Tags tracking
// @Produce json
// @Param uid query string true "Tracking identifier"
// @Param url query string true "Destination URL (http/https)"
// @Success 307 {object} nil
// @Failure 400 {object} ErrorResponse
// @Router /click [get]
func (h *TrackHandler) Click(c *gin.Context) {
	req := &models.ClickRequest{
		TrackingID:     c.Query("uid"),
		DestinationURL: c.Query("url"),
		IPAddress:      clientIP(c),
		UserAgent:      c.Request.UserAgent(),
	}

	if err := h.clicks.Validate(req); err != nil {
		h.logger.Warn("Invalid click request", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	// Запись уходит в worker pool, навигацию не задерживаем
	if err := h.clickProcessor.Enqueue(c.Request.Context(), req); err != nil {
		h.logger.Warn("Failed to enqueue click", zap.Error(err))
	}

	c.Redirect(http.StatusTemporaryRedirect, req.DestinationURL)
}

// servePixel отдаёт пиксель с запретом кэширования, чтобы клиент
// запрашивал его при каждом открытии
func (h *TrackHandler) servePixel(c *gin.Context) {
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Data(http.StatusOK, "image/png", transparentPNG)
}

// clientIP источник запроса: первый адрес из X-Forwarded-For,
// иначе прямой peer
func clientIP(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}

	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return host
}
