package handler

import (
	"github.com/SergeiKhy/email-tracker/internal/middleware"
	"github.com/SergeiKhy/email-tracker/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func NewRouter(
	trackingService service.TrackingService,
	clickService service.ClickService,
	clickProcessor service.ClickProcessor,
	statsService service.StatsService,
	rateLimiter *middleware.RateLimiter,
	apiKeyMiddleware gin.HandlerFunc,
	logger *zap.Logger,
) *gin.Engine {
	router := gin.Default()

	// Middleware для логгирования
	router.Use(func(c *gin.Context) {
		logger.Info("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("ip", c.ClientIP()),
		)
		c.Next()
	})

	trackHandler := NewTrackHandler(trackingService, clickService, clickProcessor, logger)
	apiHandler := NewAPIHandler(trackingService, statsService, logger)

	// Трекинговые эндпоинты без rate limiting и без API key:
	// почтовый клиент не умеет ни ключей, ни ретраев, а 429 вместо
	// пикселя ломает картинку в письме
	router.GET("/", apiHandler.Home)
	router.GET("/track", trackHandler.TrackInitial)
	router.GET("/track-final/:trackingID/:attemptID", trackHandler.TrackFinal)
	router.GET("/click", trackHandler.Click)

	// Query API
	api := router.Group("/api")
	api.Use(rateLimiter.Middleware())
	{
		api.GET("/health", HealthCheck)

		// Применяем API Key middleware только к защищённым эндпоинтам
		if apiKeyMiddleware != nil {
			api.Use(apiKeyMiddleware)
		}

		api.GET("/new-id", apiHandler.NewID)
		api.GET("/opens", apiHandler.GetOpens)
		api.GET("/stats", apiHandler.GetStats)
		api.GET("/details/:trackingID", apiHandler.GetDetails)
	}

	return router
}
