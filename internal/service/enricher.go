package service

import (
	"context"
	"net"
	"time"

	"github.com/SergeiKhy/email-tracker/internal/geo"
	"github.com/SergeiKhy/email-tracker/internal/models"
	"github.com/SergeiKhy/email-tracker/internal/repository"
	"go.uber.org/zap"
)

// Enricher геообогащение событий по IP источника.
// Приватные и loopback адреса не уходят к внешнему провайдеру,
// ошибка lookup-а никогда не блокирует запись события.
type Enricher struct {
	locator  geo.Locator
	cache    repository.GeoCacheRepository
	cacheTTL time.Duration
	logger   *zap.Logger
}

func NewEnricher(
	locator geo.Locator,
	cache repository.GeoCacheRepository,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *Enricher {
	return &Enricher{
		locator:  locator,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// Enrich возвращает геоданные (или nil) и статус обогащения
func (e *Enricher) Enrich(ctx context.Context, ip string) (*models.GeoLocation, string) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		e.logger.Debug("Unparseable source IP, skipping geo lookup", zap.String("ip", ip))
		return nil, models.GeoStatusLookupFailed
	}

	if isLocalAddress(parsed) {
		return nil, models.GeoStatusLocalAddress
	}

	// Сначала кэш
	if e.cache != nil {
		if cached, err := e.cache.Get(ctx, ip); err == nil {
			return cached, models.GeoStatusOK
		}
	}

	location, err := e.locator.FetchByIP(ctx, ip)
	if err != nil {
		e.logger.Warn("Geo lookup failed", zap.String("ip", ip), zap.Error(err))
		return nil, models.GeoStatusLookupFailed
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, ip, location, e.cacheTTL); err != nil {
			e.logger.Debug("Failed to cache geo location", zap.String("ip", ip), zap.Error(err))
		}
	}

	return location, models.GeoStatusOK
}

// isLocalAddress проверяет диапазоны, для которых внешний lookup бессмысленен
func isLocalAddress(ip net.IP) bool {
	return ip.IsPrivate() || ip.IsLoopback() || ip.IsUnspecified() || ip.IsLinkLocalUnicast()
}
