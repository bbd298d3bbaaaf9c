package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/SergeiKhy/email-tracker/internal/models"
)

// GeoCacheRepository кэш результатов геолокации по IP.
// Повторные открытия с одного адреса не ходят к внешнему провайдеру.
type GeoCacheRepository interface {
	Get(ctx context.Context, ip string) (*models.GeoLocation, error)
	Set(ctx context.Context, ip string, geo *models.GeoLocation, ttl time.Duration) error
}

type geoCacheRepository struct {
	redis *RedisDB
}

func NewGeoCacheRepository(redis *RedisDB) GeoCacheRepository {
	return &geoCacheRepository{redis: redis}
}

func (r *geoCacheRepository) Get(ctx context.Context, ip string) (*models.GeoLocation, error) {
	data, err := r.redis.Client.Get(ctx, r.key(ip)).Bytes()
	if err != nil {
		return nil, err
	}

	var geo models.GeoLocation
	if err := json.Unmarshal(data, &geo); err != nil {
		return nil, fmt.Errorf("failed to unmarshal geo location: %w", err)
	}

	return &geo, nil
}

func (r *geoCacheRepository) Set(ctx context.Context, ip string, geo *models.GeoLocation, ttl time.Duration) error {
	data, err := json.Marshal(geo)
	if err != nil {
		return fmt.Errorf("failed to marshal geo location: %w", err)
	}

	return r.redis.Client.Set(ctx, r.key(ip), data, ttl).Err()
}

func (r *geoCacheRepository) key(ip string) string {
	return "geo:" + ip
}
