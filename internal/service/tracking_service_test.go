package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/SergeiKhy/email-tracker/internal/models"
	"github.com/SergeiKhy/email-tracker/internal/service"
	"github.com/SergeiKhy/email-tracker/internal/service/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testBaseURL = "https://track.example.com"
	proxyUA     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) via ggpht.com GoogleImageProxy"
	browserUA   = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
)

// setupTrackingService создаёт тестовое окружение с моковыми репозиториями
func setupTrackingService(confirmProxyOnly bool) (service.TrackingService, *mocks.MockEventRepository, *mocks.MockSummaryRepository, *mocks.FakeLocator) {
	eventRepo := mocks.NewMockEventRepository()
	summaryRepo := mocks.NewMockSummaryRepository()
	locator := &mocks.FakeLocator{}
	logger, _ := zap.NewDevelopment()

	enricher := service.NewEnricher(locator, nil, 0, logger)
	trackingService := service.NewTrackingService(
		eventRepo, summaryRepo, enricher,
		testBaseURL, confirmProxyOnly, logger,
	)
	return trackingService, eventRepo, summaryRepo, locator
}

// TestTrackingService_NewTrackingID проверяет уникальность идентификаторов
func TestTrackingService_NewTrackingID(t *testing.T) {
	trackingService, _, _, _ := setupTrackingService(true)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := trackingService.NewTrackingID()
		assert.NotEmpty(t, id)
		assert.NotContains(t, seen, id, "Идентификаторы должны быть уникальными")
		seen[id] = true
	}
}

// TestTrackingService_ConfirmationURL проверяет сборку URL второго хопа
func TestTrackingService_ConfirmationURL(t *testing.T) {
	trackingService, _, _, _ := setupTrackingService(true)

	trackingID := trackingService.NewTrackingID()
	first := trackingService.ConfirmationURL(trackingID)
	second := trackingService.ConfirmationURL(trackingID)

	prefix := fmt.Sprintf("%s/track-final/%s/", testBaseURL, trackingID)
	assert.True(t, strings.HasPrefix(first, prefix), "URL должен вести на /track-final с тем же tracking id")
	assert.NotEmpty(t, strings.TrimPrefix(first, prefix), "Attempt id не должен быть пустым")

	// Attempt id обязан отличаться между вызовами
	assert.NotEqual(t, first, second)
}

// TestTrackingService_ConfirmOpen_ProxyConfirmed проверяет подтверждённое открытие
func TestTrackingService_ConfirmOpen_ProxyConfirmed(t *testing.T) {
	trackingService, eventRepo, summaryRepo, _ := setupTrackingService(true)

	ctx := context.Background()
	event, err := trackingService.ConfirmOpen(ctx, &models.OpenRequest{
		TrackingID: "tid-1",
		AttemptID:  "attempt-1",
		IPAddress:  "8.8.8.8",
		UserAgent:  proxyUA,
	})

	require.NoError(t, err)
	assert.True(t, event.Confirmed)
	assert.Equal(t, models.GeoStatusOK, event.GeoStatus)
	require.NotNil(t, event.Geo)
	assert.Equal(t, 1, eventRepo.OpenCount())

	summary, err := summaryRepo.GetByTrackingID(ctx, "tid-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.OpenCount)
	require.NotNil(t, summary.FirstOpenedAt)
	require.NotNil(t, summary.LastOpenedAt)
	assert.Equal(t, *summary.FirstOpenedAt, *summary.LastOpenedAt,
		"После первого открытия first_opened_at и last_opened_at совпадают")
}

// TestTrackingService_ConfirmOpen_NonProxyIgnored проверяет, что user-agent
// без сигнатуры прокси не попадает в счётчики, но пишется в журнал
func TestTrackingService_ConfirmOpen_NonProxyIgnored(t *testing.T) {
	trackingService, eventRepo, summaryRepo, locator := setupTrackingService(true)

	ctx := context.Background()
	event, err := trackingService.ConfirmOpen(ctx, &models.OpenRequest{
		TrackingID: "tid-1",
		AttemptID:  "attempt-1",
		IPAddress:  "8.8.8.8",
		UserAgent:  browserUA,
	})

	require.NoError(t, err)
	assert.False(t, event.Confirmed)
	assert.Equal(t, models.GeoStatusSkipped, event.GeoStatus)
	assert.Nil(t, event.Geo)

	// Событие записано для аудита
	assert.Equal(t, 1, eventRepo.OpenCount())
	// Но сводка не создана и геолокация не запрашивалась
	_, err = summaryRepo.GetByTrackingID(ctx, "tid-1")
	assert.Error(t, err)
	assert.Equal(t, 0, locator.Calls())
}

// TestTrackingService_ConfirmOpen_LegacyPolicy проверяет легаси-режим,
// где любой второй хоп считается подтверждённым
func TestTrackingService_ConfirmOpen_LegacyPolicy(t *testing.T) {
	trackingService, _, summaryRepo, _ := setupTrackingService(false)

	ctx := context.Background()
	event, err := trackingService.ConfirmOpen(ctx, &models.OpenRequest{
		TrackingID: "tid-legacy",
		AttemptID:  "attempt-1",
		IPAddress:  "8.8.8.8",
		UserAgent:  browserUA,
	})

	require.NoError(t, err)
	assert.True(t, event.Confirmed)

	summary, err := summaryRepo.GetByTrackingID(ctx, "tid-legacy")
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.OpenCount)
}

// TestTrackingService_ConfirmOpen_PrivateIP проверяет, что для приватных
// адресов внешний lookup не вызывается
func TestTrackingService_ConfirmOpen_PrivateIP(t *testing.T) {
	trackingService, _, _, locator := setupTrackingService(true)

	privateIPs := []string{"192.168.1.10", "10.0.0.5", "127.0.0.1"}
	for _, ip := range privateIPs {
		event, err := trackingService.ConfirmOpen(context.Background(), &models.OpenRequest{
			TrackingID: "tid-private",
			AttemptID:  "attempt-1",
			IPAddress:  ip,
			UserAgent:  proxyUA,
		})

		require.NoError(t, err)
		assert.True(t, event.Confirmed)
		assert.Equal(t, models.GeoStatusLocalAddress, event.GeoStatus, "IP: %s", ip)
		assert.Nil(t, event.Geo)
	}

	assert.Equal(t, 0, locator.Calls(), "Приватные адреса не должны уходить к провайдеру")
}

// TestTrackingService_ConfirmOpen_LookupFailure проверяет, что ошибка
// геолокации не блокирует запись события и инкремент сводки
func TestTrackingService_ConfirmOpen_LookupFailure(t *testing.T) {
	trackingService, eventRepo, summaryRepo, locator := setupTrackingService(true)
	locator.Err = errors.New("provider unavailable")

	ctx := context.Background()
	event, err := trackingService.ConfirmOpen(ctx, &models.OpenRequest{
		TrackingID: "tid-geo-fail",
		AttemptID:  "attempt-1",
		IPAddress:  "8.8.8.8",
		UserAgent:  proxyUA,
	})

	require.NoError(t, err)
	assert.True(t, event.Confirmed)
	assert.Equal(t, models.GeoStatusLookupFailed, event.GeoStatus)
	assert.Nil(t, event.Geo)
	assert.Equal(t, 1, eventRepo.OpenCount())

	summary, err := summaryRepo.GetByTrackingID(ctx, "tid-geo-fail")
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.OpenCount)
}

// TestTrackingService_ConfirmOpen_RepeatedOpens проверяет монотонность
// счётчика и стабильность first_opened_at
func TestTrackingService_ConfirmOpen_RepeatedOpens(t *testing.T) {
	trackingService, _, summaryRepo, _ := setupTrackingService(true)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := trackingService.ConfirmOpen(ctx, &models.OpenRequest{
			TrackingID: "tid-repeat",
			AttemptID:  fmt.Sprintf("attempt-%d", i),
			IPAddress:  "8.8.8.8",
			UserAgent:  proxyUA,
		})
		require.NoError(t, err)
	}

	summary, err := summaryRepo.GetByTrackingID(ctx, "tid-repeat")
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.OpenCount)
	require.NotNil(t, summary.FirstOpenedAt)
	require.NotNil(t, summary.LastOpenedAt)
	assert.False(t, summary.LastOpenedAt.Before(*summary.FirstOpenedAt))
}

// TestTrackingService_ConcurrentOpens проверяет отсутствие потерянных
// инкрементов при параллельных подтверждённых открытиях
func TestTrackingService_ConcurrentOpens(t *testing.T) {
	trackingService, _, summaryRepo, _ := setupTrackingService(true)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_, err := trackingService.ConfirmOpen(context.Background(), &models.OpenRequest{
				TrackingID: "tid-concurrent",
				AttemptID:  fmt.Sprintf("attempt-%d", id),
				IPAddress:  "192.168.1.1",
				UserAgent:  proxyUA,
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	summary, err := summaryRepo.GetByTrackingID(context.Background(), "tid-concurrent")
	require.NoError(t, err)
	assert.Equal(t, int64(n), summary.OpenCount)
}

// TestTrackingService_ConfirmOpen_StorageFailure проверяет, что ошибка
// хранилища возвращается вызывающей стороне вместе с событием
func TestTrackingService_ConfirmOpen_StorageFailure(t *testing.T) {
	trackingService, eventRepo, _, _ := setupTrackingService(true)
	eventRepo.FailWith = errors.New("db down")

	event, err := trackingService.ConfirmOpen(context.Background(), &models.OpenRequest{
		TrackingID: "tid-fail",
		AttemptID:  "attempt-1",
		IPAddress:  "192.168.1.1",
		UserAgent:  proxyUA,
	})

	assert.Error(t, err)
	assert.NotNil(t, event, "Событие возвращается для логирования даже при ошибке записи")
}
