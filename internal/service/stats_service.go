package service

import (
	"context"

	"github.com/SergeiKhy/email-tracker/internal/models"
	"github.com/SergeiKhy/email-tracker/internal/repository"
	"go.uber.org/zap"
)

// StatsService read-модель поверх журналов событий и сводок
type StatsService interface {
	// GetStats итог по всем сводкам: суммы счётчиков и число tracking id
	GetStats(ctx context.Context) (*models.Stats, error)
	// GetOpens все открытия по убыванию времени, опционально по одному
	// tracking id. Пагинации нет — отдаётся весь набор.
	GetOpens(ctx context.Context, trackingID string) ([]models.OpenEvent, error)
	// GetDetails сводка + подтверждённые открытия и клики по возрастанию
	// времени. repository.ErrSummaryNotFound для неизвестного id.
	GetDetails(ctx context.Context, trackingID string) (*models.TrackingDetails, error)
}

type statsService struct {
	eventRepo   repository.EventRepository
	summaryRepo repository.SummaryRepository
	logger      *zap.Logger
}

func NewStatsService(
	eventRepo repository.EventRepository,
	summaryRepo repository.SummaryRepository,
	logger *zap.Logger,
) StatsService {
	return &statsService{
		eventRepo:   eventRepo,
		summaryRepo: summaryRepo,
		logger:      logger,
	}
}

func (s *statsService) GetStats(ctx context.Context) (*models.Stats, error) {
	return s.summaryRepo.GetStats(ctx)
}

func (s *statsService) GetOpens(ctx context.Context, trackingID string) ([]models.OpenEvent, error) {
	return s.eventRepo.ListOpens(ctx, trackingID)
}

func (s *statsService) GetDetails(ctx context.Context, trackingID string) (*models.TrackingDetails, error) {
	summary, err := s.summaryRepo.GetByTrackingID(ctx, trackingID)
	if err != nil {
		return nil, err
	}

	opens, err := s.eventRepo.ListConfirmedOpens(ctx, trackingID)
	if err != nil {
		return nil, err
	}

	clicks, err := s.eventRepo.ListClicks(ctx, trackingID)
	if err != nil {
		return nil, err
	}

	return &models.TrackingDetails{
		Summary: summary,
		Opens:   opens,
		Clicks:  clicks,
	}, nil
}
