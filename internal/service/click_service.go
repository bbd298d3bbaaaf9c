package service

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/SergeiKhy/email-tracker/internal/models"
	"github.com/SergeiKhy/email-tracker/internal/repository"
	"go.uber.org/zap"
)

// Ошибки валидации клика
var (
	ErrMissingTrackingID  = errors.New("tracking id is required")
	ErrMissingDestination = errors.New("destination url is required")
	ErrInvalidDestination = errors.New("destination url must be http or https")
)

// Guard от open-redirect: только http/https назначения.
// Проверка заведомо слабая (хост не ограничен) — граница доверия
// источника не специфицирована, см. DESIGN.md.
var destinationPattern = regexp.MustCompile(`^https?://[^\s]+$`)

// ClickService запись кликов по обёрнутым ссылкам.
// Валидация синхронная (на неё завязан HTTP-статус), сама запись
// выполняется процессором после того, как редирект уже отдан.
type ClickService interface {
	Validate(req *models.ClickRequest) error
	Process(ctx context.Context, req *models.ClickRequest) (*models.ClickEvent, error)
}

type clickService struct {
	eventRepo   repository.EventRepository
	summaryRepo repository.SummaryRepository
	enricher    *Enricher
	logger      *zap.Logger
}

func NewClickService(
	eventRepo repository.EventRepository,
	summaryRepo repository.SummaryRepository,
	enricher *Enricher,
	logger *zap.Logger,
) ClickService {
	return &clickService{
		eventRepo:   eventRepo,
		summaryRepo: summaryRepo,
		enricher:    enricher,
		logger:      logger,
	}
}

func (s *clickService) Validate(req *models.ClickRequest) error {
	if req.TrackingID == "" {
		return ErrMissingTrackingID
	}
	if req.DestinationURL == "" {
		return ErrMissingDestination
	}
	if !destinationPattern.MatchString(req.DestinationURL) {
		return ErrInvalidDestination
	}
	return nil
}

// Process обогащает, пишет ClickEvent и инкрементирует click_count.
// Set-on-insert таймстемпов здесь нет — ими владеет open-трекинг.
func (s *clickService) Process(ctx context.Context, req *models.ClickRequest) (*models.ClickEvent, error) {
	now := time.Now().UTC()

	event := &models.ClickEvent{
		TrackingID:     req.TrackingID,
		DestinationURL: req.DestinationURL,
		IPAddress:      req.IPAddress,
		UserAgent:      req.UserAgent,
		ClickedAt:      now,
	}
	event.Geo, event.GeoStatus = s.enricher.Enrich(ctx, req.IPAddress)

	if err := s.eventRepo.InsertClick(ctx, event); err != nil {
		return event, err
	}

	if err := s.summaryRepo.RecordClick(ctx, event.TrackingID, now); err != nil {
		return event, err
	}

	s.logger.Info("Click recorded",
		zap.String("tracking_id", req.TrackingID),
		zap.String("destination", req.DestinationURL),
	)

	return event, nil
}
