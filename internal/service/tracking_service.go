package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/SergeiKhy/email-tracker/internal/models"
	"github.com/SergeiKhy/email-tracker/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Сигнатуры image-прокси почтовых провайдеров. Совпадение по user-agent
// второго хопа означает, что письмо отрисовал настоящий почтовый клиент,
// а не окно предпросмотра отправителя и не сканирующий прокси,
// остановившийся на первом хопе. Generic "ImageProxy" закрывает
// менее известных провайдеров.
var proxyUserAgentMarkers = []string{
	"GoogleImageProxy",
	"YahooMailProxy",
	"ImageProxy",
}

// TrackingService двухшаговый протокол подтверждения открытий.
//
// Первый хоп (/track) только выдаёт 307 редирект на confirmation URL и
// ничего не персистит: простые прокси редиректы не следуют и отсеиваются.
// Второй хоп (/track-final) классифицируется, обогащается и пишется в
// журнал; подтверждённые открытия атомарно инкрементируют сводку.
type TrackingService interface {
	// NewTrackingID выдаёт новый opaque идентификатор письма.
	// Ничего не персистит: сводка создаётся лениво первым событием.
	NewTrackingID() string
	// NewAttemptID выдаёт идентификатор одного redirect-хопа.
	// Живёт только внутри URL второго хопа, никогда не сохраняется.
	NewAttemptID() string
	// ConfirmationURL собирает абсолютный URL второго хопа
	// со свежим attempt id
	ConfirmationURL(trackingID string) string
	// ConfirmOpen обрабатывает второй хоп: классификация, обогащение,
	// запись события и (для подтверждённых) инкремент сводки.
	// Событие возвращается и при ошибке записи — для логирования.
	ConfirmOpen(ctx context.Context, req *models.OpenRequest) (*models.OpenEvent, error)
}

type trackingService struct {
	eventRepo        repository.EventRepository
	summaryRepo      repository.SummaryRepository
	enricher         *Enricher
	baseURL          string
	confirmProxyOnly bool
	logger           *zap.Logger
}

func NewTrackingService(
	eventRepo repository.EventRepository,
	summaryRepo repository.SummaryRepository,
	enricher *Enricher,
	baseURL string,
	confirmProxyOnly bool,
	logger *zap.Logger,
) TrackingService {
	return &trackingService{
		eventRepo:        eventRepo,
		summaryRepo:      summaryRepo,
		enricher:         enricher,
		baseURL:          strings.TrimSuffix(baseURL, "/"),
		confirmProxyOnly: confirmProxyOnly,
		logger:           logger,
	}
}

func (s *trackingService) NewTrackingID() string {
	return uuid.NewString()
}

func (s *trackingService) NewAttemptID() string {
	return uuid.NewString()
}

func (s *trackingService) ConfirmationURL(trackingID string) string {
	return fmt.Sprintf("%s/track-final/%s/%s", s.baseURL, trackingID, s.NewAttemptID())
}

func (s *trackingService) ConfirmOpen(ctx context.Context, req *models.OpenRequest) (*models.OpenEvent, error) {
	now := time.Now().UTC()

	confirmed := true
	if s.confirmProxyOnly {
		confirmed = isProxyUserAgent(req.UserAgent)
	}

	event := &models.OpenEvent{
		TrackingID: req.TrackingID,
		IPAddress:  req.IPAddress,
		UserAgent:  req.UserAgent,
		Confirmed:  confirmed,
		GeoStatus:  models.GeoStatusSkipped,
		OpenedAt:   now,
	}

	// Обогащаем только подтверждённые открытия
	if confirmed {
		event.Geo, event.GeoStatus = s.enricher.Enrich(ctx, req.IPAddress)
	} else {
		s.logger.Info("Open not confirmed, excluded from counters",
			zap.String("tracking_id", req.TrackingID),
			zap.String("user_agent", req.UserAgent),
		)
	}

	// Событие пишется всегда, подтверждённое или нет
	if err := s.eventRepo.InsertOpen(ctx, event); err != nil {
		return event, err
	}

	if confirmed {
		if err := s.summaryRepo.RecordOpen(ctx, event.TrackingID, now); err != nil {
			return event, err
		}
		s.logger.Info("Confirmed open recorded",
			zap.String("tracking_id", req.TrackingID),
			zap.String("ip", req.IPAddress),
		)
	}

	return event, nil
}

// isProxyUserAgent проверяет user-agent на сигнатуру известного image-прокси
func isProxyUserAgent(userAgent string) bool {
	for _, marker := range proxyUserAgentMarkers {
		if strings.Contains(userAgent, marker) {
			return true
		}
	}
	return false
}
