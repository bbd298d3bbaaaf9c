package service

import (
	"context"
	"sync"
	"time"

	"github.com/SergeiKhy/email-tracker/internal/models"
	"go.uber.org/zap"
)

// Константы worker pool
const (
	defaultWorkerCount   = 3    // Количество воркеров
	defaultChannelBuffer = 1000 // Размер буфера канала
	processTimeout       = 10 * time.Second
)

// ClickProcessor асинхронная запись кликов через worker pool.
// Редирект на назначение уходит сразу, запись (включая геообогащение)
// выполняется в фоне: трекинг не имеет права задерживать навигацию.
type ClickProcessor interface {
	Start()
	Stop()
	Enqueue(ctx context.Context, req *models.ClickRequest) error
}

type clickProcessor struct {
	clicks       ClickService
	logger       *zap.Logger
	clickChannel chan *models.ClickRequest
	workerCount  int
	wg           sync.WaitGroup
}

func NewClickProcessor(clicks ClickService, logger *zap.Logger) ClickProcessor {
	return &clickProcessor{
		clicks:       clicks,
		logger:       logger,
		clickChannel: make(chan *models.ClickRequest, defaultChannelBuffer),
		workerCount:  defaultWorkerCount,
	}
}

// Start запускает worker pool
func (p *clickProcessor) Start() {
	p.logger.Info("Starting click processor workers", zap.Int("count", p.workerCount))

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop корректно останавливает worker pool, дообработав буфер
func (p *clickProcessor) Stop() {
	p.logger.Info("Stopping click processor...")
	close(p.clickChannel)
	p.wg.Wait()
	p.logger.Info("Click processor stopped")
}

// worker обрабатывает события кликов из канала
func (p *clickProcessor) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("Click worker started", zap.Int("id", id))

	for req := range p.clickChannel {
		p.processClick(req)
	}

	p.logger.Debug("Click worker stopped", zap.Int("id", id))
}

// processClick выполняет запись одного клика.
// Ошибки записи логируются и глотаются: пользователь уже ушёл по ссылке.
func (p *clickProcessor) processClick(req *models.ClickRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
	defer cancel()

	if _, err := p.clicks.Process(ctx, req); err != nil {
		p.logger.Error("Failed to record click",
			zap.String("tracking_id", req.TrackingID),
			zap.String("destination", req.DestinationURL),
			zap.Error(err),
		)
	}
}

// Enqueue отправляет клик в worker pool (неблокирующая операция)
func (p *clickProcessor) Enqueue(ctx context.Context, req *models.ClickRequest) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.clickChannel <- req:
		return nil
	default:
		// Канал заполнен: событие теряем, но запрос не задерживаем
		p.logger.Warn("Click channel buffer full, event dropped",
			zap.String("tracking_id", req.TrackingID),
		)
		return nil
	}
}
