package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SergeiKhy/email-tracker/internal/models"
	"github.com/jackc/pgx/v5"
)

var ErrSummaryNotFound = errors.New("tracking summary not found")

// SummaryRepository агрегат TrackingSummary с атомарным
// upsert-with-increment: инкремент счётчика и set-on-insert полей
// выполняются одним оператором, без read-modify-write в сервисном слое.
type SummaryRepository interface {
	RecordOpen(ctx context.Context, trackingID string, openedAt time.Time) error
	RecordClick(ctx context.Context, trackingID string, clickedAt time.Time) error
	GetByTrackingID(ctx context.Context, trackingID string) (*models.TrackingSummary, error)
	GetStats(ctx context.Context) (*models.Stats, error)
}

type summaryRepository struct {
	db *PostgresDB
}

func NewSummaryRepository(db *PostgresDB) SummaryRepository {
	return &summaryRepository{db: db}
}

// RecordOpen инкрементирует open_count и обновляет last_opened_at.
// first_opened_at и created_at выставляются только при создании строки;
// COALESCE закрывает случай, когда сводка была создана кликом и
// first_opened_at ещё пуст.
func (r *summaryRepository) RecordOpen(ctx context.Context, trackingID string, openedAt time.Time) error {
	query := `
		INSERT INTO tracking_summaries (tracking_id, open_count, click_count, first_opened_at, last_opened_at, created_at)
		VALUES ($1, 1, 0, $2, $2, $2)
		ON CONFLICT (tracking_id) DO UPDATE SET
			open_count      = tracking_summaries.open_count + 1,
			last_opened_at  = EXCLUDED.last_opened_at,
			first_opened_at = COALESCE(tracking_summaries.first_opened_at, EXCLUDED.first_opened_at)
	`

	if _, err := r.db.Pool.Exec(ctx, query, trackingID, openedAt); err != nil {
		return fmt.Errorf("failed to record open: %w", err)
	}

	return nil
}

// RecordClick инкрементирует click_count. Таймстемпы открытий
// принадлежат open-трекингу и здесь не трогаются.
func (r *summaryRepository) RecordClick(ctx context.Context, trackingID string, clickedAt time.Time) error {
	query := `
		INSERT INTO tracking_summaries (tracking_id, open_count, click_count, created_at)
		VALUES ($1, 0, 1, $2)
		ON CONFLICT (tracking_id) DO UPDATE SET
			click_count = tracking_summaries.click_count + 1
	`

	if _, err := r.db.Pool.Exec(ctx, query, trackingID, clickedAt); err != nil {
		return fmt.Errorf("failed to record click: %w", err)
	}

	return nil
}

func (r *summaryRepository) GetByTrackingID(ctx context.Context, trackingID string) (*models.TrackingSummary, error) {
	query := `
		SELECT tracking_id, open_count, click_count, first_opened_at, last_opened_at, created_at
		FROM tracking_summaries
		WHERE tracking_id = $1
	`

	summary := &models.TrackingSummary{}
	err := r.db.Pool.QueryRow(ctx, query, trackingID).Scan(
		&summary.TrackingID,
		&summary.OpenCount,
		&summary.ClickCount,
		&summary.FirstOpenedAt,
		&summary.LastOpenedAt,
		&summary.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSummaryNotFound
		}
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}

	return summary, nil
}

func (r *summaryRepository) GetStats(ctx context.Context) (*models.Stats, error) {
	query := `
		SELECT
			COALESCE(SUM(open_count), 0)  AS total_opens,
			COALESCE(SUM(click_count), 0) AS total_clicks,
			COUNT(*)                      AS unique_tracking_ids
		FROM tracking_summaries
	`

	stats := &models.Stats{}
	err := r.db.Pool.QueryRow(ctx, query).Scan(
		&stats.TotalOpens,
		&stats.TotalClicks,
		&stats.UniqueTrackingIDs,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	return stats, nil
}
