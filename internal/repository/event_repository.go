package repository

import (
	"context"
	"fmt"

	"github.com/SergeiKhy/email-tracker/internal/models"
	"github.com/jackc/pgx/v5"
)

// EventRepository append-only журнал открытий и кликов.
// События никогда не изменяются и не удаляются.
type EventRepository interface {
	InsertOpen(ctx context.Context, event *models.OpenEvent) error
	InsertClick(ctx context.Context, event *models.ClickEvent) error
	// ListOpens возвращает открытия по убыванию времени.
	// Пустой trackingID — все открытия без фильтра.
	ListOpens(ctx context.Context, trackingID string) ([]models.OpenEvent, error)
	// ListConfirmedOpens возвращает только подтверждённые открытия по возрастанию времени
	ListConfirmedOpens(ctx context.Context, trackingID string) ([]models.OpenEvent, error)
	// ListClicks возвращает клики по возрастанию времени
	ListClicks(ctx context.Context, trackingID string) ([]models.ClickEvent, error)
}

type eventRepository struct {
	db *PostgresDB
}

func NewEventRepository(db *PostgresDB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) InsertOpen(ctx context.Context, event *models.OpenEvent) error {
	query := `
		INSERT INTO open_events (tracking_id, ip_address, user_agent, confirmed, country, city, region, isp, geo_status, opened_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	geo := event.Geo
	if geo == nil {
		geo = &models.GeoLocation{}
	}

	err := r.db.Pool.QueryRow(ctx, query,
		event.TrackingID,
		event.IPAddress,
		event.UserAgent,
		event.Confirmed,
		geo.Country,
		geo.City,
		geo.Region,
		geo.ISP,
		event.GeoStatus,
		event.OpenedAt,
	).Scan(&event.ID)

	if err != nil {
		return fmt.Errorf("failed to insert open event: %w", err)
	}

	return nil
}

func (r *eventRepository) InsertClick(ctx context.Context, event *models.ClickEvent) error {
	query := `
		INSERT INTO click_events (tracking_id, destination_url, ip_address, user_agent, country, city, region, isp, geo_status, clicked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	geo := event.Geo
	if geo == nil {
		geo = &models.GeoLocation{}
	}

	err := r.db.Pool.QueryRow(ctx, query,
		event.TrackingID,
		event.DestinationURL,
		event.IPAddress,
		event.UserAgent,
		geo.Country,
		geo.City,
		geo.Region,
		geo.ISP,
		event.GeoStatus,
		event.ClickedAt,
	).Scan(&event.ID)

	if err != nil {
		return fmt.Errorf("failed to insert click event: %w", err)
	}

	return nil
}

func (r *eventRepository) ListOpens(ctx context.Context, trackingID string) ([]models.OpenEvent, error) {
	query := `
		SELECT id, tracking_id, ip_address, user_agent, confirmed, country, city, region, isp, geo_status, opened_at
		FROM open_events
	`
	args := []any{}
	if trackingID != "" {
		query += ` WHERE tracking_id = $1`
		args = append(args, trackingID)
	}
	query += ` ORDER BY opened_at DESC`

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list opens: %w", err)
	}
	defer rows.Close()

	return scanOpenEvents(rows)
}

func (r *eventRepository) ListConfirmedOpens(ctx context.Context, trackingID string) ([]models.OpenEvent, error) {
	query := `
		SELECT id, tracking_id, ip_address, user_agent, confirmed, country, city, region, isp, geo_status, opened_at
		FROM open_events
		WHERE tracking_id = $1 AND confirmed = TRUE
		ORDER BY opened_at ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, trackingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list confirmed opens: %w", err)
	}
	defer rows.Close()

	return scanOpenEvents(rows)
}

func (r *eventRepository) ListClicks(ctx context.Context, trackingID string) ([]models.ClickEvent, error) {
	query := `
		SELECT id, tracking_id, destination_url, ip_address, user_agent, country, city, region, isp, geo_status, clicked_at
		FROM click_events
		WHERE tracking_id = $1
		ORDER BY clicked_at ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, trackingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clicks: %w", err)
	}
	defer rows.Close()

	events := []models.ClickEvent{}
	for rows.Next() {
		var event models.ClickEvent
		var geo models.GeoLocation
		if err := rows.Scan(
			&event.ID,
			&event.TrackingID,
			&event.DestinationURL,
			&event.IPAddress,
			&event.UserAgent,
			&geo.Country,
			&geo.City,
			&geo.Region,
			&geo.ISP,
			&event.GeoStatus,
			&event.ClickedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan click event: %w", err)
		}
		if geo != (models.GeoLocation{}) {
			event.Geo = &geo
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating clicks: %w", err)
	}

	return events, nil
}

func scanOpenEvents(rows pgx.Rows) ([]models.OpenEvent, error) {
	events := []models.OpenEvent{}
	for rows.Next() {
		var event models.OpenEvent
		var geo models.GeoLocation
		if err := rows.Scan(
			&event.ID,
			&event.TrackingID,
			&event.IPAddress,
			&event.UserAgent,
			&event.Confirmed,
			&geo.Country,
			&geo.City,
			&geo.Region,
			&geo.ISP,
			&event.GeoStatus,
			&event.OpenedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan open event: %w", err)
		}
		if geo != (models.GeoLocation{}) {
			event.Geo = &geo
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating opens: %w", err)
	}

	return events, nil
}
