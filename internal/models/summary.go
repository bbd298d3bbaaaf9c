package models

import (
	"time"
)

// TrackingSummary агрегат по одному tracking_id.
// Инвариант: OpenCount равен числу подтверждённых OpenEvent,
// ClickCount равен числу ClickEvent.
type TrackingSummary struct {
	TrackingID    string     `json:"tracking_id"`
	OpenCount     int64      `json:"open_count"`
	ClickCount    int64      `json:"click_count"`
	FirstOpenedAt *time.Time `json:"first_opened_at,omitempty"`
	LastOpenedAt  *time.Time `json:"last_opened_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Stats итоговая статистика по всем сводкам
type Stats struct {
	TotalOpens        int64 `json:"total_opens"`
	TotalClicks       int64 `json:"total_clicks"`
	UniqueTrackingIDs int64 `json:"unique_tracking_ids"`
}

// TrackingDetails сводка вместе с событиями для одного tracking_id:
// подтверждённые открытия и клики по возрастанию времени.
type TrackingDetails struct {
	Summary *TrackingSummary `json:"summary"`
	Opens   []OpenEvent      `json:"opens"`
	Clicks  []ClickEvent     `json:"clicks"`
}
