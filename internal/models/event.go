package models

import (
	"time"
)

// Статус геообогащения события
const (
	GeoStatusOK           = "ok"            // внешний lookup успешен
	GeoStatusSkipped      = "skipped"       // обогащение не запрашивалось (неподтверждённое событие)
	GeoStatusLocalAddress = "local_address" // приватный/loopback адрес, lookup не вызывался
	GeoStatusLookupFailed = "lookup_failed" // провайдер геолокации недоступен или вернул ошибку
)

// GeoLocation метаданные геолокации, полученные по IP источника
type GeoLocation struct {
	Country string `json:"country,omitempty"`
	City    string `json:"city,omitempty"`
	Region  string `json:"region,omitempty"`
	ISP     string `json:"isp,omitempty"`
}

// OpenEvent одно обращение к confirmation-ресурсу (второй хоп).
// Записывается всегда, подтверждённое или нет.
type OpenEvent struct {
	ID         int64        `json:"-"`
	TrackingID string       `json:"tracking_id"`
	IPAddress  string       `json:"ip"`
	UserAgent  string       `json:"user_agent"`
	Confirmed  bool         `json:"confirmed"`
	Geo        *GeoLocation `json:"geo,omitempty"`
	GeoStatus  string       `json:"geo_status"`
	OpenedAt   time.Time    `json:"opened_at"`
}

// ClickEvent один клик по обёрнутой ссылке
type ClickEvent struct {
	ID             int64        `json:"-"`
	TrackingID     string       `json:"tracking_id"`
	DestinationURL string       `json:"destination_url"`
	IPAddress      string       `json:"ip"`
	UserAgent      string       `json:"user_agent"`
	Geo            *GeoLocation `json:"geo,omitempty"`
	GeoStatus      string       `json:"geo_status"`
	ClickedAt      time.Time    `json:"clicked_at"`
}

// ClickRequest входные данные клика до обработки (enrichment + запись)
type ClickRequest struct {
	TrackingID     string
	DestinationURL string
	IPAddress      string
	UserAgent      string
}

// OpenRequest входные данные второго хопа до классификации
type OpenRequest struct {
	TrackingID string
	AttemptID  string
	IPAddress  string
	UserAgent  string
}
