package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/SergeiKhy/email-tracker/internal/config"
	"github.com/SergeiKhy/email-tracker/internal/models"
)

// Locator внешний провайдер геолокации. Best-effort: вызывающая сторона
// обязана переживать любую ошибку без срыва запроса.
type Locator interface {
	FetchByIP(ctx context.Context, ip string) (*models.GeoLocation, error)
}

// Client клиент ip-api.com-совместимого провайдера
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(cfg config.GeoConfig) *Client {
	return &Client{
		baseURL: cfg.APIURL,
		apiKey:  cfg.APIKey,
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// ответ провайдера: статус + локация + ISP
type lookupResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Country string `json:"country"`
	Region  string `json:"regionName"`
	City    string `json:"city"`
	ISP     string `json:"isp"`
}

func (c *Client) FetchByIP(ctx context.Context, ip string) (*models.GeoLocation, error) {
	endpoint := fmt.Sprintf("%s/%s", c.baseURL, url.PathEscape(ip))
	if c.apiKey != "" {
		endpoint += "?key=" + url.QueryEscape(c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geo request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geo lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geo provider returned status %d", resp.StatusCode)
	}

	var data lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode geo response: %w", err)
	}

	if data.Status != "success" {
		return nil, fmt.Errorf("geo provider returned non-success status: %s", data.Message)
	}

	return &models.GeoLocation{
		Country: data.Country,
		City:    data.City,
		Region:  data.Region,
		ISP:     data.ISP,
	}, nil
}
