package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Geo       GeoConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Tracking  TrackingConfig
}

type AppConfig struct {
	Port    string
	BaseURL string // внешний адрес сервиса, используется для сборки confirmation URL
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Host string
	Port string
}

type GeoConfig struct {
	APIURL   string
	APIKey   string
	Timeout  time.Duration
	CacheTTL time.Duration
}

type AuthConfig struct {
	APIKeys map[string]string // API key -> name/description
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

type TrackingConfig struct {
	// ConfirmProxyOnly: считать открытие подтверждённым только если
	// user-agent второго хопа совпадает с сигнатурой image-прокси.
	// false — легаси-режим, любой второй хоп подтверждает открытие.
	ConfirmProxyOnly bool
}

func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	viper.SetDefault("GEO_API_URL", "http://ip-api.com/json")
	viper.SetDefault("GEO_TIMEOUT_SECONDS", 4)
	viper.SetDefault("GEO_CACHE_TTL_HOURS", 24)
	viper.SetDefault("TRACK_CONFIRM_PROXY_ONLY", true)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	cfg.App.Port = viper.GetString("APP_PORT")
	cfg.App.BaseURL = strings.TrimSuffix(viper.GetString("BASE_URL"), "/")
	cfg.DB.Host = viper.GetString("DB_HOST")
	cfg.DB.Port = viper.GetString("DB_PORT")
	cfg.DB.User = viper.GetString("DB_USER")
	cfg.DB.Password = viper.GetString("DB_PASSWORD")
	cfg.DB.Name = viper.GetString("DB_NAME")
	cfg.Redis.Host = viper.GetString("REDIS_HOST")
	cfg.Redis.Port = viper.GetString("REDIS_PORT")

	// Геолокация: провайдер опрашивается best-effort, с коротким таймаутом
	cfg.Geo.APIURL = strings.TrimSuffix(viper.GetString("GEO_API_URL"), "/")
	cfg.Geo.APIKey = viper.GetString("GEO_API_KEY")
	cfg.Geo.Timeout = time.Duration(viper.GetInt("GEO_TIMEOUT_SECONDS")) * time.Second
	cfg.Geo.CacheTTL = time.Duration(viper.GetInt("GEO_CACHE_TTL_HOURS")) * time.Hour

	// Auth config - parse API keys from comma-separated string
	// Format: key1:name1,key2:name2
	apiKeysRaw := viper.GetString("API_KEYS")
	cfg.Auth.APIKeys = parseAPIKeys(apiKeysRaw)

	// Rate limit config
	cfg.RateLimit.RequestsPerSecond = viper.GetFloat64("RATE_LIMIT_RPS")
	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = 10
	}
	cfg.RateLimit.BurstSize = viper.GetInt("RATE_LIMIT_BURST")
	if cfg.RateLimit.BurstSize == 0 {
		cfg.RateLimit.BurstSize = 20
	}

	cfg.Tracking.ConfirmProxyOnly = viper.GetBool("TRACK_CONFIRM_PROXY_ONLY")

	return &cfg, nil
}

// parseAPIKeys parses comma-separated API keys in format "key1:name1,key2:name2"
func parseAPIKeys(raw string) map[string]string {
	keys := make(map[string]string)
	if raw == "" {
		return keys
	}

	pairs := strings.Split(raw, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) == 2 {
			keys[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}

	return keys
}
