package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Server struct {
	Host        string `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port        string `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout int    `envconfig:"SERVER_READ_TIMEOUT" default:"15"`
}

type OpenWeather struct {
	APIKey  string `envconfig:"OPENWEATHER_API_KEY"`
	BaseURL string `envconfig:"OPENWEATHER_BASE_URL" default:"https://api.openweathermap.org/data/2.5"`
	GeoURL  string `envconfig:"OPENWEATHER_GEO_URL" default:"https://api.openweathermap.org/geo/1.0"`
}

// Cache configures the sqlite snapshot cache. TTLMinutes and CoordPrecision
// are tunables: entries older than the TTL are treated as misses, and
// coordinates are rounded to CoordPrecision decimal places to form the row
// key (two decimals is roughly 1.1 km of locality).
type Cache struct {
	Source         string `envconfig:"CACHE_DB_SOURCE" default:"weather_cache.db"`
	Dialect        string `envconfig:"CACHE_DB_DIALECT" default:"sqlite"`
	MigrationsPath string `envconfig:"CACHE_MIGRATIONS_PATH" default:"./migrations"`
	TTLMinutes     int    `envconfig:"CACHE_TTL_MINUTES" default:"15"`
	CoordPrecision int    `envconfig:"CACHE_COORD_PRECISION" default:"2"`
}

type Breaker struct {
	TimeInterval int    `envconfig:"BREAKER_INTERVAL" default:"30"`
	TimeTimeOut  int    `envconfig:"BREAKER_TIMEOUT" default:"10"`
	RepeatNumber uint32 `envconfig:"BREAKER_REPEAT_NUM" default:"5"`
}

type RateLimit struct {
	RPS   float64 `envconfig:"UPSTREAM_RATE_RPS" default:"5"`
	Burst int     `envconfig:"UPSTREAM_RATE_BURST" default:"10"`
}

type Config struct {
	OpenWeather OpenWeather
	Server      Server
	Cache       Cache
	Breaker     Breaker
	RateLimit   RateLimit

	LogsPath        string `envconfig:"LOGS_PATH" default:"logs/weatherly.log"`
	UpstreamLogPath string `envconfig:"UPSTREAM_LOG_PATH" default:"logs/upstream.log"`
}

func NewConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) ServerAddress() string {
	return c.Server.Host + ":" + c.Server.Port
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLMinutes) * time.Minute
}
