package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ritheshan/agri/internal/services/gateway/app"
	"github.com/ritheshan/agri/pkg/rabbitmq"
)

type Config struct {
	Port        string
	GRPCPort    string
	BackendURL  string
	AuthURL     string
	CORSOrigins []string

	HTTPTimeout     time.Duration
	BreakerFailures int
	BreakerOpenFor  time.Duration
	Retry           app.RetryPolicy
	StationMaxKm    float64
	StationMaxAge   time.Duration

	SessionHashKey  string
	SessionBlockKey string
	SessionSecure   bool
	BearerTTL       time.Duration

	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string

	// Rabbit.Host empty disables the station feed.
	Rabbit rabbitmq.Config

	LogLevel  string
	LogFormat string
}

func getenv(k, d string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func getenvFloat(k string, d float64) float64 {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return d
}

// getenvDuration accepts Go durations ("5s") or bare milliseconds.
func getenvDuration(k string, d time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// loadConfig reads .env when present, then the environment.
func loadConfig() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:        getenv("PORT", "5009"),
		GRPCPort:    getenv("GRPC_PORT", "50051"),
		BackendURL:  getenv("BACKEND_URL", "http://localhost:8000"),
		AuthURL:     getenv("AUTH_URL", ""),
		CORSOrigins: splitList(getenv("CORS_ORIGINS", "http://localhost:5173")),

		HTTPTimeout:     getenvDuration("HTTP_TIMEOUT", 5*time.Second),
		BreakerFailures: getenvInt("CB_FAILURES", 5),
		BreakerOpenFor:  getenvDuration("CB_OPEN_FOR", 30*time.Second),
		Retry: app.RetryPolicy{
			MaxAttempts: getenvInt("RETRY_ATTEMPTS", 3),
			Initial:     getenvDuration("RETRY_INITIAL", 200*time.Millisecond),
			MaxElapsed:  getenvDuration("RETRY_MAX_ELAPSED", 4*time.Second),
		},
		StationMaxKm:  getenvFloat("STATION_MAX_KM", 50),
		StationMaxAge: getenvDuration("STATION_MAX_AGE", time.Hour),

		SessionHashKey:  os.Getenv("SESSION_HASH_KEY"),
		SessionBlockKey: os.Getenv("SESSION_BLOCK_KEY"),
		SessionSecure:   getenv("SESSION_SECURE", "false") == "true",
		BearerTTL:       getenvDuration("SESSION_BEARER_TTL", time.Minute),

		InfluxURL:    getenv("INFLUX_URL", ""),
		InfluxToken:  os.Getenv("INFLUX_TOKEN"),
		InfluxOrg:    getenv("INFLUX_ORG", "agri"),
		InfluxBucket: getenv("INFLUX_BUCKET", "advisory"),

		Rabbit: rabbitmq.Config{
			Host:       getenv("RABBITMQ_HOST", ""),
			Port:       getenvInt("RABBITMQ_PORT", 1883),
			User:       getenv("RABBITMQ_USER", "guest"),
			Password:   getenv("RABBITMQ_PASSWORD", "guest"),
			ClientID:   getenv("HOSTNAME", "agri-gateway"),
			MaxRetries: getenvInt("RABBITMQ_MAX_RETRIES", 5),
		},

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "json"),
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = cfg.BackendURL
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if n := len(c.SessionHashKey); n != 0 && n < 32 {
		return fmt.Errorf("SESSION_HASH_KEY must be at least 32 bytes, got %d", n)
	}
	switch len(c.SessionBlockKey) {
	case 0, 16, 24, 32:
	default:
		return fmt.Errorf("SESSION_BLOCK_KEY must be 16, 24 or 32 bytes, got %d", len(c.SessionBlockKey))
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("RETRY_ATTEMPTS must be >= 1")
	}
	if c.StationMaxKm <= 0 {
		return fmt.Errorf("STATION_MAX_KM must be positive")
	}
	return nil
}
