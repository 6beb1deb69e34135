package config

import (
	"time"

	"github.com/joho/godotenv"

	pkgconfig "github.com/paylume/productsync/pkg/config"
)

// Config holds the runtime configuration of the sync layer and its daemon.
type Config struct {
	ServiceName string
	Env         string // "dev" | "uat" | "prod"
	LogLevel    string
	Port        int // health/metrics port of the daemon

	APIBaseURL  string
	HTTPTimeout time.Duration
	RetryMax    int

	RateRPS   int
	RateBurst int

	PrefetchDebounce time.Duration

	// Session cache. Empty RedisAddr selects the in-memory store.
	RedisAddr string
	RedisDB   int
	RedisPass string

	// Telemetry sink. Empty NATSURL disables it.
	NATSURL         string
	OutboundSubject string

	// Session identity consumed, not owned, by the core.
	ProductID string
	Token     string
}

// Load loads configuration from environment variables and .env if present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServiceName: pkgconfig.GetEnv("SERVICE_NAME", "productsync"),
		Env:         pkgconfig.GetEnv("ENV", "dev"),
		LogLevel:    pkgconfig.GetEnv("LOG_LEVEL", "info"),
		Port:        pkgconfig.GetEnvInt("PORT", 9040),

		APIBaseURL:  pkgconfig.GetEnv("API_BASE_URL", "http://localhost:8080"),
		HTTPTimeout: pkgconfig.GetEnvDuration("HTTP_TIMEOUT", 15*time.Second),
		RetryMax:    pkgconfig.GetEnvInt("RETRY_MAX", 2),

		RateRPS:   pkgconfig.GetEnvInt("RATE_RPS", 10),
		RateBurst: pkgconfig.GetEnvInt("RATE_BURST", 20),

		PrefetchDebounce: pkgconfig.GetEnvDuration("PREFETCH_DEBOUNCE", 400*time.Millisecond),

		RedisAddr: pkgconfig.GetEnv("REDIS_ADDR", ""),
		RedisDB:   pkgconfig.GetEnvInt("REDIS_DB", 0),
		RedisPass: pkgconfig.GetEnv("REDIS_PASS", ""),

		NATSURL:         pkgconfig.GetEnv("NATS_URL", ""),
		OutboundSubject: pkgconfig.GetEnv("OUTBOUND_SUBJECT", "evt.productsync.notices"),

		ProductID: pkgconfig.GetEnv("DASH_PRODUCT_ID", ""),
		Token:     pkgconfig.GetEnv("DASH_TOKEN", ""),
	}
}
