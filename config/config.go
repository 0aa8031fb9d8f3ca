package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Holdings input: "csv" reads a brokerage export from CSVPath,
	// "broker" pulls live holdings through the broker session API.
	HoldingsSource string
	CSVPath        string

	// Broker credentials (required only when HoldingsSource == "broker")
	BrokerAPIKey     string
	BrokerClientCode string
	BrokerPassword   string
	BrokerTOTPSecret string

	// Exposure math
	BenchmarkTicker  string
	DefaultIV        float64
	RiskFreeRate     float64
	BetaLookbackDays int
	QuoteTTL         time.Duration

	// Ratings
	RatingLookbackDays int

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	MetricsAddr   string
	GatewayAddr   string

	// Refresh loop
	RefreshInterval time.Duration
	MarketHoursOnly bool

	// Advisor (optional; disabled when the key is empty)
	AnthropicAPIKey string
	AdvisorModel    string

	// Alerting (all optional)
	ShortPctThreshold float64
	TelegramBotToken  string
	TelegramChatID    string
	AlertWebhookURL   string
}

// Load reads configuration from the environment with sensible defaults. A
// .env file in the working directory is loaded first if present.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Printf("[config] loaded .env")
	}

	cfg := &Config{
		HoldingsSource: getEnv("HOLDINGS_SOURCE", "csv"),
		CSVPath:        getEnv("HOLDINGS_CSV", "data/holdings.csv"),

		BrokerAPIKey:     getEnv("BROKER_API_KEY", ""),
		BrokerClientCode: getEnv("BROKER_CLIENT_CODE", ""),
		BrokerPassword:   getEnv("BROKER_PASSWORD", ""),
		BrokerTOTPSecret: getEnv("BROKER_TOTP_SECRET", ""),

		BenchmarkTicker:  getEnv("BENCHMARK_TICKER", "SPY"),
		DefaultIV:        getFloat("DEFAULT_IMPLIED_VOL", 0.30),
		RiskFreeRate:     getFloat("RISK_FREE_RATE", 0.05),
		BetaLookbackDays: getInt("BETA_LOOKBACK_DAYS", 180),
		QuoteTTL:         getDuration("QUOTE_TTL", 60*time.Second),

		RatingLookbackDays: getInt("RATING_LOOKBACK_DAYS", 120),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/portfolio.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		GatewayAddr:   getEnv("GATEWAY_ADDR", ":8080"),

		RefreshInterval: getDuration("REFRESH_INTERVAL", 60*time.Second),
		MarketHoursOnly: getBool("MARKET_HOURS_ONLY", true),

		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		AdvisorModel:    getEnv("ADVISOR_MODEL", ""),

		ShortPctThreshold: getFloat("SHORT_PCT_ALERT", 0),
		TelegramBotToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:    getEnv("TELEGRAM_CHAT_ID", ""),
		AlertWebhookURL:   getEnv("ALERT_WEBHOOK_URL", ""),
	}

	if cfg.HoldingsSource == "broker" {
		cfg.BrokerAPIKey = mustEnv("BROKER_API_KEY")
		cfg.BrokerClientCode = mustEnv("BROKER_CLIENT_CODE")
		cfg.BrokerPassword = mustEnv("BROKER_PASSWORD")
		cfg.BrokerTOTPSecret = mustEnv("BROKER_TOTP_SECRET")
	}

	return cfg
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("[config] required env var %s not set", key)
	}
	return v
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] invalid float for %s: %q, using %v", key, v, fallback)
		return fallback
	}
	return f
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid int for %s: %q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[config] invalid bool for %s: %q, using %v", key, v, fallback)
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[config] invalid duration for %s: %q, using %v", key, v, fallback)
		return fallback
	}
	return d
}
