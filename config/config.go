package config

import (
	"os"
	"strconv"
	"time"
)

const (
	ArchiveNone       = "none"
	ArchiveRedis      = "redis"
	ArchivePocketBase = "pocketbase"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string

	// Ledger configuration
	Difficulty       int
	MiningWorkers    int
	MaxNonce         uint64
	MineTimeout      time.Duration
	AutoMineInterval time.Duration

	// Archive configuration
	ArchiveBackend string
	RedisURL       string
	ArchivePrefix  string

	// Archive circuit breaker
	BreakerMaxRequests  int
	BreakerFailureRatio float64
	BreakerTimeout      time.Duration

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string
	PubNubUserID       string

	// Security
	AdminTokenHash     string
	RateLimitPerMinute int

	// Booking
	BookingMaxTickets int

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Ledger
		Difficulty:       getEnvAsInt("LEDGER_DIFFICULTY", 2),
		MiningWorkers:    getEnvAsInt("LEDGER_MINING_WORKERS", 1),
		MaxNonce:         getEnvAsUint64("LEDGER_MAX_NONCE", 0),
		MineTimeout:      getEnvAsDuration("LEDGER_MINE_TIMEOUT", "30s"),
		AutoMineInterval: getEnvAsDuration("AUTO_MINE_INTERVAL", "0s"),

		// Archive
		ArchiveBackend: getEnv("ARCHIVE_BACKEND", ArchiveNone),
		RedisURL:       getEnv("REDIS_URL", "localhost:6379"),
		ArchivePrefix:  getEnv("ARCHIVE_PREFIX", "ledger"),

		BreakerMaxRequests:  getEnvAsInt("BREAKER_MAX_REQUESTS", 20),
		BreakerFailureRatio: getEnvAsFloat("BREAKER_FAILURE_RATIO", 0.6),
		BreakerTimeout:      getEnvAsDuration("BREAKER_TIMEOUT", "60s"),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),
		PubNubUserID:       getEnv("PUBNUB_USER_ID", "ticket-ledger"),

		// Security
		AdminTokenHash:     getEnv("ADMIN_TOKEN_HASH", ""),
		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 30),

		// Booking
		BookingMaxTickets: getEnvAsInt("BOOKING_MAX_TICKETS", 10),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// UsesRedis reports whether any component needs a redis connection.
func (c *Config) UsesRedis() bool {
	return c.ArchiveBackend == ArchiveRedis || c.RateLimitPerMinute > 0
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsUint64(key string, defaultValue uint64) uint64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseUint(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
