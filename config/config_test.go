package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "ENVIRONMENT", "LEDGER_DIFFICULTY", "LEDGER_MINING_WORKERS", "LEDGER_MAX_NONCE",
		"LEDGER_MINE_TIMEOUT", "AUTO_MINE_INTERVAL", "ARCHIVE_BACKEND", "ARCHIVE_PREFIX",
		"BREAKER_FAILURE_RATIO", "BOOKING_MAX_TICKETS",
	} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()

	assert.Equal(t, "8090", cfg.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 2, cfg.Difficulty)
	assert.Equal(t, 1, cfg.MiningWorkers)
	assert.Zero(t, cfg.MaxNonce)
	assert.Equal(t, 30*time.Second, cfg.MineTimeout)
	assert.Zero(t, cfg.AutoMineInterval)
	assert.Equal(t, ArchiveNone, cfg.ArchiveBackend)
	assert.Equal(t, "ledger", cfg.ArchivePrefix)
	assert.Equal(t, 0.6, cfg.BreakerFailureRatio)
	assert.Equal(t, 10, cfg.BookingMaxTickets)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("LEDGER_DIFFICULTY", "4")
	t.Setenv("LEDGER_MINING_WORKERS", "8")
	t.Setenv("LEDGER_MAX_NONCE", "1000000")
	t.Setenv("AUTO_MINE_INTERVAL", "5s")
	t.Setenv("ARCHIVE_BACKEND", ArchiveRedis)
	t.Setenv("BREAKER_FAILURE_RATIO", "0.25")
	t.Setenv("ENABLE_METRICS", "false")

	cfg := LoadConfig()

	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, 4, cfg.Difficulty)
	assert.Equal(t, 8, cfg.MiningWorkers)
	assert.Equal(t, uint64(1000000), cfg.MaxNonce)
	assert.Equal(t, 5*time.Second, cfg.AutoMineInterval)
	assert.Equal(t, 0.25, cfg.BreakerFailureRatio)
	assert.False(t, cfg.EnableMetrics)
	assert.True(t, cfg.UsesRedis())
}

func TestLoadConfig_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("LEDGER_DIFFICULTY", "lots")
	t.Setenv("LEDGER_MINE_TIMEOUT", "soon")
	t.Setenv("LEDGER_MAX_NONCE", "-1")

	cfg := LoadConfig()

	assert.Equal(t, 2, cfg.Difficulty)
	assert.Equal(t, 30*time.Second, cfg.MineTimeout)
	assert.Zero(t, cfg.MaxNonce)
}

func TestConfig_UsesRedis(t *testing.T) {
	tests := []struct {
		name      string
		backend   string
		rateLimit int
		expected  bool
	}{
		{"Redis archive", ArchiveRedis, 0, true},
		{"Rate limiter only", ArchiveNone, 30, true},
		{"Nothing needs redis", ArchivePocketBase, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{ArchiveBackend: tt.backend, RateLimitPerMinute: tt.rateLimit}
			assert.Equal(t, tt.expected, cfg.UsesRedis())
		})
	}
}
