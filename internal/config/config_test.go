package config

import (
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE", "memory")
	t.Setenv("JWT_SECRET_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.App.Store)
	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "1h", cfg.JWT.AccessExpiration)
	assert.Equal(t, 480, cfg.Payroll.DailyScheduledMinutes)
	assert.True(t, cfg.Payroll.FallbackBaseSalary.Equal(decimal.NewFromInt(6000)))
	assert.True(t, cfg.Payroll.OvertimeMultiplier.Equal(decimal.RequireFromString("1.5")))
	assert.True(t, cfg.Payroll.TerminationBenefitMultiplier.Equal(decimal.NewFromInt(1)))
	assert.True(t, cfg.Payroll.SalarySpikeThreshold.Equal(decimal.RequireFromString("0.25")))
	assert.Empty(t, cfg.Redis.Addr)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoad_PostgresRequiresPassword(t *testing.T) {
	t.Setenv("STORE", "postgres")
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("DB_PASSWORD", "")

	_, err := Load()
	assert.ErrorContains(t, err, "DB_PASSWORD")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"port", "APP_PORT", "eighty"},
		{"minutes", "PAYROLL_DAILY_MINUTES", "0"},
		{"overtime", "PAYROLL_OVERTIME_MULTIPLIER", "abc"},
		{"store", "STORE", "sqlite"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("STORE", "memory")
			t.Setenv("JWT_SECRET_KEY", "secret")
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_Lists(t *testing.T) {
	t.Setenv("STORE", "memory")
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
}

func TestSlogLevel(t *testing.T) {
	cfg := &Config{App: AppConfig{LogLevel: "debug"}}
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())

	cfg.App.LogLevel = "nonsense"
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}
