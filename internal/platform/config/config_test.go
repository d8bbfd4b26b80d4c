package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad_Defaults は環境変数が未設定の場合にデフォルト値が使われることを検証します。
func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "United States", cfg.App.Market)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "stock-data", cfg.Kafka.Topic)
	assert.Equal(t, 500, cfg.Aggregator.MaxBatchSize)
	assert.Equal(t, 5*time.Second, cfg.Aggregator.BatchWindow)
	assert.False(t, cfg.Aggregator.HistoryDedupe)
	assert.Equal(t, ":8081", cfg.HTTP.Addr)
	assert.Equal(t, 30, cfg.HTTP.AdminRateLimit)
}

// TestLoad_EnvOverrides は環境変数がネストした設定に反映されることを検証します。
func TestLoad_EnvOverrides(t *testing.T) {
	// Not parallel: modifies environment variables
	t.Setenv("KAFKA_TOPIC", "quotes")
	t.Setenv("KAFKA_GROUP_ID", "dash")
	t.Setenv("AGGREGATOR_MAX_BATCH_SIZE", "50")
	t.Setenv("AGGREGATOR_BATCH_WINDOW", "250ms")
	t.Setenv("AGGREGATOR_HISTORY_DEDUPE", "true")
	t.Setenv("DB_INSTANCE_CONNECTION_NAME", "project:region:instance")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("HTTP_ADMIN_RATE_LIMIT", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "quotes", cfg.Kafka.Topic)
	assert.Equal(t, "dash", cfg.Kafka.GroupID)
	assert.Equal(t, 50, cfg.Aggregator.MaxBatchSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Aggregator.BatchWindow)
	assert.True(t, cfg.Aggregator.HistoryDedupe)
	assert.Equal(t, "project:region:instance", cfg.DB.InstanceName)
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.Equal(t, 5, cfg.HTTP.AdminRateLimit)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	valid := func() Config {
		return Config{
			Kafka:      KafkaConfig{Brokers: []string{"b:9092"}, Topic: "t"},
			Aggregator: AggregatorConfig{MaxBatchSize: 10, BatchWindow: time.Second},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "success: valid config", mutate: func(c *Config) {}},
		{name: "failure: no brokers", mutate: func(c *Config) { c.Kafka.Brokers = nil }, wantErr: true},
		{name: "failure: no topic", mutate: func(c *Config) { c.Kafka.Topic = "" }, wantErr: true},
		{name: "failure: zero batch size", mutate: func(c *Config) { c.Aggregator.MaxBatchSize = 0 }, wantErr: true},
		{name: "failure: zero batch window", mutate: func(c *Config) { c.Aggregator.BatchWindow = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
