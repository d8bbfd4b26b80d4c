// Package config loads application configuration from .env, environment variables and defaults.
package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	DB         DBConfig         `mapstructure:"db"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Aggregator AggregatorConfig `mapstructure:"aggregator"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	JWT        JWTConfig        `mapstructure:"jwt"`
}

type AppConfig struct {
	Env    string `mapstructure:"env"`    // "local" enables development logging
	Market string `mapstructure:"market"` // Market label shown on the dashboard
}

// DBConfig holds PostgreSQL connection settings.
// InstanceName, when set, selects a Cloud SQL unix socket and takes precedence over Host/Port.
type DBConfig struct {
	User          string        `mapstructure:"user"`
	Password      string        `mapstructure:"password"`
	Name          string        `mapstructure:"name"`
	Host          string        `mapstructure:"host"`
	Port          string        `mapstructure:"port"`
	SSLMode       string        `mapstructure:"sslmode"`
	InstanceName  string        `mapstructure:"instance_connection_name"`
	ConnectWait   time.Duration `mapstructure:"connect_wait"`
	RunMigrations bool          `mapstructure:"run_migrations"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

// AggregatorConfig tunes batch formation and processing.
type AggregatorConfig struct {
	MaxBatchSize  int           `mapstructure:"max_batch_size"`
	BatchWindow   time.Duration `mapstructure:"batch_window"`
	QueueSize     int           `mapstructure:"queue_size"`
	Workers       int           `mapstructure:"workers"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryBackoff  time.Duration `mapstructure:"retry_backoff"`
	HistoryDedupe bool          `mapstructure:"history_dedupe"`
}

type HTTPConfig struct {
	Addr           string   `mapstructure:"addr"`
	CORSOrigins    []string `mapstructure:"cors_origins"`
	AdminRateLimit int      `mapstructure:"admin_rate_limit"` // admin requests per minute, 0 = unlimited
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

var keys = []string{
	"app.env", "app.market",
	"db.user", "db.password", "db.name", "db.host", "db.port", "db.sslmode",
	"db.instance_connection_name", "db.connect_wait", "db.run_migrations",
	"redis.addr", "redis.password", "redis.db", "redis.cache_ttl",
	"kafka.brokers", "kafka.topic", "kafka.group_id",
	"aggregator.max_batch_size", "aggregator.batch_window", "aggregator.queue_size",
	"aggregator.workers", "aggregator.retry_attempts", "aggregator.retry_backoff",
	"aggregator.history_dedupe",
	"http.addr", "http.cors_origins", "http.admin_rate_limit",
	"jwt.secret",
}

// Load reads configuration from .env file, environment variables, and defaults.
// Keys map to upper-case environment variables with dots replaced by underscores
// (e.g., "kafka.group_id" -> KAFKA_GROUP_ID).
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[INFO] .env not found; using system environment variables")
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "local")
	v.SetDefault("app.market", "United States")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.connect_wait", 60*time.Second)
	v.SetDefault("db.run_migrations", false)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cache_ttl", 30*time.Second)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "stock-data")
	v.SetDefault("kafka.group_id", "stock-aggregator")

	v.SetDefault("aggregator.max_batch_size", 500)
	v.SetDefault("aggregator.batch_window", 5*time.Second)
	v.SetDefault("aggregator.queue_size", 16)
	v.SetDefault("aggregator.workers", 4)
	v.SetDefault("aggregator.retry_attempts", 3)
	v.SetDefault("aggregator.retry_backoff", 500*time.Millisecond)
	v.SetDefault("aggregator.history_dedupe", false)

	v.SetDefault("http.addr", ":8081")
	v.SetDefault("http.cors_origins", []string{"*"})
	v.SetDefault("http.admin_rate_limit", 30)
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers cannot be empty")
	}
	if c.Kafka.Topic == "" {
		return fmt.Errorf("kafka topic cannot be empty")
	}
	if c.Aggregator.MaxBatchSize <= 0 {
		return fmt.Errorf("aggregator max_batch_size must be positive, got %d", c.Aggregator.MaxBatchSize)
	}
	if c.Aggregator.BatchWindow <= 0 {
		return fmt.Errorf("aggregator batch_window must be positive, got %s", c.Aggregator.BatchWindow)
	}
	return nil
}
