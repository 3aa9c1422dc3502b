package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string
	HTTPPort     string
	PostgresDSN  string
	KafkaBrokers []string
	RedisAddr    string
	LogLevel     string

	ClaimLockWait       time.Duration
	ClaimLockTTL        time.Duration
	PostgresLockTimeout time.Duration
	IdempotencyTTL      time.Duration
	EventDedupTTL       time.Duration
	OutboxPollInterval  time.Duration
	OutboxBatchSize     int
}

// Load reads CONFIG_FILE when set, then environment variables, which take
// precedence over file values.
func Load() (Config, error) {
	return LoadFile(strings.TrimSpace(os.Getenv("CONFIG_FILE")))
}

func LoadFile(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := Config{
		ServiceName:  strings.TrimSpace(v.GetString("service_name")),
		HTTPPort:     strings.TrimSpace(v.GetString("http_port")),
		PostgresDSN:  strings.TrimSpace(v.GetString("postgres_dsn")),
		KafkaBrokers: splitList(v.GetString("kafka_brokers")),
		RedisAddr:    strings.TrimSpace(v.GetString("redis_addr")),
		LogLevel:     strings.TrimSpace(v.GetString("log_level")),

		ClaimLockWait:       v.GetDuration("claim_lock_wait"),
		ClaimLockTTL:        v.GetDuration("claim_lock_ttl"),
		PostgresLockTimeout: v.GetDuration("postgres_lock_timeout"),
		IdempotencyTTL:      v.GetDuration("idempotency_ttl"),
		EventDedupTTL:       v.GetDuration("event_dedup_ttl"),
		OutboxPollInterval:  v.GetDuration("outbox_poll_interval"),
		OutboxBatchSize:     v.GetInt("outbox_batch_size"),
	}
	if len(cfg.KafkaBrokers) == 0 {
		cfg.KafkaBrokers = []string{"localhost:9092"}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.ServiceName == "" {
		return errors.New("SERVICE_NAME must not be empty")
	}
	if c.ClaimLockWait <= 0 {
		return errors.New("CLAIM_LOCK_WAIT must be positive")
	}
	if c.ClaimLockTTL < c.ClaimLockWait {
		return errors.New("CLAIM_LOCK_TTL must be at least CLAIM_LOCK_WAIT")
	}
	if c.OutboxPollInterval <= 0 {
		return errors.New("OUTBOX_POLL_INTERVAL must be positive")
	}
	if c.OutboxBatchSize <= 0 {
		return errors.New("OUTBOX_BATCH_SIZE must be positive")
	}
	return nil
}

// SlogLevel maps LOG_LEVEL onto slog; unknown values fall back to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "leadhub")
	v.SetDefault("http_port", "8080")
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("kafka_brokers", "")
	v.SetDefault("redis_addr", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("claim_lock_wait", "2s")
	v.SetDefault("claim_lock_ttl", "10s")
	v.SetDefault("postgres_lock_timeout", "2s")
	v.SetDefault("idempotency_ttl", "168h")
	v.SetDefault("event_dedup_ttl", "168h")
	v.SetDefault("outbox_poll_interval", "2s")
	v.SetDefault("outbox_batch_size", 100)
}

func splitList(raw string) []string {
	var items []string
	for _, value := range strings.Split(raw, ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			items = append(items, value)
		}
	}
	return items
}
