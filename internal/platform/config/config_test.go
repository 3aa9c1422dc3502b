package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadFileDefaults(t *testing.T) {
	cfg, err := LoadFile("")
	require.NoError(t, err)
	require.Equal(t, "leadhub", cfg.ServiceName)
	require.Equal(t, "8080", cfg.HTTPPort)
	require.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	require.Equal(t, 2*time.Second, cfg.ClaimLockWait)
	require.Equal(t, 10*time.Second, cfg.ClaimLockTTL)
	require.Equal(t, 7*24*time.Hour, cfg.IdempotencyTTL)
	require.Equal(t, 100, cfg.OutboxBatchSize)
}

func TestLoadFileEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leadhub.yaml")
	content := "http_port: \"9090\"\nclaim_lock_wait: 500ms\nkafka_brokers: a:9092, b:9092\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("HTTP_PORT", "7070")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, "7070", cfg.HTTPPort)
	require.Equal(t, "localhost:6379", cfg.RedisAddr)
	require.Equal(t, 500*time.Millisecond, cfg.ClaimLockWait)
	require.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
}

func TestLoadFileRejectsInvalidLockSettings(t *testing.T) {
	t.Setenv("CLAIM_LOCK_WAIT", "5s")
	t.Setenv("CLAIM_LOCK_TTL", "1s")

	_, err := LoadFile("")
	require.Error(t, err)
}

func TestLoadFileMissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
