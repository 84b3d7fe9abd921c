package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "s3cret")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 15*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, time.Second, cfg.Outbox.Interval)
	assert.Equal(t, 200, cfg.Outbox.BatchSize)
	assert.True(t, cfg.MySQL.AutoMigrate)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoad_EnvFileAndOverrides(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("JWT_ACCESS_SECRET=from-file\nKAFKA_BROKERS=k1:9092;k2:9092\n"), 0o600))
	t.Setenv("LOG_LEVEL", "debug")
	t.Cleanup(func() {
		os.Unsetenv("JWT_ACCESS_SECRET")
		os.Unsetenv("KAFKA_BROKERS")
	})

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.JWT.AccessSecret)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "s3cret")

	_, err := Load(filepath.Join(t.TempDir(), "nope.env"))
	require.NoError(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "")
	_, err := Load("")
	assert.Error(t, err)

	cfg := Config{JWT: JWTConfig{AccessSecret: "x"}, Outbox: OutboxConfig{BatchSize: 1}}
	require.NoError(t, cfg.Validate())

	cfg.SMTP.Host = "smtp.example.com"
	assert.Error(t, cfg.Validate())
}
