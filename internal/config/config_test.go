package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, "careops", cfg.Database.Database)
	assert.Equal(t, "disable", cfg.Database.SSLMode)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 0, cfg.Redis.DB)

	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)

	assert.Equal(t, "careops:alerts", cfg.CareOps.Streams.Alerts)
	assert.Equal(t, "careops:tasks", cfg.CareOps.Streams.Tasks)
	assert.Equal(t, "careops-engine", cfg.CareOps.Streams.ConsumerGroup)
	assert.Equal(t, int64(10), cfg.CareOps.Streams.BatchSize)
	assert.Equal(t, 30, cfg.CareOps.EscalationPollInterval)
	assert.Equal(t, "careops:triage:", cfg.CareOps.Session.KeyPrefix)
	assert.Equal(t, 86400, cfg.CareOps.Session.TTLSeconds)
	assert.Equal(t, "careops", cfg.CareOps.TopicPrefix)
	assert.Equal(t, 3, cfg.CareOps.EmergencyDialer.RetryCount)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	require.NotNil(t, cfg.Tuning)
	assert.Equal(t, DefaultTuning(), cfg.Tuning)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("DB_HOST", "test-host")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("REDIS_ADDR", "test-redis:6380")
	t.Setenv("MQTT_QOS", "2")
	t.Setenv("ESCALATION_POLL_INTERVAL", "5")
	t.Setenv("STREAM_ALERTS", "test:alerts")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "test-redis:6380", cfg.Redis.Addr)
	assert.Equal(t, byte(2), cfg.MQTT.QoS)
	assert.Equal(t, 5, cfg.CareOps.EscalationPollInterval)
	assert.Equal(t, "test:alerts", cfg.CareOps.Streams.Alerts)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_InvalidIntFallsBackToDefault(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-port")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5432, cfg.Database.Port)
}

func TestLoad_TuningFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
escalation:
  urgent_minutes: 10
stress:
  urgent_items: 5
`), 0o600))
	t.Setenv("CAREOPS_TUNING_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Tuning.Escalation.UrgentMinutes)
	assert.Equal(t, 60, cfg.Tuning.Escalation.HighMinutes)
	assert.Equal(t, 5, cfg.Tuning.Stress.UrgentItems)
	assert.Equal(t, 0.35, cfg.Tuning.Priority.Weights.Severity)
}

func TestLoad_MissingTuningFile(t *testing.T) {
	t.Setenv("CAREOPS_TUNING_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}
