package config

import (
	"os"
	"strconv"

	"github.com/samalpartha/CareCircle-sub001/internal/common/config"
)

// Config holds the care operations service settings
type Config struct {
	Database config.DatabaseConfig
	Redis    config.RedisConfig
	MQTT     config.MQTTConfig

	CareOps struct {
		// Redis stream intake
		Streams struct {
			Alerts        string // "careops:alerts"
			Tasks         string // "careops:tasks"
			ConsumerGroup string
			ConsumerName  string
			BatchSize     int64
		}

		// Escalation polling interval (seconds)
		EscalationPollInterval int

		// Triage session snapshots in Redis
		Session struct {
			KeyPrefix  string // "careops:triage:"
			TTLSeconds int
		}

		// Notification topic prefix: <prefix>/<subject>/<kind>
		TopicPrefix string

		EmergencyDialer struct {
			URL        string
			TimeoutSec int
			RetryCount int
		}

		TuningFile string
	}

	Log struct {
		Level  string
		Format string
	}

	Tuning *Tuning
}

// Load reads config from the environment, then applies the tuning file when set
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "careops")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "careops")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = byte(getEnvInt("MQTT_QOS", 1))

	cfg.CareOps.Streams.Alerts = getEnv("STREAM_ALERTS", "careops:alerts")
	cfg.CareOps.Streams.Tasks = getEnv("STREAM_TASKS", "careops:tasks")
	cfg.CareOps.Streams.ConsumerGroup = getEnv("STREAM_CONSUMER_GROUP", "careops-engine")
	cfg.CareOps.Streams.ConsumerName = getEnv("STREAM_CONSUMER_NAME", "careops-1")
	cfg.CareOps.Streams.BatchSize = int64(getEnvInt("STREAM_BATCH_SIZE", 10))

	cfg.CareOps.EscalationPollInterval = getEnvInt("ESCALATION_POLL_INTERVAL", 30)

	cfg.CareOps.Session.KeyPrefix = getEnv("TRIAGE_SESSION_PREFIX", "careops:triage:")
	cfg.CareOps.Session.TTLSeconds = getEnvInt("TRIAGE_SESSION_TTL", 86400)

	cfg.CareOps.TopicPrefix = getEnv("NOTIFY_TOPIC_PREFIX", "careops")

	cfg.CareOps.EmergencyDialer.URL = getEnv("EMERGENCY_DIALER_URL", "http://localhost:8085/dial")
	cfg.CareOps.EmergencyDialer.TimeoutSec = getEnvInt("EMERGENCY_DIALER_TIMEOUT", 10)
	cfg.CareOps.EmergencyDialer.RetryCount = getEnvInt("EMERGENCY_DIALER_RETRIES", 3)

	cfg.CareOps.TuningFile = getEnv("CAREOPS_TUNING_FILE", "")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	tuning := DefaultTuning()
	if cfg.CareOps.TuningFile != "" {
		loaded, err := LoadTuning(cfg.CareOps.TuningFile)
		if err != nil {
			return nil, err
		}
		tuning = loaded
	}
	cfg.Tuning = tuning

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
