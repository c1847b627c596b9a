package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name:    "load default configuration",
			envVars: map[string]string{},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "0.0.0.0", cfg.ServerHost)
				assert.Equal(t, 8080, cfg.ServerPort)
				assert.Equal(t, "postgres", cfg.DBDriver)
				assert.Equal(t, 25, cfg.DBMaxOpenConnections)
				assert.Equal(t, 5*time.Minute, cfg.DBConnMaxLifetime)
				assert.Equal(t, "info", cfg.LogLevel)
				assert.Equal(t, "outbox_messages", cfg.OutboxTable)
				assert.Equal(t, "inbox_states", cfg.InboxTable)
				assert.Equal(t, "scheduled_messages", cfg.ScheduledTable)
				assert.Equal(t, "saga_states", cfg.SagaTable)
				assert.Equal(t, 100, cfg.OutboxBatchSize)
				assert.Equal(t, time.Second, cfg.OutboxPollInterval)
				assert.Equal(t, 5*time.Second, cfg.OutboxRetryDelay)
				assert.Equal(t, 4, cfg.OutboxMaxConcurrentDestinations)
				assert.Empty(t, cfg.OutboxDeadLetterAddress)
				assert.Equal(t, 100, cfg.SchedulerBatchSize)
				assert.Equal(t, "mem://", cfg.PublishAddressPrefix)
				assert.True(t, cfg.BreakerEnabled)
				assert.Equal(t, uint32(5), cfg.BreakerConsecutiveFailures)
				assert.Equal(t, "relay", cfg.MetricsNamespace)
				assert.False(t, cfg.CORSEnabled)
			},
		},
		{
			name: "load custom database configuration",
			envVars: map[string]string{
				"DB_DRIVER":               "mysql",
				"DB_CONNECTION_STRING":    "user:password@tcp(localhost:3306)/testdb",
				"DB_MAX_OPEN_CONNECTIONS": "50",
				"DB_CONN_MAX_LIFETIME":    "10",
				"OUTBOX_TABLE":            "app_outbox",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "mysql", cfg.DBDriver)
				assert.Equal(t, "user:password@tcp(localhost:3306)/testdb", cfg.DBConnectionString)
				assert.Equal(t, 50, cfg.DBMaxOpenConnections)
				assert.Equal(t, 10*time.Minute, cfg.DBConnMaxLifetime)
				assert.Equal(t, "app_outbox", cfg.TableNames().Outbox)
			},
		},
		{
			name: "load custom dispatcher configuration",
			envVars: map[string]string{
				"OUTBOX_BATCH_SIZE":                  "10",
				"OUTBOX_POLL_INTERVAL_MS":            "250",
				"OUTBOX_MAX_CONCURRENT_DESTINATIONS": "8",
				"OUTBOX_DEAD_LETTER_ADDRESS":         "mem://dead-letters",
				"SCHEDULER_DEAD_LETTER_ADDRESS":      "kafka://scheduled-dlq",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 10, cfg.OutboxBatchSize)
				assert.Equal(t, 250*time.Millisecond, cfg.OutboxPollInterval)
				assert.Equal(t, 8, cfg.OutboxMaxConcurrentDestinations)
				assert.Equal(t, "mem://dead-letters", cfg.OutboxDeadLetterAddress)
				assert.Equal(t, "kafka://scheduled-dlq", cfg.SchedulerDeadLetterAddress)
			},
		},
		{
			name: "load transport lists",
			envVars: map[string]string{
				"KAFKA_BROKERS":       "kafka-1:9092, kafka-2:9092,",
				"RELAY_MESSAGE_TYPES": "OrderPlaced,PaymentCaptured",
				"CORS_ALLOW_ORIGINS":  " https://ops.example.com ,",
				"SOURCE_ADDRESS":      "mem://billing",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Brokers())
				assert.Equal(t, []string{"OrderPlaced", "PaymentCaptured"}, cfg.MessageTypeNames())
				assert.Equal(t, []string{"https://ops.example.com"}, cfg.AllowedOrigins())
				assert.Equal(t, "mem://billing", cfg.SourceAddress)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()

			for key, value := range tt.envVars {
				err := os.Setenv(key, value)
				require.NoError(t, err)
			}

			cfg := Load()
			tt.validate(t, cfg)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		os.Clearenv()
		cfg := Load()
		assert.NoError(t, cfg.Validate())
	})

	t.Run("unknown driver", func(t *testing.T) {
		os.Clearenv()
		cfg := Load()
		cfg.DBDriver = "sqlite"
		assert.Error(t, cfg.Validate())
	})

	t.Run("invalid dead letter address", func(t *testing.T) {
		os.Clearenv()
		cfg := Load()
		cfg.OutboxDeadLetterAddress = "not an address"
		assert.Error(t, cfg.Validate())
	})

	t.Run("non positive batch size", func(t *testing.T) {
		os.Clearenv()
		cfg := Load()
		cfg.SchedulerBatchSize = 0
		assert.Error(t, cfg.Validate())
	})
}

func TestConfig_GetGinMode(t *testing.T) {
	cfg := &Config{LogLevel: "debug"}
	assert.Equal(t, "debug", cfg.GetGinMode())

	cfg.LogLevel = "warn"
	assert.Equal(t, "release", cfg.GetGinMode())
}
