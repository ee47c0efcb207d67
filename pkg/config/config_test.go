package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unset removes key for the duration of the test.
func unset(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoad_Defaults(t *testing.T) {
	unset(t, "PORT", "ORDER_STORE", "DB_NAME", "KAFKA_TOPIC", "KAFKA_ENABLED", "ROLE_CACHE_TTL", "JWT_TTL")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, OrderStorePostgres, cfg.OrderStore)
	assert.Equal(t, "garments", cfg.DBName)
	assert.Equal(t, "order-events", cfg.KafkaTopic)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, time.Hour, cfg.RoleCacheTTL)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("ORDER_STORE", OrderStoreDynamoDB)
	t.Setenv("ROLE_CACHE_TTL", "15m")
	t.Setenv("KAFKA_ENABLED", "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, OrderStoreDynamoDB, cfg.OrderStore)
	assert.Equal(t, 15*time.Minute, cfg.RoleCacheTTL)
	assert.True(t, cfg.KafkaEnabled)
}

func TestLoad_ReadsEnvFile(t *testing.T) {
	unset(t, "ORDER_TABLE_NAME")
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("ORDER_TABLE_NAME=garment-orders\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "garment-orders", cfg.OrderTableName)
}

func TestLoad_RejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"unknown order store", "ORDER_STORE", "mongodb"},
		{"empty secret", "JWT_SECRET", ""},
		{"zero cache ttl", "ROLE_CACHE_TTL", "0s"},
		{"unparseable ttl", "ROLE_CACHE_TTL", "an hour"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}

func TestBrokers(t *testing.T) {
	cfg := &Config{KafkaBrokers: "kafka-1:9092, kafka-2:9092,,"}
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Brokers())

	cfg.KafkaBrokers = ""
	assert.Empty(t, cfg.Brokers())
}

func TestDatabaseDSN(t *testing.T) {
	cfg := &Config{DBHost: "db", DBPort: "5432", DBUser: "app", DBPassword: "pw", DBName: "garments", DBSSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=app password=pw dbname=garments sslmode=disable", cfg.DatabaseDSN())
}
