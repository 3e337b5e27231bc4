package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE_MODE", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("SEED_DEMO_DATA", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.StorageMode)
	assert.True(t, cfg.SeedDemoData)
	assert.False(t, cfg.KafkaEnabled())
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.RetryBackoff)
	assert.Equal(t, 24*time.Hour, cfg.SettlementLookback)
}

func TestLoadMongoRequiresURI(t *testing.T) {
	t.Setenv("STORAGE_MODE", "mongo")
	t.Setenv("MONGO_URI", "")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("KAFKA_TOPIC_PREFIX", "dev.")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.SeedDemoData)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "dev.sale.events.v1", cfg.Topic("sale.events.v1"))
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("STORAGE_MODE", "sqlite")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("STORAGE_MODE", "memory")
	t.Setenv("SETTLEMENT_LOOKBACK", "soon")
	_, err = Load()
	assert.Error(t, err)
}
