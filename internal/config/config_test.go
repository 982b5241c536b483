package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderview/orderview/internal/config"
)

func TestDefaults(t *testing.T) {
	cfg, err := config.New()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 100, cfg.Database.BatchFetchSize)
	assert.Equal(t, 5*time.Minute, cfg.Cache.DefaultTTL)
	assert.Equal(t, "orderview", cfg.Observability.ServiceName)
	assert.Equal(t, "orders.events", cfg.Messaging.Kafka.Topic)
}

func TestBatchFetchSizeOverride(t *testing.T) {
	t.Setenv("DB_BATCH_FETCH_SIZE", "25")

	cfg, err := config.New()
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Database.BatchFetchSize)
}

func TestBatchFetchSizeRejectsNonPositive(t *testing.T) {
	t.Setenv("DB_BATCH_FETCH_SIZE", "0")

	_, err := config.New()
	assert.Error(t, err)
}

func TestUnsupportedCacheDriver(t *testing.T) {
	t.Setenv("CACHE_DRIVER", "memcached")

	_, err := config.New()
	assert.Error(t, err)
}

func TestDisabledCacheFallsBackToNoop(t *testing.T) {
	t.Setenv("CACHE_ENABLED", "false")

	cfg, err := config.New()
	require.NoError(t, err)
	assert.Equal(t, "noop", cfg.Cache.Driver)
}

func TestReaderDSNDefaultsToWriter(t *testing.T) {
	t.Setenv("DB_WRITER_DSN", "postgres://example/db")

	cfg, err := config.New()
	require.NoError(t, err)
	assert.Equal(t, cfg.Database.WriterDSN, cfg.Database.ReaderDSN)
}
