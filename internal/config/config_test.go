package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)

	assert.Equal(t, 50, cfg.Batching.Images.MaxBatch)
	assert.Equal(t, 30*time.Second, cfg.Batching.Images.MaxWait)
	assert.Equal(t, 5*time.Second, cfg.Batching.Images.PollInterval)

	assert.Equal(t, 10, cfg.Batching.Videos.MaxBatch)
	assert.Equal(t, 2*time.Minute, cfg.Batching.Videos.MaxWait)

	assert.Equal(t, 4, cfg.Scan.SmallBatchMax)
	assert.Equal(t, 3, cfg.Scan.RetryAttempts)
	assert.Equal(t, 2*time.Second, cfg.Scan.RetryDelay)

	assert.Equal(t, 10*time.Minute, cfg.Storage.ReadURLTTL)
	assert.Equal(t, "mediavault-staging", cfg.Storage.BucketStaging)
	assert.Equal(t, "mediavault-quarantine", cfg.Storage.BucketQuarantine)

	assert.Equal(t, "media:confirmed", cfg.Redis.Stream)
	assert.Equal(t, time.Hour, cfg.Sweep.StalePendingAfter)
}
