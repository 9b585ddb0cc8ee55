package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("Should apply pipeline defaults", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 2, cfg.Pipeline.MaxRetries)
		assert.Equal(t, 2*time.Second, cfg.Pipeline.RetryBackoff)
		assert.Equal(t, 15*time.Minute, cfg.Pipeline.TranscriptionTimeout)
		assert.Equal(t, LockMemory, cfg.Pipeline.LockBackend)
		assert.Equal(t, "@every 5m", cfg.Pipeline.SweepSchedule)
		assert.Equal(t, ExtractionShared, cfg.Pipeline.ExtractionMode)
		assert.Equal(t, int64(100<<20), cfg.Server.MaxUploadBytes)
	})

	t.Run("Should read pipeline overrides from the environment", func(t *testing.T) {
		t.Setenv("PIPELINE_MAX_RETRIES", "4")
		t.Setenv("PIPELINE_LOCK_BACKEND", "redis")
		t.Setenv("PIPELINE_EXTRACTION_MODE", "dedicated")
		t.Setenv("PIPELINE_ANALYSIS_TIMEOUT", "90s")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 4, cfg.Pipeline.MaxRetries)
		assert.Equal(t, LockRedis, cfg.Pipeline.LockBackend)
		assert.Equal(t, ExtractionDedicated, cfg.Pipeline.ExtractionMode)
		assert.Equal(t, 90*time.Second, cfg.Pipeline.AnalysisTimeout)
	})

	t.Run("Should reject an unknown lock backend", func(t *testing.T) {
		t.Setenv("PIPELINE_LOCK_BACKEND", "etcd")

		_, err := Load()
		assert.ErrorContains(t, err, "PIPELINE_LOCK_BACKEND")
	})
}

func TestPipelineConfig_Validate(t *testing.T) {
	valid := func() PipelineConfig {
		return PipelineConfig{
			MaxRetries:           2,
			TranscriptionTimeout: time.Minute,
			AnalysisTimeout:      time.Minute,
			ExtractionTimeout:    time.Minute,
			Workers:              1,
			QueueSize:            1,
			LockBackend:          LockMemory,
			LockTTL:              time.Minute,
			ExtractionMode:       ExtractionShared,
		}
	}

	t.Run("Should accept a complete policy", func(t *testing.T) {
		p := valid()
		assert.NoError(t, p.Validate())
	})

	t.Run("Should reject negative retries", func(t *testing.T) {
		p := valid()
		p.MaxRetries = -1
		assert.Error(t, p.Validate())
	})

	t.Run("Should reject a zero timeout", func(t *testing.T) {
		p := valid()
		p.ExtractionTimeout = 0
		assert.Error(t, p.Validate())
	})

	t.Run("Should reject an unknown extraction mode", func(t *testing.T) {
		p := valid()
		p.ExtractionMode = "hybrid"
		assert.Error(t, p.Validate())
	})
}
