package app

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/meeting-pipeline/internal/domain/repositories"
	"github.com/johnquangdev/meeting-pipeline/internal/infrastructure/cache"
	"github.com/johnquangdev/meeting-pipeline/pkg/ai"
	"github.com/johnquangdev/meeting-pipeline/pkg/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			Name:   fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		},
		Pipeline: config.PipelineConfig{
			LockBackend:    config.LockMemory,
			LockTTL:        time.Minute,
			StaleAfter:     time.Minute,
			ExtractionMode: config.ExtractionShared,
		},
	}
}

func TestNew(t *testing.T) {
	a, err := New(context.Background(), testConfig(), nil)
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &cache.MemoryLocker{}, a.Locker)
	assert.Nil(t, a.Redis)
	assert.Equal(t, time.Minute, a.Policy.StaleAfter)

	list, total, err := a.Tasks.List(context.Background(), repositories.TaskFilters{Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)
}

func TestHealthChecks(t *testing.T) {
	ctx := context.Background()

	t.Run("Should ping the database without a pipeline", func(t *testing.T) {
		a, err := New(ctx, testConfig(), nil)
		require.NoError(t, err)
		defer a.Close()

		checks := a.HealthChecks(nil)
		require.Len(t, checks, 1)
		require.Contains(t, checks, "database")
		assert.NoError(t, checks["database"](ctx))
	})

	t.Run("Should ping redis when it backs the lock", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := testConfig()
		cfg.Pipeline.LockBackend = config.LockRedis
		host, port, err := net.SplitHostPort(mr.Addr())
		require.NoError(t, err)
		cfg.Redis = config.RedisConfig{Host: host, Port: port}

		a, err := New(ctx, cfg, nil)
		require.NoError(t, err)
		defer a.Close()

		checks := a.HealthChecks(&Pipeline{})
		require.Contains(t, checks, "redis")
		assert.NotContains(t, checks, "storage")
		assert.NoError(t, checks["redis"](ctx))

		mr.Close()
		assert.Error(t, checks["redis"](ctx))
	})

	t.Run("Should report a closed database", func(t *testing.T) {
		a, err := New(ctx, testConfig(), nil)
		require.NoError(t, err)
		a.Close()

		assert.Error(t, a.HealthChecks(nil)["database"](ctx))
	})
}

func TestStageSet(t *testing.T) {
	a := &App{Config: testConfig()}

	t.Run("Should parse portions of the shared analysis", func(t *testing.T) {
		set, err := a.stageSet(nil)
		require.NoError(t, err)
		assert.IsType(t, ai.PortionExtractor{}, set.Timeline)
		assert.IsType(t, ai.PortionExtractor{}, set.Tasks)
		assert.IsType(t, &ai.GroqClient{}, set.Analyzer)
	})

	t.Run("Should call the model per extraction in dedicated mode", func(t *testing.T) {
		a.Config.Pipeline.ExtractionMode = config.ExtractionDedicated
		set, err := a.stageSet(nil)
		require.NoError(t, err)
		assert.IsType(t, &ai.GroqClient{}, set.Timeline)
		assert.IsType(t, &ai.GroqClient{}, set.Tasks)
	})

	t.Run("Should reject an unknown mode", func(t *testing.T) {
		a.Config.Pipeline.ExtractionMode = "hybrid"
		_, err := a.stageSet(nil)
		assert.Error(t, err)
	})
}
