package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 Manager 测试
// =============================================================================

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Manager) {
	t.Helper()
	mr := miniredis.RunT(t)

	config := DefaultConfig()
	config.Addr = mr.Addr()
	config.DefaultTTL = time.Minute
	config.HealthCheckInterval = 0

	manager, err := NewManager(config, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })
	return mr, manager
}

func TestNewManager_Unreachable(t *testing.T) {
	config := DefaultConfig()
	config.Addr = "127.0.0.1:1"
	_, err := NewManager(config, zap.NewNop())
	assert.Error(t, err)
}

func TestManager_SetAndGet(t *testing.T) {
	mr, manager := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, manager.Set(ctx, "k", "v", time.Minute))

	value, err := manager.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)

	// stored under the prefix
	raw, err := mr.Get("technoflow:k")
	require.NoError(t, err)
	assert.Equal(t, "v", raw)
}

func TestManager_Miss(t *testing.T) {
	_, manager := setupTestRedis(t)

	value, err := manager.Get(context.Background(), "absent")
	assert.True(t, IsCacheMiss(err))
	assert.Empty(t, value)
}

func TestManager_DefaultTTL(t *testing.T) {
	mr, manager := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, manager.Set(ctx, "k", "v", 0))
	assert.Equal(t, time.Minute, mr.TTL("technoflow:k"))

	mr.FastForward(2 * time.Minute)
	_, err := manager.Get(ctx, "k")
	assert.True(t, IsCacheMiss(err))
}

func TestManager_JSON(t *testing.T) {
	_, manager := setupTestRedis(t)
	ctx := context.Background()

	type track struct {
		ID       string  `json:"id"`
		AudioURL string  `json:"audio_url"`
		Duration float64 `json:"duration"`
	}
	in := []track{{ID: "a", AudioURL: "https://cdn/a.mp3", Duration: 31.5}}
	require.NoError(t, manager.SetJSON(ctx, "gen", in, time.Hour))

	var out []track
	require.NoError(t, manager.GetJSON(ctx, "gen", &out))
	assert.Equal(t, in, out)
}

func TestManager_GetJSON_Corrupt(t *testing.T) {
	mr, manager := setupTestRedis(t)
	require.NoError(t, mr.Set("technoflow:bad", "{not json"))

	var out map[string]any
	err := manager.GetJSON(context.Background(), "bad", &out)
	assert.Error(t, err)
	assert.False(t, IsCacheMiss(err))
}

func TestManager_Delete(t *testing.T) {
	mr, manager := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, manager.Set(ctx, "a", "1", 0))
	require.NoError(t, manager.Set(ctx, "b", "2", 0))
	require.NoError(t, manager.Delete(ctx, "a", "b"))
	require.NoError(t, manager.Delete(ctx))

	assert.False(t, mr.Exists("technoflow:a"))
	assert.False(t, mr.Exists("technoflow:b"))
}

func TestManager_Stats(t *testing.T) {
	_, manager := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, manager.Set(ctx, "k", "v", 0))
	_, _ = manager.Get(ctx, "k")
	_, _ = manager.Get(ctx, "k")
	_, _ = manager.Get(ctx, "missing")

	stats, err := manager.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Keys)
}

func TestManager_Closed(t *testing.T) {
	_, manager := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, manager.Close())
	require.NoError(t, manager.Close())

	assert.ErrorIs(t, manager.Ping(ctx), ErrClosed)
	assert.ErrorIs(t, manager.Set(ctx, "k", "v", 0), ErrClosed)
	_, err := manager.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestManager_PingFailsWhenRedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	config := DefaultConfig()
	config.Addr = mr.Addr()
	config.HealthCheckInterval = 0
	manager, err := NewManager(config, zap.NewNop())
	require.NoError(t, err)
	defer manager.Close()
	ctx := context.Background()

	require.NoError(t, manager.Ping(ctx))
	mr.Close()
	assert.Error(t, manager.Ping(ctx))
}
