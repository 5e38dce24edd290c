package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeConfig(t *testing.T, path, content string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

// --- Constructor ---

func TestNewFileWatcher_Defaults(t *testing.T) {
	f := filepath.Join(t.TempDir(), "technoflow.yaml")
	writeConfig(t, f, "log:\n  level: info\n", time.Now())

	w, err := NewFileWatcher(NewLoader(), f, WithWatcherLogger(zap.NewNop()))
	require.NoError(t, err)
	assert.Equal(t, time.Second, w.interval)
	assert.False(t, w.IsRunning())
}

func TestNewFileWatcher_RequiresPath(t *testing.T) {
	_, err := NewFileWatcher(NewLoader(), "")
	assert.Error(t, err)
}

func TestNewFileWatcher_NonExistentPathWarns(t *testing.T) {
	w, err := NewFileWatcher(NewLoader(), "/nonexistent/path/config.yaml")
	require.NoError(t, err)
	require.NotNil(t, w)
}

// --- Reload ---

func TestFileWatcher_ReloadsOnChange(t *testing.T) {
	f := filepath.Join(t.TempDir(), "technoflow.yaml")
	base := time.Now().Add(-time.Hour)
	writeConfig(t, f, "log:\n  level: info\n", base)

	w, err := NewFileWatcher(NewLoader(), f)
	require.NoError(t, err)

	var levels []string
	w.OnReload(func(cfg *Config) { levels = append(levels, cfg.Log.Level) })

	// 未变更不回调
	w.check()
	assert.Empty(t, levels)

	writeConfig(t, f, "log:\n  level: debug\n", base.Add(time.Minute))
	w.check()
	assert.Equal(t, []string{"debug"}, levels)

	// 同一修改时间只处理一次
	w.check()
	assert.Len(t, levels, 1)
}

func TestFileWatcher_RejectsInvalidConfig(t *testing.T) {
	f := filepath.Join(t.TempDir(), "technoflow.yaml")
	base := time.Now().Add(-time.Hour)
	writeConfig(t, f, "log:\n  level: info\n", base)

	w, err := NewFileWatcher(NewLoader(), f)
	require.NoError(t, err)

	called := false
	w.OnReload(func(*Config) { called = true })

	writeConfig(t, f, "log:\n  level: shouting\n", base.Add(time.Minute))
	w.check()
	assert.False(t, called)

	writeConfig(t, f, "log: [broken", base.Add(2*time.Minute))
	w.check()
	assert.False(t, called)
}

func TestFileWatcher_RunStopsWithContext(t *testing.T) {
	f := filepath.Join(t.TempDir(), "technoflow.yaml")
	writeConfig(t, f, "log:\n  level: info\n", time.Now())

	w, err := NewFileWatcher(NewLoader(), f, WithPollInterval(10*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	assert.Eventually(t, w.IsRunning, time.Second, 5*time.Millisecond)
	assert.Error(t, w.Run(ctx), "second Run must be rejected")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
	assert.False(t, w.IsRunning())
}
