package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/technoflow/api"
	"github.com/BaSui01/technoflow/api/handlers"
	"github.com/BaSui01/technoflow/config"
)

// =============================================================================
// 🧪 测试辅助
// =============================================================================

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Poller.Interval = 5 * time.Millisecond
	cfg.Poller.MaxWait = 2 * time.Second
	cfg.Poller.Retry.MaxRetries = 0
	cfg.Server.RateLimitRPS = 0
	return cfg
}

// newTestHandler 初始化依赖但不监听端口
func newTestHandler(t *testing.T, cfg *config.Config) (*Server, http.Handler) {
	t.Helper()
	s := NewServer(cfg, nil, "", zap.NewNop(), zap.NewAtomicLevel())

	bgCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	handler := s.build(context.Background(), bgCtx)

	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s, handler
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, target, &buf)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, dst any) handlers.Response {
	t.Helper()
	var raw struct {
		handlers.Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&raw))
	if dst != nil {
		require.NoError(t, json.Unmarshal(raw.Data, dst))
	}
	return raw.Response
}

// =============================================================================
// 🧪 路由与依赖装配
// =============================================================================

func TestServer_GenerateWithCacheAndHistory(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig()
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = mr.Addr()
	cfg.Redis.HealthCheckInterval = 0
	cfg.Database.Driver = "sqlite"
	cfg.Database.Name = filepath.Join(t.TempDir(), "history.db")

	s, h := newTestHandler(t, cfg)
	require.NotNil(t, s.cache)
	require.NotNil(t, s.history)

	seed := 7
	req := api.GenerateRequest{Service: "demo", Style: "acid", Prompt: "warehouse at 4am", Seed: &seed}

	// 第一次走完整的提交与轮询
	w := do(t, h, http.MethodPost, "/generate", req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var first api.GenerateResponse
	resp := decodeData(t, w, &first)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, "completed", first.State)
	assert.Len(t, first.Tracks, 1)
	assert.False(t, first.Cached)
	assert.Positive(t, first.StatusQueries)

	// 相同 seed 命中 Redis 缓存
	w = do(t, h, http.MethodPost, "/generate", req)
	require.Equal(t, http.StatusOK, w.Code)
	var second api.GenerateResponse
	decodeData(t, w, &second)
	assert.True(t, second.Cached)
	assert.Equal(t, first.JobIDs, second.JobIDs)

	// 两次生成都写入历史
	w = do(t, h, http.MethodGet, "/api/v1/generations?service=demo", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list api.GenerationList
	decodeData(t, w, &list)
	assert.Equal(t, int64(2), list.Total)

	w = do(t, h, http.MethodGet, "/api/v1/generations/"+first.GenerationID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// 就绪探针包含两个依赖
	w = do(t, h, http.MethodGet, "/ready", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ready handlers.HealthStatus
	require.NoError(t, json.NewDecoder(w.Body).Decode(&ready))
	assert.Equal(t, "pass", ready.Checks["redis"].Status)
	assert.Equal(t, "pass", ready.Checks["database"].Status)

	// 请求与轮询指标写入独立 registry
	count, err := testutil.GatherAndCount(s.registry,
		"technoflow_http_requests_total",
		"technoflow_job_status_queries_total",
	)
	require.NoError(t, err)
	assert.Positive(t, count)
}

func TestServer_DegradesWithoutOptionalDependencies(t *testing.T) {
	cfg := testConfig()
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = "127.0.0.1:1" // 无法连接
	cfg.Database.Driver = ""

	s, h := newTestHandler(t, cfg)
	assert.Nil(t, s.cache)
	assert.Nil(t, s.history)

	w := do(t, h, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodGet, "/api/v1/generations", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodPost, "/generate", api.GenerateRequest{Service: "demo", Prompt: "rolling"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_Routes(t *testing.T) {
	_, h := newTestHandler(t, testConfig())

	tests := []struct {
		name   string
		method string
		target string
		body   any
		want   int
	}{
		{"index", http.MethodGet, "/", nil, http.StatusOK},
		{"health", http.MethodGet, "/health", nil, http.StatusOK},
		{"healthz", http.MethodGet, "/healthz", nil, http.StatusOK},
		{"readyz", http.MethodGet, "/readyz", nil, http.StatusOK},
		{"version", http.MethodGet, "/version", nil, http.StatusOK},
		{"services", http.MethodGet, "/services", nil, http.StatusOK},
		{"styles", http.MethodGet, "/styles", nil, http.StatusOK},
		{"unknown service", http.MethodPost, "/generate", api.GenerateRequest{Service: "nope"}, http.StatusBadRequest},
		{"missing credential", http.MethodPost, "/test", api.TestRequest{Service: "suno"}, http.StatusBadRequest},
		{"status without ids", http.MethodGet, "/status?service=demo", nil, http.StatusBadRequest},
		{"wrong method", http.MethodGet, "/generate", nil, http.StatusMethodNotAllowed},
		{"unknown path", http.MethodGet, "/nope", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestServer_StatusAfterGenerate(t *testing.T) {
	_, h := newTestHandler(t, testConfig())

	w := do(t, h, http.MethodPost, "/generate", api.GenerateRequest{Service: "demo", Prompt: "acid"})
	require.Equal(t, http.StatusOK, w.Code)
	var gen api.GenerateResponse
	decodeData(t, w, &gen)
	require.NotEmpty(t, gen.JobIDs)

	w = do(t, h, http.MethodGet, "/status?service=demo&ids="+gen.JobIDs[0], nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status api.StatusResponse
	decodeData(t, w, &status)
	assert.True(t, status.AllFinished)
}

func TestServer_APIKeyProtectsGenerationRoutes(t *testing.T) {
	cfg := testConfig()
	cfg.Server.APIKeys = []string{"k1"}
	_, h := newTestHandler(t, cfg)

	w := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodGet, "/services", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	r := httptest.NewRequest(http.MethodGet, "/services", nil)
	r.Header.Set("X-API-Key", "k1")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
}

// =============================================================================
// 🧪 生命周期
// =============================================================================

func TestServer_StartRunShutdown(t *testing.T) {
	cfg := testConfig()
	cfg.Server.HTTPPort = 0
	cfg.Server.MetricsPort = 0

	s := NewServer(cfg, nil, "", zap.NewNop(), zap.NewAtomicLevel())
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))

	_, port, err := net.SplitHostPort(s.httpManager.Addr())
	require.NoError(t, err)
	resp, err := http.Get("http://127.0.0.1:" + port + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, port, err = net.SplitHostPort(s.metricsManager.Addr())
	require.NoError(t, err)
	resp, err = http.Get("http://127.0.0.1:" + port + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.False(t, s.httpManager.IsRunning())
}

func TestServer_ConfigReloadChangesLogLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: info\n"), 0o600))

	cfg := testConfig()
	cfg.Server.HTTPPort = 0
	cfg.Server.MetricsPort = 0

	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	s := NewServer(cfg, config.NewLoader(), path, zap.NewNop(), level)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	require.NotNil(t, s.watcher)

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	assert.Eventually(t, func() bool {
		return level.Level() == zapcore.DebugLevel
	}, 5*time.Second, 50*time.Millisecond)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("WARN"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}
