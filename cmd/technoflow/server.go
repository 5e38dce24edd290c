package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/technoflow/api/handlers"
	"github.com/BaSui01/technoflow/config"
	"github.com/BaSui01/technoflow/internal/cache"
	"github.com/BaSui01/technoflow/internal/database"
	"github.com/BaSui01/technoflow/internal/metrics"
	"github.com/BaSui01/technoflow/internal/server"
	"github.com/BaSui01/technoflow/internal/telemetry"
	"github.com/BaSui01/technoflow/music"
	"github.com/BaSui01/technoflow/music/history"
)

// metricsNamespace Prometheus 指标前缀
const metricsNamespace = "technoflow"

// skipAuthPaths 不需要鉴权的探针与入口路径
var skipAuthPaths = []string{"/", "/health", "/healthz", "/ready", "/readyz", "/version"}

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 TechnoFlow 的主服务器
type Server struct {
	cfg        *config.Config
	loader     *config.Loader
	configPath string
	logger     *zap.Logger
	level      zap.AtomicLevel

	// 依赖
	telemetry *telemetry.Providers
	registry  *prometheus.Registry
	collector *metrics.Collector
	cache     *cache.Manager
	pool      *database.PoolManager
	history   *history.Store
	service   *music.Service

	// Handlers
	healthHandler  *handlers.HealthHandler
	musicHandler   *handlers.MusicHandler
	historyHandler *handlers.HistoryHandler

	// 服务器管理器
	httpManager    *server.Manager
	metricsManager *server.Manager

	// 配置文件监听
	watcher *config.FileWatcher

	// 后台 goroutine（限流清理、配置监听）的生命周期
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer 创建新的服务器实例
func NewServer(cfg *config.Config, loader *config.Loader, configPath string, logger *zap.Logger, level zap.AtomicLevel) *Server {
	if loader == nil {
		loader = config.NewLoader()
	}
	return &Server{
		cfg:        cfg,
		loader:     loader,
		configPath: configPath,
		logger:     logger,
		level:      level,
	}
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 初始化依赖并启动 HTTP 与 Metrics 服务器（非阻塞）
func (s *Server) Start(ctx context.Context) error {
	bgCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	handler := s.build(ctx, bgCtx)

	if err := s.startHTTPServer(handler); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	if err := s.startWatcher(bgCtx); err != nil {
		return fmt.Errorf("failed to start config watcher: %w", err)
	}

	s.logger.Info("All servers started",
		zap.String("http_addr", s.httpManager.Addr()),
		zap.String("metrics_addr", s.metricsManager.Addr()),
		zap.Bool("hot_reload_enabled", s.watcher != nil),
	)
	return nil
}

// build 初始化所有依赖并返回带中间件的 API handler
func (s *Server) build(ctx, bgCtx context.Context) http.Handler {
	// 1. OpenTelemetry，失败时退化为 noop
	otelProviders, err := telemetry.Init(s.cfg.Telemetry, s.logger)
	if err != nil {
		s.logger.Warn("failed to initialize telemetry", zap.Error(err))
		otelProviders = &telemetry.Providers{}
	}
	s.telemetry = otelProviders

	// 2. 指标收集器使用独立 registry
	s.registry = prometheus.NewRegistry()
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.collector = metrics.NewCollectorWithRegisterer(metricsNamespace, s.registry, s.logger)

	// 3. 可选依赖：结果缓存与生成历史
	s.initCache()
	s.initHistory(ctx)

	// 4. 音乐服务
	s.initService()

	// 5. Handlers
	s.initHandlers()

	return s.routes(bgCtx)
}

// =============================================================================
// 🔧 初始化方法
// =============================================================================

// initCache 连接 Redis；不可用时只记录日志，生成照常进行
func (s *Server) initCache() {
	if !s.cfg.Redis.Enabled {
		s.logger.Info("Result cache disabled")
		return
	}
	c, err := cache.NewManager(s.cfg.Redis, s.logger)
	if err != nil {
		s.logger.Warn("Redis not available, result cache disabled", zap.Error(err))
		return
	}
	s.cache = c
	s.logger.Info("Result cache enabled", zap.String("addr", s.cfg.Redis.Addr))
}

// initHistory 打开数据库并迁移表结构；失败时关闭历史记录
func (s *Server) initHistory(ctx context.Context) {
	dbCfg := s.cfg.Database
	if dbCfg.Driver == "" {
		s.logger.Info("Database not configured, generation history disabled")
		return
	}

	db, err := database.Open(dbCfg.Driver, dbCfg.DSN())
	if err != nil {
		s.logger.Warn("Database not available, generation history disabled", zap.Error(err))
		return
	}

	poolCfg := database.DefaultPoolConfig()
	if dbCfg.MaxOpenConns > 0 {
		poolCfg.MaxOpenConns = dbCfg.MaxOpenConns
	}
	if dbCfg.MaxIdleConns > 0 {
		poolCfg.MaxIdleConns = min(dbCfg.MaxIdleConns, poolCfg.MaxOpenConns)
	}
	if dbCfg.ConnMaxLifetime > 0 {
		poolCfg.ConnMaxLifetime = dbCfg.ConnMaxLifetime
	}

	pool, err := database.NewPoolManager(db, poolCfg, s.collector, s.logger)
	if err != nil {
		s.logger.Warn("Database pool setup failed, generation history disabled", zap.Error(err))
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			sqlDB.Close()
		}
		return
	}

	store := history.NewStore(pool,
		history.WithQueryRecorder(s.collector),
		history.WithStoreLogger(s.logger),
	)
	if err := store.Migrate(ctx); err != nil {
		s.logger.Error("Database auto-migrate failed, generation history disabled", zap.Error(err))
		pool.Close()
		return
	}

	s.pool = pool
	s.history = store
	s.logger.Info("Generation history enabled", zap.String("driver", dbCfg.Driver))
}

// initService 组装服务商注册表与生成服务
func (s *Server) initService() {
	registry := music.NewDefaultRegistry(s.cfg.Providers, s.logger)

	opts := []music.ServiceOption{
		music.WithPollOptions(s.cfg.Poller.PollOptions()),
		music.WithRetryPolicy(s.cfg.Poller.Retry.Policy()),
		music.WithJobObserver(s.collector),
		music.WithServiceLogger(s.logger),
	}
	if s.cache != nil {
		opts = append(opts, music.WithResultCache(s.cache, s.cfg.Redis.DefaultTTL))
	}
	if s.history != nil {
		opts = append(opts, music.WithHistory(s.history))
	}
	s.service = music.NewService(registry, opts...)

	names := make([]string, 0)
	for _, info := range registry.List() {
		names = append(names, info.Name)
	}
	s.logger.Info("Music service initialized",
		zap.Strings("services", names),
		zap.Duration("poll_interval", s.cfg.Poller.Interval),
		zap.Duration("max_wait", s.cfg.Poller.MaxWait),
	)
}

// initHandlers 初始化所有 handlers
func (s *Server) initHandlers() {
	s.healthHandler = handlers.NewHealthHandler(s.logger)
	if s.cache != nil {
		s.healthHandler.RegisterCheck(handlers.NewPingCheck("redis", s.cache.Ping))
	}
	if s.history != nil {
		s.healthHandler.RegisterCheck(handlers.NewPingCheck("database", s.history.Ping))
	}

	s.musicHandler = handlers.NewMusicHandler(s.service, s.logger)
	if s.history != nil {
		s.historyHandler = handlers.NewHistoryHandler(s.history, s.logger)
	}

	s.logger.Info("Handlers initialized")
}

// =============================================================================
// 🌐 路由与中间件
// =============================================================================

// routes 注册路由并构建中间件链；bgCtx 控制限流清理 goroutine
func (s *Server) routes(bgCtx context.Context) http.Handler {
	mux := http.NewServeMux()

	// 健康检查端点
	mux.HandleFunc("GET /health", s.healthHandler.HandleHealth)
	mux.HandleFunc("GET /healthz", s.healthHandler.HandleHealthz)
	mux.HandleFunc("GET /ready", s.healthHandler.HandleReady)
	mux.HandleFunc("GET /readyz", s.healthHandler.HandleReady)
	mux.HandleFunc("GET /version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	// 生成 API
	mux.HandleFunc("GET /{$}", s.musicHandler.HandleIndex)
	mux.HandleFunc("GET /services", s.musicHandler.HandleServices)
	mux.HandleFunc("GET /styles", s.musicHandler.HandleStyles)
	mux.HandleFunc("POST /test", s.musicHandler.HandleTest)
	mux.HandleFunc("POST /generate", s.musicHandler.HandleGenerate)
	mux.HandleFunc("GET /status", s.musicHandler.HandleStatus)

	// 生成历史
	if s.historyHandler != nil {
		mux.HandleFunc("GET /api/v1/generations", s.historyHandler.HandleList)
		mux.HandleFunc("GET /api/v1/generations/{id}", s.historyHandler.HandleGet)
		s.logger.Info("History API routes registered")
	}

	middlewares := []Middleware{
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
	}
	if s.telemetry.Enabled() {
		middlewares = append(middlewares, OTelTracing())
	}
	middlewares = append(middlewares,
		MetricsMiddleware(s.collector),
		CORS(s.cfg.Server.CORSAllowedOrigins),
	)
	if len(s.cfg.Server.APIKeys) > 0 {
		middlewares = append(middlewares, APIKeyAuth(s.cfg.Server.APIKeys, skipAuthPaths, s.logger))
	}
	if s.cfg.Server.JWT.Enabled() {
		middlewares = append(middlewares, JWTAuth(s.cfg.Server.JWT, skipAuthPaths, s.logger))
	}
	// 放在鉴权之后，以便按 user_id 限流
	middlewares = append(middlewares,
		RateLimiter(bgCtx, s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger),
	)

	return Chain(mux, middlewares...)
}

// =============================================================================
// 🌐 HTTP 服务器
// =============================================================================

// startHTTPServer 启动 API 服务器
func (s *Server) startHTTPServer(handler http.Handler) error {
	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.httpManager = server.NewManager("api", handler, serverConfig, s.logger)
	return s.httpManager.Start()
}

// startMetricsServer 启动 Metrics 服务器
func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.ReadTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.metricsManager = server.NewManager("metrics", mux, serverConfig, s.logger)
	return s.metricsManager.Start()
}

// =============================================================================
// 🔄 配置热更新
// =============================================================================

// startWatcher 监听配置文件；运行中只应用日志级别，其余字段需重启生效
func (s *Server) startWatcher(ctx context.Context) error {
	if s.configPath == "" {
		return nil
	}

	watcher, err := config.NewFileWatcher(s.loader, s.configPath, config.WithWatcherLogger(s.logger))
	if err != nil {
		return err
	}
	watcher.OnReload(s.applyReload)
	s.watcher = watcher

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("Config watcher stopped", zap.Error(err))
		}
	}()
	return nil
}

// applyReload 应用已通过校验的新配置
func (s *Server) applyReload(cfg *config.Config) {
	newLevel := parseLevel(cfg.Log.Level)
	if newLevel != s.level.Level() {
		s.level.SetLevel(newLevel)
		s.logger.Info("Log level changed", zap.Stringer("level", newLevel))
	}

	if cfg.Poller != s.cfg.Poller || cfg.Server.HTTPPort != s.cfg.Server.HTTPPort {
		s.logger.Info("Configuration changed, restart required for server and poller settings")
	}
}

// =============================================================================
// 🛑 运行与关闭
// =============================================================================

// Run 阻塞直到 ctx 结束或任一服务器异常退出，然后优雅关闭
func (s *Server) Run(ctx context.Context) error {
	var runErr error
	select {
	case <-ctx.Done():
		s.logger.Info("Shutdown signal received")
	case err := <-s.httpManager.Errors():
		runErr = fmt.Errorf("api server: %w", err)
	case err := <-s.metricsManager.Errors():
		runErr = fmt.Errorf("metrics server: %w", err)
	}

	return errors.Join(runErr, s.Shutdown(context.Background()))
}

// Shutdown 优雅关闭所有服务。进行中的生成请求在关闭超时后被取消。
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Starting graceful shutdown...")

	var errs []error

	// 1. 关闭 HTTP 服务器
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("api server: %w", err))
		}
	}

	// 2. 关闭 Metrics 服务器
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server: %w", err))
		}
	}

	// 3. 停止限流清理与配置监听
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()

	// 4. 释放依赖
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("cache: %w", err))
		}
	}
	if s.pool != nil {
		if err := s.pool.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}
	if s.telemetry != nil {
		if err := s.telemetry.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("telemetry: %w", err))
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		s.logger.Error("Graceful shutdown completed with errors", zap.Error(err))
	} else {
		s.logger.Info("Graceful shutdown completed")
	}
	return err
}
