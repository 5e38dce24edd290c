// =============================================================================
// 📦 TechnoFlow 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import (
	"time"

	"github.com/BaSui01/technoflow/internal/cache"
	"github.com/BaSui01/technoflow/music"
	"github.com/BaSui01/technoflow/music/jobs"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Poller:    DefaultPollerConfig(),
		Providers: music.DefaultProvidersConfig(),
		Redis:     cache.DefaultConfig(),
		Database:  DefaultDatabaseConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    jobs.DefaultMaxWait + 30*time.Second,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    10,
		RateLimitBurst:  20,
	}
}

// DefaultPollerConfig 返回默认轮询配置：每 5 秒查询一次，最多等待 300 秒
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		Interval: jobs.DefaultPollInterval,
		MaxWait:  jobs.DefaultMaxWait,
		Retry:    DefaultRetryConfig(),
	}
}

// DefaultRetryConfig 返回默认提交重试配置
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   2,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置（本地 sqlite 文件）
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "sqlite",
		Host:            "localhost",
		Port:            5432,
		User:            "technoflow",
		Name:            "technoflow.db",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		Insecure:     true,
		ServiceName:  "technoflow",
		SampleRate:   0.1,
	}
}
