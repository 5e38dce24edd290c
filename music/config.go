package music

import "time"

// UdioConfig 配置 Udio 服务商.
type UdioConfig struct {
	Enabled bool          `json:"enabled" yaml:"enabled" env:"ENABLED"`
	BaseURL string        `json:"base_url" yaml:"base_url" env:"BASE_URL"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" env:"TIMEOUT"`
}

// DefaultUdioConfig 返回默认的 Udio 配置.
func DefaultUdioConfig() UdioConfig {
	return UdioConfig{
		Enabled: true,
		BaseURL: "https://www.udio.com/api",
		Timeout: 30 * time.Second,
	}
}

// SunoConfig 配置 Suno 服务商.
type SunoConfig struct {
	Enabled bool          `json:"enabled" yaml:"enabled" env:"ENABLED"`
	BaseURL string        `json:"base_url" yaml:"base_url" env:"BASE_URL"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty" env:"MODEL"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" env:"TIMEOUT"`
}

// DefaultSunoConfig 返回默认的 Suno 配置.
func DefaultSunoConfig() SunoConfig {
	return SunoConfig{
		Enabled: true,
		BaseURL: "https://api.sunoai.ai/v1",
		Model:   "chirp-v3-5",
		Timeout: 30 * time.Second,
	}
}

// ReplicateConfig 配置 Replicate 服务商.
type ReplicateConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" env:"ENABLED"`
	BaseURL string `json:"base_url" yaml:"base_url" env:"BASE_URL"`
	Version string `json:"version" yaml:"version" env:"VERSION"`
	Model   string `json:"model,omitempty" yaml:"model,omitempty" env:"MODEL"`
	// Duration is the requested clip length in seconds.
	Duration int           `json:"duration,omitempty" yaml:"duration,omitempty" env:"DURATION"`
	Timeout  time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" env:"TIMEOUT"`
}

// DefaultReplicateConfig 返回默认的 Replicate 配置 (MusicGen).
func DefaultReplicateConfig() ReplicateConfig {
	return ReplicateConfig{
		Enabled:  true,
		BaseURL:  "https://api.replicate.com/v1",
		Version:  "b05b1dff1d8c6dc63d14b0cdb42135378dcb87f6373b0d3d341ede46ca9bd0d2",
		Model:    "musicgen-medium",
		Duration: 20,
		Timeout:  30 * time.Second,
	}
}

// GenericConfig 配置遵循通用 submit/status 契约的后端.
type GenericConfig struct {
	Enabled   bool          `json:"enabled" yaml:"enabled" env:"ENABLED"`
	SubmitURL string        `json:"submit_url" yaml:"submit_url" env:"SUBMIT_URL"`
	StatusURL string        `json:"status_url" yaml:"status_url" env:"STATUS_URL"`
	Timeout   time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" env:"TIMEOUT"`
}

// DefaultGenericConfig 返回默认的通用后端配置，默认关闭.
func DefaultGenericConfig() GenericConfig {
	return GenericConfig{Timeout: 30 * time.Second}
}

// DemoConfig 配置进程内演示后端.
type DemoConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled" env:"ENABLED"`
	TrackURL string `json:"track_url" yaml:"track_url" env:"TRACK_URL"`
	// FinishAfter is the number of status queries before jobs report finished.
	FinishAfter int `json:"finish_after" yaml:"finish_after" env:"FINISH_AFTER"`
	// Tracks is the number of jobs created per submit.
	Tracks int `json:"tracks" yaml:"tracks" env:"TRACKS"`
	// Retention is how long a submitted job keeps answering status queries.
	Retention time.Duration `json:"retention" yaml:"retention" env:"RETENTION"`
}

// DefaultDemoConfig 返回默认的演示配置.
func DefaultDemoConfig() DemoConfig {
	return DemoConfig{
		Enabled:     true,
		TrackURL:    "https://www.soundjay.com/misc/sounds/bell-ringing-05.wav",
		FinishAfter: 1,
		Tracks:      1,
		Retention:   time.Hour,
	}
}

// ProvidersConfig groups every provider section.
type ProvidersConfig struct {
	Udio      UdioConfig      `json:"udio" yaml:"udio" env:"UDIO"`
	Suno      SunoConfig      `json:"suno" yaml:"suno" env:"SUNO"`
	Replicate ReplicateConfig `json:"replicate" yaml:"replicate" env:"REPLICATE"`
	Generic   GenericConfig   `json:"generic" yaml:"generic" env:"GENERIC"`
	Demo      DemoConfig      `json:"demo" yaml:"demo" env:"DEMO"`
}

// DefaultProvidersConfig 返回全部服务商的默认配置.
func DefaultProvidersConfig() ProvidersConfig {
	return ProvidersConfig{
		Udio:      DefaultUdioConfig(),
		Suno:      DefaultSunoConfig(),
		Replicate: DefaultReplicateConfig(),
		Generic:   DefaultGenericConfig(),
		Demo:      DefaultDemoConfig(),
	}
}
