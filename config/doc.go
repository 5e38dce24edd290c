// Package config 提供 TechnoFlow 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量（TECHNOFLOW_ 前缀）顺序加载，
// 覆盖 HTTP 服务、轮询、服务商、Redis、数据库、日志与遥测。
// FileWatcher 监听配置文件变更，用于运行时调整日志级别。
package config
