// Package telemetry 封装 OpenTelemetry SDK 初始化逻辑，
// 为 TechnoFlow 的 HTTP 请求和任务轮询提供 TracerProvider 与 MeterProvider。
// 当遥测功能禁用时，使用 noop 实现，不连接任何外部服务。
package telemetry
