// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 TechnoFlow HTTP API 的请求处理器实现。

# 概述

handlers 包实现了 TechnoFlow 所有 HTTP 端点的请求处理逻辑，
包括音乐生成、一次性状态查询、生成历史、健康检查以及统一的
响应/错误处理。所有 Handler 均遵循标准 net/http 接口。

# 核心类型

  - MusicHandler     — /、/services、/styles、/test、/generate、/status
  - HistoryHandler   — /api/v1/generations 列表与详情
  - HealthHandler    — 服务健康检查（/health, /healthz, /ready, /version）
  - Response         — 统一 JSON 响应结构（success + data + error + timestamp + request_id）
  - ErrorInfo        — 结构化错误信息，含 code、message、provider、retryable 标记
  - ResponseWriter   — 包装 http.ResponseWriter 以捕获状态码和响应大小
  - HealthCheck      — 可插拔健康检查接口，PingCheck 适配 Redis 与数据库

# 终态到状态码

	completed  → 200
	timed_out  → 202（附任务 ID 与 status_url，稍后查询）
	failed     → 502（SUBMISSION_FAILED / STATUS_QUERY_FAILED / GENERATION_FAILED）
	cancelled  → 499
	请求无效   → 400

# 主要能力

  - 统一响应格式：WriteSuccess / WriteEnvelope / WriteError / WriteJSON
  - 请求验证：DecodeJSONBody（1 MB 限制 + 严格模式）、ValidateContentType
  - ErrorCode → HTTP 状态码自动映射（4xx/5xx）
  - 就绪检查通过 errgroup 并发执行
*/
package handlers
