// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 TechnoFlow 服务端程序入口。

# 概述

cmd/technoflow 提交 techno 生成任务到远端音乐服务（Udio、Suno、
Replicate、通用 HTTP 后端、演示后端），并在 HTTP 请求内轮询任务状态，
直到完成、超时、取消或失败。程序支持 YAML 配置文件加环境变量覆盖、
结构化日志（zap）、Prometheus 指标以及配置文件监听。

# 核心类型

  - Server      — 主服务器，装配依赖，管理 API 与 Metrics 双端口及优雅关闭
  - Middleware  — HTTP 中间件函数签名 func(http.Handler) http.Handler

# 主要能力

  - 子命令：serve、version、health
  - 中间件链：Recovery、RequestID、SecurityHeaders、RequestLogger、
    OTelTracing、Metrics、CORS、APIKeyAuth、JWTAuth、RateLimiter
  - 可选依赖：Redis 结果缓存、数据库生成历史，不可用时降级运行
  - 配置监听：文件变更后热更新日志级别
  - 优雅关闭：关闭超时后取消仍在轮询的生成请求
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
