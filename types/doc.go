// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 TechnoFlow 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 music、api、internal
等上层模块提供统一的错误契约与 Context 传播工具，以避免循环依赖。

# 核心类型

  - Error / ErrorCode — 结构化错误，含 HTTP 状态码、Retryable、Provider 标记
  - 任务错误码        — SUBMISSION_FAILED、STATUS_QUERY_FAILED、GENERATION_FAILED、
    TIMEOUT、CANCELLED

# 主要能力

  - Context 传播：WithTraceID / WithRequestID / WithUserID / WithRoles
  - 错误工具链：AsError / GetErrorCode / IsErrorCode / IsRetryable
*/
package types
