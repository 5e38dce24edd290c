// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖
HTTP、任务轮询、缓存与数据库四大维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
注册机制，默认注册到全局 Registerer，测试中可传入独立 Registry。
所有指标按 namespace 隔离，支持多维度 label 分组。

# 核心类型

  - Collector：指标收集器，实现 jobs.Observer，可直接挂载到轮询器。

# 主要能力

  - HTTP 指标：请求总数、请求耗时、请求/响应体大小，
    按 method/path/status 分组，状态码归类为 2xx/3xx/4xx/5xx。
  - 任务指标：提交与状态查询的次数和耗时（按 provider/result），
    终态计数（按 provider/state/code），等待耗时与每批查询次数分布。
  - 缓存指标：命中与未命中计数，按 cache_type 分组。
  - 数据库指标：活跃/空闲连接数 Gauge、查询耗时 Histogram，
    按 database/operation 分组。
*/
package metrics
