// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 提供基于 Redis 的生成结果缓存。

# 概述

固定 seed 的生成请求是确定性的：相同的服务商、Prompt、seed 与歌词
会得到相同的结果。Manager 以这些参数的摘要为键缓存已完成的生成记录，
命中时直接返回，不再调用远端服务。

# 核心类型

  - Manager：持有 go-redis 客户端，提供 Get/Set/GetJSON/SetJSON/Delete，
    以及供就绪检查使用的 Ping。所有键自动加上 KeyPrefix。
  - Config：地址、密码、连接池、默认 TTL、TLS 开关与健康检查间隔。
  - Stats：进程内命中/未命中计数与当前键数量。

# 错误语义

未命中返回 ErrCacheMiss，可用 IsCacheMiss 判断；关闭后的调用返回 ErrClosed。
*/
package cache
