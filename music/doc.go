// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 music 提供 TECHNO 音乐生成的统一接入层，屏蔽不同服务商在接口协议、
鉴权方式和异步任务模型上的差异。

# 概述

每个服务商实现 Provider 接口：既是 jobs.Remote（提交 + 批量状态查询），
又负责本服务商的 Prompt 格式化与结果解码。Service 负责一次生成请求的
编排：解析服务商、格式化 Prompt、查询确定性结果缓存、带重试地提交任务、
通过 jobs.Poller 等待完成、解码音轨并记录历史。

# 服务商

  - Udio：generate-proxy 提交，songs?songIds= 批量查询，Cookie 鉴权。
  - Suno：任务制接口，单任务可产出多条音轨。
  - Replicate：predictions 接口，Token 鉴权。
  - Generic：符合通用 submit/status 契约的任意后端。
  - Demo：进程内模拟后端，无需密钥，返回演示音轨。

# 风格预设

minimal、acid、hard、melodic、dub、industrial，未知风格回落到 minimal。
各服务商通过 Formatter 将风格描述与用户输入拼接为最终 Prompt。
*/
package music
