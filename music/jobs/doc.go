// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 jobs 提供远端异步生成任务的提交与轮询等待能力。

# 概述

远端音乐服务通常以"提交 + 查询"的方式工作：提交接口返回一组任务 ID，
状态接口按 ID 集合返回每个任务是否完成。Poller 负责一次生成请求的完整
生命周期：提交、按固定间隔整批查询、在墙钟超时内等待全部任务完成，
并以可检查的 Outcome 返回终态，而不是抛出笼统的错误。

# 核心类型

  - Remote：远端服务契约（Submit / Status）。
  - Batch：一次提交产生的任务 ID 集合，创建后不可变，只能被等待一次。
  - Poller：提交与轮询执行器，本身不持有跨批次的可变状态。
  - Outcome：终态结果（Completed / TimedOut / Cancelled / Failed）。
  - State：显式状态机 Submitted → Polling → 终态。

# 轮询语义

  - 每轮只对整批任务发起一次状态查询，请求次数与批大小无关。
  - 仅当同一次响应中所有任务均 finished=true 时才判定 Completed。
  - 已耗时从提交时刻起算，仅在 elapsed < MaxWait 时发起查询；
    等待时间被截断到剩余预算，预算耗尽返回 TimedOut。
  - 状态查询传输失败立即返回 Failed(STATUS_QUERY_FAILED)，本层不重试。
  - context 取消立即解除阻塞并返回 Cancelled。
*/
package jobs
