// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 database 提供基于 GORM 的数据库连接与连接池管理，支持健康检查、
统计信息采集与事务重试，为生成历史存储提供底座。

# 核心类型

  - Open / Dialector：按驱动名（postgres、mysql、sqlite）打开 GORM 连接，
    sqlite 使用 glebarez 的纯 Go 实现，无需 CGO。
  - PoolManager：连接池管理器，持有 GORM DB 实例与底层 sql.DB，
    提供 DB()、Ping()、Stats()、Close() 等生命周期方法。
  - PoolConfig：连接池配置。
  - StatsRecorder：健康检查时上报连接数的接口，由 metrics.Collector 实现。

# 主要能力

  - 健康检查：后台定时 PingContext 探活，Close 时退出。
  - 事务管理：WithTransaction 提供单次事务执行，
    WithTransactionRetry 对死锁、序列化失败、SQLite 忙等错误指数退避重试。
*/
package database
