// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 history 基于 GORM 持久化每次音乐生成的记录，无论结果是完成、
超时、取消还是失败。

# 核心类型

  - Store：实现 music.HistoryRecorder，提供 Save、Get、List。
  - GenerationRecord / TrackRecord：数据库模型，一次生成对应多条音轨。
  - Filter：按服务商、状态分页查询。

生成记录与音轨在同一事务中写入，遇到死锁或 SQLite 忙时按
database.PoolManager 的策略重试。表结构由 Migrate 通过 AutoMigrate 创建。
*/
package history
