// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 migration 管理生成历史表（generations、generation_tracks）的
版本化 Schema 迁移，支持 PostgreSQL、MySQL 与 SQLite，基于 golang-migrate 实现。

# 概述

各方言的 SQL 迁移文件通过 embed.FS 内嵌在二进制中，列名与索引名和
music/history 的 GORM 模型保持一致，因此 serve 启动时的 AutoMigrate
与 technoflow migrate 可以作用于同一个数据库。

# 核心接口与类型

  - Migrator：Up/Down/DownAll/Steps/Goto/Force/Version/Status/Info/Close。
  - DefaultMigrator：封装 golang-migrate 实例与数据库连接。
  - Config：数据库类型、连接 URL 与迁移版本表名。
  - CLI：为 technoflow migrate 子命令提供格式化输出。

# 主要能力

  - NewMigratorFromDatabaseConfig 直接复用 config.DatabaseConfig。
  - ParseDatabaseType 解析类型字符串，BuildDatabaseURL 按方言拼接连接 URL。
  - SQLite 迁移使用 sqlite3 驱动，需要 CGO。
*/
package migration
