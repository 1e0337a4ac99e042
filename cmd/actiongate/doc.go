// Copyright 2026 ActionGate Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
Package main 提供 ActionGate 的可执行入口。

# 概述

cmd/actiongate 组装提供方注册表、动作校验器、网关、限流器与 HTTP 路由，
并提供 serve、run、health、version 子命令。配置来自 YAML/TOML 文件与
ACTIONGATE_ 前缀环境变量，日志使用 zap，指标由 Prometheus 暴露。

# 核心类型

  - Server      — 组装组件并管理 API 与 Metrics 两个监听及优雅关闭
  - Middleware  — HTTP 中间件函数签名 func(http.Handler) http.Handler

# 主要能力

  - 路由：/health、/providers、/get-actions、/add-provider 及其 /api 别名，
    /ready 汇总存储与 Redis 检查
  - 中间件链：Recovery、RequestID、SecurityHeaders、RequestLogger、Metrics、
    OTelTracing、CORS、ClientIdentity
  - 限流仅作用于 POST /get-actions，按 JWT sub、API Key 指纹或 IP 计数
  - /add-provider 在配置了 admin_api_keys 时要求 X-API-Key
  - run 子命令：启动执行器进程，截屏、检查 UI、调度后依次执行动作，
    首个失败即停止；--dry-run 只输出计划
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
