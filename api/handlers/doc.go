// Copyright (c) ActionGate Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 ActionGate HTTP API 的请求处理器实现。

# 核心类型

  - HealthHandler    — /health 与 /ready，可注册 HealthCheck（如 Redis）
  - ProvidersHandler — /providers 列表与 /add-provider 注册
  - ActionsHandler   — /get-actions，调用 gateway.Gateway
  - ResponseWriter   — 包装 http.ResponseWriter 以捕获状态码与字节数

# 主要能力

  - 统一错误格式：WriteError 将 *types.Error 映射为 HTTP 状态与
    {success:false, error, code, raw_response?}
  - 请求体限制：DecodeJSONBody 通过 http.MaxBytesReader 限制大小
*/
package handlers
