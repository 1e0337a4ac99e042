// Copyright 2026 ActionGate Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 providers 是所有 Adapter 的公共基础层：共享的调用路径与
请求构造、回复提取、错误映射等工具函数。各协议子包（openai、anthropic、
ollama、custom）只描述报文结构，网络 I/O 统一经由 Call 完成。

# 核心函数

  - Call — 以 Adapter.Timeout 为单次期限发送请求、限长读取响应体并提取回复文本
  - Preflight — 端点为空或缺少必需密钥时在任何网络调用前返回 CONFIG_ERROR
  - MapHTTPError — 将上游非 2xx 状态映射为 PROVIDER_NETWORK_ERROR（含 Retryable 标记）
  - ReadErrorMessage — 从错误响应体中提取可读信息
  - ExtractString — 按 gjson 路径提取回复文本，缺失时返回保留原文的 PARSE_ERROR
  - NewJSONRequest / BearerTokenHeaders / DataURL — 请求构造辅助

# 错误语义

  - 传输失败、非 2xx：PROVIDER_NETWORK_ERROR（HTTP 502）
  - 超时：PROVIDER_NETWORK_ERROR（HTTP 504，详情以 "upstream timeout" 开头）
  - 回复缺少预期字段：PARSE_ERROR（保留原始响应体）
*/
package providers
