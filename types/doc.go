// Copyright (c) ActionGate Authors.
// Licensed under the MIT License.

/*
Package types 提供 ActionGate 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 llm、action、gateway、
api 等上层模块提供统一的类型契约，以避免循环依赖。

# 核心类型

  - Error / ErrorCode  — 结构化错误体系，含 HTTP 状态码、上游状态、原始模型输出
  - ActionKind         — 五种自动化动作：click / type / press_keys / scroll / wait
  - ActionRecord       — 校验后的规范动作（即 execute_action 的载荷）
  - RawActionCandidate — 模型原始输出中的未校验条目
  - ValidationResult   — 接受的动作序列 + 丢弃计数
  - Turn               — 可选的历史对话轮次

# 主要能力

  - Context 传播：WithRequestID / WithClientID / WithUserID
  - 错误工具链：AsError / IsErrorCode / GetErrorCode / IsRetryable
  - 常用错误构造：NewInvalidRequestError / NewConfigError /
    NewProviderNetworkError / NewParseError
*/
package types
