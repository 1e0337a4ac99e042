// Copyright 2026 ActionGate Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
Package gateway 编排一次动作请求的完整流程：输入校验、解析提供方、
解码截图、经适配器调用模型、规范化模型输出并做安全校验。

# 核心类型

  - Gateway：持有 Registry、Validator 与共享 http.Client，提供
    Dispatch 与 RegisterProvider。
  - DispatchRequest / DispatchResult：一次调度的输入与输出。
  - CustomProviderInput：/add-provider 的 config 字段。

# 错误

Dispatch 只返回 *types.Error：输入问题为 INVALID_REQUEST，提供方不可用为
CONFIG_ERROR，网络与超时均为 PROVIDER_NETWORK_ERROR（超时为 504），
模型输出无法解析为 PARSE_ERROR。被丢弃的动作不是错误。
*/
package gateway
