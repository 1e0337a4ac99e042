// Copyright 2026 ActionGate Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 claude 提供 Anthropic Messages API（/v1/messages）格式的 Adapter 实现。

# 协议差异

  - 认证使用 x-api-key 请求头（非 Bearer Token），并携带 anthropic-version
  - system 提示单独放在 system 字段
  - 截图以 image 块（source.type=base64）内联，media_type 来自嗅探结果
  - 回复文本取 content 数组中第一个 type 为 text 的元素
*/
package claude
