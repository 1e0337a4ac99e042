// Copyright 2026 ActionGate Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 openai 提供 OpenAI Chat Completions 格式的 Adapter 实现，
同时是自定义 OpenAI 兼容端点（LM Studio、vLLM、OpenRouter 等）的默认格式。

# 核心结构体

  - Adapter — 实现 llm.Adapter，只负责构造请求与提取回复文本，不做网络 I/O

# 协议要点

  - system 消息携带动作说明，历史轮次按 role 原样透传
  - user 消息为 content 数组：text 块（指令 + UI 树）与可选 image_url 块
  - 截图以 data:<media>;base64,... URL 内联
  - 认证使用 Authorization: Bearer，密钥为空时不附加
  - 回复文本位于 choices.0.message.content
*/
package openai
