// 版权所有 2024 ActionGate Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 llm 提供 AI 后端的接入层：provider 配置、注册表、请求上下文、
Adapter 抽象、提示词与自定义 provider 的持久化。

# 概述

网关面向多个可互换的视觉模型后端（OpenAI、Anthropic、本地 Ollama 以及
用户注册的自定义端点）。本包屏蔽它们在端点、鉴权与报文结构上的差异，
上层只需通过 [Registry] 查找配置、通过 Adapter 构造请求并提取回复文本。

# 核心接口

  - [Adapter]：构造上游请求（BuildRequest）、提取回复文本（ExtractRawText）、
    声明单次调用超时（Timeout）；不做网络 I/O
  - [ProviderStore]：自定义 provider 的持久化接口

# 核心类型

  - [ProviderConfig]：端点、模型、密钥、协议格式等配置；Configured 判断可调用性
  - [ProviderDescriptor]：对外展示的只读视图，不含密钥
  - [RequestContext]：单次请求的截图、UI 树、指令与历史轮次
  - [Registry]：RWMutex 保护的注册表，内置 provider 在 Seal 后不可覆盖
  - [GormProviderStore]：基于 GORM + SQLite 的持久化实现

# 子包

  - providers：共享调用路径 Call 以及错误映射、请求构造等工具
  - providers/openai、providers/anthropic、providers/ollama、providers/custom：各协议变体
  - factory：根据配置选择 Adapter 变体
*/
package llm
