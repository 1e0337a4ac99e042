/*
Package executor 实现与外部本地执行器进程通信的客户端。

# 概述

执行器负责截屏、UI 树提取与键鼠注入，网关与 run 命令只通过本包与之对话。
传输为 native messaging 风格的分帧协议：每条消息前置 4 字节本机字节序的
uint32 长度，随后是 UTF-8 JSON；一问一答，顺序执行。

# 核心类型

  - [Codec]：分帧读写，读取时以 MaxMessageSize 保护，零长度视为错误
  - [Client]：启动执行器子进程并串行化请求；ExecuteAction 由
    golang.org/x/time/rate 限速（默认每秒 5 个动作，突发 1）

# 错误语义

执行器返回 success=false 时映射为 EXECUTOR_ERROR；读写失败或上下文取消后
客户端进入不可用状态，后续调用直接返回错误。
*/
package executor
