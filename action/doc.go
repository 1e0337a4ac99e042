// Copyright (c) ActionGate Authors.
// Licensed under the MIT License.

/*
Package action 将模型原始输出转换为可安全执行的规范动作序列。

# 概述

模型返回的文本可能带有 Markdown 代码围栏、可能被二次 JSON 编码，
其中的单个条目也可能缺字段、类型错误或根本不是对象。本包分两步处理：

  - Normalize：固定语法（可选去围栏 → 一次解析 → 若结果为字符串再解析一次），
    输出有序的 RawActionCandidate 序列，失败时返回保留原始文本的 PARSE_ERROR。
  - Validator：单遍 O(n) 安全策略，逐条独立判定，丢弃不合法条目并计数，
    保持被接受条目的原有顺序。丢弃不是错误。

# 安全边界

坐标、文本长度、等待时长、按键数量与滚动幅度均由 Limits 配置，
用于阻止模型点击非预期屏幕区域（例如副屏），或用超长文本/等待拖垮执行器。
*/
package action
