// 版权所有 2026 ActionGate Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的网关指标采集能力，覆盖
HTTP、模型提供方、动作校验、限流与执行器五个维度。

# 概述

Collector 持有独立的 prometheus.Registry 并通过 Handler 暴露
/metrics。所有指标按 namespace 隔离。

# 主要指标

  - http_requests_total / http_request_duration_seconds：按 method/path 分组，
    状态码归类为 2xx/4xx/5xx，429 单独计数。
  - provider_requests_total{provider,status} 与
    provider_request_duration_seconds{provider}。
  - validation_dropped_total{reason}：被丢弃的候选动作。
  - rate_limit_rejections_total{path}、rate_limit_store_errors_total。
  - executor_actions_total{kind,status}：run 命令下发的动作。
*/
package metrics
