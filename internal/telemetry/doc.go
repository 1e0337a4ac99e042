// Package telemetry 封装 OpenTelemetry SDK 初始化逻辑，
// 为 ActionGate 安装 OTLP/gRPC 的 TracerProvider 与 MeterProvider，
// 并提供网关组件共用的 Tracer。遥测禁用时保留全局 noop 实现。
package telemetry
