// Package ratelimit 提供按客户端身份计数的固定窗口限流器。
//
// 计数存储可选进程内 MemoryStore 或基于 Redis 的 RedisStore（多实例共享配额）。
// 存储故障时限流器放行请求并记录告警，不让限流拖垮网关。
package ratelimit
