// Package tlsutil 集中管理网关的 TLS 与出站 HTTP 设置：
// 面向模型提供方与 Redis 的客户端配置（TLS 1.2+，仅 AEAD 密码套件）、
// 监听端证书加载，以及提供方适配器共享的 http.Client。
package tlsutil
