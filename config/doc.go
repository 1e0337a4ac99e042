// Package config 提供 ActionGate 的配置管理功能。
//
// 配置来源依次为默认值、YAML 或 TOML 文件（按扩展名选择）、
// 各提供方惯用的环境变量（OPENAI_API_KEY 等）以及 ACTIONGATE_ 前缀的
// 环境变量。Validate 汇总全部错误后一次返回。
package config
