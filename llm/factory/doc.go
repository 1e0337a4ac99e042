// Package factory 提供 Adapter 的集中式工厂，
// 根据 ProviderConfig 选择具体的协议变体，打破 llm 包与各 provider 子包之间的循环依赖。
package factory
