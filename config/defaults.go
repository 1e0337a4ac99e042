// =============================================================================
// 📦 ActionGate 默认配置
// =============================================================================
package config

import (
	"time"

	"github.com/BaSui01/actiongate/action"
	"github.com/BaSui01/actiongate/internal/executor"
	"github.com/BaSui01/actiongate/internal/ratelimit"
	"github.com/BaSui01/actiongate/llm"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:     DefaultServerConfig(),
		Providers:  DefaultProvidersConfig(),
		Gateway:    DefaultGatewayConfig(),
		Validation: action.DefaultLimits(),
		RateLimit:  DefaultRateLimitConfig(),
		Executor:   executor.DefaultConfig(),
		Log:        DefaultLogConfig(),
		Telemetry:  DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:    8080,
		MetricsPort: 9091,
		ReadTimeout: 30 * time.Second,
		// 本地模型最长 120s，写超时需覆盖
		WriteTimeout:    150 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 15 * time.Second,
	}
}

// DefaultProvidersConfig 返回内置提供方默认值
func DefaultProvidersConfig() ProvidersConfig {
	return ProvidersConfig{
		Default: llm.ProviderOpenAI,
		OpenAI: ProviderSettings{
			Endpoint: llm.DefaultOpenAIEndpoint,
			Model:    llm.DefaultOpenAIModel,
			Timeout:  llm.DefaultCloudTimeout,
		},
		Anthropic: ProviderSettings{
			Endpoint: llm.DefaultAnthropicEndpoint,
			Model:    llm.DefaultAnthropicModel,
			Timeout:  llm.DefaultCloudTimeout,
		},
		Ollama: ProviderSettings{
			Endpoint: llm.DefaultOllamaEndpoint,
			Model:    llm.DefaultOllamaModel,
			Timeout:  llm.DefaultLocalTimeout,
		},
	}
}

// DefaultGatewayConfig 返回默认调度参数
func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		MaxInstructionLength: 5000,
		MaxHistoryTurns:      20,
		MaxBodyBytes:         32 << 20,
	}
}

// DefaultRateLimitConfig 返回默认限流配置
func DefaultRateLimitConfig() RateLimitConfig {
	rl := ratelimit.DefaultConfig()
	return RateLimitConfig{
		Enabled:       true,
		Limit:         rl.Limit,
		Window:        rl.Window,
		Scope:         rl.Scope,
		Backend:       "memory",
		Redis:         ratelimit.RedisConfig{Addr: "localhost:6379", PoolSize: 10},
		SweepInterval: time.Minute,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{"stdout"},
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "actiongate",
		SampleRate:   0.1,
	}
}

// =============================================================================
// 🔌 内置提供方
// =============================================================================

// Builtins returns the built-in provider configs with overrides applied.
func (p ProvidersConfig) Builtins() []llm.ProviderConfig {
	out := llm.DefaultBuiltins()
	for i := range out {
		var s ProviderSettings
		switch out[i].ID {
		case llm.ProviderOpenAI:
			s = p.OpenAI
		case llm.ProviderAnthropic:
			s = p.Anthropic
		case llm.ProviderOllama:
			s = p.Ollama
		}
		if s.Endpoint != "" {
			out[i].Endpoint = s.Endpoint
		}
		if s.Model != "" {
			out[i].Model = s.Model
		}
		if s.Timeout > 0 {
			out[i].Timeout = s.Timeout
		}
		out[i].APIKey = s.APIKey
	}
	return out
}
