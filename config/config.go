package config

import (
	"time"

	"github.com/BaSui01/actiongate/action"
	"github.com/BaSui01/actiongate/internal/executor"
	"github.com/BaSui01/actiongate/internal/ratelimit"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 ActionGate 的完整配置结构
type Config struct {
	Server     ServerConfig    `yaml:"server" toml:"server" env:"SERVER"`
	Auth       AuthConfig      `yaml:"auth" toml:"auth" env:"AUTH"`
	Providers  ProvidersConfig `yaml:"providers" toml:"providers" env:"PROVIDERS"`
	Gateway    GatewayConfig   `yaml:"gateway" toml:"gateway" env:"GATEWAY"`
	Validation action.Limits   `yaml:"validation" toml:"validation" env:"VALIDATION"`
	RateLimit  RateLimitConfig `yaml:"ratelimit" toml:"ratelimit" env:"RATELIMIT"`
	Registry   RegistryConfig  `yaml:"registry" toml:"registry" env:"REGISTRY"`
	Executor   executor.Config `yaml:"executor" toml:"executor" env:"EXECUTOR"`
	Log        LogConfig       `yaml:"log" toml:"log" env:"LOG"`
	Telemetry  TelemetryConfig `yaml:"telemetry" toml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// HTTP 端口
	HTTPPort int `yaml:"http_port" toml:"http_port" env:"HTTP_PORT"`
	// Metrics 端口，0 表示在主端口上暴露 /metrics
	MetricsPort int `yaml:"metrics_port" toml:"metrics_port" env:"METRICS_PORT"`

	ReadTimeout     time.Duration `yaml:"read_timeout" toml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" toml:"write_timeout" env:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" toml:"idle_timeout" env:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`

	// CORS 允许的来源，空表示允许所有
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" toml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
	// AdminAPIKeys 保护 /add-provider，空表示不鉴权
	AdminAPIKeys []string `yaml:"admin_api_keys" toml:"admin_api_keys" env:"ADMIN_API_KEYS"`
	// ClientAPIKeys 登记的客户端 key，仅用作限流身份；未登记的 key 按 IP 限流
	ClientAPIKeys []string `yaml:"client_api_keys" toml:"client_api_keys" env:"CLIENT_API_KEYS"`

	TLSCertFile string `yaml:"tls_cert_file" toml:"tls_cert_file" env:"TLS_CERT_FILE"`
	TLSKeyFile  string `yaml:"tls_key_file" toml:"tls_key_file" env:"TLS_KEY_FILE"`
}

// AuthConfig 鉴权配置
type AuthConfig struct {
	JWT JWTConfig `yaml:"jwt" toml:"jwt" env:"JWT"`
}

// JWTConfig 可选的 JWT 校验。Secret 为空时不启用。
type JWTConfig struct {
	Secret   string `yaml:"secret" toml:"secret" env:"SECRET"`
	Issuer   string `yaml:"issuer" toml:"issuer" env:"ISSUER"`
	Audience string `yaml:"audience" toml:"audience" env:"AUDIENCE"`
}

// Enabled reports whether bearer tokens are verified.
func (j JWTConfig) Enabled() bool { return j.Secret != "" }

// ProvidersConfig 内置提供方配置
type ProvidersConfig struct {
	// Default 请求未指定 provider 时使用
	Default   string           `yaml:"default" toml:"default" env:"DEFAULT"`
	OpenAI    ProviderSettings `yaml:"openai" toml:"openai" env:"OPENAI"`
	Anthropic ProviderSettings `yaml:"anthropic" toml:"anthropic" env:"ANTHROPIC"`
	Ollama    ProviderSettings `yaml:"ollama" toml:"ollama" env:"OLLAMA"`
}

// ProviderSettings 单个内置提供方的可覆盖项
type ProviderSettings struct {
	Endpoint string        `yaml:"endpoint" toml:"endpoint" env:"ENDPOINT"`
	Model    string        `yaml:"model" toml:"model" env:"MODEL"`
	APIKey   string        `yaml:"api_key" toml:"api_key" env:"API_KEY"`
	Timeout  time.Duration `yaml:"timeout" toml:"timeout" env:"TIMEOUT"`
}

// GatewayConfig 调度参数
type GatewayConfig struct {
	MaxInstructionLength int   `yaml:"max_instruction_length" toml:"max_instruction_length" env:"MAX_INSTRUCTION_LENGTH"`
	MaxHistoryTurns      int   `yaml:"max_history_turns" toml:"max_history_turns" env:"MAX_HISTORY_TURNS"`
	MaxBodyBytes         int64 `yaml:"max_body_bytes" toml:"max_body_bytes" env:"MAX_BODY_BYTES"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled bool            `yaml:"enabled" toml:"enabled" env:"ENABLED"`
	Limit   int             `yaml:"limit" toml:"limit" env:"LIMIT"`
	Window  time.Duration   `yaml:"window" toml:"window" env:"WINDOW"`
	Scope   ratelimit.Scope `yaml:"scope" toml:"scope" env:"SCOPE"`
	// Backend memory 或 redis
	Backend       string                `yaml:"backend" toml:"backend" env:"BACKEND"`
	Redis         ratelimit.RedisConfig `yaml:"redis" toml:"redis" env:"REDIS"`
	SweepInterval time.Duration         `yaml:"sweep_interval" toml:"sweep_interval" env:"SWEEP_INTERVAL"`
}

// Limiter returns the limiter policy.
func (r RateLimitConfig) Limiter() ratelimit.Config {
	return ratelimit.Config{Limit: r.Limit, Window: r.Window, Scope: r.Scope}
}

// RegistryConfig 自定义提供方持久化
type RegistryConfig struct {
	// StorePath SQLite 文件路径，空表示仅内存
	StorePath string `yaml:"store_path" toml:"store_path" env:"STORE_PATH"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level       string   `yaml:"level" toml:"level" env:"LEVEL"`
	Format      string   `yaml:"format" toml:"format" env:"FORMAT"`
	OutputPaths []string `yaml:"output_paths" toml:"output_paths" env:"OUTPUT_PATHS"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" toml:"enabled" env:"ENABLED"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" toml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	ServiceName  string  `yaml:"service_name" toml:"service_name" env:"SERVICE_NAME"`
	SampleRate   float64 `yaml:"sample_rate" toml:"sample_rate" env:"SAMPLE_RATE"`
}
