package llm

import (
	"time"
)

// Built-in provider ids. They are seeded at startup and can never be replaced
// through registration.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// BuiltinIDs lists the built-in providers in display order.
var BuiltinIDs = []string{ProviderOpenAI, ProviderAnthropic, ProviderOllama}

// IsBuiltinID reports whether id names a built-in provider.
func IsBuiltinID(id string) bool {
	switch id {
	case ProviderOpenAI, ProviderAnthropic, ProviderOllama:
		return true
	}
	return false
}

// ProviderKind 部署形态
type ProviderKind string

const (
	KindCloud ProviderKind = "cloud"
	KindLocal ProviderKind = "local"
)

// WireFormat 上游请求/响应的协议格式
type WireFormat string

const (
	FormatOpenAI    WireFormat = "openai"
	FormatAnthropic WireFormat = "anthropic"
	FormatOllama    WireFormat = "ollama"
)

// Valid reports whether f is a known wire format.
func (f WireFormat) Valid() bool {
	switch f {
	case FormatOpenAI, FormatAnthropic, FormatOllama:
		return true
	}
	return false
}

// 默认端点、模型与超时
const (
	DefaultOpenAIEndpoint    = "https://api.openai.com/v1/chat/completions"
	DefaultOpenAIModel       = "gpt-4-vision-preview"
	DefaultAnthropicEndpoint = "https://api.anthropic.com/v1/messages"
	DefaultAnthropicModel    = "claude-3-sonnet-20240229"
	DefaultOllamaEndpoint    = "http://localhost:11434/api/generate"
	DefaultOllamaModel       = "llava"

	DefaultCloudTimeout = 30 * time.Second
	DefaultLocalTimeout = 120 * time.Second
)

// ProviderConfig describes how to reach one AI backend.
type ProviderConfig struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Kind        ProviderKind `json:"type"`
	Format      WireFormat   `json:"format,omitempty"`
	Endpoint    string       `json:"endpoint"`
	Model       string       `json:"model"`
	APIKey      string       `json:"-"`
	RequiresKey bool         `json:"requires_key"`
	BuiltIn     bool         `json:"builtin"`

	// ResponsePath is a gjson path to the reply text, custom providers only.
	ResponsePath string        `json:"response_path,omitempty"`
	Timeout      time.Duration `json:"-"`
	Privacy      string        `json:"privacy,omitempty"`
}

// Configured reports whether the provider can be called without a ConfigError.
func (c ProviderConfig) Configured() bool {
	return !c.RequiresKey || c.APIKey != ""
}

// EffectiveTimeout returns the per-call timeout, falling back by kind.
func (c ProviderConfig) EffectiveTimeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	if c.Kind == KindLocal {
		return DefaultLocalTimeout
	}
	return DefaultCloudTimeout
}

// ProviderDescriptor is the public view of a provider returned by GET /providers.
// It never carries the credential.
type ProviderDescriptor struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Type        ProviderKind `json:"type"`
	RequiresKey bool         `json:"requires_key"`
	Configured  bool         `json:"configured"`
	Model       string       `json:"model,omitempty"`
	BuiltIn     bool         `json:"builtin"`
	Privacy     string       `json:"privacy,omitempty"`
}

// Descriptor builds the public view of c.
func (c ProviderConfig) Descriptor() ProviderDescriptor {
	name := c.Name
	if name == "" {
		name = c.ID
	}
	return ProviderDescriptor{
		ID:          c.ID,
		Name:        name,
		Type:        c.Kind,
		RequiresKey: c.RequiresKey,
		Configured:  c.Configured(),
		Model:       c.Model,
		BuiltIn:     c.BuiltIn,
		Privacy:     c.Privacy,
	}
}

// DefaultBuiltins returns the three built-in providers with default endpoints
// and models and no credentials.
func DefaultBuiltins() []ProviderConfig {
	return []ProviderConfig{
		{
			ID:          ProviderOpenAI,
			Name:        "OpenAI GPT-4 Vision",
			Kind:        KindCloud,
			Format:      FormatOpenAI,
			Endpoint:    DefaultOpenAIEndpoint,
			Model:       DefaultOpenAIModel,
			RequiresKey: true,
			BuiltIn:     true,
			Timeout:     DefaultCloudTimeout,
		},
		{
			ID:          ProviderAnthropic,
			Name:        "Anthropic Claude",
			Kind:        KindCloud,
			Format:      FormatAnthropic,
			Endpoint:    DefaultAnthropicEndpoint,
			Model:       DefaultAnthropicModel,
			RequiresKey: true,
			BuiltIn:     true,
			Timeout:     DefaultCloudTimeout,
		},
		{
			ID:          ProviderOllama,
			Name:        "Ollama (Local)",
			Kind:        KindLocal,
			Format:      FormatOllama,
			Endpoint:    DefaultOllamaEndpoint,
			Model:       DefaultOllamaModel,
			RequiresKey: false,
			BuiltIn:     true,
			Timeout:     DefaultLocalTimeout,
			Privacy:     "full",
		},
	}
}
