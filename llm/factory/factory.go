package factory

import (
	"github.com/BaSui01/actiongate/llm"
	claude "github.com/BaSui01/actiongate/llm/providers/anthropic"
	"github.com/BaSui01/actiongate/llm/providers/custom"
	"github.com/BaSui01/actiongate/llm/providers/ollama"
	"github.com/BaSui01/actiongate/llm/providers/openai"
)

// NewAdapter selects the adapter variant for cfg. Built-in ids map to their
// own variant; every other entry goes through the custom adapter.
func NewAdapter(cfg llm.ProviderConfig) (llm.Adapter, error) {
	if !cfg.BuiltIn {
		return custom.New(cfg)
	}

	switch cfg.ID {
	case llm.ProviderOpenAI:
		return openai.New(cfg), nil
	case llm.ProviderAnthropic:
		return claude.New(cfg), nil
	case llm.ProviderOllama:
		return ollama.New(cfg), nil
	default:
		return custom.New(cfg)
	}
}
