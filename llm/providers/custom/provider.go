// Package custom adapts user-registered endpoints. A custom provider borrows
// the wire format of one built-in variant and may override where the reply
// text is found with a gjson path.
package custom

import (
	"context"
	"net/http"
	"time"

	"github.com/BaSui01/actiongate/llm"
	"github.com/BaSui01/actiongate/llm/providers"
	claude "github.com/BaSui01/actiongate/llm/providers/anthropic"
	"github.com/BaSui01/actiongate/llm/providers/ollama"
	"github.com/BaSui01/actiongate/llm/providers/openai"
	"github.com/BaSui01/actiongate/types"
)

// Adapter wraps a format adapter for a custom endpoint.
type Adapter struct {
	cfg   llm.ProviderConfig
	inner llm.Adapter
}

// New creates a custom adapter. An unknown format is a CONFIG_ERROR.
func New(cfg llm.ProviderConfig) (*Adapter, error) {
	format := cfg.Format
	if format == "" {
		format = llm.FormatOpenAI
	}

	var inner llm.Adapter
	switch format {
	case llm.FormatOpenAI:
		inner = openai.New(cfg)
	case llm.FormatAnthropic:
		inner = claude.New(cfg)
	case llm.FormatOllama:
		inner = ollama.New(cfg)
	default:
		return nil, types.NewConfigError(cfg.ID, "unsupported wire format "+string(format)).
			WithHTTPStatus(http.StatusServiceUnavailable)
	}
	return &Adapter{cfg: cfg, inner: inner}, nil
}

// ProviderID returns the registry id.
func (a *Adapter) ProviderID() string { return a.cfg.ID }

// Timeout returns the per-call timeout.
func (a *Adapter) Timeout() time.Duration { return a.inner.Timeout() }

// BuildRequest delegates to the format adapter.
func (a *Adapter) BuildRequest(ctx context.Context, rc *llm.RequestContext) (*http.Request, error) {
	return a.inner.BuildRequest(ctx, rc)
}

// ExtractRawText uses ResponsePath when set, otherwise the format default.
func (a *Adapter) ExtractRawText(body []byte) (string, error) {
	if a.cfg.ResponsePath != "" {
		return providers.ExtractString(a.cfg.ID, body, a.cfg.ResponsePath)
	}
	return a.inner.ExtractRawText(body)
}
