package ollama

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/actiongate/llm"
	"github.com/BaSui01/actiongate/llm/providers"
	"github.com/ollama/ollama/api"
)

// ReplyPath locates the generated text in a non-streaming generate response.
const ReplyPath = "response"

// Adapter speaks the Ollama /api/generate format.
type Adapter struct {
	cfg llm.ProviderConfig
}

// New creates an adapter for cfg.
func New(cfg llm.ProviderConfig) *Adapter {
	return &Adapter{cfg: cfg}
}

// ProviderID returns the registry id.
func (a *Adapter) ProviderID() string { return a.cfg.ID }

// Timeout returns the per-call timeout; local inference defaults to 120s.
func (a *Adapter) Timeout() time.Duration { return a.cfg.EffectiveTimeout() }

// BuildRequest builds a non-streaming generate request. A bearer credential is
// attached only when one is configured, e.g. behind an authenticating proxy.
func (a *Adapter) BuildRequest(ctx context.Context, rc *llm.RequestContext) (*http.Request, error) {
	if err := providers.Preflight(a.cfg); err != nil {
		return nil, err
	}

	req, err := providers.NewJSONRequest(ctx, a.cfg.ID, a.cfg.Endpoint, BuildPayload(a.cfg.Model, rc))
	if err != nil {
		return nil, err
	}
	if a.cfg.APIKey != "" {
		providers.BearerTokenHeaders(req, a.cfg.APIKey)
	}
	return req, nil
}

// ExtractRawText returns the response field.
func (a *Adapter) ExtractRawText(body []byte) (string, error) {
	return providers.ExtractString(a.cfg.ID, body, ReplyPath)
}

// BuildPayload renders rc as a generate request. The system prompt travels in
// System and prior turns are folded into Prompt.
func BuildPayload(model string, rc *llm.RequestContext) *api.GenerateRequest {
	stream := false

	var prompt strings.Builder
	for _, t := range rc.History {
		prompt.WriteString(t.Role)
		prompt.WriteString(": ")
		prompt.WriteString(t.Content)
		prompt.WriteString("\n\n")
	}
	prompt.WriteString(llm.UserText(rc))

	req := &api.GenerateRequest{
		Model:  model,
		System: llm.SystemPrompt,
		Prompt: prompt.String(),
		Stream: &stream,
	}
	if rc.HasImage() {
		req.Images = []api.ImageData{api.ImageData(rc.Screenshot)}
	}
	return req
}
