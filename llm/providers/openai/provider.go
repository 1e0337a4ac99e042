package openai

import (
	"context"
	"net/http"
	"time"

	"github.com/BaSui01/actiongate/llm"
	"github.com/BaSui01/actiongate/llm/providers"
)

// ReplyPath locates the reply text in a chat-completion response.
const ReplyPath = "choices.0.message.content"

// DefaultMaxTokens caps the reply length.
const DefaultMaxTokens = 1000

// ChatRequest is the chat-completion request body.
type ChatRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

// Message is one chat message. Content is a string or a []ContentPart.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// ContentPart is one block of a multimodal user message.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL carries an inline data URL.
type ImageURL struct {
	URL string `json:"url"`
}

// Adapter speaks the OpenAI chat-completion format.
type Adapter struct {
	cfg llm.ProviderConfig
}

// New creates an adapter for cfg.
func New(cfg llm.ProviderConfig) *Adapter {
	return &Adapter{cfg: cfg}
}

// ProviderID returns the registry id.
func (a *Adapter) ProviderID() string { return a.cfg.ID }

// Timeout returns the per-call timeout.
func (a *Adapter) Timeout() time.Duration { return a.cfg.EffectiveTimeout() }

// BuildRequest builds the chat-completion request.
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

// ExtractRawText returns choices[0].message.content.
func (a *Adapter) ExtractRawText(body []byte) (string, error) {
	return providers.ExtractString(a.cfg.ID, body, ReplyPath)
}

// BuildPayload renders rc as a chat-completion request body.
func BuildPayload(model string, rc *llm.RequestContext) ChatRequest {
	messages := make([]Message, 0, len(rc.History)+2)
	messages = append(messages, Message{Role: "system", Content: llm.SystemPrompt})
	for _, t := range rc.History {
		messages = append(messages, Message{Role: historyRole(t.Role), Content: t.Content})
	}

	parts := []ContentPart{{Type: "text", Text: llm.UserText(rc)}}
	if rc.HasImage() {
		parts = append(parts, ContentPart{
			Type:     "image_url",
			ImageURL: &ImageURL{URL: providers.DataURL(rc)},
		})
	}
	messages = append(messages, Message{Role: "user", Content: parts})

	return ChatRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: DefaultMaxTokens,
	}
}

func historyRole(role string) string {
	if role == "assistant" {
		return "assistant"
	}
	return "user"
}
