package claude

import (
	"context"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/BaSui01/actiongate/llm"
	"github.com/BaSui01/actiongate/llm/providers"
)

// APIVersion is sent as the anthropic-version header.
const APIVersion = "2023-06-01"

// ReplyPath selects the first text block of a messages response.
const ReplyPath = `content.#(type=="text").text`

// DefaultMaxTokens caps the reply length.
const DefaultMaxTokens = 1024

// MessagesRequest is the /v1/messages request body.
type MessagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
}

// Message is one conversation message. Content is a string or []Block.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// Block is one content block of a user message.
type Block struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *ImageSource `json:"source,omitempty"`
}

// ImageSource carries a base64-encoded image.
type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// Adapter speaks the Anthropic messages format.
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

// BuildRequest builds the messages request with x-api-key authentication.
func (a *Adapter) BuildRequest(ctx context.Context, rc *llm.RequestContext) (*http.Request, error) {
	if err := providers.Preflight(a.cfg); err != nil {
		return nil, err
	}

	req, err := providers.NewJSONRequest(ctx, a.cfg.ID, a.cfg.Endpoint, BuildPayload(a.cfg.Model, rc))
	if err != nil {
		return nil, err
	}
	if a.cfg.APIKey != "" {
		req.Header.Set("x-api-key", a.cfg.APIKey)
	}
	req.Header.Set("anthropic-version", APIVersion)
	return req, nil
}

// ExtractRawText returns the first text block.
func (a *Adapter) ExtractRawText(body []byte) (string, error) {
	return providers.ExtractString(a.cfg.ID, body, ReplyPath)
}

// BuildPayload renders rc as a messages request body.
func BuildPayload(model string, rc *llm.RequestContext) MessagesRequest {
	messages := make([]Message, 0, len(rc.History)+1)
	for _, t := range rc.History {
		role := "user"
		if t.Role == "assistant" {
			role = "assistant"
		}
		messages = append(messages, Message{Role: role, Content: t.Content})
	}

	blocks := make([]Block, 0, 2)
	if rc.HasImage() {
		blocks = append(blocks, Block{
			Type: "image",
			Source: &ImageSource{
				Type:      "base64",
				MediaType: rc.MediaTypeOrDefault(),
				Data:      base64.StdEncoding.EncodeToString(rc.Screenshot),
			},
		})
	}
	blocks = append(blocks, Block{Type: "text", Text: llm.UserText(rc)})
	messages = append(messages, Message{Role: "user", Content: blocks})

	return MessagesRequest{
		Model:     model,
		MaxTokens: DefaultMaxTokens,
		System:    llm.SystemPrompt,
		Messages:  messages,
	}
}
