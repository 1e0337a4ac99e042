package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BaSui01/actiongate/action"
	"github.com/BaSui01/actiongate/llm"
	"github.com/BaSui01/actiongate/llm/providers"
	"github.com/BaSui01/actiongate/types"
	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(endpoint string) llm.ProviderConfig {
	return llm.ProviderConfig{
		ID:       llm.ProviderOllama,
		Kind:     llm.KindLocal,
		Endpoint: endpoint,
		Model:    llm.DefaultOllamaModel,
		BuiltIn:  true,
	}
}

func TestAdapter_DefaultTimeout(t *testing.T) {
	assert.Equal(t, llm.DefaultLocalTimeout, New(testConfig("http://x")).Timeout())
}

func TestAdapter_FencedReplyRoundTrip(t *testing.T) {
	screenshot := []byte("fake-png")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))

		var req api.GenerateRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, llm.DefaultOllamaModel, req.Model)
		if assert.NotNil(t, req.Stream) {
			assert.False(t, *req.Stream)
		}
		if assert.Len(t, req.Images, 1) {
			assert.Equal(t, screenshot, []byte(req.Images[0]))
		}
		assert.Contains(t, req.Prompt, "open calculator")
		assert.Equal(t, llm.SystemPrompt, req.System)

		json.NewEncoder(w).Encode(api.GenerateResponse{
			Model:    req.Model,
			Response: "```json\n[{\"action\":\"press_keys\",\"params\":{\"keys\":[\"LWin\"]}}]\n```",
			Done:     true,
		})
	}))
	defer srv.Close()

	rc := &llm.RequestContext{Screenshot: screenshot, Instruction: "open calculator"}
	text, err := providers.Call(context.Background(), srv.Client(), New(testConfig(srv.URL)), rc)
	require.NoError(t, err)

	candidates, err := action.Normalize(text)
	require.NoError(t, err)
	res := action.NewValidator(action.DefaultLimits()).Validate(candidates)
	require.Len(t, res.Actions, 1)
	assert.Equal(t, types.ActionPressKeys, res.Actions[0].Action)
}

func TestAdapter_NoImage(t *testing.T) {
	req := BuildPayload("llava", &llm.RequestContext{Instruction: "x"})
	assert.Empty(t, req.Images)
}

func TestAdapter_ExtractMissingResponse(t *testing.T) {
	_, err := New(testConfig("http://x")).ExtractRawText([]byte(`{"error":"model not found"}`))
	assert.True(t, types.IsErrorCode(err, types.ErrParse))
}
