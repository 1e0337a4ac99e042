package api

import (
	"encoding/json"

	"github.com/BaSui01/actiongate/gateway"
	"github.com/BaSui01/actiongate/llm"
	"github.com/BaSui01/actiongate/types"
)

// =============================================================================
// 动作请求
// =============================================================================

// GetActionsRequest is the body of POST /get-actions.
type GetActionsRequest struct {
	// 提供方 id，空则使用默认提供方
	Provider string `json:"provider,omitempty"`
	// base64 截图，可带 data:image/...;base64, 前缀
	Screenshot string `json:"screenshot,omitempty"`
	// UI 树，原样转发给模型
	UITree json.RawMessage `json:"ui_tree,omitempty"`
	// 用户指令
	UserRequest string `json:"user_request"`
	// 之前的对话轮次
	ConversationHistory []types.Turn `json:"conversation_history,omitempty"`
}

// DispatchRequest converts the wire body to a gateway request.
func (r GetActionsRequest) DispatchRequest() gateway.DispatchRequest {
	return gateway.DispatchRequest{
		Provider:    r.Provider,
		Screenshot:  r.Screenshot,
		UITree:      r.UITree,
		UserRequest: r.UserRequest,
		History:     r.ConversationHistory,
	}
}

// GetActionsResponse is the success body of POST /get-actions.
type GetActionsResponse struct {
	Success  bool                 `json:"success"`
	Actions  []types.ActionRecord `json:"actions"`
	Dropped  int                  `json:"dropped"`
	Provider string               `json:"provider"`
}

// =============================================================================
// 提供方
// =============================================================================

// ProvidersResponse is the body of GET /providers.
type ProvidersResponse struct {
	Providers []llm.ProviderDescriptor `json:"providers"`
}

// AddProviderRequest is the body of POST /add-provider.
type AddProviderRequest struct {
	ID     string                      `json:"id"`
	Config gateway.CustomProviderInput `json:"config"`
}

// AddProviderResponse is the success body of POST /add-provider.
type AddProviderResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// =============================================================================
// 健康与错误
// =============================================================================

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string          `json:"status"`
	Providers map[string]bool `json:"providers"`
	Version   string          `json:"version,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success     bool   `json:"success"`
	Error       string `json:"error"`
	Code        string `json:"code"`
	Provider    string `json:"provider,omitempty"`
	RawResponse string `json:"raw_response,omitempty"`
	Retryable   bool   `json:"retryable,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}
