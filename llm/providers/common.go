package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/BaSui01/actiongate/llm"
	"github.com/BaSui01/actiongate/types"
	"github.com/tidwall/gjson"
)

// MaxResponseBytes bounds how much of a provider response body is read.
const MaxResponseBytes = 8 << 20

// maxErrorDetail 错误详情截断长度
const maxErrorDetail = 512

// Call builds the request through the adapter, sends it with a per-call
// deadline of a.Timeout(), and returns the extracted reply text.
//
// Transport failures, non-2xx statuses and an expired deadline yield
// PROVIDER_NETWORK_ERROR; a timeout carries HTTP status 504 and wraps
// context.DeadlineExceeded. A reply without the expected field yields
// PARSE_ERROR.
func Call(ctx context.Context, client *http.Client, a llm.Adapter, rc *llm.RequestContext) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.Timeout())
	defer cancel()

	req, err := a.BuildRequest(ctx, rc)
	if err != nil {
		return "", err
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", mapTransportError(ctx, a, err)
	}
	defer SafeCloseBody(resp.Body)

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes+1))
	if err != nil {
		return "", mapTransportError(ctx, a, err)
	}
	if len(body) > MaxResponseBytes {
		return "", types.NewProviderNetworkError(a.ProviderID(), resp.StatusCode,
			fmt.Sprintf("response body exceeds %d bytes", MaxResponseBytes)).
			WithHTTPStatus(http.StatusBadGateway)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", MapHTTPError(resp.StatusCode, ReadErrorMessage(body), a.ProviderID())
	}

	return a.ExtractRawText(body)
}

func mapTransportError(ctx context.Context, a llm.Adapter, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		if !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
		}
		return types.NewProviderNetworkError(a.ProviderID(), 0,
			fmt.Sprintf("upstream timeout: provider did not respond within %s", a.Timeout())).
			WithHTTPStatus(http.StatusGatewayTimeout).
			WithCause(err)
	}
	return types.NewProviderNetworkError(a.ProviderID(), 0, "request failed").
		WithHTTPStatus(http.StatusBadGateway).
		WithCause(err)
}

// MapHTTPError 将上游非 2xx 状态映射为 PROVIDER_NETWORK_ERROR
func MapHTTPError(status int, msg string, provider string) *types.Error {
	detail := fmt.Sprintf("upstream returned %d", status)
	if msg != "" {
		detail += ": " + msg
	}
	return types.NewProviderNetworkError(provider, status, detail).
		WithHTTPStatus(http.StatusBadGateway)
}

// ReadErrorMessage 从错误响应体中提取可读信息，解析失败回退到截断后的原文
func ReadErrorMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		for _, path := range []string{"error.message", "error", "message", "detail"} {
			if r := gjson.GetBytes(body, path); r.Type == gjson.String && r.Str != "" {
				if t := gjson.GetBytes(body, "error.type"); t.Exists() && path == "error.message" {
					return truncate(fmt.Sprintf("%s (type: %s)", r.Str, t.String()))
				}
				return truncate(r.Str)
			}
		}
	}
	return truncate(strings.TrimSpace(string(body)))
}

// truncate 截断到 maxErrorDetail 字节以内，不切断多字节字符
func truncate(s string) string {
	if len(s) <= maxErrorDetail {
		return s
	}
	cut := maxErrorDetail
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// Preflight rejects a provider that cannot be called as configured, before
// any network traffic.
func Preflight(cfg llm.ProviderConfig) error {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return types.NewConfigError(cfg.ID, fmt.Sprintf("provider %q has no endpoint configured", cfg.ID)).
			WithHTTPStatus(http.StatusServiceUnavailable)
	}
	if cfg.RequiresKey && cfg.APIKey == "" {
		return types.NewConfigError(cfg.ID, fmt.Sprintf("%s API key not configured", cfg.ID)).
			WithHTTPStatus(http.StatusServiceUnavailable)
	}
	return nil
}

// NewJSONRequest marshals payload and builds a POST request to endpoint.
func NewJSONRequest(ctx context.Context, provider, endpoint string, payload any) (*http.Request, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", provider, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, types.NewConfigError(provider, fmt.Sprintf("invalid endpoint %q", endpoint)).
			WithHTTPStatus(http.StatusServiceUnavailable).
			WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// ExtractString reads a string at a gjson path. A missing field, a non-string
// value or an invalid body yields PARSE_ERROR carrying the body.
func ExtractString(provider string, body []byte, path string) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", types.NewParseError(provider, "provider response is not valid JSON", string(body))
	}
	r := gjson.GetBytes(body, path)
	if !r.Exists() || r.Type != gjson.String {
		return "", types.NewParseError(provider,
			fmt.Sprintf("provider response has no text at %q", path), string(body))
	}
	return r.Str, nil
}

// BearerTokenHeaders 设置 Bearer token 认证 header
func BearerTokenHeaders(r *http.Request, apiKey string) {
	r.Header.Set("Authorization", "Bearer "+apiKey)
}

// DataURL renders the screenshot as a data: URL.
func DataURL(rc *llm.RequestContext) string {
	return "data:" + rc.MediaTypeOrDefault() + ";base64," + base64.StdEncoding.EncodeToString(rc.Screenshot)
}

// SafeCloseBody 安全关闭 HTTP 响应体并忽略错误
func SafeCloseBody(body io.ReadCloser) {
	if body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(body, 4<<10))
		_ = body.Close()
	}
}
