package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BaSui01/actiongate/api"
	"github.com/BaSui01/actiongate/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 Common 函数测试
// =============================================================================

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusCreated, map[string]string{"message": "hello"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.JSONEq(t, `{"message":"hello"}`, w.Body.String())
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	var resp api.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid request", types.NewInvalidRequestError("bad"), http.StatusBadRequest, "INVALID_REQUEST"},
		{"duplicate builtin", types.NewError(types.ErrDuplicateBuiltin, "dup"), http.StatusBadRequest, "DUPLICATE_BUILTIN"},
		{"unauthorized", types.NewError(types.ErrUnauthorized, "no"), http.StatusUnauthorized, "UNAUTHORIZED"},
		{"rate limited", types.NewError(types.ErrRateLimited, "slow down"), http.StatusTooManyRequests, "RATE_LIMITED"},
		{"config", types.NewConfigError("anthropic", "missing key"), http.StatusServiceUnavailable, "CONFIG_ERROR"},
		{"network", types.NewProviderNetworkError("openai", 500, "boom"), http.StatusBadGateway, "PROVIDER_NETWORK_ERROR"},
		{"timeout", types.NewProviderNetworkError("openai", 0, "upstream timeout").WithHTTPStatus(http.StatusGatewayTimeout), http.StatusGatewayTimeout, "PROVIDER_NETWORK_ERROR"},
		{"executor", types.NewError(types.ErrExecutor, "gone"), http.StatusBadGateway, "EXECUTOR_ERROR"},
		{"explicit status wins", types.NewInvalidRequestError("big").WithHTTPStatus(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge, "INVALID_REQUEST"},
		{"plain error", errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, nil, tt.err, zap.NewNop())

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeError(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestWriteError_HidesInternalDetails(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, nil, errors.New("password=hunter2"), nil)

	assert.NotContains(t, w.Body.String(), "hunter2")
}

func TestWriteError_ParseErrorCarriesRawResponse(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/get-actions", nil)
	r = r.WithContext(types.WithRequestID(r.Context(), "req-1"))

	WriteError(w, r, types.NewParseError("openai", "no JSON array in reply", "I would click."), zap.NewNop())

	assert.Equal(t, http.StatusBadGateway, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "PARSE_ERROR", resp.Code)
	assert.Equal(t, "I would click.", resp.RawResponse)
	assert.Equal(t, "openai", resp.Provider)
	assert.Equal(t, "req-1", resp.RequestID)
}

// =============================================================================
// 🧪 DecodeJSONBody 测试
// =============================================================================

func TestDecodeJSONBody(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name        string
		body        string
		contentType string
		limit       int64
		wantStatus  int
	}{
		{"valid", `{"name":"x"}`, "application/json", 0, 0},
		{"unknown fields ignored", `{"name":"x","extra":1}`, "application/json", 0, 0},
		{"no content type", `{"name":"x"}`, "", 0, 0},
		{"empty body", ``, "application/json", 0, http.StatusBadRequest},
		{"malformed", `{"name":`, "application/json", 0, http.StatusBadRequest},
		{"wrong content type", `{"name":"x"}`, "text/plain", 0, http.StatusUnsupportedMediaType},
		{"too large", `{"name":"` + strings.Repeat("a", 200) + `"}`, "application/json", 64, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if tt.contentType != "" {
				r.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()

			var dst payload
			err := DecodeJSONBody(w, r, &dst, tt.limit)
			if tt.wantStatus == 0 {
				require.NoError(t, err)
				assert.Equal(t, "x", dst.Name)
				return
			}
			require.Error(t, err)
			te, ok := types.AsError(err)
			require.True(t, ok)
			assert.Equal(t, types.ErrInvalidRequest, te.Code)
			assert.Equal(t, tt.wantStatus, StatusFor(te))
		})
	}
}

// =============================================================================
// 🧪 ResponseWriter 测试
// =============================================================================

func TestResponseWriter(t *testing.T) {
	w := httptest.NewRecorder()
	rw := NewResponseWriter(w)

	assert.Equal(t, http.StatusOK, rw.StatusCode)
	assert.False(t, rw.Written)

	rw.WriteHeader(http.StatusTeapot)
	rw.WriteHeader(http.StatusInternalServerError)
	n, err := rw.Write([]byte("short and stout"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusTeapot, rw.StatusCode)
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, int64(n), rw.Bytes)
	assert.Same(t, w, rw.Unwrap())
}

func TestResponseWriter_ImplicitOK(t *testing.T) {
	w := httptest.NewRecorder()
	rw := NewResponseWriter(w)

	_, _ = rw.Write([]byte("ok"))
	assert.True(t, rw.Written)
	assert.Equal(t, http.StatusOK, rw.StatusCode)
}
