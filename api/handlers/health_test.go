package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BaSui01/actiongate/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 测试辅助类型
// =============================================================================

type staticProviders map[string]bool

func (s staticProviders) Configured() map[string]bool { return s }

// mockHealthCheck 模拟就绪检查
type mockHealthCheck struct {
	name string
	err  error
}

func (m *mockHealthCheck) Name() string { return m.name }
func (m *mockHealthCheck) Check(ctx context.Context) error { return m.err }

// =============================================================================
// 🧪 HealthHandler 测试
// =============================================================================

func TestHealthHandler_HandleHealth(t *testing.T) {
	providers := staticProviders{"openai": true, "anthropic": false, "ollama": true}
	handler := NewHealthHandler(providers, "1.2.3", zap.NewNop())

	w := httptest.NewRecorder()
	handler.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp api.HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Equal(t, map[string]bool(providers), resp.Providers)
}

func TestHealthHandler_HandleReady(t *testing.T) {
	tests := []struct {
		name       string
		checks     []HealthCheck
		wantStatus int
		wantBody   string
	}{
		{
			name:       "no checks",
			wantStatus: http.StatusOK,
			wantBody:   "ready",
		},
		{
			name: "all passing",
			checks: []HealthCheck{
				&mockHealthCheck{name: "store"},
				CheckFunc{CheckName: "redis", Fn: func(context.Context) error { return nil }},
			},
			wantStatus: http.StatusOK,
			wantBody:   "ready",
		},
		{
			name: "one failing",
			checks: []HealthCheck{
				&mockHealthCheck{name: "store"},
				&mockHealthCheck{name: "redis", err: errors.New("connection refused")},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(staticProviders{}, "dev", nil)
			for _, c := range tt.checks {
				handler.RegisterCheck(c)
			}

			w := httptest.NewRecorder()
			handler.HandleReady(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp ReadyStatus
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, tt.wantBody, resp.Status)
			assert.Len(t, resp.Checks, len(tt.checks))
			for name, res := range resp.Checks {
				if res.Status == "fail" {
					assert.Equal(t, "redis", name)
					assert.Contains(t, res.Message, "connection refused")
				}
			}
		})
	}
}
