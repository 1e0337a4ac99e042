package main

import (
	"crypto/sha256"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BaSui01/actiongate/config"
	"github.com/BaSui01/actiongate/internal/metrics"
	"github.com/BaSui01/actiongate/internal/ratelimit"
	"github.com/BaSui01/actiongate/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func okHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders()(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
	assert.Equal(t, "default-src 'none'", w.Header().Get("Content-Security-Policy"))
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = types.RequestID(r.Context())
	}), SecurityHeaders(), RequestID())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, w.Header().Get("X-Request-ID"), seen)

	r := httptest.NewRequest(http.MethodGet, "/test", nil)
	r.Header.Set("X-Request-ID", "client-supplied")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, "client-supplied", w.Header().Get("X-Request-ID"))
}

func TestRecovery(t *testing.T) {
	handler := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}), Recovery(zap.NewNop()), RequestID())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/get-actions", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"INTERNAL_ERROR"`)
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []string
		origin     string
		method     string
		wantStatus int
		wantAllow  string
	}{
		{"open preflight", nil, "http://localhost:3000", http.MethodOptions, http.StatusNoContent, "*"},
		{"listed origin", []string{"https://app.example"}, "https://app.example", http.MethodGet, http.StatusOK, "https://app.example"},
		{"unlisted preflight", []string{"https://app.example"}, "https://evil.example", http.MethodOptions, http.StatusForbidden, ""},
		{"unlisted simple request", []string{"https://app.example"}, "https://evil.example", http.MethodGet, http.StatusOK, ""},
		{"no origin", []string{"https://app.example"}, "", http.MethodGet, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, "/providers", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			CORS(tt.allowed)(okHandler()).ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantAllow, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestRouteLabel(t *testing.T) {
	assert.Equal(t, "/get-actions", routeLabel("/get-actions"))
	assert.Equal(t, "/get-actions", routeLabel("/api/get-actions"))
	assert.Equal(t, "other", routeLabel("/wp-admin/setup.php"))
}

// =============================================================================
// 🔑 ClientIdentity
// =============================================================================

func identityOf(t *testing.T, mw Middleware, r *http.Request) (string, int) {
	t.Helper()
	var got string
	w := httptest.NewRecorder()
	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = types.ClientID(r.Context())
	})).ServeHTTP(w, r)
	return got, w.Code
}

func signToken(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestClientIdentity(t *testing.T) {
	cfg := config.JWTConfig{Secret: "s3cret", Issuer: "actiongate"}
	mw := ClientIdentity(cfg, []string{"key-123"}, zap.NewNop())

	t.Run("remote ip", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "10.1.2.3:5555"
		id, code := identityOf(t, mw, r)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ip:10.1.2.3", id)
	})

	t.Run("api key fingerprint", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-API-Key", "key-123")
		id, _ := identityOf(t, mw, r)
		assert.Equal(t, "key:"+keyFingerprint(sha256.Sum256([]byte("key-123"))), id)
		assert.NotContains(t, id, "key-123")
	})

	t.Run("unknown api key falls back to ip", func(t *testing.T) {
		for _, key := range []string{"junk-1", "junk-2", "KEY-123"} {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = "10.4.4.4:1000"
			r.Header.Set("X-API-Key", key)
			id, code := identityOf(t, mw, r)
			assert.Equal(t, http.StatusOK, code)
			assert.Equal(t, "ip:10.4.4.4", id, key)
		}
	})

	t.Run("jwt subject", func(t *testing.T) {
		token := signToken(t, "s3cret", jwt.RegisteredClaims{
			Subject:   "user-42",
			Issuer:    "actiongate",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		r.Header.Set("X-API-Key", "ignored")
		id, code := identityOf(t, mw, r)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "sub:user-42", id)
	})

	t.Run("bad signature", func(t *testing.T) {
		token := signToken(t, "wrong", jwt.RegisteredClaims{Subject: "x", Issuer: "actiongate"})
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		_, code := identityOf(t, mw, r)
		assert.Equal(t, http.StatusUnauthorized, code)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		token := signToken(t, "s3cret", jwt.RegisteredClaims{Subject: "x", Issuer: "other"})
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		_, code := identityOf(t, mw, r)
		assert.Equal(t, http.StatusUnauthorized, code)
	})

	t.Run("jwt disabled ignores bearer", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "10.0.0.9:1"
		r.Header.Set("Authorization", "Bearer garbage")
		id, code := identityOf(t, ClientIdentity(config.JWTConfig{}, nil, zap.NewNop()), r)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ip:10.0.0.9", id)
	})
}

func TestRequireAPIKey(t *testing.T) {
	h := RequireAPIKey([]string{"admin-1", "admin-2"}, okHandler())

	for key, want := range map[string]int{
		"":        http.StatusUnauthorized,
		"nope":    http.StatusUnauthorized,
		"admin-2": http.StatusOK,
	} {
		r := httptest.NewRequest(http.MethodPost, "/add-provider", nil)
		if key != "" {
			r.Header.Set("X-API-Key", key)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, want, w.Code, "key %q", key)
	}

	w := httptest.NewRecorder()
	RequireAPIKey(nil, okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/add-provider", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

// =============================================================================
// 🚦 RateLimit
// =============================================================================

func TestRateLimit(t *testing.T) {
	collector := metrics.NewCollector("test", zap.NewNop())
	limiter := ratelimit.New(ratelimit.Config{Limit: 2, Window: time.Hour}, ratelimit.NewMemoryStore(), nil)
	h := RateLimit(limiter, collector, zap.NewNop(), okHandler())

	send := func(client string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/get-actions", nil)
		r = r.WithContext(types.WithClientID(r.Context(), client))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w
	}

	assert.Equal(t, http.StatusOK, send("a").Code)
	w := send("a")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = send("a")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), `"code":"RATE_LIMITED"`)

	assert.Equal(t, http.StatusOK, send("b").Code)
	expected := `
# HELP test_rate_limit_rejections_total Requests rejected by the rate limiter
# TYPE test_rate_limit_rejections_total counter
test_rate_limit_rejections_total{path="/get-actions"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(collector.Registry(), strings.NewReader(expected),
		"test_rate_limit_rejections_total"))
}
