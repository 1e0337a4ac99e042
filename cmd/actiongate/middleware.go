package main

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/actiongate/api/handlers"
	"github.com/BaSui01/actiongate/config"
	"github.com/BaSui01/actiongate/internal/metrics"
	"github.com/BaSui01/actiongate/internal/ratelimit"
	"github.com/BaSui01/actiongate/internal/telemetry"
	"github.com/BaSui01/actiongate/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Middleware 类型定义
type Middleware func(http.Handler) http.Handler

// Chain 将多个中间件串联，第一个位于最外层
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// Recovery panic 恢复中间件
func Recovery(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error("panic recovered",
						zap.Any("panic", rec),
						zap.String("path", r.URL.Path),
						zap.Stack("stack"),
					)
					handlers.WriteError(w, r, fmt.Errorf("panic: %v", rec), nil)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestID 为每个请求分配 X-Request-ID，保留客户端已提供的值
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" || len(id) > 128 {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", id)
			next.ServeHTTP(w, r.WithContext(types.WithRequestID(r.Context(), id)))
		})
	}
}

// SecurityHeaders adds common security response headers to every request.
func SecurityHeaders() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Content-Security-Policy", "default-src 'none'")
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger 请求日志中间件
func RequestLogger(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := handlers.NewResponseWriter(w)
			next.ServeHTTP(rw, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rw.StatusCode),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
			}
			if id, ok := types.RequestID(r.Context()); ok {
				fields = append(fields, zap.String("request_id", id))
			}
			logger.Info("request", fields...)
		})
	}
}

// =============================================================================
// 📊 Metrics / Tracing
// =============================================================================

// knownRoutes bounds the path label cardinality.
var knownRoutes = map[string]string{
	"/health":           "/health",
	"/ready":            "/ready",
	"/providers":        "/providers",
	"/get-actions":      "/get-actions",
	"/add-provider":     "/add-provider",
	"/metrics":          "/metrics",
	"/api/health":       "/health",
	"/api/providers":    "/providers",
	"/api/get-actions":  "/get-actions",
	"/api/add-provider": "/add-provider",
}

// routeLabel maps a request path to its canonical route, or "other".
func routeLabel(path string) string {
	if route, ok := knownRoutes[path]; ok {
		return route
	}
	return "other"
}

// Metrics records HTTP request count, duration and request size.
func Metrics(collector *metrics.Collector) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := handlers.NewResponseWriter(w)
			next.ServeHTTP(rw, r)

			size := r.ContentLength
			if size < 0 {
				size = 0
			}
			collector.RecordHTTPRequest(r.Method, routeLabel(r.URL.Path), rw.StatusCode, time.Since(start), size)
		})
	}
}

// OTelTracing 为每个请求创建 server span，并从请求头提取上游 trace 上下文
func OTelTracing() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			route := routeLabel(r.URL.Path)
			ctx, span := telemetry.Tracer().Start(ctx, r.Method+" "+route,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.HTTPRoute(route),
					semconv.URLPath(r.URL.Path),
				),
			)
			defer span.End()

			rw := handlers.NewResponseWriter(w)
			next.ServeHTTP(rw, r.WithContext(ctx))

			span.SetAttributes(attribute.Int("http.response.status_code", rw.StatusCode))
			if rw.StatusCode >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(rw.StatusCode))
			}
		})
	}
}

// CORS 跨域中间件。allowedOrigins 为空时允许任意来源，桌面客户端从本地页面调用网关。
func CORS(allowedOrigins []string) Middleware {
	originSet := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originSet[o] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				allowed := len(originSet) == 0
				if !allowed {
					_, allowed = originSet[origin]
				}
				if !allowed {
					if r.Method == http.MethodOptions {
						w.WriteHeader(http.StatusForbidden)
						return
					}
					next.ServeHTTP(w, r)
					return
				}

				if len(originSet) == 0 {
					w.Header().Set("Access-Control-Allow-Origin", "*")
				} else {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Add("Vary", "Origin")
				}
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key, Authorization, X-Request-ID")
				w.Header().Set("Access-Control-Max-Age", "86400")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// =============================================================================
// 🔑 客户端身份与鉴权
// =============================================================================

// ClientIdentity 解析客户端身份并写入 context：
// JWT sub（已配置时）> 已登记 X-API-Key 的 SHA-256 前缀 > 远端 IP。
// 未登记的 X-API-Key 不构成身份，按远端 IP 计。
// 配置了 JWT 且携带了无效 Bearer token 时返回 401。
func ClientIdentity(cfg config.JWTConfig, apiKeys []string, logger *zap.Logger) Middleware {
	known := make(map[[sha256.Size]byte]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			known[sha256.Sum256([]byte(k))] = struct{}{}
		}
	}

	var parser *jwt.Parser
	if cfg.Enabled() {
		opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
		if cfg.Issuer != "" {
			opts = append(opts, jwt.WithIssuer(cfg.Issuer))
		}
		if cfg.Audience != "" {
			opts = append(opts, jwt.WithAudience(cfg.Audience))
		}
		parser = jwt.NewParser(opts...)
	}
	secret := []byte(cfg.Secret)
	keyFunc := func(*jwt.Token) (any, error) { return secret, nil }

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && parser != nil {
				var claims jwt.RegisteredClaims
				if _, err := parser.ParseWithClaims(bearer, &claims, keyFunc); err != nil {
					logger.Debug("JWT validation failed", zap.Error(err))
					handlers.WriteError(w, r, types.NewError(types.ErrUnauthorized, "invalid or expired token"), nil)
					return
				}
				if claims.Subject != "" {
					ctx = types.WithUserID(ctx, claims.Subject)
					ctx = types.WithClientID(ctx, "sub:"+claims.Subject)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			clientID := "ip:" + remoteIP(r)
			if key := r.Header.Get("X-API-Key"); key != "" {
				sum := sha256.Sum256([]byte(key))
				if _, ok := known[sum]; ok {
					clientID = "key:" + keyFingerprint(sum)
				}
			}
			ctx = types.WithClientID(ctx, clientID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func keyFingerprint(sum [sha256.Size]byte) string {
	return hex.EncodeToString(sum[:8])
}

func remoteIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// RequireAPIKey 仅放行携带有效 X-API-Key 的请求；keys 为空时不做校验
func RequireAPIKey(keys []string, next http.HandlerFunc) http.HandlerFunc {
	if len(keys) == 0 {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		got := []byte(r.Header.Get("X-API-Key"))
		for _, k := range keys {
			if subtle.ConstantTimeCompare(got, []byte(k)) == 1 {
				next(w, r)
				return
			}
		}
		handlers.WriteError(w, r, types.NewError(types.ErrUnauthorized, "invalid or missing API key"), nil)
	}
}

// =============================================================================
// 🚦 限流
// =============================================================================

// RateLimit 以客户端身份计数，超限返回 429 RATE_LIMITED，不触达提供方。
// 仅包装需要限流的路由。
func RateLimit(limiter *ratelimit.Limiter, collector *metrics.Collector, logger *zap.Logger, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := types.ClientID(r.Context())
		if !ok {
			identity = "ip:" + remoteIP(r)
		}

		d, err := limiter.Allow(r.Context(), identity)
		if err != nil && collector != nil {
			collector.RecordRateLimitError()
		}
		d.SetHeaders(w.Header(), limiter.Now())

		if !d.Allowed {
			if collector != nil {
				collector.RecordRateLimited(routeLabel(r.URL.Path))
			}
			logger.Debug("rate limited", zap.String("client", identity), zap.Time("reset_at", d.ResetAt))
			handlers.WriteError(w, r, types.NewError(types.ErrRateLimited, "rate limit exceeded, retry later").
				WithRetryable(true), nil)
			return
		}
		next(w, r)
	}
}
