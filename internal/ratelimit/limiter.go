package ratelimit

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Scope 限流作用域
type Scope string

const (
	// ScopeClient 每个客户端身份独立计数
	ScopeClient Scope = "client"
	// ScopeGlobal 所有请求共享一个计数器
	ScopeGlobal Scope = "global"
)

// globalKey is the shared counter key under ScopeGlobal.
const globalKey = "global"

// Store counts hits per key and window.
type Store interface {
	// Incr increments the counter of key for the window starting at
	// windowStart and returns the count after the increment.
	Incr(ctx context.Context, key string, windowStart time.Time, window time.Duration) (int64, error)
}

// Config 限流配置
type Config struct {
	Limit  int           `yaml:"limit" toml:"limit" env:"LIMIT"`
	Window time.Duration `yaml:"window" toml:"window" env:"WINDOW"`
	Scope  Scope         `yaml:"scope" toml:"scope" env:"SCOPE"`
}

// DefaultConfig 默认每分钟 20 次
func DefaultConfig() Config {
	return Config{
		Limit:  20,
		Window: time.Minute,
		Scope:  ScopeClient,
	}
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long until the current window resets.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.ResetAt.After(now) {
		return d.ResetAt.Sub(now)
	}
	return 0
}

// SetHeaders writes X-RateLimit-* headers, plus Retry-After when rejected.
func (d Decision) SetHeaders(h http.Header, now time.Time) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
	if !d.Allowed {
		secs := int(math.Ceil(d.RetryAfter(now).Seconds()))
		if secs < 1 {
			secs = 1
		}
		h.Set("Retry-After", strconv.Itoa(secs))
	}
}

// Limiter is a fixed-window counter.
type Limiter struct {
	cfg    Config
	store  Store
	now    func() time.Time
	logger *zap.Logger
}

// New creates a limiter. Zero fields in cfg fall back to DefaultConfig.
func New(cfg Config, store Store, logger *zap.Logger) *Limiter {
	def := DefaultConfig()
	if cfg.Limit <= 0 {
		cfg.Limit = def.Limit
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.Scope == "" {
		cfg.Scope = def.Scope
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limiter{
		cfg:    cfg,
		store:  store,
		now:    time.Now,
		logger: logger.With(zap.String("component", "rate_limiter")),
	}
}

// Config returns the effective configuration.
func (l *Limiter) Config() Config { return l.cfg }

// Now returns the limiter's clock reading.
func (l *Limiter) Now() time.Time { return l.now() }

// Allow counts one hit for identity.
//
// A store failure fails open: the returned Decision allows the request and the
// error is returned alongside it for the caller to record.
func (l *Limiter) Allow(ctx context.Context, identity string) (Decision, error) {
	key := identity
	if l.cfg.Scope == ScopeGlobal || key == "" {
		key = globalKey
	}

	now := l.now()
	windowStart := now.Truncate(l.cfg.Window)
	d := Decision{
		Limit:   l.cfg.Limit,
		ResetAt: windowStart.Add(l.cfg.Window),
	}

	count, err := l.store.Incr(ctx, key, windowStart, l.cfg.Window)
	if err != nil {
		l.logger.Warn("rate limit store unavailable, allowing request", zap.Error(err))
		d.Allowed = true
		d.Remaining = l.cfg.Limit
		return d, fmt.Errorf("rate limit store: %w", err)
	}

	d.Allowed = count <= int64(l.cfg.Limit)
	if remaining := int64(l.cfg.Limit) - count; remaining > 0 {
		d.Remaining = int(remaining)
	}
	return d, nil
}
