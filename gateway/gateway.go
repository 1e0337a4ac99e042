package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/BaSui01/actiongate/action"
	"github.com/BaSui01/actiongate/internal/metrics"
	"github.com/BaSui01/actiongate/internal/telemetry"
	"github.com/BaSui01/actiongate/internal/tlsutil"
	"github.com/BaSui01/actiongate/llm"
	"github.com/BaSui01/actiongate/llm/factory"
	"github.com/BaSui01/actiongate/llm/providers"
	"github.com/BaSui01/actiongate/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Config 调度参数
type Config struct {
	DefaultProvider      string
	MaxInstructionLength int
	MaxHistoryTurns      int
}

// DefaultConfig 返回默认调度参数
func DefaultConfig() Config {
	return Config{
		DefaultProvider:      llm.ProviderOpenAI,
		MaxInstructionLength: 5000,
		MaxHistoryTurns:      20,
	}
}

// AdapterFactory builds the adapter for a resolved provider.
type AdapterFactory func(cfg llm.ProviderConfig) (llm.Adapter, error)

// DispatchRequest is one get-actions call.
type DispatchRequest struct {
	Provider    string
	Screenshot  string
	UITree      json.RawMessage
	UserRequest string
	History     []types.Turn
}

// DispatchResult carries the validated actions.
type DispatchResult struct {
	Actions  []types.ActionRecord `json:"actions"`
	Dropped  int                  `json:"dropped"`
	Provider string               `json:"provider"`
	RawText  string               `json:"-"`
}

// Gateway 动作网关
type Gateway struct {
	cfg        Config
	registry   *llm.Registry
	validator  *action.Validator
	client     *http.Client
	newAdapter AdapterFactory
	metrics    *metrics.Collector
	tracer     trace.Tracer
	logger     *zap.Logger
}

// Option 配置 Gateway
type Option func(*Gateway)

// WithConfig 设置调度参数
func WithConfig(cfg Config) Option {
	return func(g *Gateway) { g.cfg = cfg }
}

// WithHTTPClient 替换出站 http.Client
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.client = c }
}

// WithAdapterFactory 替换适配器构造（测试用）
func WithAdapterFactory(f AdapterFactory) Option {
	return func(g *Gateway) { g.newAdapter = f }
}

// WithMetrics 记录提供方指标
func WithMetrics(c *metrics.Collector) Option {
	return func(g *Gateway) { g.metrics = c }
}

// WithTracer 替换 tracer
func WithTracer(t trace.Tracer) Option {
	return func(g *Gateway) { g.tracer = t }
}

// WithLogger 设置日志
func WithLogger(l *zap.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// New 创建网关
func New(registry *llm.Registry, validator *action.Validator, opts ...Option) *Gateway {
	g := &Gateway{
		cfg:        DefaultConfig(),
		registry:   registry,
		validator:  validator,
		newAdapter: factory.NewAdapter,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}

	def := DefaultConfig()
	if g.cfg.DefaultProvider == "" {
		g.cfg.DefaultProvider = def.DefaultProvider
	}
	if g.cfg.MaxInstructionLength <= 0 {
		g.cfg.MaxInstructionLength = def.MaxInstructionLength
	}
	if g.client == nil {
		g.client = tlsutil.ProviderClient()
	}
	if g.tracer == nil {
		g.tracer = telemetry.Tracer()
	}
	g.logger = g.logger.With(zap.String("component", "gateway"))
	return g
}

// =============================================================================
// 🎯 Dispatch
// =============================================================================

// Dispatch validates the request, calls the resolved provider and returns
// the actions that passed validation.
func (g *Gateway) Dispatch(ctx context.Context, req DispatchRequest) (*DispatchResult, error) {
	if strings.TrimSpace(req.UserRequest) == "" {
		return nil, types.NewInvalidRequestError("user_request is required").WithHTTPStatus(http.StatusBadRequest)
	}
	if n := utf8.RuneCountInString(req.UserRequest); n > g.cfg.MaxInstructionLength {
		return nil, types.NewInvalidRequestError(
			fmt.Sprintf("user_request is %d characters, maximum is %d", n, g.cfg.MaxInstructionLength)).
			WithHTTPStatus(http.StatusBadRequest)
	}

	id := strings.TrimSpace(req.Provider)
	if id == "" {
		id = g.cfg.DefaultProvider
	}
	pcfg, err := g.registry.Lookup(id)
	if err != nil {
		return nil, types.NewInvalidRequestError(fmt.Sprintf("unknown provider: %s", id)).
			WithHTTPStatus(http.StatusBadRequest).
			WithProvider(id)
	}

	screenshot, mediaType, err := DecodeScreenshot(req.Screenshot)
	if err != nil {
		return nil, err
	}

	rc := &llm.RequestContext{
		ProviderID:  id,
		Screenshot:  screenshot,
		MediaType:   mediaType,
		UITree:      req.UITree,
		Instruction: req.UserRequest,
		History:     g.truncateHistory(req.History),
	}

	ctx, span := g.tracer.Start(ctx, "gateway.dispatch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("provider.id", id),
			attribute.String("provider.format", string(pcfg.Format)),
			attribute.Bool("request.has_image", rc.HasImage()),
		),
	)
	defer span.End()

	start := time.Now()
	result, err := g.call(ctx, pcfg, rc)
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		status = string(types.GetErrorCode(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
	} else {
		span.SetAttributes(
			attribute.Int("actions.accepted", len(result.Actions)),
			attribute.Int("actions.dropped", result.Dropped),
		)
	}
	if g.metrics != nil {
		g.metrics.RecordProviderRequest(id, status, elapsed)
		if err == nil {
			g.metrics.RecordAccepted(id, len(result.Actions))
		}
	}

	fields := append(requestFields(ctx),
		zap.String("provider", id),
		zap.Duration("duration", elapsed),
	)
	if err != nil {
		fields = append(fields, zap.String("code", status), zap.Error(err))
		// 配置错误需要运维介入，其余为上游或模型问题
		if types.IsErrorCode(err, types.ErrConfig) {
			g.logger.Error("dispatch failed", fields...)
		} else {
			g.logger.Warn("dispatch failed", fields...)
		}
		return nil, err
	}

	g.logger.Info("dispatch completed", append(fields,
		zap.Int("actions", len(result.Actions)),
		zap.Int("dropped", result.Dropped),
	)...)
	return result, nil
}

func (g *Gateway) call(ctx context.Context, pcfg llm.ProviderConfig, rc *llm.RequestContext) (*DispatchResult, error) {
	adapter, err := g.newAdapter(pcfg)
	if err != nil {
		return nil, err
	}

	raw, err := providers.Call(ctx, g.client, adapter, rc)
	if err != nil {
		return nil, err
	}

	candidates, err := action.Normalize(raw)
	if err != nil {
		if te, ok := types.AsError(err); ok {
			te.WithProvider(pcfg.ID).WithHTTPStatus(http.StatusBadGateway)
		}
		return nil, err
	}

	vr := g.validator.Validate(candidates)
	return &DispatchResult{
		Actions:  vr.Actions,
		Dropped:  vr.Dropped,
		Provider: pcfg.ID,
		RawText:  raw,
	}, nil
}

// requestFields 返回 context 中的请求 id 与已认证主体
func requestFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 4)
	if id, ok := types.RequestID(ctx); ok {
		fields = append(fields, zap.String("request_id", id))
	}
	if uid, ok := types.UserID(ctx); ok {
		fields = append(fields, zap.String("user_id", uid))
	}
	return fields
}

func (g *Gateway) truncateHistory(h []types.Turn) []types.Turn {
	limit := g.cfg.MaxHistoryTurns
	if limit <= 0 {
		return nil
	}
	if len(h) > limit {
		h = h[len(h)-limit:]
	}
	return h
}

// =============================================================================
// 🔌 自定义提供方
// =============================================================================

// CustomProviderInput is the config object accepted by add-provider.
type CustomProviderInput struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Format   string `json:"format"`
	Endpoint string `json:"endpoint"`
	Model    string `json:"model"`
	APIKey   string `json:"api_key"`
	// RequiresKey defaults to whether an api_key was supplied.
	RequiresKey  *bool  `json:"requires_key"`
	ResponsePath string `json:"response_path"`
	TimeoutMs    int    `json:"timeout_ms"`
	Privacy      string `json:"privacy"`
}

// ProviderConfig converts the input to a registry entry.
func (in CustomProviderInput) ProviderConfig(id string) (llm.ProviderConfig, error) {
	cfg := llm.ProviderConfig{
		ID:           id,
		Name:         in.Name,
		Kind:         llm.ProviderKind(in.Type),
		Format:       llm.WireFormat(in.Format),
		Endpoint:     strings.TrimSpace(in.Endpoint),
		Model:        in.Model,
		APIKey:       in.APIKey,
		RequiresKey:  in.APIKey != "",
		ResponsePath: in.ResponsePath,
		Privacy:      in.Privacy,
	}
	if in.RequiresKey != nil {
		cfg.RequiresKey = *in.RequiresKey
	}

	switch cfg.Kind {
	case "", llm.KindCloud, llm.KindLocal:
	default:
		return cfg, types.NewInvalidRequestError(fmt.Sprintf("type %q must be cloud or local", in.Type))
	}
	if cfg.Format != "" && !cfg.Format.Valid() {
		return cfg, types.NewInvalidRequestError(
			fmt.Sprintf("format %q must be openai, anthropic or ollama", in.Format))
	}
	if in.TimeoutMs < 0 {
		return cfg, types.NewInvalidRequestError("timeout_ms must not be negative")
	}
	cfg.Timeout = time.Duration(in.TimeoutMs) * time.Millisecond
	return cfg, nil
}

// RegisterProvider adds or replaces a custom provider. A built-in id fails
// with DUPLICATE_BUILTIN whatever the payload.
func (g *Gateway) RegisterProvider(ctx context.Context, id string, in CustomProviderInput) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return types.NewInvalidRequestError("provider id is required").WithHTTPStatus(http.StatusBadRequest)
	}
	if llm.IsBuiltinID(id) {
		return types.NewError(types.ErrDuplicateBuiltin,
			fmt.Sprintf("cannot override built-in provider %q", id)).
			WithProvider(id).
			WithHTTPStatus(http.StatusBadRequest)
	}

	cfg, err := in.ProviderConfig(id)
	if err != nil {
		if te, ok := types.AsError(err); ok {
			te.WithProvider(id).WithHTTPStatus(http.StatusBadRequest)
		}
		return err
	}
	return g.registry.Register(ctx, cfg)
}
