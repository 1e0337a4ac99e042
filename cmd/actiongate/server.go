package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/BaSui01/actiongate/action"
	"github.com/BaSui01/actiongate/api/handlers"
	"github.com/BaSui01/actiongate/config"
	"github.com/BaSui01/actiongate/gateway"
	"github.com/BaSui01/actiongate/internal/metrics"
	"github.com/BaSui01/actiongate/internal/ratelimit"
	"github.com/BaSui01/actiongate/internal/server"
	"github.com/BaSui01/actiongate/internal/telemetry"
	"github.com/BaSui01/actiongate/internal/tlsutil"
	"github.com/BaSui01/actiongate/llm"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 ActionGate 的主服务器
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	collector *metrics.Collector
	registry  *llm.Registry
	store     *llm.GormProviderStore
	gateway   *gateway.Gateway

	limiter     *ratelimit.Limiter
	memoryStore *ratelimit.MemoryStore
	redis       *redis.Client

	health    *handlers.HealthHandler
	providers *handlers.ProvidersHandler
	actions   *handlers.ActionsHandler

	// 服务器管理器
	httpManager    *server.Manager
	metricsManager *server.Manager

	telemetry *telemetry.Providers

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer 按配置组装全部组件，不开始监听
func NewServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	s := &Server{cfg: cfg, logger: logger}

	// 1. 指标收集器
	s.collector = metrics.NewCollector("actiongate", logger)

	// 2. 提供方注册表
	if err := s.initRegistry(ctx); err != nil {
		s.close()
		return nil, err
	}

	// 3. 校验器与网关
	validator := action.NewValidator(cfg.Validation,
		action.WithLogger(logger),
		action.WithDropObserver(func(reason action.DropReason) {
			s.collector.RecordDropped(string(reason))
		}),
	)
	s.gateway = gateway.New(s.registry, validator,
		gateway.WithConfig(gateway.Config{
			DefaultProvider:      cfg.Providers.Default,
			MaxInstructionLength: cfg.Gateway.MaxInstructionLength,
			MaxHistoryTurns:      cfg.Gateway.MaxHistoryTurns,
		}),
		gateway.WithMetrics(s.collector),
		gateway.WithLogger(logger),
	)

	// 4. 限流
	if err := s.initRateLimiter(ctx); err != nil {
		s.close()
		return nil, err
	}

	// 5. Handlers
	s.health = handlers.NewHealthHandler(s.registry, Version, logger)
	s.providers = handlers.NewProvidersHandler(s.registry, s.gateway, logger)
	s.actions = handlers.NewActionsHandler(s.gateway, cfg.Gateway.MaxBodyBytes, logger)
	if s.store != nil {
		s.health.RegisterCheck(handlers.CheckFunc{CheckName: "provider_store", Fn: s.store.Ping})
	}
	if client := s.redis; client != nil {
		s.health.RegisterCheck(handlers.CheckFunc{CheckName: "redis", Fn: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}})
	}

	return s, nil
}

// =============================================================================
// 🔧 初始化方法
// =============================================================================

func (s *Server) initRegistry(ctx context.Context) error {
	var opts []llm.RegistryOption
	if path := s.cfg.Registry.StorePath; path != "" {
		store, err := llm.OpenSQLiteStore(path)
		if err != nil {
			return err
		}
		s.store = store
		opts = append(opts, llm.WithStore(store))
	}

	s.registry = llm.NewRegistry(s.logger, opts...)
	for _, b := range s.cfg.Providers.Builtins() {
		if err := s.registry.RegisterBuiltin(b); err != nil {
			return err
		}
	}
	s.registry.Seal()

	if s.store != nil {
		n, err := s.registry.LoadFrom(ctx, s.store)
		if err != nil {
			return err
		}
		s.logger.Info("custom providers restored",
			zap.Int("count", n),
			zap.String("store", s.cfg.Registry.StorePath),
		)
	}
	return nil
}

func (s *Server) initRateLimiter(ctx context.Context) error {
	rl := s.cfg.RateLimit
	if !rl.Enabled {
		s.logger.Info("rate limiting disabled")
		return nil
	}

	var store ratelimit.Store
	switch rl.Backend {
	case "redis":
		client, err := ratelimit.OpenRedis(ctx, rl.Redis)
		if err != nil {
			return err
		}
		s.redis = client
		store = ratelimit.NewRedisStore(client)
	default:
		s.memoryStore = ratelimit.NewMemoryStore()
		store = s.memoryStore
	}

	s.limiter = ratelimit.New(rl.Limiter(), store, s.logger)
	s.logger.Info("rate limiting enabled",
		zap.String("backend", rl.Backend),
		zap.Int("limit", s.limiter.Config().Limit),
		zap.Duration("window", s.limiter.Config().Window),
		zap.String("scope", string(s.limiter.Config().Scope)),
	)
	return nil
}

// =============================================================================
// 🌐 路由
// =============================================================================

// Handler 返回带完整中间件链的 HTTP 处理器
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	getActions := s.actions.HandleGetActions
	if s.limiter != nil {
		getActions = RateLimit(s.limiter, s.collector, s.logger, getActions)
	}
	addProvider := RequireAPIKey(s.cfg.Server.AdminAPIKeys, s.providers.HandleAdd)

	// 裸路径与 /api 前缀均提供
	for _, prefix := range []string{"", "/api"} {
		mux.HandleFunc("GET "+prefix+"/health", s.health.HandleHealth)
		mux.HandleFunc("GET "+prefix+"/providers", s.providers.HandleList)
		mux.HandleFunc("POST "+prefix+"/get-actions", getActions)
		mux.HandleFunc("POST "+prefix+"/add-provider", addProvider)
	}
	mux.HandleFunc("GET /ready", s.health.HandleReady)

	if s.cfg.Server.MetricsPort == 0 {
		mux.Handle("GET /metrics", s.collector.Handler())
	}

	return Chain(mux,
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		Metrics(s.collector),
		OTelTracing(),
		CORS(s.cfg.Server.CORSAllowedOrigins),
		ClientIdentity(s.cfg.Auth.JWT, s.identityKeys(), s.logger),
	)
}

// identityKeys 返回可作为限流身份的 API key
func (s *Server) identityKeys() []string {
	keys := make([]string, 0, len(s.cfg.Server.ClientAPIKeys)+len(s.cfg.Server.AdminAPIKeys))
	keys = append(keys, s.cfg.Server.ClientAPIKeys...)
	return append(keys, s.cfg.Server.AdminAPIKeys...)
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 启动遥测、后台清理与监听
func (s *Server) Start(ctx context.Context) error {
	bg, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	providers, err := telemetry.Init(ctx, s.cfg.Telemetry, Version, s.logger)
	if err != nil {
		s.logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	s.telemetry = providers

	if s.memoryStore != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.memoryStore.Run(bg, s.cfg.RateLimit.SweepInterval)
		}()
	}

	srvCfg := server.DefaultConfig()
	srvCfg.Addr = fmt.Sprintf(":%d", s.cfg.Server.HTTPPort)
	srvCfg.ReadTimeout = s.cfg.Server.ReadTimeout
	srvCfg.WriteTimeout = s.cfg.Server.WriteTimeout
	srvCfg.IdleTimeout = s.cfg.Server.IdleTimeout
	srvCfg.ShutdownTimeout = s.cfg.Server.ShutdownTimeout
	if s.cfg.Server.TLSCertFile != "" {
		tlsCfg, err := tlsutil.ServerConfig(s.cfg.Server.TLSCertFile, s.cfg.Server.TLSKeyFile)
		if err != nil {
			return err
		}
		srvCfg.TLS = tlsCfg
	}

	s.httpManager = server.NewManager(s.Handler(), srvCfg, s.logger)
	if err := s.httpManager.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	if port := s.cfg.Server.MetricsPort; port != 0 {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", s.collector.Handler())

		metricsCfg := server.DefaultConfig()
		metricsCfg.Name = "metrics"
		metricsCfg.Addr = fmt.Sprintf(":%d", port)
		metricsCfg.ShutdownTimeout = s.cfg.Server.ShutdownTimeout

		s.metricsManager = server.NewManager(mux, metricsCfg, s.logger)
		if err := s.metricsManager.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	s.logger.Info("All servers started",
		zap.String("http_addr", s.httpManager.Addr()),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.Bool("tls", srvCfg.TLS != nil),
		zap.Int("providers", s.registry.Len()),
	)
	return nil
}

// Run 阻塞直到 ctx 结束或任一监听失败，然后优雅关闭
func (s *Server) Run(ctx context.Context) error {
	var metricsErrs <-chan error
	if s.metricsManager != nil {
		metricsErrs = s.metricsManager.Errors()
	}

	var runErr error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-s.httpManager.Errors():
		runErr = fmt.Errorf("http server: %w", err)
	case err := <-metricsErrs:
		runErr = fmt.Errorf("metrics server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	return errors.Join(runErr, s.Shutdown(shutdownCtx))
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// Shutdown 优雅关闭所有服务
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Starting graceful shutdown...")

	var errs []error
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http server: %w", err))
		}
	}
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server: %w", err))
		}
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()

	if err := s.telemetry.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, s.close())

	err := errors.Join(errs...)
	if err != nil {
		s.logger.Error("shutdown completed with errors", zap.Error(err))
	} else {
		s.logger.Info("Graceful shutdown completed")
	}
	return err
}

// close releases the store and Redis client.
func (s *Server) close() error {
	var errs []error
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
		s.redis = nil
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
		s.store = nil
	}
	return errors.Join(errs...)
}
