package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/BaSui01/actiongate/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zapio"
	"golang.org/x/time/rate"
)

// Async request statuses reported by poll and cancel.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusComplete   = "complete"
	StatusError      = "error"
	StatusCancelled  = "cancelled"
	StatusNotFound   = "not_found"
)

// Config 执行器客户端配置
type Config struct {
	Path             string        `yaml:"path" toml:"path" env:"PATH"`
	Args             []string      `yaml:"args" toml:"args" env:"ARGS"`
	MaxMessageSize   int           `yaml:"max_message_size" toml:"max_message_size" env:"MAX_MESSAGE_SIZE"`
	ActionsPerSecond float64       `yaml:"actions_per_second" toml:"actions_per_second" env:"ACTIONS_PER_SECOND"`
	CallTimeout      time.Duration `yaml:"call_timeout" toml:"call_timeout" env:"CALL_TIMEOUT"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		MaxMessageSize:   DefaultMaxMessageSize,
		ActionsPerSecond: 5,
		CallTimeout:      30 * time.Second,
	}
}

var errClientBroken = errors.New("executor connection is no longer usable")

// Client talks to one executor process. Calls are serialized.
type Client struct {
	mu     sync.Mutex
	codec  *Codec
	pacer  *rate.Limiter
	cfg    Config
	logger *zap.Logger
	broken error

	closer func() error
}

// NewClient wraps an established stream pair, e.g. pipes to a running process.
func NewClient(r io.Reader, w io.Writer, cfg Config, logger *zap.Logger) *Client {
	def := DefaultConfig()
	if cfg.ActionsPerSecond <= 0 {
		cfg.ActionsPerSecond = def.ActionsPerSecond
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = def.CallTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		codec:  NewCodec(r, w, cfg.MaxMessageSize),
		pacer:  rate.NewLimiter(rate.Limit(cfg.ActionsPerSecond), 1),
		cfg:    cfg,
		logger: logger.With(zap.String("component", "executor_client")),
		closer: func() error { return nil },
	}
}

// Start launches the executor binary and connects to its stdio.
func Start(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.Path == "" {
		return nil, types.NewError(types.ErrConfig, "executor path is not configured")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cmd := exec.Command(cfg.Path, cfg.Args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("executor stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("executor stdout: %w", err)
	}
	stderr := &zapio.Writer{Log: logger.With(zap.String("component", "executor_stderr")), Level: zap.DebugLevel}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start executor %s: %w", cfg.Path, err)
	}

	c := NewClient(stdout, stdin, cfg, logger)
	c.closer = func() error {
		_ = stdin.Close()
		done := make(chan error, 1)
		go func() { done <- cmd.Wait() }()
		select {
		case err := <-done:
			_ = stderr.Close()
			return err
		case <-time.After(5 * time.Second):
			_ = cmd.Process.Kill()
			err := <-done
			_ = stderr.Close()
			return err
		}
	}

	c.logger.Info("executor started", zap.String("path", cfg.Path), zap.Int("pid", cmd.Process.Pid))
	return c, nil
}

// Close stops the executor process, if the client owns one.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken == nil {
		c.broken = errClientBroken
	}
	return c.closer()
}

// envelope is the common part of every executor reply.
type envelope struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
}

// Call sends msg and decodes the reply into out (which may be nil).
// A reply with success=false yields EXECUTOR_ERROR.
func (c *Client) Call(ctx context.Context, msg any, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.broken != nil {
		return types.NewError(types.ErrExecutor, "executor unavailable").WithCause(c.broken)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	type result struct {
		raw []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		if err := c.codec.Write(msg); err != nil {
			done <- result{err: err}
			return
		}
		raw, err := c.codec.ReadRaw()
		done <- result{raw: raw, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		// The in-flight exchange can no longer be matched to a caller.
		c.broken = ctx.Err()
		return types.NewError(types.ErrExecutor, "executor call aborted").WithCause(ctx.Err())
	}
	if res.err != nil {
		c.broken = res.err
		return types.NewError(types.ErrExecutor, "executor transport failed").WithCause(res.err)
	}

	var env envelope
	if err := json.Unmarshal(res.raw, &env); err != nil {
		return types.NewError(types.ErrExecutor, "executor reply is not a JSON object").WithCause(err)
	}
	if env.Success != nil && !*env.Success {
		msg := env.Error
		if msg == "" {
			msg = "executor reported failure"
		}
		return types.NewError(types.ErrExecutor, msg)
	}

	if out != nil {
		if err := json.Unmarshal(res.raw, out); err != nil {
			return types.NewError(types.ErrExecutor, "unexpected executor reply").WithCause(err)
		}
	}
	return nil
}

// =============================================================================
// 🎯 协议操作
// =============================================================================

// PingResult is the reply to ping.
type PingResult struct {
	Message string `json:"message"`
	Version string `json:"version"`
}

// Ping checks that the executor is responsive.
func (c *Client) Ping(ctx context.Context) (*PingResult, error) {
	var out PingResult
	if err := c.Call(ctx, map[string]any{"action": "ping"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Capabilities 执行器能力声明
type Capabilities struct {
	ScreenCapture bool `json:"screen_capture"`
	UIAutomation  bool `json:"ui_automation"`
	InputControl  bool `json:"input_control"`
	LocalLLM      bool `json:"local_llm"`
}

// GetCapabilities returns what the executor can do on this host.
func (c *Client) GetCapabilities(ctx context.Context) (*Capabilities, error) {
	var out struct {
		Capabilities Capabilities `json:"capabilities"`
	}
	if err := c.Call(ctx, map[string]any{"action": "get_capabilities"}, &out); err != nil {
		return nil, err
	}
	return &out.Capabilities, nil
}

// Screenshot is a captured screen, PNG encoded as base64.
type Screenshot struct {
	Data   string `json:"screenshot"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// CaptureScreen captures the full desktop.
func (c *Client) CaptureScreen(ctx context.Context) (*Screenshot, error) {
	var out Screenshot
	if err := c.Call(ctx, map[string]any{"action": "capture_screen"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// InspectUI returns the accessibility tree as raw JSON.
func (c *Client) InspectUI(ctx context.Context) (json.RawMessage, error) {
	var out struct {
		UITree json.RawMessage `json:"uiTree"`
	}
	if err := c.Call(ctx, map[string]any{"action": "inspect_ui"}, &out); err != nil {
		return nil, err
	}
	return out.UITree, nil
}

// ExecuteAction performs one validated action, paced by the configured rate.
func (c *Client) ExecuteAction(ctx context.Context, a types.ActionRecord) (json.RawMessage, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, types.NewError(types.ErrExecutor, "action pacing interrupted").WithCause(err)
	}

	var out json.RawMessage
	msg := map[string]any{"action": "execute_action", "params": a}
	if err := c.Call(ctx, msg, &out); err != nil {
		return nil, err
	}
	c.logger.Debug("action executed", zap.String("kind", string(a.Action)))
	return out, nil
}

// GetProviderStatus returns which providers have credentials on the executor side.
func (c *Client) GetProviderStatus(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.Call(ctx, map[string]any{"action": "get_provider_status"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// StoreAPIKey saves a provider credential in the executor's credential store.
func (c *Client) StoreAPIKey(ctx context.Context, provider, apiKey string) error {
	return c.Call(ctx, map[string]any{"action": "store_api_key", "provider": provider, "api_key": apiKey}, nil)
}

// DeleteAPIKey removes a stored provider credential.
func (c *Client) DeleteAPIKey(ctx context.Context, provider string) error {
	return c.Call(ctx, map[string]any{"action": "delete_api_key", "provider": provider}, nil)
}

// RequestStatus is the state of an executor-side asynchronous request.
type RequestStatus struct {
	RequestID string          `json:"request_id"`
	Status    string          `json:"status"`
	Actions   json.RawMessage `json:"actions,omitempty"`
	Error     string          `json:"error,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
}

// Done reports whether the request reached a terminal state.
func (s *RequestStatus) Done() bool {
	switch s.Status {
	case StatusComplete, StatusError, StatusCancelled, StatusNotFound:
		return true
	}
	return false
}

// SubmitGetActions queues an action request on the executor and returns its id.
func (c *Client) SubmitGetActions(ctx context.Context, provider, userRequest string) (string, error) {
	var out RequestStatus
	msg := map[string]any{"action": "get_actions", "provider": provider, "user_request": userRequest}
	if err := c.Call(ctx, msg, &out); err != nil {
		return "", err
	}
	if out.RequestID == "" {
		return "", types.NewError(types.ErrExecutor, "executor did not return a request id")
	}
	return out.RequestID, nil
}

// Poll returns the current state of a submitted request.
func (c *Client) Poll(ctx context.Context, requestID string) (*RequestStatus, error) {
	var out RequestStatus
	if err := c.Call(ctx, map[string]any{"action": "poll", "request_id": requestID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Cancel asks the executor to abandon a submitted request.
func (c *Client) Cancel(ctx context.Context, requestID string) (*RequestStatus, error) {
	var out RequestStatus
	if err := c.Call(ctx, map[string]any{"action": "cancel", "request_id": requestID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
