package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/BaSui01/actiongate/api/handlers"
	"github.com/BaSui01/actiongate/gateway"
	"github.com/BaSui01/actiongate/internal/executor"
	"github.com/BaSui01/actiongate/internal/metrics"
	"github.com/BaSui01/actiongate/types"
	"go.uber.org/zap"
)

// =============================================================================
// 🤖 run 命令：截屏 → 检查 UI → 调度 → 依次执行
// =============================================================================

// desktop is the executor surface the run command drives.
type desktop interface {
	CaptureScreen(ctx context.Context) (*executor.Screenshot, error)
	InspectUI(ctx context.Context) (json.RawMessage, error)
	ExecuteAction(ctx context.Context, a types.ActionRecord) (json.RawMessage, error)
}

type runOptions struct {
	Instruction string
	Provider    string
	DryRun      bool
}

// runReport summarizes one run for the operator.
type runReport struct {
	Provider string               `json:"provider"`
	Actions  []types.ActionRecord `json:"actions"`
	Dropped  int                  `json:"dropped"`
	Executed int                  `json:"executed"`
	DryRun   bool                 `json:"dry_run,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// runActions dispatches the instruction against the current screen and
// executes the validated actions in order, stopping at the first failure.
func runActions(ctx context.Context, d desktop, dispatcher handlers.Dispatcher, collector *metrics.Collector, opts runOptions, logger *zap.Logger) (*runReport, error) {
	shot, err := d.CaptureScreen(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture screen: %w", err)
	}
	tree, err := d.InspectUI(ctx)
	if err != nil {
		return nil, fmt.Errorf("inspect ui: %w", err)
	}

	res, err := dispatcher.Dispatch(ctx, gateway.DispatchRequest{
		Provider:    opts.Provider,
		Screenshot:  shot.Data,
		UITree:      tree,
		UserRequest: opts.Instruction,
	})
	if err != nil {
		return nil, err
	}

	report := &runReport{
		Provider: res.Provider,
		Actions:  res.Actions,
		Dropped:  res.Dropped,
		DryRun:   opts.DryRun,
	}
	if opts.DryRun {
		return report, nil
	}

	for i, a := range res.Actions {
		_, err := d.ExecuteAction(ctx, a)
		if collector != nil {
			collector.RecordExecutorAction(string(a.Action), err == nil)
		}
		if err != nil {
			logger.Warn("action failed, stopping",
				zap.Int("index", i),
				zap.String("kind", string(a.Action)),
				zap.Error(err),
			)
			report.Error = err.Error()
			return report, fmt.Errorf("action %d (%s): %w", i, a.Action, err)
		}
		report.Executed++
	}
	return report, nil
}

func runRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	instruction := fs.String("instruction", "", "What to do on screen")
	provider := fs.String("provider", "", "Provider id (defaults to providers.default)")
	executorPath := fs.String("executor", "", "Path to the executor binary")
	dryRun := fs.Bool("dry-run", false, "Plan actions without executing them")
	_ = fs.Parse(args)

	if *instruction == "" {
		fmt.Fprintln(os.Stderr, "run: --instruction is required")
		os.Exit(2)
	}

	cfg := loadConfig(*configPath)
	if *executorPath != "" {
		cfg.Executor.Path = *executorPath
	}
	cfg.RateLimit.Enabled = false

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := NewServer(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to build gateway", zap.Error(err))
	}
	defer func() { _ = srv.close() }()

	client, err := executor.Start(cfg.Executor, logger)
	if err != nil {
		logger.Fatal("failed to start executor", zap.Error(err))
	}
	defer func() { _ = client.Close() }()

	report, err := runActions(ctx, client, srv.gateway, srv.collector, runOptions{
		Instruction: *instruction,
		Provider:    *provider,
		DryRun:      *dryRun,
	}, logger)
	if report != nil {
		printReport(os.Stdout, report)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "run failed: %v\n", err)
		os.Exit(1)
	}
}

func printReport(w io.Writer, r *runReport) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(r)
}
