// Package app provides the docbench command line application.
package app

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/kart-io/logger"
	"github.com/spf13/cobra"

	"github.com/kart-io/docbench/cmd/docbench/app/options"
	"github.com/kart-io/docbench/internal/docbench"
	"github.com/kart-io/docbench/pkg/infra/app"
)

const (
	appName        = "docbench"
	appDescription = `docbench benchmarks document stores with YCSB-style workloads.

Every worker owns a client while all of them share one reference-counted
store connection. The connection runs a background sweeper that removes
documents whose TTL has passed.

Examples:
  # Load 100000 documents into MongoDB with 16 workers
  docbench load --workload.record-count=100000 -t 16

  # Run a read-heavy workload against Redis
  docbench run --docstore.backend=redis --workload.proportion.read=0.95

  # Dry run both phases in memory, writing a JSON report
  docbench bench --docstore.backend=memory --workload.report-json=report.json

  # Print the last 20 audit log entries
  docbench tail 20

Configuration:
  Configuration can be provided via:
  - Command-line flags (highest priority)
  - Environment variables (prefix: DOCBENCH_)
  - A .env file
  - Configuration file (YAML)
  - Default values (lowest priority)`
)

// defaultTailCount is how many entries tail prints without an argument.
const defaultTailCount = 10

// NewApp creates a new application instance.
func NewApp() *app.App {
	opts := options.NewOptions()

	return app.NewApp(
		app.WithName(appName),
		app.WithShortDescription("Benchmark document stores with YCSB-style workloads"),
		app.WithDescription(appDescription),
		app.WithOptions(opts),
		app.WithCommand("load", "Insert the initial record set", command(opts, func(ctx context.Context, b *docbench.Bench, _ []string) error {
			return b.Load(ctx)
		})),
		app.WithCommand("run", "Run the transaction phase", command(opts, func(ctx context.Context, b *docbench.Bench, _ []string) error {
			return b.Run(ctx)
		})),
		app.WithCommand("bench", "Run the load and transaction phases in one process", command(opts, func(ctx context.Context, b *docbench.Bench, _ []string) error {
			return b.Bench(ctx)
		})),
		app.WithCommand("sweep", "Remove expired documents from every collection once", command(opts, func(ctx context.Context, b *docbench.Bench, _ []string) error {
			return b.Sweep(ctx)
		})),
		app.WithCommandArgs("tail [count]", "Print recent audit or profile log entries", cobra.MaximumNArgs(1), command(opts, tail)),
		app.WithCommand("ping", "Check that the selected backend is reachable", command(opts, func(ctx context.Context, b *docbench.Bench, _ []string) error {
			return b.Ping(ctx)
		})),
	)
}

type benchFunc func(ctx context.Context, b *docbench.Bench, args []string) error

// command initializes the logger and a Bench from the completed options
// before calling run.
func command(opts *options.Options, run benchFunc) app.RunFunc {
	return func(ctx context.Context, args []string) error {
		if err := opts.Log.Init(); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer func() { _ = logger.Flush() }()

		logger.Infow("Starting docbench",
			"app", appName,
			"version", app.GetVersion(),
			"backend", opts.Docstore.Backend,
			"table", opts.Workload.Table,
		)

		b, err := docbench.New(opts.Config(), os.Stdout)
		if err != nil {
			return err
		}
		return run(ctx, b, args)
	}
}

func tail(ctx context.Context, b *docbench.Bench, args []string) error {
	count := defaultTailCount
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("count must be a positive integer, got %q", args[0])
		}
		count = n
	}
	return b.Tail(ctx, count)
}
