package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/torosent/tracefold/internal/aggregate"
	"github.com/torosent/tracefold/internal/config"
	"github.com/torosent/tracefold/internal/ingest"
	"github.com/torosent/tracefold/internal/naming"
	"github.com/torosent/tracefold/internal/output"
	"github.com/torosent/tracefold/internal/record"
	"github.com/torosent/tracefold/internal/resolve"
	"github.com/torosent/tracefold/internal/store"
	"github.com/torosent/tracefold/internal/threshold"
	"github.com/torosent/tracefold/internal/trace"
	"github.com/torosent/tracefold/internal/tracing"
)

// errThresholdsFailed signals a non-zero exit after the report is printed.
var errThresholdsFailed = errors.New("thresholds failed")

func main() {
	if err := run(os.Args[1:]); err != nil {
		if !errors.Is(err, errThresholdsFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.Verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	defs, err := cfg.BuildDefinitions()
	if err != nil {
		return err
	}

	resolver, err := newResolver(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	traces, err := readTraces(cfg.Input)
	if err != nil {
		return err
	}
	logger.Info("traces loaded",
		zap.Int("traces", len(traces)),
		zap.Int("files", len(cfg.Input)))

	transactions := store.New[*record.TransactionRecord](aggregate.TransactionAggregator{})
	timers := store.New[*record.TimerRecord](aggregate.TimerAggregator{})
	sensors := store.New[*record.SensorValueRecord](aggregate.SensorValueAggregator{})

	pipeline := &ingest.Pipeline{
		Classifier:   naming.NewClassifier(defs),
		Resolver:     resolver,
		Transactions: transactions,
		Timers:       timers,
		Sensors:      sensors,
		Workers:      cfg.Workers,
		Log:          logger,
	}
	if cfg.Rate > 0 {
		pipeline.Limiter = rate.NewLimiter(rate.Limit(cfg.Rate), 1)
	}

	runCtx, span := tracing.StartRunSpan(ctx, provider.Tracer(), len(traces))
	stats, err := pipeline.Run(runCtx, traces)
	tracing.EndRunSpan(span, err, stats.Traces, stats.Nodes, stats.Errors)
	if err != nil {
		return err
	}

	summary := output.BuildSummary(transactions.Snapshot(), timers.Snapshot(), sensors.Snapshot(), resolver)
	summary.Traces = stats.Traces
	summary.Nodes = stats.Nodes
	summary.Errors = stats.Errors

	if cfg.JSONOutput {
		if err := output.PrintJSONReport(os.Stdout, summary); err != nil {
			return err
		}
	} else {
		output.PrintReport(os.Stdout, summary)
	}

	if cfg.ExportJSON != "" {
		if err := output.ExportJSON(cfg.ExportJSON, summary); err != nil {
			return err
		}
	}
	if cfg.ExportYAML != "" {
		if err := output.ExportYAML(cfg.ExportYAML, summary); err != nil {
			return err
		}
	}

	if len(thresholds) > 0 {
		results := threshold.NewEvaluator(thresholds).Evaluate(byName(transactions.Snapshot()))
		if !output.PrintThresholdResults(os.Stdout, results) {
			return errThresholdsFailed
		}
	}

	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	zapCfg := zap.NewDevelopmentConfig()
	if !verbose {
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return zapCfg.Build()
}

func newResolver(cfg *config.Config) (resolve.Resolver, error) {
	if cfg.Idents.Path == "" {
		return resolve.NewStatic(), nil
	}
	registry, err := ingest.ReadIdents(cfg.Idents.Path)
	if err != nil {
		return nil, err
	}
	return resolve.NewCached(registry), nil
}

func readTraces(paths []string) ([]*trace.Node, error) {
	var traces []*trace.Node
	for _, path := range paths {
		parsed, err := ingest.ReadFile(path)
		if err != nil {
			return nil, err
		}
		traces = append(traces, parsed...)
	}
	return traces, nil
}

func byName(snapshot map[aggregate.Key]*record.TransactionRecord) map[string]*record.TransactionRecord {
	out := make(map[string]*record.TransactionRecord, len(snapshot))
	for _, rec := range snapshot {
		out[rec.Name] = rec
	}
	return out
}
