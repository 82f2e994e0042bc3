package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/siembench/siembench/internal/backend"
	"github.com/siembench/siembench/internal/bench"
	"github.com/siembench/siembench/internal/catalog"
	"github.com/siembench/siembench/internal/config"
	"github.com/siembench/siembench/internal/datagen"
	"github.com/siembench/siembench/internal/logger"
	"github.com/siembench/siembench/internal/report"
	"github.com/siembench/siembench/internal/schedule"
	"github.com/siembench/siembench/internal/sink"
)

// Version is set at build time
var Version = "dev"

func main() {
	// Check for subcommands before loading full config
	if len(os.Args) > 1 && os.Args[1] == "generate" {
		runGenerateSubcommand(os.Args[2:])
		return
	}

	var (
		flagTargets  = flag.String("targets", "", "Comma-separated backend ids to run (default: all enabled)")
		flagExclude  = flag.String("exclude", "", "Comma-separated backend ids to skip")
		flagWarmup   = flag.Int("warmup", -1, "Warmup iterations per query (overrides config)")
		flagMeasured = flag.Int("iterations", -1, "Measured iterations per query (overrides config)")
		flagOutput   = flag.String("output", "", "Report output path (overrides config; .gz enables gzip)")
		flagQueries  = flag.String("queries", "", "JSON query catalog file (default: built-in catalog)")
		flagBaseline = flag.String("baseline", "postgresql", "Baseline backend id for the speedup summary")
		flagSchedule = flag.String("schedule", "", "Cron expression for recurring runs (default: run once)")
		flagVersion  = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *flagVersion {
		fmt.Printf("siembench %s\n", Version)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Flags beat file and environment, but only when actually set.
	if *flagWarmup >= 0 {
		cfg.Bench.WarmupIterations = *flagWarmup
	}
	if *flagMeasured >= 0 {
		cfg.Bench.MeasuredIterations = *flagMeasured
	}
	if *flagOutput != "" {
		cfg.Output.Path = *flagOutput
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Log.Level, cfg.Log.Format)
	log.Info().Str("version", Version).Msg("Starting siembench...")

	cat := catalog.Builtin()
	if *flagQueries != "" {
		cat, err = catalog.LoadFile(*flagQueries)
		if err != nil {
			log.Error().Err(err).Str("path", *flagQueries).Msg("Failed to load query catalog")
			os.Exit(1)
		}
	}

	include := splitList(*flagTargets)
	exclude := splitList(*flagExclude)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	doRun := func(ctx context.Context) error {
		return runBenchmark(ctx, cfg, cat, include, exclude, *flagBaseline)
	}

	if *flagSchedule != "" {
		runTimeout := time.Duration(cfg.Bench.RunTimeoutSec) * time.Second
		sched, err := schedule.NewScheduler(*flagSchedule, runTimeout, doRun)
		if err != nil {
			log.Error().Err(err).Str("schedule", *flagSchedule).Msg("Invalid cron schedule")
			os.Exit(1)
		}
		if err := sched.Start(); err != nil {
			log.Error().Err(err).Msg("Failed to start scheduler")
			os.Exit(1)
		}
		<-ctx.Done()
		sched.Stop()
		return
	}

	if cfg.Bench.RunTimeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.Bench.RunTimeoutSec)*time.Second)
		defer cancel()
	}
	if err := doRun(ctx); err != nil {
		log.Error().Err(err).Msg("Benchmark run failed")
		os.Exit(1)
	}
}

// runBenchmark executes one full run: connect, measure, finalize, persist,
// summarize. Per-query and per-backend failures are captured in the report,
// not returned; only configuration-level problems produce an error.
func runBenchmark(ctx context.Context, cfg *config.Config, cat *catalog.Catalog, include, exclude []string, baseline string) error {
	blog := logger.Get("backend")

	targets, err := backend.Filter(backend.FromConfig(cfg, blog), include, exclude)
	if err != nil {
		return err
	}

	runner := bench.NewRunner(targets, cat, bench.Options{
		WarmupIterations:    cfg.Bench.WarmupIterations,
		MeasuredIterations:  cfg.Bench.MeasuredIterations,
		QueryTimeout:        time.Duration(cfg.Bench.QueryTimeoutSec) * time.Second,
		Pacing:              time.Duration(cfg.Bench.PacingMS) * time.Millisecond,
		ConcurrentBackends:  cfg.Bench.ConcurrentBackends,
		ExcludeDispatchWait: cfg.Targets.Splunk.ExcludeDispatchWait,
	}, logger.Get("runner"))

	rep, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	// A missing baseline (excluded or misspelled) costs the comparison
	// section, not the run.
	if err := rep.AttachComparisons(baseline); err != nil {
		log.Warn().Err(err).Msg("Skipping speedup comparisons")
	}

	data, err := rep.Encode()
	if err != nil {
		return err
	}

	local := sink.NewLocalSink(logger.Get("sink"))
	if err := local.Write(cfg.Output.Path, data); err != nil {
		return err
	}
	log.Info().Str("path", cfg.Output.Path).Str("run_id", rep.RunID).Msg("Report written")

	if cfg.Output.S3.Enabled {
		s3, err := sink.NewS3Sink(cfg.Output.S3, logger.Get("sink"))
		if err != nil {
			return err
		}
		name := fmt.Sprintf("%s-%s.json", rep.GeneratedAt.UTC().Format("20060102T150405Z"), rep.RunID)
		if err := s3.Upload(ctx, name, data); err != nil {
			// Upload failure should not discard a run already saved locally.
			log.Error().Err(err).Msg("S3 upload failed, report kept locally")
		}
	}

	printSummary(rep, baseline)
	return nil
}

// printSummary writes per-series statistics and the baseline speedup table
// to stdout. Logging stays on stderr so the summary is pipeable.
func printSummary(rep *report.Report, baseline string) {
	fmt.Printf("\nRun %s  (%d warmup, %d measured)\n", rep.RunID, rep.WarmupIterations, rep.MeasuredIterations)
	if rep.Partial {
		fmt.Println("NOTE: run was interrupted, results are partial")
	}
	for _, s := range rep.Skipped {
		fmt.Printf("skipped %-16s %s\n", s.BackendID, s.Reason)
	}

	fmt.Printf("\n%-28s %-16s %-12s %10s %10s %10s %10s\n",
		"QUERY", "BACKEND", "STATUS", "AVG(ms)", "MIN(ms)", "MAX(ms)", "STDDEV")
	for _, s := range rep.Statistics {
		if s.AvgMicros == nil {
			fmt.Printf("%-28s %-16s %-12s %10s %10s %10s %10s\n",
				s.QueryName, s.BackendID, s.Status, "-", "-", "-", "-")
			continue
		}
		fmt.Printf("%-28s %-16s %-12s %10.2f %10.2f %10.2f %10.2f\n",
			s.QueryName, s.BackendID, s.Status,
			*s.AvgMicros/1000, *s.MinMicros/1000, *s.MaxMicros/1000, *s.StddevMicros/1000)
	}

	if len(rep.Comparisons) == 0 {
		return
	}
	fmt.Printf("\nSpeedup vs %s (ratio > 1 means faster than baseline)\n", baseline)
	for _, c := range rep.Comparisons {
		if c.Incomparable {
			fmt.Printf("%-28s %-16s %10s\n", c.QueryName, c.BackendID, "n/a")
			continue
		}
		fmt.Printf("%-28s %-16s %9.2fx\n", c.QueryName, c.BackendID, *c.Ratio)
	}
}

// runGenerateSubcommand loads synthetic benchmark data into every enabled
// loadable backend. Usage: siembench generate [flags]
func runGenerateSubcommand(args []string) {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	var (
		flagSecurity = fs.Int("security-rows", 1000000, "Number of security_logs events to generate")
		flagNetwork  = fs.Int("network-rows", 500000, "Number of network_logs events to generate")
		flagSeed     = fs.Int64("seed", 42, "PRNG seed for reproducible data")
	)
	fs.Parse(args)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gen := datagen.NewGenerator(*flagSeed)
	log.Info().
		Int("security_rows", *flagSecurity).
		Int("network_rows", *flagNetwork).
		Int64("seed", *flagSeed).
		Msg("Generating synthetic events")
	secs := gen.SecurityLogs(*flagSecurity)
	nets := gen.NetworkLogs(*flagNetwork)

	loaded := 0
	if cfg.Targets.Postgres.Enabled {
		if err := datagen.NewPostgresLoader(cfg.Targets.Postgres).Load(ctx, secs, nets); err != nil {
			log.Error().Err(err).Msg("PostgreSQL load failed")
			os.Exit(1)
		}
		loaded++
	}
	if cfg.Targets.ClickHouse.Enabled {
		if err := datagen.NewClickHouseLoader(cfg.Targets.ClickHouse).Load(ctx, secs, nets); err != nil {
			log.Error().Err(err).Msg("ClickHouse load failed")
			os.Exit(1)
		}
		loaded++
	}
	if loaded == 0 {
		log.Warn().Msg("No loadable backends enabled; nothing to do")
		return
	}
	log.Info().Int("backends", loaded).Msg("Data generation complete")
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
