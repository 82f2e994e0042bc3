package bench

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/siembench/siembench/internal/backend"
	"github.com/siembench/siembench/internal/catalog"
	"github.com/siembench/siembench/internal/report"
)

// State is the runner's lifecycle position.
type State int

const (
	StateInitializing State = iota
	StateConnectingBackends
	StateRunningQueries
	StateFinalizing
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateConnectingBackends:
		return "connecting-backends"
	case StateRunningQueries:
		return "running-queries"
	case StateFinalizing:
		return "finalizing"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Options configures a run.
type Options struct {
	WarmupIterations    int
	MeasuredIterations  int
	QueryTimeout        time.Duration
	Pacing              time.Duration
	ConcurrentBackends  int
	ExcludeDispatchWait bool
}

// Runner sequences one benchmark run: connect backends, iterate the
// catalog × backend cross-product, finalize the report. Per-backend and
// per-query failures degrade the report; they never abort the run. A runner
// is single-use.
type Runner struct {
	targets  []*backend.Target
	catalog  *catalog.Catalog
	recorder *report.Recorder
	opts     Options
	state    State
	logger   zerolog.Logger
}

func NewRunner(targets []*backend.Target, cat *catalog.Catalog, opts Options, logger zerolog.Logger) *Runner {
	return &Runner{
		targets:  targets,
		catalog:  cat,
		recorder: report.NewRecorder(),
		opts:     opts,
		state:    StateInitializing,
		logger:   logger.With().Str("component", "runner").Logger(),
	}
}

// State returns the runner's current lifecycle position.
func (r *Runner) State() State {
	return r.state
}

// Run executes the benchmark. Only configuration-level problems return an
// error; a run that reaches finalization succeeds even when every backend
// misbehaved along the way.
func (r *Runner) Run(ctx context.Context) (*report.Report, error) {
	if r.state != StateInitializing {
		return nil, fmt.Errorf("runner is single-use, current state: %s", r.state)
	}

	if len(r.targets) == 0 {
		return nil, fmt.Errorf("no backend targets configured")
	}
	if r.catalog == nil || r.catalog.Len() == 0 {
		return nil, fmt.Errorf("query catalog is empty")
	}
	if r.opts.MeasuredIterations < 1 {
		return nil, fmt.Errorf("measured iterations must be >= 1, got %d", r.opts.MeasuredIterations)
	}

	// Adapters are torn down no matter how the middle states end.
	defer r.closeAll()

	connected := r.connectBackends(ctx)
	r.runQueries(ctx, connected)

	r.state = StateFinalizing
	backends := make([]string, 0, len(r.targets))
	for _, t := range r.targets {
		backends = append(backends, t.ID)
	}
	rep, err := r.recorder.Finalize(report.RunMeta{
		Backends:           backends,
		WarmupIterations:   r.opts.WarmupIterations,
		MeasuredIterations: r.opts.MeasuredIterations,
		Partial:            ctx.Err() != nil,
	})
	if err != nil {
		return nil, err
	}

	r.state = StateDone
	r.logger.Info().
		Int("backends", len(connected)).
		Int("skipped", len(r.targets)-len(connected)).
		Bool("partial", rep.Partial).
		Msg("Benchmark run complete")
	return rep, nil
}

// connectBackends establishes one session per target. A connect failure
// moves that backend to skipped and the run proceeds without it.
func (r *Runner) connectBackends(ctx context.Context) []*backend.Target {
	r.state = StateConnectingBackends

	var connected []*backend.Target
	for _, t := range r.targets {
		if ctx.Err() != nil {
			r.recorder.MarkSkipped(t.ID, "run cancelled before connect")
			continue
		}

		connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		err := t.Adapter.Connect(connectCtx)
		cancel()
		if err != nil {
			r.logger.Warn().
				Str("backend", t.ID).
				Err(err).
				Msg("Backend connection failed, excluding from run")
			r.recorder.MarkSkipped(t.ID, err.Error())
			continue
		}
		connected = append(connected, t)
	}
	return connected
}

// runQueries measures the catalog against every connected backend. Backends
// run on their own workers, bounded by ConcurrentBackends; within one
// backend, series and iterations stay strictly sequential so measurements
// never contend with each other.
func (r *Runner) runQueries(ctx context.Context, connected []*backend.Target) {
	r.state = StateRunningQueries

	seriesOpts := SeriesOptions{
		Warmup:              r.opts.WarmupIterations,
		Measured:            r.opts.MeasuredIterations,
		Timeout:             r.opts.QueryTimeout,
		Pacing:              r.opts.Pacing,
		ExcludeDispatchWait: r.opts.ExcludeDispatchWait,
	}

	g := &errgroup.Group{}
	limit := r.opts.ConcurrentBackends
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for _, t := range connected {
		t := t
		g.Go(func() error {
			for _, q := range r.catalog.Queries() {
				if ctx.Err() != nil {
					return nil
				}

				sql, ok := q.Resolve(t.Dialect)
				if !ok {
					r.logger.Warn().
						Str("backend", t.ID).
						Str("query", q.Name).
						Str("dialect", string(t.Dialect)).
						Msg("Query has no SQL for backend dialect, skipping")
					r.recorder.MarkUnsupported(t.ID, q.Name)
					continue
				}

				r.logger.Info().
					Str("backend", t.ID).
					Str("query", q.Name).
					Msg("Running query series")

				for _, sample := range runSeries(ctx, t, q.Name, sql, seriesOpts, r.logger) {
					r.recorder.Record(sample)
				}
			}
			return nil
		})
	}
	g.Wait()
}

func (r *Runner) closeAll() {
	for _, t := range r.targets {
		if err := t.Adapter.Close(); err != nil {
			r.logger.Warn().Str("backend", t.ID).Err(err).Msg("Adapter close failed")
		}
	}
}
