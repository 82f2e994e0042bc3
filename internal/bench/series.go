package bench

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/siembench/siembench/internal/backend"
	"github.com/siembench/siembench/internal/report"
)

// SeriesOptions controls one (backend, query) measurement series.
type SeriesOptions struct {
	Warmup   int
	Measured int
	Timeout  time.Duration
	Pacing   time.Duration

	// ExcludeDispatchWait subtracts job-poll sleep time from the elapsed
	// measurement for adapters that report it.
	ExcludeDispatchWait bool
}

// runSeries executes warmup + measured iterations of one query against one
// adapter. Warmup iterations run but are never recorded. Failed iterations
// yield failed samples; the series continues. Iterations execute and are
// returned in strict order. Cancellation is honored between iterations, so
// anything measured before a cancel survives into the report.
func runSeries(ctx context.Context, target *backend.Target, queryName, sql string, opts SeriesOptions, logger zerolog.Logger) []report.TimingSample {
	for i := 0; i < opts.Warmup; i++ {
		if ctx.Err() != nil {
			return nil
		}
		if _, _, _, err := runOnce(ctx, target, sql, opts); err != nil {
			logger.Debug().
				Str("backend", target.ID).
				Str("query", queryName).
				Int("warmup", i).
				Err(err).
				Msg("Warmup iteration failed")
		}
		pace(ctx, opts.Pacing)
	}

	samples := make([]report.TimingSample, 0, opts.Measured)
	for i := 0; i < opts.Measured; i++ {
		if ctx.Err() != nil {
			break
		}

		elapsed, wait, rows, err := runOnce(ctx, target, sql, opts)
		sample := report.TimingSample{
			BackendID:     target.ID,
			QueryName:     queryName,
			Iteration:     i,
			ElapsedMicros: elapsed.Microseconds(),
			QueueMicros:   wait.Microseconds(),
		}
		if err != nil {
			sample.Succeeded = false
			sample.Error = err.Error()
			logger.Debug().
				Str("backend", target.ID).
				Str("query", queryName).
				Int("iteration", i).
				Err(err).
				Msg("Iteration failed")
		} else {
			sample.Succeeded = true
			sample.RowCount = rows
		}
		samples = append(samples, sample)

		pace(ctx, opts.Pacing)
	}
	return samples
}

// runOnce measures a single execution. The clock stops after the adapter
// reports completion including row counting: time to usable result, not time
// to first byte. Returns elapsed time, dispatch wait (zero for adapters
// without a scheduling step), and row count.
func runOnce(ctx context.Context, target *backend.Target, sql string, opts SeriesOptions) (time.Duration, time.Duration, int64, error) {
	execCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	rows, err := target.Adapter.Execute(execCtx, sql)
	elapsed := time.Since(start)

	var wait time.Duration
	if dw, ok := target.Adapter.(backend.DispatchWaiter); ok {
		wait = dw.DispatchWait()
		if opts.ExcludeDispatchWait && wait > 0 && wait < elapsed {
			elapsed -= wait
		}
	}
	return elapsed, wait, rows, err
}

func pace(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
