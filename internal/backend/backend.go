package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/siembench/siembench/internal/catalog"
	"github.com/siembench/siembench/internal/config"
)

// Adapter presents a uniform execute contract over one backend's client
// protocol. Implementations must not materialize result sets: Execute counts
// rows and discards them. Close is safe to call more than once.
type Adapter interface {
	// Connect establishes the session. Re-entrant after failure: a retry
	// starts from scratch rather than assuming partial state.
	Connect(ctx context.Context) error

	// Execute runs one query to completion and returns the result-set row
	// count. The caller controls the timeout through ctx.
	Execute(ctx context.Context, sql string) (int64, error)

	Close() error
}

// DispatchWaiter is implemented by adapters whose execution model embeds a
// remote scheduling step (job submission and polling). DispatchWait reports
// the time the most recent Execute spent waiting between dispatch-state
// polls, so the caller can exclude it from the measured latency when
// configured to.
type DispatchWaiter interface {
	DispatchWait() time.Duration
}

// Target binds a backend id and SQL dialect to a live adapter.
type Target struct {
	ID      string
	Dialect catalog.Dialect
	Adapter Adapter
}

// FromConfig builds targets for every enabled backend. Backend ids are
// stable; the runner and report reference targets by id only.
func FromConfig(cfg *config.Config, logger zerolog.Logger) []*Target {
	timeout := time.Duration(cfg.Bench.QueryTimeoutSec) * time.Second
	var targets []*Target

	t := &cfg.Targets
	if t.Postgres.Enabled {
		targets = append(targets, &Target{
			ID:      "postgresql",
			Dialect: catalog.DialectPostgreSQL,
			Adapter: newPostgresAdapter(t.Postgres, timeout, logger),
		})
	}
	if t.ClickHouse.Enabled {
		targets = append(targets, &Target{
			ID:      "clickhouse",
			Dialect: catalog.DialectClickHouse,
			Adapter: newClickHouseAdapter(t.ClickHouse, timeout, logger),
		})
	}
	if t.ClickHouseHTTP.Enabled {
		targets = append(targets, &Target{
			ID:      "clickhouse-http",
			Dialect: catalog.DialectClickHouse,
			Adapter: newClickHouseHTTPAdapter(t.ClickHouseHTTP, timeout, logger),
		})
	}
	if t.StarRocks.Enabled {
		targets = append(targets, &Target{
			ID:      "starrocks",
			Dialect: catalog.DialectStarRocks,
			Adapter: newStarRocksAdapter(t.StarRocks, timeout, logger),
		})
	}
	if t.Trino.Enabled {
		targets = append(targets, &Target{
			ID:      "trino",
			Dialect: catalog.DialectTrino,
			Adapter: newTrinoAdapter(t.Trino, timeout, logger),
		})
	}
	if t.Splunk.Enabled {
		// dbxquery passes SQL through to the underlying DB Connect
		// connection, which points at PostgreSQL in the reference stack.
		targets = append(targets, &Target{
			ID:      "splunk",
			Dialect: catalog.DialectPostgreSQL,
			Adapter: newSplunkAdapter(t.Splunk, timeout, logger),
		})
	}
	return targets
}

// Filter returns the subset of targets whose ids pass the include/exclude
// lists. An empty include list means all targets.
func Filter(targets []*Target, include, exclude []string) ([]*Target, error) {
	known := make(map[string]*Target, len(targets))
	for _, t := range targets {
		known[t.ID] = t
	}
	for _, id := range append(append([]string{}, include...), exclude...) {
		if _, ok := known[id]; !ok {
			return nil, fmt.Errorf("unknown or disabled backend: %s", id)
		}
	}

	excluded := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	var out []*Target
	if len(include) == 0 {
		for _, t := range targets {
			if !excluded[t.ID] {
				out = append(out, t)
			}
		}
		return out, nil
	}
	// A repeated include id must not produce a duplicate target; the same
	// adapter would run the catalog twice and pollute its series.
	seen := make(map[string]bool, len(include))
	for _, id := range include {
		if seen[id] || excluded[id] {
			continue
		}
		seen[id] = true
		out = append(out, known[id])
	}
	return out, nil
}
