package backend

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/siembench/siembench/internal/catalog"
	"github.com/siembench/siembench/internal/config"
)

func allTargets(t *testing.T) []*Target {
	t.Helper()
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	cfg.Targets.Postgres.Enabled = true
	cfg.Targets.ClickHouse.Enabled = true
	cfg.Targets.ClickHouseHTTP.Enabled = true
	cfg.Targets.StarRocks.Enabled = true
	cfg.Targets.Trino.Enabled = true
	cfg.Targets.Splunk.Enabled = true
	return FromConfig(cfg, zerolog.Nop())
}

func ids(targets []*Target) []string {
	out := make([]string, len(targets))
	for i, t := range targets {
		out[i] = t.ID
	}
	return out
}

func TestFromConfig(t *testing.T) {
	targets := allTargets(t)
	want := []string{"postgresql", "clickhouse", "clickhouse-http", "starrocks", "trino", "splunk"}
	got := ids(targets)
	if len(got) != len(want) {
		t.Fatalf("targets = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("target %d = %s, want %s", i, got[i], want[i])
		}
	}

	dialects := map[string]catalog.Dialect{
		"postgresql":      catalog.DialectPostgreSQL,
		"clickhouse":      catalog.DialectClickHouse,
		"clickhouse-http": catalog.DialectClickHouse,
		"starrocks":       catalog.DialectStarRocks,
		"trino":           catalog.DialectTrino,
		// dbxquery forwards SQL to the DB Connect PostgreSQL connection.
		"splunk": catalog.DialectPostgreSQL,
	}
	for _, tgt := range targets {
		if tgt.Dialect != dialects[tgt.ID] {
			t.Errorf("%s dialect = %s, want %s", tgt.ID, tgt.Dialect, dialects[tgt.ID])
		}
		if tgt.Adapter == nil {
			t.Errorf("%s has no adapter", tgt.ID)
		}
	}
}

func TestFromConfigDisabled(t *testing.T) {
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	cfg.Targets.Postgres.Enabled = false
	cfg.Targets.ClickHouse.Enabled = false

	if targets := FromConfig(cfg, zerolog.Nop()); len(targets) != 0 {
		t.Errorf("expected no targets, got %v", ids(targets))
	}
}

func TestFilter(t *testing.T) {
	targets := allTargets(t)

	got, err := Filter(targets, nil, nil)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if len(got) != len(targets) {
		t.Errorf("empty filter should keep all targets, got %v", ids(got))
	}

	got, err = Filter(targets, []string{"clickhouse", "postgresql"}, nil)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if len(got) != 2 || got[0].ID != "clickhouse" || got[1].ID != "postgresql" {
		t.Errorf("include filter = %v, want [clickhouse postgresql] in request order", ids(got))
	}

	got, err = Filter(targets, nil, []string{"splunk", "trino"})
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	for _, tgt := range got {
		if tgt.ID == "splunk" || tgt.ID == "trino" {
			t.Errorf("excluded backend %s survived the filter", tgt.ID)
		}
	}
	if len(got) != len(targets)-2 {
		t.Errorf("exclude filter = %v", ids(got))
	}

	got, err = Filter(targets, []string{"postgresql", "clickhouse"}, []string{"clickhouse"})
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if len(got) != 1 || got[0].ID != "postgresql" {
		t.Errorf("exclude should beat include, got %v", ids(got))
	}

	got, err = Filter(targets, []string{"postgresql", "clickhouse", "postgresql"}, nil)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if len(got) != 2 || got[0].ID != "postgresql" || got[1].ID != "clickhouse" {
		t.Errorf("repeated include id should not duplicate a target, got %v", ids(got))
	}

	if _, err := Filter(targets, []string{"oracle"}, nil); err == nil {
		t.Error("expected error for unknown include id")
	}
	if _, err := Filter(targets, nil, []string{"oracle"}); err == nil {
		t.Error("expected error for unknown exclude id")
	}
}
