package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveDialectOverride(t *testing.T) {
	q := QueryDefinition{
		Name:       "count_events",
		DefaultSQL: "SELECT count(*) FROM security_logs",
		SQL: map[Dialect]string{
			DialectClickHouse: "SELECT count() FROM security_logs",
		},
	}

	sql, ok := q.Resolve(DialectClickHouse)
	if !ok || sql != "SELECT count() FROM security_logs" {
		t.Errorf("expected ClickHouse override, got %q (ok=%v)", sql, ok)
	}

	sql, ok = q.Resolve(DialectPostgreSQL)
	if !ok || sql != "SELECT count(*) FROM security_logs" {
		t.Errorf("expected default SQL fallback, got %q (ok=%v)", sql, ok)
	}
}

func TestResolveUnsupportedDialect(t *testing.T) {
	q := QueryDefinition{
		Name: "ch_only",
		SQL:  map[Dialect]string{DialectClickHouse: "SELECT 1"},
	}
	if _, ok := q.Resolve(DialectTrino); ok {
		t.Error("expected dialect without SQL and without default to be unsupported")
	}
}

func TestNewValidation(t *testing.T) {
	cases := []struct {
		name string
		defs []QueryDefinition
	}{
		{"empty catalog", nil},
		{"empty query name", []QueryDefinition{{Name: "  ", DefaultSQL: "SELECT 1"}}},
		{"no sql at all", []QueryDefinition{{Name: "q"}}},
		{"duplicate name", []QueryDefinition{
			{Name: "q", DefaultSQL: "SELECT 1"},
			{Name: "q", DefaultSQL: "SELECT 2"},
		}},
	}
	for _, tc := range cases {
		if _, err := New(tc.defs); err == nil {
			t.Errorf("%s: expected error, got nil", tc.name)
		}
	}
}

func TestCatalogOrderAndLookup(t *testing.T) {
	defs := []QueryDefinition{
		{Name: "b", DefaultSQL: "SELECT 2"},
		{Name: "a", DefaultSQL: "SELECT 1"},
	}
	c, err := New(defs)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got := c.Queries()
	if len(got) != 2 || got[0].Name != "b" || got[1].Name != "a" {
		t.Errorf("expected catalog to preserve definition order, got %v", got)
	}

	q, ok := c.Get("a")
	if !ok || q.DefaultSQL != "SELECT 1" {
		t.Errorf("Get(a) = %v, %v", q, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("Get(missing) should report not found")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.json")
	content := `[
		{"name": "total", "default_sql": "SELECT count(*) FROM security_logs"},
		{"name": "daily", "sql": {"clickhouse": "SELECT toDate(timestamp), count() FROM security_logs GROUP BY 1"}}
	]`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if c.Len() != 2 {
		t.Errorf("expected 2 queries, got %d", c.Len())
	}
	q, ok := c.Get("daily")
	if !ok {
		t.Fatal("expected daily query")
	}
	if _, ok := q.Resolve(DialectClickHouse); !ok {
		t.Error("daily should resolve for clickhouse")
	}
	if _, ok := q.Resolve(DialectPostgreSQL); ok {
		t.Error("daily should not resolve for postgresql")
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile("/nonexistent/queries.json"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestBuiltinResolvesEverywhere(t *testing.T) {
	c := Builtin()
	if c.Len() == 0 {
		t.Fatal("builtin catalog is empty")
	}
	dialects := []Dialect{DialectPostgreSQL, DialectClickHouse, DialectStarRocks, DialectTrino}
	for _, q := range c.Queries() {
		for _, d := range dialects {
			if _, ok := q.Resolve(d); !ok {
				t.Errorf("builtin query %s does not resolve for dialect %s", q.Name, d)
			}
		}
	}
}
