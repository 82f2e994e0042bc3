package bench

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/siembench/siembench/internal/backend"
	"github.com/siembench/siembench/internal/catalog"
	"github.com/siembench/siembench/internal/report"
)

// fakeAdapter counts calls and fails on demand. failOn holds 1-based
// Execute call numbers that should return an error.
type fakeAdapter struct {
	mu         sync.Mutex
	connectErr error
	execCalls  int
	closeCalls int
	failOn     map[int]bool
	rows       int64
	execDelay  time.Duration
	onExec     func(call int)
}

func (f *fakeAdapter) Connect(ctx context.Context) error { return f.connectErr }

func (f *fakeAdapter) Execute(ctx context.Context, sql string) (int64, error) {
	f.mu.Lock()
	f.execCalls++
	call := f.execCalls
	f.mu.Unlock()

	if f.onExec != nil {
		f.onExec(call)
	}
	if f.execDelay > 0 {
		time.Sleep(f.execDelay)
	}
	if f.failOn[call] {
		return 0, fmt.Errorf("injected failure on call %d", call)
	}
	return f.rows, nil
}

func (f *fakeAdapter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
	return nil
}

func (f *fakeAdapter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.execCalls
}

// waitingAdapter reports a fixed dispatch wait alongside a real sleep.
type waitingAdapter struct {
	fakeAdapter
	wait time.Duration
}

func (w *waitingAdapter) DispatchWait() time.Duration { return w.wait }

func testCatalog(t *testing.T, names ...string) *catalog.Catalog {
	t.Helper()
	defs := make([]catalog.QueryDefinition, len(names))
	for i, n := range names {
		defs[i] = catalog.QueryDefinition{Name: n, DefaultSQL: "SELECT 1"}
	}
	c, err := catalog.New(defs)
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	return c
}

func target(id string, a backend.Adapter) *backend.Target {
	return &backend.Target{ID: id, Dialect: catalog.DialectPostgreSQL, Adapter: a}
}

var testLogger = zerolog.Nop()

func TestRunWarmupNotRecorded(t *testing.T) {
	fake := &fakeAdapter{rows: 7}
	r := NewRunner([]*backend.Target{target("postgresql", fake)}, testCatalog(t, "count_all"), Options{
		WarmupIterations:   2,
		MeasuredIterations: 3,
	}, testLogger)

	rep, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if fake.calls() != 5 {
		t.Errorf("adapter executed %d times, want 2 warmup + 3 measured = 5", fake.calls())
	}
	s, ok := rep.Stats("postgresql", "count_all")
	if !ok {
		t.Fatal("missing series")
	}
	if s.Count != 3 {
		t.Errorf("recorded count = %d, want 3", s.Count)
	}
	for i, smp := range s.Samples {
		if smp.Iteration != i {
			t.Errorf("sample %d has iteration %d", i, smp.Iteration)
		}
		if smp.RowCount != 7 {
			t.Errorf("sample %d row count = %d, want 7", i, smp.RowCount)
		}
	}
}

func TestRunFlakyIterationContinuesSeries(t *testing.T) {
	// Call 1 is the only warmup; measured calls are 2..6. Fail the second
	// measured iteration.
	fake := &fakeAdapter{failOn: map[int]bool{3: true}}
	r := NewRunner([]*backend.Target{target("postgresql", fake)}, testCatalog(t, "count_all"), Options{
		WarmupIterations:   1,
		MeasuredIterations: 5,
	}, testLogger)

	rep, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	s, _ := rep.Stats("postgresql", "count_all")
	if s.Count != 4 || s.FailureCount != 1 {
		t.Errorf("count/failures = %d/%d, want 4/1", s.Count, s.FailureCount)
	}
	if s.Status != report.StatusOK {
		t.Errorf("status = %q, want ok", s.Status)
	}
	if len(s.Samples) != 5 {
		t.Errorf("samples = %d, want 5", len(s.Samples))
	}
	if s.Samples[1].Succeeded || s.Samples[1].Error == "" {
		t.Error("second measured sample should be a recorded failure")
	}
}

func TestRunWarmupFailureDoesNotAffectSeries(t *testing.T) {
	fake := &fakeAdapter{failOn: map[int]bool{1: true, 2: true}}
	r := NewRunner([]*backend.Target{target("postgresql", fake)}, testCatalog(t, "count_all"), Options{
		WarmupIterations:   2,
		MeasuredIterations: 2,
	}, testLogger)

	rep, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	s, _ := rep.Stats("postgresql", "count_all")
	if s.Count != 2 || s.FailureCount != 0 {
		t.Errorf("count/failures = %d/%d, want 2/0 despite warmup failures", s.Count, s.FailureCount)
	}
}

func TestRunConnectFailureIsolated(t *testing.T) {
	bad := &fakeAdapter{connectErr: fmt.Errorf("connection refused")}
	good := &fakeAdapter{}
	r := NewRunner([]*backend.Target{
		target("splunk", bad),
		target("postgresql", good),
	}, testCatalog(t, "count_all"), Options{MeasuredIterations: 2}, testLogger)

	rep, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(rep.Skipped) != 1 || rep.Skipped[0].BackendID != "splunk" {
		t.Errorf("skipped = %v, want splunk", rep.Skipped)
	}
	if !strings.Contains(rep.Skipped[0].Reason, "connection refused") {
		t.Errorf("skip reason = %q", rep.Skipped[0].Reason)
	}
	if bad.calls() != 0 {
		t.Error("skipped backend must not execute queries")
	}
	if _, ok := rep.Stats("postgresql", "count_all"); !ok {
		t.Error("healthy backend should still be measured")
	}
	if len(rep.Backends) != 2 {
		t.Errorf("report backends = %v, want both attempted ids", rep.Backends)
	}
	if good.closeCalls != 1 || bad.closeCalls != 1 {
		t.Error("all adapters should be closed after the run")
	}
}

func TestRunUnsupportedQueryMarked(t *testing.T) {
	defs := []catalog.QueryDefinition{
		{Name: "everywhere", DefaultSQL: "SELECT 1"},
		{Name: "ch_only", SQL: map[catalog.Dialect]string{catalog.DialectClickHouse: "SELECT 1"}},
	}
	cat, err := catalog.New(defs)
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}

	fake := &fakeAdapter{}
	r := NewRunner([]*backend.Target{target("postgresql", fake)}, cat, Options{MeasuredIterations: 1}, testLogger)

	rep, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	s, ok := rep.Stats("postgresql", "ch_only")
	if !ok {
		t.Fatal("unsupported pair should still appear in the report")
	}
	if s.Status != report.StatusUnsupported {
		t.Errorf("status = %q, want unsupported", s.Status)
	}
	if fake.calls() != 1 {
		t.Errorf("adapter executed %d times, want only the supported query", fake.calls())
	}
}

func TestRunnerSingleUse(t *testing.T) {
	fake := &fakeAdapter{}
	r := NewRunner([]*backend.Target{target("postgresql", fake)}, testCatalog(t, "count_all"), Options{MeasuredIterations: 1}, testLogger)

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if r.State() != StateDone {
		t.Errorf("state = %s, want done", r.State())
	}
	if _, err := r.Run(context.Background()); err == nil {
		t.Error("second Run should fail")
	}
}

func TestRunValidation(t *testing.T) {
	cat := testCatalog(t, "count_all")
	tgt := []*backend.Target{target("postgresql", &fakeAdapter{})}

	if _, err := NewRunner(nil, cat, Options{MeasuredIterations: 1}, testLogger).Run(context.Background()); err == nil {
		t.Error("expected error for no targets")
	}
	if _, err := NewRunner(tgt, nil, Options{MeasuredIterations: 1}, testLogger).Run(context.Background()); err == nil {
		t.Error("expected error for nil catalog")
	}
	if _, err := NewRunner(tgt, cat, Options{MeasuredIterations: 0}, testLogger).Run(context.Background()); err == nil {
		t.Error("expected error for zero measured iterations")
	}
}

func TestRunCancellationProducesPartialReport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fake := &fakeAdapter{}
	fake.onExec = func(call int) {
		if call == 2 {
			cancel()
		}
	}
	r := NewRunner([]*backend.Target{target("postgresql", fake)}, testCatalog(t, "count_all"), Options{
		MeasuredIterations: 5,
	}, testLogger)

	rep, err := r.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !rep.Partial {
		t.Error("cancelled run should produce a partial report")
	}
	s, ok := rep.Stats("postgresql", "count_all")
	if !ok {
		t.Fatal("samples measured before cancel should survive")
	}
	if s.Count < 1 || s.Count >= 5 {
		t.Errorf("count = %d, want at least 1 and fewer than 5", s.Count)
	}
}

func TestRunOnceExcludesDispatchWait(t *testing.T) {
	w := &waitingAdapter{wait: 40 * time.Millisecond}
	w.execDelay = 50 * time.Millisecond
	tgt := target("splunk", w)

	elapsed, wait, _, err := runOnce(context.Background(), tgt, "SELECT 1", SeriesOptions{
		ExcludeDispatchWait: true,
	})
	if err != nil {
		t.Fatalf("runOnce: %v", err)
	}
	if wait != 40*time.Millisecond {
		t.Errorf("wait = %v, want 40ms", wait)
	}
	if elapsed >= 50*time.Millisecond {
		t.Errorf("elapsed = %v, dispatch wait should have been subtracted", elapsed)
	}

	// Default accounting keeps the wait in the measurement.
	elapsed, _, _, err = runOnce(context.Background(), tgt, "SELECT 1", SeriesOptions{})
	if err != nil {
		t.Fatalf("runOnce: %v", err)
	}
	if elapsed < 50*time.Millisecond {
		t.Errorf("elapsed = %v, want full execution time when wait is included", elapsed)
	}
}

func TestRunConcurrentBackendsShareRecorder(t *testing.T) {
	a := &fakeAdapter{}
	b := &fakeAdapter{}
	r := NewRunner([]*backend.Target{
		target("postgresql", a),
		target("clickhouse", b),
	}, testCatalog(t, "q1", "q2"), Options{
		MeasuredIterations: 2,
		ConcurrentBackends: 2,
	}, testLogger)

	rep, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rep.Statistics) != 4 {
		t.Fatalf("expected 4 series, got %d", len(rep.Statistics))
	}
	for _, s := range rep.Statistics {
		if s.Count != 2 {
			t.Errorf("%s/%s count = %d, want 2", s.BackendID, s.QueryName, s.Count)
		}
	}
}
