package report

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrAlreadyFinalized is returned when Finalize is called twice on the same
// recorder. Reports are single-shot.
var ErrAlreadyFinalized = errors.New("report already finalized")

type seriesKey struct {
	backendID string
	queryName string
}

// Recorder accumulates timing samples across backend workers. It is the one
// structure shared between concurrent workers; every method serializes
// through the internal mutex.
type Recorder struct {
	mu          sync.Mutex
	order       []seriesKey
	samples     map[seriesKey][]TimingSample
	unsupported map[seriesKey]bool
	skipped     []SkippedBackend
	finalized   bool
}

func NewRecorder() *Recorder {
	return &Recorder{
		samples:     make(map[seriesKey][]TimingSample),
		unsupported: make(map[seriesKey]bool),
	}
}

// Record appends a sample to its series. Samples for a given series arrive
// in iteration order because iterations within a series are sequential.
// Calls after Finalize are ignored; the report is already emitted.
func (r *Recorder) Record(s TimingSample) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized {
		return
	}
	key := seriesKey{s.BackendID, s.QueryName}
	if _, seen := r.samples[key]; !seen && !r.unsupported[key] {
		r.order = append(r.order, key)
	}
	r.samples[key] = append(r.samples[key], s)
}

// MarkUnsupported records that a query has no SQL for a backend's dialect.
// The pair appears in the report with status "unsupported" rather than
// being silently absent.
func (r *Recorder) MarkUnsupported(backendID, queryName string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized {
		return
	}
	key := seriesKey{backendID, queryName}
	if _, seen := r.samples[key]; !seen && !r.unsupported[key] {
		r.order = append(r.order, key)
	}
	r.unsupported[key] = true
}

// MarkSkipped records a backend excluded at connect time.
func (r *Recorder) MarkSkipped(backendID, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		return
	}
	r.skipped = append(r.skipped, SkippedBackend{BackendID: backendID, Reason: reason})
}

// RunMeta carries run-level fields into the finalized report.
type RunMeta struct {
	Backends           []string
	WarmupIterations   int
	MeasuredIterations int
	Partial            bool
}

// Finalize computes statistics for every recorded series and produces the
// immutable report. Series are ordered by query name, ties broken by backend
// id, so identical run content serializes identically however backend
// workers interleaved. A second call fails with ErrAlreadyFinalized.
func (r *Recorder) Finalize(meta RunMeta) (*Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized {
		return nil, ErrAlreadyFinalized
	}
	r.finalized = true

	rep := &Report{
		RunID:              uuid.New().String(),
		GeneratedAt:        time.Now().UTC(),
		WarmupIterations:   meta.WarmupIterations,
		MeasuredIterations: meta.MeasuredIterations,
		Backends:           meta.Backends,
		Skipped:            r.skipped,
		Partial:            meta.Partial,
		Statistics:         make([]QueryStatistics, 0, len(r.order)),
	}

	keys := make([]seriesKey, len(r.order))
	copy(keys, r.order)
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].queryName != keys[j].queryName {
			return keys[i].queryName < keys[j].queryName
		}
		return keys[i].backendID < keys[j].backendID
	})

	for _, key := range keys {
		if r.unsupported[key] {
			rep.Statistics = append(rep.Statistics, QueryStatistics{
				BackendID: key.backendID,
				QueryName: key.queryName,
				Status:    StatusUnsupported,
			})
			continue
		}
		rep.Statistics = append(rep.Statistics,
			computeStatistics(key.backendID, key.queryName, r.samples[key]))
	}

	return rep, nil
}
