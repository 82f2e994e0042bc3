package report

import (
	"encoding/json"
	"fmt"
	"time"
)

// Series status values. "skipped" backends never appear in Statistics;
// they are listed under Skipped instead.
const (
	StatusOK          = "ok"
	StatusFailed      = "failed"
	StatusUnsupported = "unsupported"
)

// TimingSample is one measured iteration for a (backend, query) pair.
// Samples reference backends and queries by id so they outlive adapter
// teardown. Immutable once recorded.
type TimingSample struct {
	BackendID     string `json:"backend"`
	QueryName     string `json:"query"`
	Iteration     int    `json:"iteration"`
	ElapsedMicros int64  `json:"elapsed_us"`
	QueueMicros   int64  `json:"queue_us,omitempty"`
	RowCount      int64  `json:"row_count,omitempty"`
	Succeeded     bool   `json:"succeeded"`
	Error         string `json:"error,omitempty"`
}

// QueryStatistics aggregates one series. Statistics fields are nil when the
// series has zero successful samples so consumers never see NaN. Raw samples
// ride along for later re-analysis.
type QueryStatistics struct {
	BackendID    string         `json:"backend"`
	QueryName    string         `json:"query"`
	Status       string         `json:"status"`
	Count        int            `json:"count"`
	FailureCount int            `json:"failures"`
	MinMicros    *float64       `json:"min_us,omitempty"`
	MaxMicros    *float64       `json:"max_us,omitempty"`
	AvgMicros    *float64       `json:"avg_us,omitempty"`
	StddevMicros *float64       `json:"stddev_us,omitempty"`
	P50Micros    *float64       `json:"p50_us,omitempty"`
	P95Micros    *float64       `json:"p95_us,omitempty"`
	P99Micros    *float64       `json:"p99_us,omitempty"`
	Samples      []TimingSample `json:"samples,omitempty"`
}

// SkippedBackend records a backend excluded from the run at connect time,
// so the report distinguishes "never attempted" from "attempted and failed".
type SkippedBackend struct {
	BackendID string `json:"backend"`
	Reason    string `json:"reason"`
}

// Report is the finalized, serializable result of one benchmark run.
// Field names are stable across versions; readers ignore unknown fields.
type Report struct {
	RunID              string            `json:"run_id"`
	GeneratedAt        time.Time         `json:"generated_at"`
	WarmupIterations   int               `json:"warmup_iterations"`
	MeasuredIterations int               `json:"measured_iterations"`
	Backends           []string          `json:"backends"`
	Skipped            []SkippedBackend  `json:"skipped,omitempty"`
	Partial            bool              `json:"partial,omitempty"`
	Statistics         []QueryStatistics `json:"statistics"`
	Comparisons        []Comparison      `json:"comparisons,omitempty"`
}

// AttachComparisons derives the speedup table against the baseline and
// embeds it so serialized reports carry their own comparison section.
func (r *Report) AttachComparisons(baselineID string) error {
	comparisons, err := Compare(r, baselineID)
	if err != nil {
		return err
	}
	r.Comparisons = comparisons
	return nil
}

// Encode serializes the report as indented JSON.
func (r *Report) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return data, nil
}

// Decode parses a serialized report. Unknown fields are ignored so newer
// reports remain readable by older tooling.
func Decode(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &r, nil
}

// Stats returns the statistics entry for a (backend, query) pair.
func (r *Report) Stats(backendID, queryName string) (*QueryStatistics, bool) {
	for i := range r.Statistics {
		s := &r.Statistics[i]
		if s.BackendID == backendID && s.QueryName == queryName {
			return s, true
		}
	}
	return nil, false
}
