package report

import (
	"math"
	"sort"
)

// computeStatistics derives a QueryStatistics from a recorded series.
// Failed iterations count toward FailureCount only; min/max/avg/stddev and
// percentiles are computed over successful samples. Standard deviation uses
// the population formula.
func computeStatistics(backendID, queryName string, samples []TimingSample) QueryStatistics {
	stats := QueryStatistics{
		BackendID: backendID,
		QueryName: queryName,
		Samples:   samples,
	}

	var elapsed []float64
	for _, s := range samples {
		if s.Succeeded {
			elapsed = append(elapsed, float64(s.ElapsedMicros))
		} else {
			stats.FailureCount++
		}
	}
	stats.Count = len(elapsed)

	if stats.Count == 0 {
		stats.Status = StatusFailed
		return stats
	}
	stats.Status = StatusOK

	sort.Float64s(elapsed)

	min := elapsed[0]
	max := elapsed[len(elapsed)-1]
	var sum float64
	for _, v := range elapsed {
		sum += v
	}
	avg := sum / float64(len(elapsed))

	var sqDiff float64
	for _, v := range elapsed {
		d := v - avg
		sqDiff += d * d
	}
	stddev := math.Sqrt(sqDiff / float64(len(elapsed)))

	stats.MinMicros = &min
	stats.MaxMicros = &max
	stats.AvgMicros = &avg
	stats.StddevMicros = &stddev
	stats.P50Micros = ptr(percentile(elapsed, 0.50))
	stats.P95Micros = ptr(percentile(elapsed, 0.95))
	stats.P99Micros = ptr(percentile(elapsed, 0.99))
	return stats
}

// percentile expects sorted input.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func ptr(v float64) *float64 { return &v }
