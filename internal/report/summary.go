package report

import (
	"fmt"
	"sort"
)

// Comparison is one baseline-vs-other speedup entry. Ratio is
// baseline avg / other avg, so values above 1 mean the other backend is
// faster. Incomparable pairs (either side had zero successful samples)
// carry no ratio.
type Comparison struct {
	QueryName    string   `json:"query"`
	BackendID    string   `json:"backend"`
	BaselineID   string   `json:"baseline"`
	Ratio        *float64 `json:"ratio,omitempty"`
	Incomparable bool     `json:"incomparable,omitempty"`
}

// Compare derives per-query speedup ratios between the baseline backend and
// every other backend in the report. Pure function of the report: calling it
// twice yields identical output. Results are sorted by query name, ties
// broken by backend id.
func Compare(r *Report, baselineID string) ([]Comparison, error) {
	baselineSeen := false
	for _, id := range r.Backends {
		if id == baselineID {
			baselineSeen = true
			break
		}
	}
	if !baselineSeen {
		return nil, fmt.Errorf("baseline backend %s not in report", baselineID)
	}

	baseline := make(map[string]*QueryStatistics)
	for i := range r.Statistics {
		s := &r.Statistics[i]
		if s.BackendID == baselineID {
			baseline[s.QueryName] = s
		}
	}

	var out []Comparison
	for i := range r.Statistics {
		s := &r.Statistics[i]
		if s.BackendID == baselineID {
			continue
		}
		base, ok := baseline[s.QueryName]
		if !ok {
			continue
		}

		c := Comparison{
			QueryName:  s.QueryName,
			BackendID:  s.BackendID,
			BaselineID: baselineID,
		}
		if base.Count == 0 || s.Count == 0 || base.AvgMicros == nil || s.AvgMicros == nil {
			c.Incomparable = true
		} else {
			ratio := *base.AvgMicros / *s.AvgMicros
			c.Ratio = &ratio
		}
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].QueryName != out[j].QueryName {
			return out[i].QueryName < out[j].QueryName
		}
		return out[i].BackendID < out[j].BackendID
	})
	return out, nil
}
