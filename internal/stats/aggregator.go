package stats

import (
	"math"
	"sort"
	"time"

	"benchq/internal/errs"
)

// Percentile is a latency at a quantile.
type Percentile struct {
	Quantile float64       `json:"quantile"`
	Latency  time.Duration `json:"latency_ns"`
}

// Summary is the exact latency summary of a run.
type Summary struct {
	Count       int           `json:"count"`
	Min         time.Duration `json:"min_ns"`
	Max         time.Duration `json:"max_ns"`
	Mean        time.Duration `json:"mean_ns"`
	Percentiles []Percentile  `json:"percentiles"`
}

// At returns the latency recorded for quantile q, if it was requested.
func (s Summary) At(q float64) (time.Duration, bool) {
	for _, p := range s.Percentiles {
		if p.Quantile == q {
			return p.Latency, true
		}
	}
	return 0, false
}

// DefaultQuantiles are always reported.
var DefaultQuantiles = []float64{0.5, 0.9, 0.95, 0.97, 0.99, 0.999}

// Aggregator accumulates latencies; order does not matter. It is owned by a
// single goroutine.
type Aggregator struct {
	latencies []time.Duration
}

func NewAggregator(capacity int) *Aggregator {
	return &Aggregator{latencies: make([]time.Duration, 0, capacity)}
}

func (a *Aggregator) Add(d time.Duration) {
	a.latencies = append(a.latencies, d)
}

func (a *Aggregator) Len() int {
	return len(a.latencies)
}

// Latencies returns the recorded latencies in arrival order.
func (a *Aggregator) Latencies() []time.Duration {
	return a.latencies
}

// Summarize sorts a copy of every latency and computes min, max, mean and
// the requested quantiles exactly.
func (a *Aggregator) Summarize(quantiles ...float64) (Summary, error) {
	n := len(a.latencies)
	if n == 0 {
		return Summary{}, &errs.InsufficientDataError{}
	}
	sorted := make([]time.Duration, n)
	copy(sorted, a.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum float64
	for _, d := range sorted {
		sum += float64(d)
	}

	s := Summary{
		Count: n,
		Min:   sorted[0],
		Max:   sorted[n-1],
		Mean:  time.Duration(sum / float64(n)),
	}
	seen := make(map[float64]bool, len(quantiles))
	for _, q := range quantiles {
		if seen[q] {
			continue
		}
		seen[q] = true
		s.Percentiles = append(s.Percentiles, Percentile{Quantile: q, Latency: percentile(sorted, q)})
	}
	sort.Slice(s.Percentiles, func(i, j int) bool { return s.Percentiles[i].Quantile < s.Percentiles[j].Quantile })
	return s, nil
}

// percentile uses the nearest-rank definition on an ascending slice.
func percentile(sorted []time.Duration, q float64) time.Duration {
	i := int(math.Ceil(q*float64(len(sorted)))) - 1
	if i < 0 {
		i = 0
	}
	if i >= len(sorted) {
		i = len(sorted) - 1
	}
	return sorted[i]
}
