package stats

import (
	"sync/atomic"
	"time"
)

// Live holds counters that progress displays read while a run is going.
type Live struct {
	Queries   atomic.Uint64
	Issued    atomic.Uint64
	Completed atomic.Uint64
	Overruns  atomic.Uint64

	Latency *SafeHistogram
}

func NewLive() *Live {
	return &Live{Latency: NewSafeHistogram()}
}

// Snapshot is a cheap copy of Live for display.
type Snapshot struct {
	Elapsed     time.Duration
	Queries     uint64
	Issued      uint64
	Completed   uint64
	Outstanding int64
	Overruns    uint64

	P50 time.Duration
	P90 time.Duration
	P99 time.Duration
	Max time.Duration

	Finished bool
}

func (l *Live) Snapshot(elapsed time.Duration) Snapshot {
	issued := l.Issued.Load()
	completed := l.Completed.Load()
	return Snapshot{
		Elapsed:     elapsed,
		Queries:     l.Queries.Load(),
		Issued:      issued,
		Completed:   completed,
		Outstanding: int64(issued) - int64(completed),
		Overruns:    l.Overruns.Load(),
		P50:         l.Latency.Quantile(0.5),
		P90:         l.Latency.Quantile(0.9),
		P99:         l.Latency.Quantile(0.99),
		Max:         l.Latency.Max(),
	}
}

// CompletionRate is completed samples per second of elapsed time.
func (s Snapshot) CompletionRate() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Completed) / s.Elapsed.Seconds()
}
