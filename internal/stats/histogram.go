package stats

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// SafeHistogram is a mutex-guarded hdr histogram of latencies in
// microseconds. It backs live progress only; verdicts use Aggregator.
type SafeHistogram struct {
	hist *hdrhistogram.Histogram
	mu   sync.Mutex
}

func NewSafeHistogram() *SafeHistogram {
	// 1us to 10min, 3 significant figures
	h := hdrhistogram.New(1, int64(10*time.Minute/time.Microsecond), 3)
	return &SafeHistogram{hist: h}
}

// RecordBatch records several latencies under one lock acquisition.
// Values outside the trackable range are clamped.
func (h *SafeHistogram) RecordBatch(ds []time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, d := range ds {
		us := d.Microseconds()
		if us < 1 {
			us = 1
		}
		if limit := h.hist.HighestTrackableValue(); us > limit {
			us = limit
		}
		h.hist.RecordValue(us)
	}
}

func (h *SafeHistogram) Quantile(q float64) time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return time.Duration(h.hist.ValueAtQuantile(q*100)) * time.Microsecond
}

func (h *SafeHistogram) Max() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return time.Duration(h.hist.Max()) * time.Microsecond
}

func (h *SafeHistogram) TotalCount() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hist.TotalCount()
}
