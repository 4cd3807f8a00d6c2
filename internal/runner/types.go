package runner

import (
	"time"

	log "github.com/sirupsen/logrus"

	"benchq/internal/completion"
	"benchq/internal/metrics"
	"benchq/internal/settings"
	"benchq/internal/stats"
)

// StatsUpdateChan carries live snapshots to a progress display.
type StatsUpdateChan chan stats.Snapshot

type Options struct {
	RunID   string
	Sink    completion.Options
	Logger  *log.Entry
	Updates StatsUpdateChan
	// UpdateInterval defaults to 200ms.
	UpdateInterval time.Duration
	Metrics        *metrics.Recorder
}

// AccuracyResult describes the accuracy pass, which issues every sample of
// the population once.
type AccuracyResult struct {
	Issued    int           `json:"issued"`
	Completed int           `json:"completed"`
	Duration  time.Duration `json:"duration_ns"`
}

// Result is produced once per run and not modified afterwards.
type Result struct {
	RunID     string                `json:"run_id"`
	SUTName   string                `json:"sut"`
	QSLName   string                `json:"qsl"`
	Settings  settings.TestSettings `json:"settings"`
	StartedAt time.Time             `json:"started_at"`

	Duration         time.Duration `json:"duration_ns"`
	QueryCount       int           `json:"query_count"`
	SampleCount      int           `json:"sample_count"`
	CompletedSamples int           `json:"completed_samples"`
	Overruns         int           `json:"overruns"`
	SkippedTicks     int           `json:"skipped_ticks"`
	QPS              float64       `json:"qps"`
	SamplesPerSecond float64       `json:"samples_per_second"`

	// Latency is per sample; QueryLatency is per query, where a query's
	// latency is that of its slowest sample.
	Latency      *stats.Summary `json:"latency,omitempty"`
	QueryLatency *stats.Summary `json:"query_latency,omitempty"`

	Accuracy *AccuracyResult `json:"accuracy,omitempty"`

	Valid   bool     `json:"valid"`
	Reasons []string `json:"reasons,omitempty"`
	Err     error    `json:"-"`

	sampleLatencies []time.Duration
}

// SampleLatencies returns every sample latency of the performance pass in
// completion order.
func (r *Result) SampleLatencies() []time.Duration {
	return r.sampleLatencies
}

// TargetLatency reports the percentile latency checked against the
// scenario's target, if the scenario has one.
func (r *Result) TargetLatency() (got, target time.Duration, ok bool) {
	target = r.Settings.TargetLatency()
	if target <= 0 {
		return 0, 0, false
	}
	sum := r.Latency
	if r.Settings.Scenario == settings.MultiStream {
		sum = r.QueryLatency
	}
	if sum == nil {
		return 0, target, false
	}
	got, ok = sum.At(r.Settings.TargetLatencyPercentile)
	return got, target, ok
}
