package storage

import (
	"time"

	"benchq/internal/runner"
	"benchq/internal/settings"
)

// HistoryItem is what the store keeps per run: the configuration echo and
// the headline numbers, not the latency list.
type HistoryItem struct {
	ID        string                `json:"id"`
	Timestamp time.Time             `json:"timestamp"`
	SUT       string                `json:"sut"`
	QSL       string                `json:"qsl"`
	Settings  settings.TestSettings `json:"settings"`
	Summary   RunSummary            `json:"summary"`
	// ReportDir is where the run's report files were written, if anywhere.
	ReportDir string `json:"report_dir,omitempty"`
}

type RunSummary struct {
	Valid            bool          `json:"valid"`
	Reasons          []string      `json:"reasons,omitempty"`
	Duration         time.Duration `json:"duration_ns"`
	Queries          int           `json:"queries"`
	CompletedSamples int           `json:"completed_samples"`
	QPS              float64       `json:"qps"`
	MeanLatency      time.Duration `json:"mean_latency_ns"`
	P99Latency       time.Duration `json:"p99_latency_ns"`
}

// NewHistoryItem condenses a result for storage.
func NewHistoryItem(res *runner.Result, reportDir string) HistoryItem {
	item := HistoryItem{
		ID:        res.RunID,
		Timestamp: res.StartedAt,
		SUT:       res.SUTName,
		QSL:       res.QSLName,
		Settings:  res.Settings,
		ReportDir: reportDir,
		Summary: RunSummary{
			Valid:            res.Valid,
			Reasons:          res.Reasons,
			Duration:         res.Duration,
			Queries:          res.QueryCount,
			CompletedSamples: res.CompletedSamples,
			QPS:              res.QPS,
		},
	}
	if res.Latency != nil {
		item.Summary.MeanLatency = res.Latency.Mean
		item.Summary.P99Latency, _ = res.Latency.At(0.99)
	}
	return item
}
