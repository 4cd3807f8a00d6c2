// Package loadgen is the entry point for integrators: hand it a system under
// test, a sample library and settings, and it runs the test and writes the
// reports.
package loadgen

import (
	"context"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"benchq/internal/completion"
	"benchq/internal/metrics"
	"benchq/internal/report"
	"benchq/internal/runner"
	"benchq/internal/settings"
	"benchq/internal/submission"
	"benchq/pkg/sut"
)

type (
	TestSettings   = settings.TestSettings
	OutputSettings = settings.OutputSettings
	Scenario       = settings.Scenario
	Mode           = settings.Mode
	Model          = submission.Model
	Result         = runner.Result
)

const (
	SingleStream = settings.SingleStream
	MultiStream  = settings.MultiStream
	Server       = settings.Server
	Offline      = settings.Offline

	PerformanceOnly = settings.PerformanceOnly
	AccuracyOnly    = settings.AccuracyOnly
	SubmissionRun   = settings.SubmissionRun
)

// Options tunes a run beyond its settings. The zero value is usable.
type Options struct {
	RunID  string
	Logger *log.Entry
	// Updates receives live snapshots; sends never block.
	Updates runner.StatsUpdateChan
	// Metrics enables the Prometheus collectors for this run.
	Metrics bool
	Sink    completion.Options
}

// StartTest runs one test to completion. The returned error is non-nil only
// for invalid configuration or failure to write reports; an invalid run is
// reported through Result.Valid and Result.Reasons.
func StartTest(ctx context.Context, s sut.SystemUnderTest, lib sut.SampleLibrary, ts TestSettings, out OutputSettings, opts Options) (*Result, error) {
	ro := runner.Options{
		RunID:   opts.RunID,
		Logger:  opts.Logger,
		Updates: opts.Updates,
		Sink:    opts.Sink,
	}
	if opts.Metrics {
		ro.Metrics = metrics.NewRecorder(ts.Scenario)
	}

	res, err := runner.New(s, lib, ts, ro).Run(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := report.Write(out, res, os.Stdout); err != nil {
		return res, err
	}
	return res, nil
}

func DefaultTestSettings() TestSettings {
	return settings.DefaultTestSettings()
}

func CreateSingleStreamSettings(model Model, expectedLatency time.Duration) TestSettings {
	return submission.CreateSingleStreamSettings(model, expectedLatency)
}

func CreateMultiStreamSettings(model Model, samplesPerQuery int) TestSettings {
	return submission.CreateMultiStreamSettings(model, samplesPerQuery)
}

func CreateServerSettings(model Model, targetQPS float64, coalesce bool) TestSettings {
	return submission.CreateServerSettings(model, targetQPS, coalesce)
}

func CreateOfflineSettings(model Model, expectedQPS float64) TestSettings {
	return submission.CreateOfflineSettings(model, expectedQPS)
}
