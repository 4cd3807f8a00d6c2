package settings

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Scenario selects the traffic shape of a run.
type Scenario string

const (
	SingleStream Scenario = "SingleStream"
	MultiStream  Scenario = "MultiStream"
	Server       Scenario = "Server"
	Offline      Scenario = "Offline"
)

var Scenarios = []Scenario{SingleStream, MultiStream, Server, Offline}

// ParseScenario accepts the canonical names case-insensitively, with or
// without separators ("single-stream", "singlestream", "SingleStream").
func ParseScenario(s string) (Scenario, error) {
	norm := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(s))
	for _, sc := range Scenarios {
		if strings.ToLower(string(sc)) == norm {
			return sc, nil
		}
	}
	return "", errors.Errorf("unknown scenario %q", s)
}

// Mode selects which passes a run performs.
type Mode string

const (
	PerformanceOnly Mode = "PerformanceOnly"
	AccuracyOnly    Mode = "AccuracyOnly"
	// SubmissionRun is a performance pass followed by an accuracy pass.
	SubmissionRun Mode = "SubmissionRun"
)

func ParseMode(s string) (Mode, error) {
	norm := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(s))
	for _, m := range []Mode{PerformanceOnly, AccuracyOnly, SubmissionRun} {
		if strings.ToLower(string(m)) == norm {
			return m, nil
		}
	}
	return "", errors.Errorf("unknown mode %q", s)
}

func (m Mode) RunsPerformance() bool { return m == PerformanceOnly || m == SubmissionRun }
func (m Mode) RunsAccuracy() bool    { return m == AccuracyOnly || m == SubmissionRun }

type TestSettings struct {
	Scenario Scenario `mapstructure:"scenario" json:"scenario"`
	Mode     Mode     `mapstructure:"mode" json:"mode"`

	MinDuration   time.Duration `mapstructure:"min_duration" json:"min_duration"`
	MinQueryCount int           `mapstructure:"min_query_count" json:"min_query_count"`

	QSLSeed         uint64 `mapstructure:"qsl_seed" json:"qsl_seed"`
	SampleIndexSeed uint64 `mapstructure:"sample_index_seed" json:"sample_index_seed"`
	ScheduleSeed    uint64 `mapstructure:"schedule_seed" json:"schedule_seed"`

	SingleStreamExpectedLatency time.Duration `mapstructure:"single_stream_expected_latency" json:"single_stream_expected_latency"`

	MultiStreamTargetQPS       float64       `mapstructure:"multi_stream_target_qps" json:"multi_stream_target_qps"`
	MultiStreamTargetLatency   time.Duration `mapstructure:"multi_stream_target_latency" json:"multi_stream_target_latency"`
	MultiStreamSamplesPerQuery int           `mapstructure:"multi_stream_samples_per_query" json:"multi_stream_samples_per_query"`
	MultiStreamMaxAsyncQueries int           `mapstructure:"multi_stream_max_async_queries" json:"multi_stream_max_async_queries"`

	ServerTargetQPS       float64       `mapstructure:"server_target_qps" json:"server_target_qps"`
	ServerTargetLatency   time.Duration `mapstructure:"server_target_latency" json:"server_target_latency"`
	ServerCoalesceQueries bool          `mapstructure:"server_coalesce_queries" json:"server_coalesce_queries"`

	OfflineExpectedQPS float64 `mapstructure:"offline_expected_qps" json:"offline_expected_qps"`

	// TargetLatencyPercentile is the quantile, in (0, 1], checked against
	// the scenario's target latency.
	TargetLatencyPercentile float64 `mapstructure:"target_latency_percentile" json:"target_latency_percentile"`

	// DrainTimeout bounds the wait for outstanding completions once
	// issuance has ended.
	DrainTimeout time.Duration `mapstructure:"drain_timeout" json:"drain_timeout"`
}

// DefaultTestSettings returns settings suitable for local experiments.
// They are not submission-valid; use the submission package for that.
func DefaultTestSettings() TestSettings {
	return TestSettings{
		Scenario:                    SingleStream,
		Mode:                        PerformanceOnly,
		MinDuration:                 10 * time.Second,
		MinQueryCount:               100,
		SingleStreamExpectedLatency: time.Millisecond,
		MultiStreamTargetQPS:        10,
		MultiStreamTargetLatency:    100 * time.Millisecond,
		MultiStreamSamplesPerQuery:  4,
		MultiStreamMaxAsyncQueries:  1,
		ServerTargetQPS:             1,
		ServerTargetLatency:         100 * time.Millisecond,
		OfflineExpectedQPS:          1,
		TargetLatencyPercentile:     0.99,
		DrainTimeout:                30 * time.Second,
	}
}

// OfflineQueryCount is the number of queries an Offline run plans to issue.
func (s TestSettings) OfflineQueryCount() int {
	n := int(s.OfflineExpectedQPS*s.MinDuration.Seconds() + 0.999999)
	if n < s.MinQueryCount {
		return s.MinQueryCount
	}
	return n
}

// SamplesPerQuery is the number of samples in each query of the scenario.
func (s TestSettings) SamplesPerQuery() int {
	if s.Scenario == MultiStream {
		return s.MultiStreamSamplesPerQuery
	}
	return 1
}

// TargetLatency is the latency bound enforced by the scenario, zero when
// the scenario has none.
func (s TestSettings) TargetLatency() time.Duration {
	switch s.Scenario {
	case Server:
		return s.ServerTargetLatency
	case MultiStream:
		return s.MultiStreamTargetLatency
	default:
		return 0
	}
}

// OutputSettings controls where run reports go.
type OutputSettings struct {
	Dir                 string `mapstructure:"dir" json:"dir"`
	Prefix              string `mapstructure:"prefix" json:"prefix"`
	CopySummaryToStdout bool   `mapstructure:"copy_summary_to_stdout" json:"copy_summary_to_stdout"`
	// PerQueryLatencies writes one CSV row per sample.
	PerQueryLatencies bool `mapstructure:"per_query_latencies" json:"per_query_latencies"`
}
