package settings

import (
	"time"

	"github.com/hashicorp/go-multierror"

	"benchq/internal/errs"
)

// MaxTargetQPS is the highest paced rate: one query per nanosecond.
const MaxTargetQPS = float64(time.Second)

// Validate checks the settings as supplied. It never adjusts them; every
// problem found is returned as an *errs.ConfigurationError inside a
// multierror.
func (s TestSettings) Validate() error {
	var result *multierror.Error
	add := func(field, format string, args ...interface{}) {
		result = multierror.Append(result, errs.NewConfigurationError(field, format, args...))
	}

	switch s.Scenario {
	case SingleStream, MultiStream, Server, Offline:
	default:
		add("scenario", "unknown scenario %q", s.Scenario)
	}
	switch s.Mode {
	case PerformanceOnly, AccuracyOnly, SubmissionRun:
	default:
		add("mode", "unknown mode %q", s.Mode)
	}

	if s.MinDuration < 0 {
		add("min_duration", "must not be negative, got %s", s.MinDuration)
	}
	if s.MinQueryCount <= 0 {
		add("min_query_count", "must be positive, got %d", s.MinQueryCount)
	}
	if s.DrainTimeout <= 0 {
		add("drain_timeout", "must be positive, got %s", s.DrainTimeout)
	}

	switch s.Scenario {
	case MultiStream:
		if s.MultiStreamTargetQPS <= 0 {
			add("multi_stream_target_qps", "must be positive, got %g", s.MultiStreamTargetQPS)
		} else if s.MultiStreamTargetQPS > MaxTargetQPS {
			add("multi_stream_target_qps", "must be at most %g, got %g", MaxTargetQPS, s.MultiStreamTargetQPS)
		}
		if s.MultiStreamSamplesPerQuery < 1 {
			add("multi_stream_samples_per_query", "must be at least 1, got %d", s.MultiStreamSamplesPerQuery)
		}
		if s.MultiStreamMaxAsyncQueries < 1 {
			add("multi_stream_max_async_queries", "must be at least 1, got %d", s.MultiStreamMaxAsyncQueries)
		}
		if s.MultiStreamTargetLatency <= 0 {
			add("multi_stream_target_latency", "must be positive, got %s", s.MultiStreamTargetLatency)
		}
	case Server:
		if s.ServerTargetQPS <= 0 {
			add("server_target_qps", "must be positive, got %g", s.ServerTargetQPS)
		} else if s.ServerTargetQPS > MaxTargetQPS {
			add("server_target_qps", "must be at most %g, got %g", MaxTargetQPS, s.ServerTargetQPS)
		}
		if s.ServerTargetLatency <= 0 {
			add("server_target_latency", "must be positive, got %s", s.ServerTargetLatency)
		}
	case Offline:
		if s.OfflineExpectedQPS < 0 {
			add("offline_expected_qps", "must not be negative, got %g", s.OfflineExpectedQPS)
		}
	}

	if s.Scenario == MultiStream || s.Scenario == Server {
		if s.TargetLatencyPercentile <= 0 || s.TargetLatencyPercentile > 1 {
			add("target_latency_percentile", "must be in (0, 1], got %g", s.TargetLatencyPercentile)
		}
	}

	return result.ErrorOrNil()
}
