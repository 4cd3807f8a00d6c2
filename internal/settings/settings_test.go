package settings

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benchq/internal/errs"
)

func TestTestSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*TestSettings)
		wantErr bool
		field   string
	}{
		{
			name:   "defaults are valid",
			modify: func(s *TestSettings) {},
		},
		{
			name:    "unknown scenario",
			modify:  func(s *TestSettings) { s.Scenario = "Burst" },
			wantErr: true,
			field:   "scenario",
		},
		{
			name:    "zero min query count",
			modify:  func(s *TestSettings) { s.MinQueryCount = 0 },
			wantErr: true,
			field:   "min_query_count",
		},
		{
			name: "server with zero target qps",
			modify: func(s *TestSettings) {
				s.Scenario = Server
				s.ServerTargetQPS = 0
			},
			wantErr: true,
			field:   "server_target_qps",
		},
		{
			name: "server rate faster than one query per nanosecond",
			modify: func(s *TestSettings) {
				s.Scenario = Server
				s.ServerTargetQPS = 2e9
			},
			wantErr: true,
			field:   "server_target_qps",
		},
		{
			name: "multistream rate faster than one query per nanosecond",
			modify: func(s *TestSettings) {
				s.Scenario = MultiStream
				s.MultiStreamTargetQPS = 2e9
			},
			wantErr: true,
			field:   "multi_stream_target_qps",
		},
		{
			name: "server at the highest rate",
			modify: func(s *TestSettings) {
				s.Scenario = Server
				s.ServerTargetQPS = MaxTargetQPS
			},
		},
		{
			name: "multistream with zero samples per query",
			modify: func(s *TestSettings) {
				s.Scenario = MultiStream
				s.MultiStreamSamplesPerQuery = 0
			},
			wantErr: true,
			field:   "multi_stream_samples_per_query",
		},
		{
			name: "server percentile out of range",
			modify: func(s *TestSettings) {
				s.Scenario = Server
				s.TargetLatencyPercentile = 1.5
			},
			wantErr: true,
			field:   "target_latency_percentile",
		},
		{
			name:    "zero drain timeout",
			modify:  func(s *TestSettings) { s.DrainTimeout = 0 },
			wantErr: true,
			field:   "drain_timeout",
		},
		{
			name: "offline ignores server knobs",
			modify: func(s *TestSettings) {
				s.Scenario = Offline
				s.ServerTargetQPS = 0
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := DefaultTestSettings()
			tc.modify(&s)
			err := s.Validate()
			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var cfgErr *errs.ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tc.field, cfgErr.Field)
		})
	}
}

func TestTestSettings_ValidateDoesNotRepair(t *testing.T) {
	s := DefaultTestSettings()
	s.MinQueryCount = -3
	require.Error(t, s.Validate())
	assert.Equal(t, -3, s.MinQueryCount)
}

func TestParseScenario(t *testing.T) {
	for in, want := range map[string]Scenario{
		"SingleStream":  SingleStream,
		"single-stream": SingleStream,
		"multistream":   MultiStream,
		"SERVER":        Server,
		"offline":       Offline,
	} {
		got, err := ParseScenario(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseScenario("closed-loop")
	assert.Error(t, err)
}

func TestOfflineQueryCount(t *testing.T) {
	s := DefaultTestSettings()
	s.MinQueryCount = 100
	s.MinDuration = 2 * time.Second

	s.OfflineExpectedQPS = 10
	assert.Equal(t, 100, s.OfflineQueryCount())

	s.OfflineExpectedQPS = 1000
	assert.Equal(t, 2000, s.OfflineQueryCount())
}
