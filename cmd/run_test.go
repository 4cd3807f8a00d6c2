package cmd

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benchq/internal/dummy"
	"benchq/internal/settings"
	"benchq/internal/submission"
)

func withViper(t *testing.T, values map[string]interface{}) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("model", string(submission.ResNet50V15))
	viper.Set("mode", string(settings.PerformanceOnly))
	for k, v := range values {
		viper.Set(k, v)
	}
}

func TestBuildSettings_SingleStreamTargetIsMilliseconds(t *testing.T) {
	withViper(t, map[string]interface{}{"scenario": "single-stream", "target": 2.0})

	ts, err := buildSettings()
	require.NoError(t, err)
	assert.Equal(t, settings.SingleStream, ts.Scenario)
	assert.Equal(t, 2*time.Millisecond, ts.SingleStreamExpectedLatency)
	assert.Equal(t, submission.Current.MinQueryCountSingleStream, ts.MinQueryCount)
}

func TestBuildSettings_ScenarioDefaultTarget(t *testing.T) {
	withViper(t, map[string]interface{}{"scenario": "Server"})

	ts, err := buildSettings()
	require.NoError(t, err)
	assert.Equal(t, 100.0, ts.ServerTargetQPS)
}

func TestBuildSettings_ConfigThenFlags(t *testing.T) {
	withViper(t, map[string]interface{}{
		"scenario": "Offline",
		"target":   500.0,
		"settings": map[string]interface{}{
			"min_duration":    "5s",
			"min_query_count": 10,
		},
		"min-query-count": 42,
	})

	ts, err := buildSettings()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, ts.MinDuration)
	assert.Equal(t, 42, ts.MinQueryCount)
	assert.Equal(t, 500.0, ts.OfflineExpectedQPS)
	assert.Equal(t, submission.Current.QSLSeed, ts.QSLSeed)
}

func TestBuildSettings_RejectsUnknownNames(t *testing.T) {
	withViper(t, map[string]interface{}{"scenario": "Batch"})
	_, err := buildSettings()
	assert.Error(t, err)

	withViper(t, map[string]interface{}{"scenario": "Server", "model": "bert"})
	_, err = buildSettings()
	assert.Error(t, err)
}

func TestBuildSUT(t *testing.T) {
	for _, name := range []string{"null", "async", "pool", "delay"} {
		t.Run(name, func(t *testing.T) {
			withViper(t, map[string]interface{}{"sut": name, "workers": 2, "delay": time.Millisecond})
			s, release, err := buildSUT(nil)
			require.NoError(t, err)
			assert.NotEmpty(t, s.Name())
			release()
		})
	}

	withViper(t, map[string]interface{}{"sut": "quantum"})
	_, _, err := buildSUT(nil)
	assert.Error(t, err)

	withViper(t, map[string]interface{}{"sut": "http"})
	_, _, err = buildSUT(nil)
	assert.Error(t, err, "http needs a url")
}

func TestRunTest_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	withViper(t, map[string]interface{}{
		"scenario":        "Offline",
		"target":          1000.0,
		"sut":             "null",
		"total-samples":   dummy.DefaultPerformanceSamples,
		"perf-samples":    dummy.DefaultPerformanceSamples,
		"min-duration":    10 * time.Millisecond,
		"min-query-count": 50,
		"out-dir":         dir,
		"history-db":      dir + "/history.db",
	})

	require.NoError(t, runTest(runCmd, nil))

	store, err := openHistory()
	require.NoError(t, err)
	defer store.Close()
	items, err := store.List()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].Summary.Valid)
	assert.Equal(t, dir, items[0].ReportDir)
}
