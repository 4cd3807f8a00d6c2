package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benchq/internal/dummy"
	"benchq/internal/runner"
	"benchq/internal/settings"
)

func offlineResult(t *testing.T) *runner.Result {
	t.Helper()
	s := settings.DefaultTestSettings()
	s.Scenario = settings.Offline
	s.MinDuration = 0
	s.MinQueryCount = 50

	l := log.New()
	l.SetLevel(log.ErrorLevel)
	res, err := runner.New(dummy.NullSUT{}, dummy.NewNullLibrary(1000, 100), s, runner.Options{
		Logger: log.NewEntry(l),
	}).Run(context.Background())
	require.NoError(t, err)
	return res
}

func TestWrite_AllFiles(t *testing.T) {
	res := offlineResult(t)
	dir := filepath.Join(t.TempDir(), "out")
	var stdout bytes.Buffer

	paths, err := Write(settings.OutputSettings{
		Dir:                 dir,
		Prefix:              "run_",
		CopySummaryToStdout: true,
		PerQueryLatencies:   true,
	}, res, &stdout)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "run_summary.txt"), paths.Summary)
	summary, err := os.ReadFile(paths.Summary)
	require.NoError(t, err)
	assert.Contains(t, string(summary), "Result         : VALID")
	assert.Contains(t, string(summary), "Scenario       : Offline")
	assert.Equal(t, string(summary), stdout.String())

	raw, err := os.ReadFile(paths.Detail)
	require.NoError(t, err)
	var detail map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &detail))
	assert.Equal(t, res.RunID, detail["run_id"])
	assert.Equal(t, true, detail["valid"])
	assert.EqualValues(t, 50, detail["completed_samples"])

	f, err := os.Open(paths.Latencies)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 51)
	assert.Equal(t, []string{"sample", "latency_ns"}, rows[0])
}

func TestWrite_SkipsLatenciesUnlessAsked(t *testing.T) {
	res := offlineResult(t)
	var stdout bytes.Buffer
	paths, err := Write(settings.OutputSettings{Dir: t.TempDir()}, res, &stdout)
	require.NoError(t, err)

	assert.Empty(t, paths.Latencies)
	assert.Zero(t, stdout.Len())
	_, err = os.Stat(paths.Detail)
	assert.NoError(t, err)
}

func TestWriteSummary_ListsReasons(t *testing.T) {
	res := offlineResult(t)
	res.Valid = false
	res.Reasons = []string{"drain timeout after 1s: 3 samples outstanding [1, 2, 3]"}

	var buf bytes.Buffer
	WriteSummary(&buf, res)
	assert.Contains(t, buf.String(), "Result         : INVALID")
	assert.Contains(t, buf.String(), "   - drain timeout after 1s")
}
