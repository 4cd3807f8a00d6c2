package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benchq/internal/dummy"
	"benchq/internal/runner"
	"benchq/internal/settings"
)

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "[----]", progressBar(0, 4))
	assert.Equal(t, "[██--]", progressBar(0.5, 4))
	assert.Equal(t, "[████]", progressBar(1.5, 4))
}

func TestGoal(t *testing.T) {
	ts := settings.DefaultTestSettings()
	ts.Scenario = settings.Offline
	ts.MinQueryCount = 10
	ts.MinDuration = 0
	assert.Equal(t, 10, Goal(ts).Queries)
	assert.Zero(t, Goal(ts).Duration)
}

func TestStart_PrintsProgressAndSummary(t *testing.T) {
	ts := settings.DefaultTestSettings()
	ts.Scenario = settings.Server
	ts.ServerTargetQPS = 500
	ts.MinQueryCount = 20
	ts.MinDuration = 100 * time.Millisecond

	l := log.New()
	l.SetLevel(log.ErrorLevel)
	updates := make(runner.StatsUpdateChan, 100)
	var out bytes.Buffer

	res, err := Start(context.Background(), &out, "benchq", ts, updates, func(ctx context.Context) (*runner.Result, error) {
		return runner.New(dummy.NullSUT{}, dummy.NewNullLibrary(100, 10), ts, runner.Options{
			Logger:         log.NewEntry(l),
			Updates:        updates,
			UpdateInterval: 10 * time.Millisecond,
		}).Run(ctx)
	})
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Contains(t, out.String(), "STARTING BENCHQ")
	assert.Contains(t, out.String(), "100%")
	assert.Contains(t, out.String(), "Result         : VALID")
}
