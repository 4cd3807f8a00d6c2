package loadgen

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benchq/internal/dummy"
	"benchq/internal/errs"
)

func quiet() *log.Entry {
	l := log.New()
	l.SetLevel(log.ErrorLevel)
	return log.NewEntry(l)
}

func TestStartTest_WritesReports(t *testing.T) {
	ts := CreateOfflineSettings("resnet50-v1.5", 1)
	ts.MinDuration = 0
	ts.MinQueryCount = 64
	dir := t.TempDir()

	res, err := StartTest(context.Background(), dummy.NullSUT{}, dummy.NewNullLibrary(1024, 64), ts,
		OutputSettings{Dir: dir, Prefix: "t_"}, Options{Logger: quiet(), Metrics: true})
	require.NoError(t, err)
	assert.True(t, res.Valid, "reasons: %v", res.Reasons)

	for _, f := range []string{"t_summary.txt", "t_detail.json"} {
		_, err := os.Stat(filepath.Join(dir, f))
		assert.NoError(t, err, f)
	}
}

func TestStartTest_ConfigurationErrorIsReturned(t *testing.T) {
	ts := DefaultTestSettings()
	ts.MinQueryCount = 0

	res, err := StartTest(context.Background(), dummy.NullSUT{}, dummy.NewNullLibrary(10, 5), ts,
		OutputSettings{Dir: t.TempDir()}, Options{Logger: quiet()})
	assert.Nil(t, res)
	var cfgErr *errs.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}
