package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benchq/internal/completion"
	"benchq/internal/errs"
	"benchq/pkg/sut"
)

func TestTracker_QueryLatencyIsSlowestSample(t *testing.T) {
	start := time.Now()
	tr := newTracker(start, 4)
	tr.register([]sut.QuerySample{{ID: 0}, {ID: 1}}, start)

	sl, ql := tr.complete([]completion.Record{{ID: 1, At: start.Add(3 * time.Millisecond)}}, nil, nil)
	assert.Equal(t, []time.Duration{3 * time.Millisecond}, sl)
	assert.Empty(t, ql, "query still has a sample outstanding")

	sl, ql = tr.complete([]completion.Record{{ID: 0, At: start.Add(time.Millisecond)}}, nil, nil)
	assert.Equal(t, []time.Duration{time.Millisecond}, sl)
	assert.Equal(t, []time.Duration{3 * time.Millisecond}, ql)

	issued, completed, queries, last := tr.counts()
	assert.Equal(t, 2, issued)
	assert.Equal(t, 2, completed)
	assert.Equal(t, 1, queries)
	assert.Equal(t, 3*time.Millisecond, last)
}

func TestTracker_ClampsNegativeLatency(t *testing.T) {
	start := time.Now()
	tr := newTracker(start, 1)
	tr.register([]sut.QuerySample{{ID: 0}}, start.Add(time.Millisecond))
	sl, _ := tr.complete([]completion.Record{{ID: 0, At: start}}, nil, nil)
	assert.Equal(t, []time.Duration{0}, sl)
}

func TestTracker_Violations(t *testing.T) {
	start := time.Now()
	tr := newTracker(start, 2)
	tr.register([]sut.QuerySample{{ID: 0}}, start)

	tr.complete([]completion.Record{{ID: 0, At: start}, {ID: 0, At: start}, {ID: 9, At: start}, {ID: 12, At: start}}, nil, nil)
	vs := tr.contractViolations()
	require.Len(t, vs, 2)
	assert.Equal(t, errs.UnknownID, vs[0].Kind)
	assert.Equal(t, sut.ResponseID(9), vs[0].FirstID)
	assert.Equal(t, 2, vs[0].Count)
	assert.Equal(t, errs.DuplicateCompletion, vs[1].Kind)
	assert.Empty(t, tr.outstanding())
}

func TestTracker_WaitCompleted(t *testing.T) {
	start := time.Now()
	tr := newTracker(start, 2)
	tr.register([]sut.QuerySample{{ID: 0}, {ID: 1}}, start)

	assert.False(t, tr.waitCompleted(context.Background(), 2, 10*time.Millisecond))
	assert.Equal(t, []sut.ResponseID{0, 1}, tr.outstanding())

	go tr.complete([]completion.Record{{ID: 0, At: time.Now()}, {ID: 1, At: time.Now()}}, nil, nil)
	assert.True(t, tr.waitCompleted(context.Background(), 2, time.Second))
}
