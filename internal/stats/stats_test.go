package stats

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benchq/internal/errs"
)

func TestAggregator_Summarize(t *testing.T) {
	a := NewAggregator(0)
	// 1ms..100ms in shuffled order
	perm := rand.New(rand.NewSource(1)).Perm(100)
	for _, i := range perm {
		a.Add(time.Duration(i+1) * time.Millisecond)
	}

	s, err := a.Summarize(0.99, 0.5, 0.9, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 100, s.Count)
	assert.Equal(t, time.Millisecond, s.Min)
	assert.Equal(t, 100*time.Millisecond, s.Max)
	assert.Equal(t, 50500*time.Microsecond, s.Mean)

	require.Len(t, s.Percentiles, 3)
	assert.Equal(t, 0.5, s.Percentiles[0].Quantile)
	p50, ok := s.At(0.5)
	require.True(t, ok)
	assert.Equal(t, 50*time.Millisecond, p50)
	p90, _ := s.At(0.9)
	assert.Equal(t, 90*time.Millisecond, p90)
	p99, _ := s.At(0.99)
	assert.Equal(t, 99*time.Millisecond, p99)

	_, ok = s.At(0.75)
	assert.False(t, ok)
}

func TestAggregator_DoesNotReorderInput(t *testing.T) {
	a := NewAggregator(3)
	a.Add(3)
	a.Add(1)
	a.Add(2)
	_, err := a.Summarize(0.5)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{3, 1, 2}, a.Latencies())
}

func TestAggregator_SingleValue(t *testing.T) {
	a := NewAggregator(1)
	a.Add(7 * time.Microsecond)
	s, err := a.Summarize(DefaultQuantiles...)
	require.NoError(t, err)
	for _, p := range s.Percentiles {
		assert.Equal(t, 7*time.Microsecond, p.Latency)
	}
}

func TestAggregator_NoData(t *testing.T) {
	_, err := NewAggregator(0).Summarize(0.5)
	var insufficient *errs.InsufficientDataError
	assert.True(t, errors.As(err, &insufficient))
}

func TestLive_Snapshot(t *testing.T) {
	l := NewLive()
	l.Issued.Add(10)
	l.Completed.Add(4)
	l.Latency.RecordBatch([]time.Duration{time.Millisecond, 2 * time.Millisecond, 0})

	s := l.Snapshot(2 * time.Second)
	assert.Equal(t, int64(6), s.Outstanding)
	assert.Equal(t, 2.0, s.CompletionRate())
	assert.Equal(t, int64(3), l.Latency.TotalCount())
	assert.InDelta(t, float64(2*time.Millisecond), float64(s.Max), float64(10*time.Microsecond))
}
