package dummy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benchq/pkg/sut"
)

type collector struct {
	mu  sync.Mutex
	ids []sut.ResponseID
	hit chan struct{}
}

func newCollector() *collector {
	return &collector{hit: make(chan struct{}, 1024)}
}

func (c *collector) QuerySamplesComplete(responses []sut.Response) {
	c.mu.Lock()
	for _, r := range responses {
		c.ids = append(c.ids, r.ID)
	}
	c.mu.Unlock()
	c.hit <- struct{}{}
}

func (c *collector) waitFor(t *testing.T, n int) []sut.ResponseID {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		c.mu.Lock()
		got := len(c.ids)
		c.mu.Unlock()
		if got >= n {
			c.mu.Lock()
			defer c.mu.Unlock()
			return append([]sut.ResponseID(nil), c.ids...)
		}
		select {
		case <-c.hit:
		case <-deadline:
			t.Fatalf("only %d of %d completions arrived", got, n)
		}
	}
}

func samples(ids ...sut.ResponseID) []sut.QuerySample {
	out := make([]sut.QuerySample, len(ids))
	for i, id := range ids {
		out[i] = sut.QuerySample{ID: id, Index: sut.SampleIndex(id * 10)}
	}
	return out
}

func TestNullSUT_CompletesSynchronously(t *testing.T) {
	c := newCollector()
	NullSUT{}.IssueQuery(c, samples(1, 2, 3))
	assert.Equal(t, []sut.ResponseID{1, 2, 3}, c.ids)
}

func TestAsyncSUT_Completes(t *testing.T) {
	c := newCollector()
	AsyncSUT{}.IssueQuery(c, samples(4))
	assert.Equal(t, []sut.ResponseID{4}, c.waitFor(t, 1))
}

func TestDelaySUT_WaitsBeforeCompleting(t *testing.T) {
	c := newCollector()
	s := NewDelaySUT(20 * time.Millisecond)
	start := time.Now()
	s.IssueQuery(c, samples(7, 8))
	c.waitFor(t, 2)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	s.ReportLatencyResults([]time.Duration{time.Millisecond})
	assert.Equal(t, []time.Duration{time.Millisecond}, s.Reported())
}

func TestPoolSUT_CompletesEveryQuery(t *testing.T) {
	c := newCollector()
	p := NewPoolSUT(4)
	for i := 0; i < 100; i++ {
		p.IssueQuery(c, samples(sut.ResponseID(i)))
	}
	ids := c.waitFor(t, 100)
	p.Close()

	seen := make(map[sut.ResponseID]bool)
	for _, id := range ids {
		seen[id] = true
	}
	assert.Len(t, seen, 100)
}

func TestNullLibrary_TracksResidency(t *testing.T) {
	l := DefaultNullLibrary()
	assert.Equal(t, DefaultTotalSamples, l.TotalSampleCount())
	assert.Equal(t, DefaultPerformanceSamples, l.PerformanceSampleCount())

	set := []sut.SampleIndex{1, 2, 3}
	l.LoadSamplesToRam(set)
	assert.Equal(t, 3, l.Resident())
	l.UnloadSamplesFromRam(set)
	assert.Equal(t, 0, l.Resident())

	loads, unloads := l.Calls()
	assert.Equal(t, 1, loads)
	assert.Equal(t, 1, unloads)
}

func TestServer_EchoesRequestID(t *testing.T) {
	s := NewServer(ServerConfig{Seed: 1})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/fast", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "abc")
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "abc", resp.Header.Get(RequestIDHeader))
}

func TestServer_StartAndShutdown(t *testing.T) {
	s := NewServer(ServerConfig{Port: 0, Seed: 1})
	require.NoError(t, s.Start())

	resp, err := http.Get("http://" + s.Addr() + "/error")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Contains(t, []int{http.StatusOK, http.StatusInternalServerError, http.StatusTooManyRequests}, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Shutdown(ctx))
}
