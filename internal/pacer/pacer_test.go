package pacer

import (
	"context"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benchq/internal/settings"
)

func testLogger() *log.Entry {
	l := log.New()
	l.SetLevel(log.WarnLevel)
	return log.NewEntry(l)
}

func testSettings(sc settings.Scenario) settings.TestSettings {
	s := settings.DefaultTestSettings()
	s.Scenario = sc
	s.MinDuration = 0
	s.MinQueryCount = 10
	return s
}

func TestPacer_StateTransitions(t *testing.T) {
	p := New(testSettings(settings.SingleStream), testLogger())
	assert.Equal(t, Idle, p.State())

	p.Start(time.Now())
	assert.Equal(t, Issuing, p.State())

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		q, ok := p.Next(ctx)
		require.True(t, ok)
		p.Issued(q)
		assert.Equal(t, 1, p.Outstanding())
		p.Completed(1)
	}
	assert.Equal(t, 10, p.IssuedQueries())

	_, ok := p.Next(ctx)
	assert.False(t, ok)
	assert.Equal(t, Done, p.State())
}

func TestPacer_SingleStreamIsClosedLoop(t *testing.T) {
	p := New(testSettings(settings.SingleStream), testLogger())
	p.Start(time.Now())
	ctx := context.Background()

	q, ok := p.Next(ctx)
	require.True(t, ok)
	p.Issued(q)

	next := make(chan Query, 1)
	go func() {
		q, ok := p.Next(ctx)
		if ok {
			next <- q
		}
	}()

	select {
	case <-next:
		t.Fatal("second query issued before the first completed")
	case <-time.After(30 * time.Millisecond):
	}

	p.Completed(1)
	select {
	case q := <-next:
		assert.Equal(t, 1, q.Samples)
	case <-time.After(time.Second):
		t.Fatal("second query not issued after completion")
	}
}

func TestPacer_DrainingToDone(t *testing.T) {
	s := testSettings(settings.Offline)
	s.MinQueryCount = 3
	s.OfflineExpectedQPS = 0
	p := New(s, testLogger())
	p.Start(time.Now())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		q, ok := p.Next(ctx)
		require.True(t, ok)
		p.Issued(q)
	}
	_, ok := p.Next(ctx)
	assert.False(t, ok)
	assert.Equal(t, Draining, p.State())

	p.Completed(2)
	assert.Equal(t, Draining, p.State())
	p.Completed(1)
	assert.Equal(t, Done, p.State())

	select {
	case <-p.Done():
	default:
		t.Fatal("done channel not closed")
	}

	_, ok = p.Next(ctx)
	assert.False(t, ok, "no issuance past the terminal state")
}

func TestPacer_OfflineHasNoPacingDelay(t *testing.T) {
	s := testSettings(settings.Offline)
	s.MinQueryCount = 10000
	p := New(s, testLogger())
	p.Start(time.Now())
	ctx := context.Background()

	start := time.Now()
	n := 0
	for {
		q, ok := p.Next(ctx)
		if !ok {
			break
		}
		p.Issued(q)
		n++
	}
	assert.Equal(t, 10000, n)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestPacer_RespectsMinDuration(t *testing.T) {
	s := testSettings(settings.Server)
	s.MinQueryCount = 1
	s.MinDuration = 100 * time.Millisecond
	s.ServerTargetQPS = 1000
	p := New(s, testLogger())
	start := time.Now()
	p.Start(start)
	ctx := context.Background()

	for {
		q, ok := p.Next(ctx)
		if !ok {
			break
		}
		p.Issued(q)
		p.Completed(1)
	}
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, Done, p.State())
}

func TestPacer_MultiStreamGrid(t *testing.T) {
	s := testSettings(settings.MultiStream)
	s.MultiStreamTargetQPS = 100
	s.MultiStreamSamplesPerQuery = 4
	s.MinQueryCount = 5
	p := New(s, testLogger())
	p.Start(time.Now())
	ctx := context.Background()

	var scheduled []time.Duration
	for {
		q, ok := p.Next(ctx)
		if !ok {
			break
		}
		assert.Equal(t, 4, q.Samples)
		scheduled = append(scheduled, q.Scheduled)
		p.Issued(q)
		p.Completed(1)
	}
	require.Len(t, scheduled, 5)
	assert.Less(t, scheduled[0], 10*time.Millisecond, "first query waits for no tick")
	for i := 1; i < len(scheduled); i++ {
		assert.Zero(t, (scheduled[i]-scheduled[0])%(10*time.Millisecond))
		assert.Greater(t, scheduled[i], scheduled[i-1])
	}
	assert.Zero(t, p.Skipped())
}

func TestPacer_ContextCancel(t *testing.T) {
	s := testSettings(settings.Server)
	s.ServerTargetQPS = 0.001
	p := New(s, testLogger())
	p.Start(time.Now())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, ok := p.Next(ctx)
	assert.False(t, ok)
	assert.Equal(t, Done, p.State())
}

func TestGrid_SkipsMissedTicks(t *testing.T) {
	g := newGrid(100, 2)
	q := g.next(0)
	assert.Equal(t, time.Duration(0), q.Scheduled)

	// previous query held the slot for 35ms: ticks at 10, 20, 30 are skipped
	q = g.next(35 * time.Millisecond)
	assert.Equal(t, 40*time.Millisecond, q.Scheduled)
	assert.Equal(t, 3, g.skipped)

	q, late := g.due(q, 41*time.Millisecond)
	assert.False(t, late)
	assert.Equal(t, 50*time.Millisecond, g.next(41*time.Millisecond).Scheduled)
}

func TestGrid_LateWakeupDoesNotBurst(t *testing.T) {
	g := newGrid(100, 1)
	q := g.next(0)
	q, late := g.due(q, 25*time.Millisecond)
	assert.True(t, late)
	assert.Equal(t, 30*time.Millisecond, g.next(25*time.Millisecond).Scheduled)
}

func TestPoisson_Deterministic(t *testing.T) {
	a := newPoisson(1000, 42, false)
	b := newPoisson(1000, 42, false)
	var sum time.Duration
	prev := time.Duration(0)
	for i := 0; i < 10000; i++ {
		qa, qb := a.next(0), b.next(0)
		require.Equal(t, qa, qb)
		require.GreaterOrEqual(t, qa.Scheduled, prev)
		sum += qa.Scheduled - prev
		prev = qa.Scheduled
	}
	// mean gap of 1ms within 5%
	assert.InDelta(t, float64(time.Millisecond), float64(sum/10000), float64(50*time.Microsecond))
}

func TestPoisson_Coalesce(t *testing.T) {
	p := newPoisson(1000, 1, true)
	q := p.next(0)
	q, late := p.due(q, q.Scheduled+50*time.Millisecond)
	assert.False(t, late)
	assert.Greater(t, q.Samples, 1)
	assert.Greater(t, p.arrival, q.Scheduled+50*time.Millisecond)
}

func TestPoisson_NoBurstWithoutCoalescing(t *testing.T) {
	p := newPoisson(1000, 1, false)
	q := p.next(0)
	now := q.Scheduled + 50*time.Millisecond
	q, late := p.due(q, now)
	assert.True(t, late)
	assert.Equal(t, 1, q.Samples)
	assert.Greater(t, p.next(now).Scheduled, now)
}

func TestGrid_AnchorsAtFirstIssuance(t *testing.T) {
	g := newGrid(20, 1)
	q := g.next(3 * time.Microsecond)
	assert.Equal(t, 3*time.Microsecond, q.Scheduled)
	assert.Zero(t, g.skipped)
	assert.Equal(t, 3*time.Microsecond+50*time.Millisecond, g.next(time.Millisecond).Scheduled)
}

func TestSchedules_NeverUseAZeroGap(t *testing.T) {
	g := newGrid(2e9, 1)
	assert.Equal(t, minGap, g.interval)
	q := g.next(0)
	_, late := g.due(q, 5*time.Nanosecond)
	assert.True(t, late)
	assert.Greater(t, g.tick, 5*time.Nanosecond)

	p := newPoisson(1e9, 1, false)
	for i := 0; i < 1000; i++ {
		require.GreaterOrEqual(t, p.gap(), minGap)
	}
}

func TestPacer_MultiStreamAtHighestRate(t *testing.T) {
	s := testSettings(settings.MultiStream)
	s.MultiStreamTargetQPS = settings.MaxTargetQPS
	s.MinQueryCount = 3
	require.NoError(t, s.Validate())
	p := New(s, testLogger())
	p.Start(time.Now())

	n := 0
	for {
		q, ok := p.Next(context.Background())
		if !ok {
			break
		}
		p.Issued(q)
		p.Completed(1)
		n++
	}
	assert.Equal(t, 3, n)
}
