package runner

import (
	"context"
	"sync"
	"time"

	"benchq/internal/completion"
	"benchq/internal/errs"
	"benchq/pkg/sut"
)

type sampleEntry struct {
	query  int32
	done   bool
	issued time.Duration
}

type queryEntry struct {
	remaining int32
	latency   time.Duration
}

// tracker attributes completions to issued samples. Ids are handed out
// sequentially from zero, so the id is the index into samples.
type tracker struct {
	start time.Time

	mu         sync.Mutex
	samples    []sampleEntry
	queries    []queryEntry
	completed  int
	last       time.Duration
	violations map[errs.ViolationKind]*errs.ContractViolation

	progress chan struct{}
}

func newTracker(start time.Time, capacity int) *tracker {
	return &tracker{
		start:      start,
		samples:    make([]sampleEntry, 0, capacity),
		violations: make(map[errs.ViolationKind]*errs.ContractViolation),
		progress:   make(chan struct{}, 1),
	}
}

// register records one query. It must be called before the samples are
// handed to the SUT.
func (t *tracker) register(samples []sut.QuerySample, at time.Time) {
	issued := at.Sub(t.start)
	t.mu.Lock()
	q := int32(len(t.queries))
	t.queries = append(t.queries, queryEntry{remaining: int32(len(samples))})
	for range samples {
		t.samples = append(t.samples, sampleEntry{query: q, issued: issued})
	}
	t.mu.Unlock()
}

// complete attributes a batch of records, appending sample latencies and
// the latencies of queries that became complete to the given slices.
func (t *tracker) complete(batch []completion.Record, sampleLat, queryLat []time.Duration) ([]time.Duration, []time.Duration) {
	t.mu.Lock()
	for _, r := range batch {
		if uint64(r.ID) >= uint64(len(t.samples)) {
			t.violationLocked(errs.UnknownID, r.ID)
			continue
		}
		s := &t.samples[r.ID]
		if s.done {
			t.violationLocked(errs.DuplicateCompletion, r.ID)
			continue
		}
		s.done = true
		t.completed++

		at := r.At.Sub(t.start)
		if at > t.last {
			t.last = at
		}
		lat := at - s.issued
		if lat < 0 {
			lat = 0
		}
		sampleLat = append(sampleLat, lat)

		q := &t.queries[s.query]
		if lat > q.latency {
			q.latency = lat
		}
		q.remaining--
		if q.remaining == 0 {
			queryLat = append(queryLat, q.latency)
		}
	}
	t.mu.Unlock()

	select {
	case t.progress <- struct{}{}:
	default:
	}
	return sampleLat, queryLat
}

func (t *tracker) violationLocked(kind errs.ViolationKind, id sut.ResponseID) {
	v, ok := t.violations[kind]
	if !ok {
		v = &errs.ContractViolation{Kind: kind, FirstID: id}
		t.violations[kind] = v
	}
	v.Count++
}

// waitCompleted blocks until at least n samples have completed, ctx is
// done or timeout elapses.
func (t *tracker) waitCompleted(ctx context.Context, n int, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		t.mu.Lock()
		done := t.completed >= n
		t.mu.Unlock()
		if done {
			return true
		}
		select {
		case <-t.progress:
		case <-timer.C:
			return false
		case <-ctx.Done():
			return false
		}
	}
}

// outstanding lists the ids issued but never completed.
func (t *tracker) outstanding() []sut.ResponseID {
	t.mu.Lock()
	defer t.mu.Unlock()
	var ids []sut.ResponseID
	for i := range t.samples {
		if !t.samples[i].done {
			ids = append(ids, sut.ResponseID(i))
		}
	}
	return ids
}

func (t *tracker) counts() (issued, completed, queries int, last time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.samples), t.completed, len(t.queries), t.last
}

func (t *tracker) contractViolations() []*errs.ContractViolation {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []*errs.ContractViolation
	for _, k := range []errs.ViolationKind{errs.UnknownID, errs.DuplicateCompletion} {
		if v, ok := t.violations[k]; ok {
			c := *v
			out = append(out, &c)
		}
	}
	return out
}
