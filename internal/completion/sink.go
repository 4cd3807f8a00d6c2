// Package completion collects query completions reported from arbitrary
// goroutines and hands them to a single consumer in recycled batches.
package completion

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"benchq/pkg/sut"
)

// Record is one completion as seen by the sink: the sample id and the time
// QuerySamplesComplete was entered.
type Record struct {
	ID sut.ResponseID
	At time.Time
}

type Options struct {
	// BatchSize is the capacity of each batch.
	BatchSize int
	// LowWaterMark is the number of spare batches kept in the recycle pool.
	LowWaterMark int
	// PollPeriod bounds how long Wait sleeps without a wake signal.
	PollPeriod time.Duration
}

func DefaultOptions() Options {
	return Options{
		BatchSize:    1024,
		LowWaterMark: 4,
		PollPeriod:   time.Millisecond,
	}
}

// Sink implements sut.Completer. Producers append into the active batch;
// full batches move to the pending list and are replaced from the recycle
// pool. All of that state is guarded by mu, which is only held for slice
// header manipulation.
type Sink struct {
	opts Options

	mu      sync.Mutex
	active  []Record
	pending [][]Record
	pool    [][]Record
	alive   bool
	late    int
	lateID  sut.ResponseID

	// wake has capacity one; a pending token means "something arrived".
	wake chan struct{}

	// timer is owned by the consumer goroutine calling Wait.
	timer *time.Timer

	completed atomic.Uint64
	hotAllocs atomic.Uint64
}

func NewSink(opts Options) *Sink {
	def := DefaultOptions()
	if opts.BatchSize <= 0 {
		opts.BatchSize = def.BatchSize
	}
	if opts.LowWaterMark <= 0 {
		opts.LowWaterMark = def.LowWaterMark
	}
	if opts.PollPeriod <= 0 {
		opts.PollPeriod = def.PollPeriod
	}

	s := &Sink{
		opts:    opts,
		active:  make([]Record, 0, opts.BatchSize),
		pending: make([][]Record, 0, opts.LowWaterMark*2),
		pool:    make([][]Record, 0, opts.LowWaterMark*2),
		alive:   true,
		wake:    make(chan struct{}, 1),
		timer:   time.NewTimer(opts.PollPeriod),
	}
	s.timer.Stop()
	for i := 0; i < opts.LowWaterMark; i++ {
		s.pool = append(s.pool, make([]Record, 0, opts.BatchSize))
	}
	return s
}

// QuerySamplesComplete records the responses. It never blocks on the
// consumer and does not allocate while the recycle pool has spare batches.
// Completions arriving after Close are counted as late and dropped.
func (s *Sink) QuerySamplesComplete(responses []sut.Response) {
	if len(responses) == 0 {
		return
	}
	now := time.Now()

	s.mu.Lock()
	if !s.alive {
		if s.late == 0 {
			s.lateID = responses[0].ID
		}
		s.late += len(responses)
		s.mu.Unlock()
		return
	}
	for i := range responses {
		s.active = append(s.active, Record{ID: responses[i].ID, At: now})
		if len(s.active) == cap(s.active) {
			s.pending = append(s.pending, s.active)
			s.active = s.takeLocked()
		}
	}
	s.mu.Unlock()

	s.completed.Add(uint64(len(responses)))
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Sink) takeLocked() []Record {
	if n := len(s.pool); n > 0 {
		b := s.pool[n-1]
		s.pool = s.pool[:n-1]
		return b
	}
	s.hotAllocs.Add(1)
	return make([]Record, 0, s.opts.BatchSize)
}

// Wait hands every available batch to the caller, appending them to out.
// If nothing is available it sleeps until a completion arrives, the poll
// period elapses or ctx is done. The second result is false once the sink
// has been closed; batches returned with it are the last ones.
//
// Wait must only be called from one goroutine at a time.
func (s *Sink) Wait(ctx context.Context, out [][]Record) ([][]Record, bool) {
	s.mu.Lock()
	if len(s.pending) == 0 && len(s.active) == 0 && s.alive {
		s.mu.Unlock()
		s.timer.Reset(s.opts.PollPeriod)
		select {
		case <-s.wake:
		case <-s.timer.C:
		case <-ctx.Done():
		}
		s.timer.Stop()
		s.mu.Lock()
	}
	out = append(out, s.pending...)
	for i := range s.pending {
		s.pending[i] = nil
	}
	s.pending = s.pending[:0]
	if len(s.active) > 0 {
		out = append(out, s.active)
		s.active = s.takeLocked()
	}
	alive := s.alive
	s.mu.Unlock()
	return out, alive
}

// Recycle returns consumed batches to the pool and tops the pool up to the
// low-water mark. Allocation happens outside the lock.
func (s *Sink) Recycle(batches [][]Record) {
	s.mu.Lock()
	for _, b := range batches {
		s.pool = append(s.pool, b[:0])
	}
	deficit := s.opts.LowWaterMark - len(s.pool)
	s.mu.Unlock()

	if deficit <= 0 {
		return
	}
	fresh := make([][]Record, deficit)
	for i := range fresh {
		fresh[i] = make([]Record, 0, s.opts.BatchSize)
	}
	s.mu.Lock()
	s.pool = append(s.pool, fresh...)
	s.mu.Unlock()
}

// Close clears the liveness flag and wakes the consumer. Callers already
// inside QuerySamplesComplete finish normally; later ones are counted late.
func (s *Sink) Close() {
	s.mu.Lock()
	s.alive = false
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Late reports how many responses arrived after Close and the first such id.
func (s *Sink) Late() (int, sut.ResponseID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.late, s.lateID
}

// Completed is the number of responses accepted so far.
func (s *Sink) Completed() uint64 {
	return s.completed.Load()
}

// HotPathAllocations counts batches allocated by producers because the
// recycle pool was empty.
func (s *Sink) HotPathAllocations() uint64 {
	return s.hotAllocs.Load()
}
