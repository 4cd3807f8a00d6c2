// Package pacer decides when and how large the next query of a run is.
// It knows nothing about how completions are delivered; the caller reports
// issued and completed queries back to it.
package pacer

import (
	"context"
	"math"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"benchq/internal/settings"
)

type State int32

const (
	Idle State = iota
	Issuing
	Draining
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Issuing:
		return "Issuing"
	case Draining:
		return "Draining"
	case Done:
		return "Done"
	default:
		return "Unknown"
	}
}

type Pacer struct {
	settings settings.TestSettings
	sched    schedule
	// limit caps outstanding queries.
	limit int
	// planned is the fixed query count of an Offline run, zero otherwise.
	planned int
	log     *log.Entry

	mu          sync.Mutex
	state       State
	start       time.Time
	issued      int
	outstanding int
	overruns    int

	wake     chan struct{}
	done     chan struct{}
	doneOnce sync.Once
	timer    *time.Timer
}

func New(s settings.TestSettings, logger *log.Entry) *Pacer {
	p := &Pacer{
		settings: s,
		sched:    newSchedule(s),
		limit:    math.MaxInt,
		log:      logger.WithField("component", "pacer"),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		timer:    time.NewTimer(time.Hour),
	}
	p.timer.Stop()

	switch s.Scenario {
	case settings.SingleStream:
		p.limit = 1
	case settings.MultiStream:
		p.limit = s.MultiStreamMaxAsyncQueries
	case settings.Offline:
		p.planned = s.OfflineQueryCount()
	}
	return p
}

// Start moves the pacer from Idle to Issuing; offsets are measured from start.
func (p *Pacer) Start(start time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Idle {
		return
	}
	p.start = start
	p.state = Issuing
}

func (p *Pacer) elapsed() time.Duration {
	return time.Since(p.start)
}

// Next blocks until the next query is due and returns it. It returns false
// once issuance is over, which moves the pacer to Draining, or when ctx is
// done. The caller must call Issued before handing the query to the SUT.
func (p *Pacer) Next(ctx context.Context) (Query, bool) {
	if !p.waitForSlot(ctx) {
		p.stopIssuing()
		return Query{}, false
	}

	now := p.elapsed()
	p.mu.Lock()
	over := p.state != Issuing || p.issuanceOverLocked(now)
	p.mu.Unlock()
	if over {
		p.stopIssuing()
		return Query{}, false
	}

	q := p.sched.next(now)
	if !p.sleepUntil(ctx, q.Scheduled) {
		p.stopIssuing()
		return Query{}, false
	}

	q, late := p.sched.due(q, p.elapsed())
	if late {
		p.mu.Lock()
		p.overruns++
		p.mu.Unlock()
		p.log.WithField("scheduled", q.Scheduled).Debug("Pacing deadline missed, continuing from next scheduled instant")
	}
	return q, true
}

func (p *Pacer) issuanceOverLocked(now time.Duration) bool {
	if p.planned > 0 {
		return p.issued >= p.planned
	}
	return p.issued >= p.settings.MinQueryCount && now >= p.settings.MinDuration
}

func (p *Pacer) waitForSlot(ctx context.Context) bool {
	for {
		p.mu.Lock()
		free := p.outstanding < p.limit
		p.mu.Unlock()
		if free {
			return true
		}
		select {
		case <-p.wake:
		case <-ctx.Done():
			return false
		}
	}
}

func (p *Pacer) sleepUntil(ctx context.Context, at time.Duration) bool {
	d := at - p.elapsed()
	if d <= 0 {
		return ctx.Err() == nil
	}
	p.timer.Reset(d)
	defer p.timer.Stop()
	select {
	case <-p.timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Issued records that q was handed to the SUT.
func (p *Pacer) Issued(q Query) {
	p.mu.Lock()
	p.issued++
	p.outstanding++
	p.mu.Unlock()
}

// Completed records that n queries have fully completed.
func (p *Pacer) Completed(n int) {
	p.mu.Lock()
	p.outstanding -= n
	if p.state == Draining && p.outstanding <= 0 {
		p.finishLocked()
	}
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// stopIssuing moves Issuing to Draining, or straight to Done when nothing
// is outstanding.
func (p *Pacer) stopIssuing() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Issuing {
		return
	}
	p.state = Draining
	if p.overruns > 0 {
		p.log.WithField("overruns", p.overruns).Warn("Pacer ran behind schedule; late queries were not burst")
	}
	if p.outstanding <= 0 {
		p.finishLocked()
	}
}

func (p *Pacer) finishLocked() {
	p.state = Done
	p.doneOnce.Do(func() { close(p.done) })
}

// Done is closed once every issued query has completed after issuance ended.
func (p *Pacer) Done() <-chan struct{} {
	return p.done
}

func (p *Pacer) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pacer) IssuedQueries() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.issued
}

func (p *Pacer) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outstanding
}

func (p *Pacer) Overruns() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.overruns
}

// Skipped is the number of MultiStream ticks dropped because the previous
// query was still outstanding.
func (p *Pacer) Skipped() int {
	if g, ok := p.sched.(*grid); ok {
		return g.skipped
	}
	return 0
}
