package pacer

import (
	"math"
	"math/rand"
	"time"

	"benchq/internal/settings"
)

// Query is one issuance decision: when it was due, as an offset from the
// start of the run, and how many samples it carries.
type Query struct {
	Scheduled time.Duration
	Samples   int
}

// schedule decides the timeline of one scenario. next is called when the
// pacer is ready to issue; due is called once the scheduled instant has
// passed and reports whether the engine itself ran late.
type schedule interface {
	next(now time.Duration) Query
	due(q Query, now time.Duration) (Query, bool)
}

// immediate issues as soon as the pacer is allowed to: SingleStream once
// the previous query completed, Offline back-to-back.
type immediate struct {
	samples int
}

func (s *immediate) next(now time.Duration) Query {
	return Query{Scheduled: now, Samples: s.samples}
}

func (s *immediate) due(q Query, _ time.Duration) (Query, bool) {
	return q, false
}

// grid issues on a fixed interval. A tick that passes while the previous
// query is still outstanding is skipped rather than issued late.
type grid struct {
	interval time.Duration
	samples  int
	tick     time.Duration
	anchored bool
	skipped  int
}

// minGap is the shortest interval a schedule uses.
const minGap = time.Nanosecond

func newGrid(qps float64, samples int) *grid {
	interval := time.Duration(float64(time.Second) / qps)
	if interval < minGap {
		interval = minGap
	}
	return &grid{
		interval: interval,
		samples:  samples,
	}
}

func (s *grid) next(now time.Duration) Query {
	// The grid starts at the first issuance, not at the pacer start.
	if !s.anchored {
		s.tick = now
		s.anchored = true
	}
	if s.tick < now {
		missed := (now - s.tick + s.interval - 1) / s.interval
		s.skipped += int(missed)
		s.tick += missed * s.interval
	}
	q := Query{Scheduled: s.tick, Samples: s.samples}
	s.tick += s.interval
	return q
}

func (s *grid) due(q Query, now time.Duration) (Query, bool) {
	if now-q.Scheduled < s.interval {
		return q, false
	}
	// Woke up a whole frame late; continue from the next tick still ahead.
	for s.tick <= now {
		s.tick += s.interval
	}
	return q, true
}

// poisson issues single-sample queries with exponentially distributed
// inter-arrival gaps drawn from a seeded generator.
type poisson struct {
	rng      *rand.Rand
	meanGap  float64
	coalesce bool
	arrival  time.Duration
}

func newPoisson(qps float64, seed uint64, coalesce bool) *poisson {
	p := &poisson{
		rng:      rand.New(rand.NewSource(int64(seed))),
		meanGap:  float64(time.Second) / qps,
		coalesce: coalesce,
	}
	p.arrival = p.gap()
	return p
}

func (s *poisson) gap() time.Duration {
	g := s.rng.ExpFloat64() * s.meanGap
	if g > math.MaxInt64/2 {
		g = math.MaxInt64 / 2
	}
	if d := time.Duration(g); d > minGap {
		return d
	}
	return minGap
}

func (s *poisson) next(_ time.Duration) Query {
	q := Query{Scheduled: s.arrival, Samples: 1}
	s.arrival += s.gap()
	return q
}

func (s *poisson) due(q Query, now time.Duration) (Query, bool) {
	if s.arrival > now {
		return q, false
	}
	if s.coalesce {
		for s.arrival <= now {
			q.Samples++
			s.arrival += s.gap()
		}
		return q, false
	}
	for s.arrival <= now {
		s.arrival += s.gap()
	}
	return q, true
}

func newSchedule(s settings.TestSettings) schedule {
	switch s.Scenario {
	case settings.MultiStream:
		return newGrid(s.MultiStreamTargetQPS, s.MultiStreamSamplesPerQuery)
	case settings.Server:
		return newPoisson(s.ServerTargetQPS, s.ScheduleSeed, s.ServerCoalesceQueries)
	default:
		return &immediate{samples: 1}
	}
}
