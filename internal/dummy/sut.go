// Package dummy provides synthetic systems under test, a sample library that
// holds no data, and a local HTTP target for trying the harness end to end.
package dummy

import (
	"sync"
	"time"

	"benchq/pkg/sut"
)

func respond(samples []sut.QuerySample) []sut.Response {
	responses := make([]sut.Response, len(samples))
	for i, s := range samples {
		responses[i] = sut.Response{ID: s.ID}
	}
	return responses
}

// NullSUT completes every query synchronously inside IssueQuery.
type NullSUT struct{}

func (NullSUT) Name() string { return "NullSUT" }

func (NullSUT) IssueQuery(done sut.Completer, samples []sut.QuerySample) {
	done.QuerySamplesComplete(respond(samples))
}

func (NullSUT) ReportLatencyResults([]time.Duration) {}

// AsyncSUT completes each query from its own goroutine.
type AsyncSUT struct{}

func (AsyncSUT) Name() string { return "AsyncSUT" }

func (AsyncSUT) IssueQuery(done sut.Completer, samples []sut.QuerySample) {
	go done.QuerySamplesComplete(respond(samples))
}

func (AsyncSUT) ReportLatencyResults([]time.Duration) {}

// DelaySUT completes each sample Delay after it was issued. Samples of one
// query complete together.
type DelaySUT struct {
	Delay time.Duration

	mu        sync.Mutex
	latencies []time.Duration
}

func NewDelaySUT(delay time.Duration) *DelaySUT {
	return &DelaySUT{Delay: delay}
}

func (s *DelaySUT) Name() string { return "DelaySUT" }

func (s *DelaySUT) IssueQuery(done sut.Completer, samples []sut.QuerySample) {
	responses := respond(samples)
	time.AfterFunc(s.Delay, func() {
		done.QuerySamplesComplete(responses)
	})
}

// ReportLatencyResults keeps the final latency list for inspection.
func (s *DelaySUT) ReportLatencyResults(latencies []time.Duration) {
	s.mu.Lock()
	s.latencies = append(s.latencies[:0], latencies...)
	s.mu.Unlock()
}

func (s *DelaySUT) Reported() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.latencies...)
}
