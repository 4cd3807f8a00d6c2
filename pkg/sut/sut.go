// Package sut holds the contracts an integrator implements to drive a
// system under test with benchq, and the completion handle the engine hands
// back to it.
package sut

import "time"

// ResponseID correlates an issued sample with its completion.
type ResponseID uint64

// SampleIndex is an index into a sample library's population.
type SampleIndex uint64

// QuerySample is one unit of work handed to the system under test.
type QuerySample struct {
	ID    ResponseID
	Index SampleIndex
}

// Response reports the completion of one QuerySample. Data is owned by the
// caller; the engine reads only ID and never retains Data.
type Response struct {
	ID   ResponseID
	Data []byte
}

// Completer is the completion entry point. It is safe to call concurrently
// from any number of goroutines and never blocks on engine-side work. The
// responses slice is not retained.
type Completer interface {
	QuerySamplesComplete(responses []Response)
}

// SystemUnderTest is the device being benchmarked.
type SystemUnderTest interface {
	Name() string
	// IssueQuery must eventually report exactly one Response per sample
	// through done. It may complete synchronously before returning.
	IssueQuery(done Completer, samples []QuerySample)
	// ReportLatencyResults receives every sample latency of the
	// performance run once it has ended.
	ReportLatencyResults(latencies []time.Duration)
}

// SampleLibrary serves the sample population and its working set.
type SampleLibrary interface {
	Name() string
	TotalSampleCount() int
	PerformanceSampleCount() int
	LoadSamplesToRam(indices []SampleIndex)
	UnloadSamplesFromRam(indices []SampleIndex)
}
