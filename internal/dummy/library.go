package dummy

import (
	"sync/atomic"

	"benchq/pkg/sut"
)

const (
	DefaultTotalSamples       = 1024 * 1024
	DefaultPerformanceSamples = 1024
)

// NullLibrary declares a population but holds no data. It counts load and
// unload calls so tests can check residency handling.
type NullLibrary struct {
	total int
	perf  int

	loads   atomic.Int64
	unloads atomic.Int64
	loaded  atomic.Int64
}

func NewNullLibrary(total, perf int) *NullLibrary {
	return &NullLibrary{total: total, perf: perf}
}

func DefaultNullLibrary() *NullLibrary {
	return NewNullLibrary(DefaultTotalSamples, DefaultPerformanceSamples)
}

func (l *NullLibrary) Name() string                { return "NullQSL" }
func (l *NullLibrary) TotalSampleCount() int       { return l.total }
func (l *NullLibrary) PerformanceSampleCount() int { return l.perf }

func (l *NullLibrary) LoadSamplesToRam(samples []sut.SampleIndex) {
	l.loads.Add(1)
	l.loaded.Add(int64(len(samples)))
}

func (l *NullLibrary) UnloadSamplesFromRam(samples []sut.SampleIndex) {
	l.unloads.Add(1)
	l.loaded.Add(-int64(len(samples)))
}

// Calls reports how many times samples were loaded and unloaded.
func (l *NullLibrary) Calls() (loads, unloads int) {
	return int(l.loads.Load()), int(l.unloads.Load())
}

// Resident is the number of samples currently loaded.
func (l *NullLibrary) Resident() int {
	return int(l.loaded.Load())
}
