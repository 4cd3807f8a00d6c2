// Package qsl turns a sample library into a reproducible stream of query
// samples.
package qsl

import (
	"math/rand"

	"benchq/internal/errs"
	"benchq/pkg/sut"
)

// Source manufactures QuerySamples from a library's working set. The index
// sequence depends only on the seeds and the library sizes, never on timing.
// A Source is not safe for concurrent use; the issuing goroutine owns it.
type Source struct {
	lib        sut.SampleLibrary
	workingSet []sut.SampleIndex
	order      []sut.SampleIndex
	pos        int
	nextID     sut.ResponseID
	loaded     bool
}

// NewSource picks the working set with qslSeed and shuffles the order in
// which its indices are issued with sampleSeed.
func NewSource(lib sut.SampleLibrary, qslSeed, sampleSeed uint64) (*Source, error) {
	total := lib.TotalSampleCount()
	perf := lib.PerformanceSampleCount()
	if total <= 0 {
		return nil, errs.NewConfigurationError("qsl.total_sample_count", "must be positive, got %d", total)
	}
	if perf <= 0 {
		return nil, errs.NewConfigurationError("qsl.performance_sample_count", "must be positive, got %d", perf)
	}
	if perf > total {
		return nil, errs.NewConfigurationError("qsl.performance_sample_count",
			"working set of %d exceeds population of %d", perf, total)
	}

	s := &Source{
		lib:        lib,
		workingSet: pickWorkingSet(total, perf, qslSeed),
	}
	s.shuffle(sampleSeed)
	return s, nil
}

// pickWorkingSet returns perf distinct indices drawn from [0, total) using a
// partial Fisher-Yates shuffle, so large populations cost O(perf) memory.
func pickWorkingSet(total, perf int, seed uint64) []sut.SampleIndex {
	rng := rand.New(rand.NewSource(int64(seed)))
	swapped := make(map[int]int, perf)
	at := func(i int) int {
		if v, ok := swapped[i]; ok {
			return v
		}
		return i
	}
	set := make([]sut.SampleIndex, perf)
	for i := 0; i < perf; i++ {
		j := i + rng.Intn(total-i)
		vi, vj := at(i), at(j)
		swapped[i], swapped[j] = vj, vi
		set[i] = sut.SampleIndex(vj)
	}
	return set
}

func (s *Source) shuffle(sampleSeed uint64) {
	rng := rand.New(rand.NewSource(int64(sampleSeed)))
	s.order = make([]sut.SampleIndex, len(s.workingSet))
	copy(s.order, s.workingSet)
	rng.Shuffle(len(s.order), func(i, j int) { s.order[i], s.order[j] = s.order[j], s.order[i] })
	s.pos = 0
}

// WorkingSet returns the indices expected to be resident during the run.
func (s *Source) WorkingSet() []sut.SampleIndex {
	return s.workingSet
}

// Load makes the working set resident.
func (s *Source) Load() {
	if s.loaded {
		return
	}
	s.lib.LoadSamplesToRam(s.workingSet)
	s.loaded = true
}

// Unload releases the working set.
func (s *Source) Unload() {
	if !s.loaded {
		return
	}
	s.lib.UnloadSamplesFromRam(s.workingSet)
	s.loaded = false
}

// Next returns a query of n samples with fresh sequential ids, looping over
// the shuffled working set.
func (s *Source) Next(n int) []sut.QuerySample {
	samples := make([]sut.QuerySample, n)
	for i := range samples {
		samples[i] = sut.QuerySample{ID: s.nextID, Index: s.order[s.pos]}
		s.nextID++
		s.pos++
		if s.pos == len(s.order) {
			s.pos = 0
		}
	}
	return samples
}

// Issued is the number of samples handed out so far.
func (s *Source) Issued() int {
	return int(s.nextID)
}

// Chunks splits the whole population [0, total) into consecutive chunks of
// at most size indices, in ascending order.
func Chunks(total, size int) [][]sut.SampleIndex {
	if size <= 0 {
		return nil
	}
	var chunks [][]sut.SampleIndex
	for start := 0; start < total; start += size {
		end := start + size
		if end > total {
			end = total
		}
		chunk := make([]sut.SampleIndex, 0, end-start)
		for i := start; i < end; i++ {
			chunk = append(chunk, sut.SampleIndex(i))
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}
