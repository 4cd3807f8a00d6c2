package submission

import "time"

// Table holds the submission constants that are still provisional. Nothing
// in the engine reads these values directly; swap Current to update them.
type Table struct {
	ServerTargetLatency map[Model]time.Duration
	MultiStreamFixedQPS float64

	MinDuration                  time.Duration
	MinQueryCountSingleStream    int
	MinQueryCountNotSingleStream int
	MultiStreamMaxAsyncQueries   int
	TargetLatencyPercentile      float64

	QSLSeed         uint64
	SampleIndexSeed uint64
	ScheduleSeed    uint64
}

// TODO: finalize server latency targets and the MultiStream fixed QPS once
// the submission rules are published.
var V05 = Table{
	ServerTargetLatency: map[Model]time.Duration{
		ResNet50V15:     100 * time.Millisecond,
		MobileNetV1224:  100 * time.Millisecond,
		SSDResNet34:     100 * time.Millisecond,
		SSDMobileNetsV1: 100 * time.Millisecond,
		GNMT:            100 * time.Millisecond,
	},
	MultiStreamFixedQPS: 20,

	MinDuration:                  60 * time.Second,
	MinQueryCountSingleStream:    1024,
	MinQueryCountNotSingleStream: 24576,
	MultiStreamMaxAsyncQueries:   1,
	TargetLatencyPercentile:      0.99,

	QSLSeed:         0xABCD1234,
	SampleIndexSeed: 0x1234ABCD,
	ScheduleSeed:    0xA1B2C3D4,
}

// Current is the table used by the Create*Settings functions.
var Current = V05
