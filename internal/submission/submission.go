// Package submission builds TestSettings that are valid for result
// submission. It is the only place aware of model categories and their
// constants; everything it knows comes from Current.
package submission

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"benchq/internal/settings"
)

type Model string

const (
	ResNet50V15     Model = "resnet50-v1.5"
	MobileNetV1224  Model = "mobilenets-v1-224"
	SSDResNet34     Model = "ssd-resnet34"
	SSDMobileNetsV1 Model = "ssd-mobilenets-v1"
	GNMT            Model = "gnmt"
)

var Models = []Model{ResNet50V15, MobileNetV1224, SSDResNet34, SSDMobileNetsV1, GNMT}

func ParseModel(s string) (Model, error) {
	for _, m := range Models {
		if strings.EqualFold(string(m), s) {
			return m, nil
		}
	}
	return "", errors.Errorf("unknown model %q", s)
}

func common(t Table) settings.TestSettings {
	s := settings.DefaultTestSettings()
	s.Mode = settings.SubmissionRun
	s.MinDuration = t.MinDuration
	s.QSLSeed = t.QSLSeed
	s.SampleIndexSeed = t.SampleIndexSeed
	s.ScheduleSeed = t.ScheduleSeed
	s.TargetLatencyPercentile = t.TargetLatencyPercentile
	return s
}

func CreateSingleStreamSettings(model Model, expectedLatency time.Duration) settings.TestSettings {
	t := Current
	s := common(t)
	s.Scenario = settings.SingleStream
	s.MinQueryCount = t.MinQueryCountSingleStream
	s.SingleStreamExpectedLatency = expectedLatency
	return s
}

func CreateMultiStreamSettings(model Model, samplesPerQuery int) settings.TestSettings {
	t := Current
	s := common(t)
	s.Scenario = settings.MultiStream
	s.MinQueryCount = t.MinQueryCountNotSingleStream
	s.MultiStreamTargetQPS = t.MultiStreamFixedQPS
	s.MultiStreamSamplesPerQuery = samplesPerQuery
	s.MultiStreamMaxAsyncQueries = t.MultiStreamMaxAsyncQueries
	s.MultiStreamTargetLatency = time.Duration(float64(time.Second) / t.MultiStreamFixedQPS)
	return s
}

func CreateServerSettings(model Model, targetQPS float64, coalesce bool) settings.TestSettings {
	t := Current
	s := common(t)
	s.Scenario = settings.Server
	s.MinQueryCount = t.MinQueryCountNotSingleStream
	s.ServerTargetQPS = targetQPS
	s.ServerCoalesceQueries = coalesce
	s.ServerTargetLatency = t.ServerTargetLatency[model]
	return s
}

func CreateOfflineSettings(model Model, expectedQPS float64) settings.TestSettings {
	t := Current
	s := common(t)
	s.Scenario = settings.Offline
	s.MinQueryCount = t.MinQueryCountNotSingleStream
	s.OfflineExpectedQPS = expectedQPS
	return s
}

// CreateSettings dispatches on scenario. target is interpreted per
// scenario: expected latency in nanoseconds for SingleStream, samples per
// query for MultiStream, target QPS for Server and expected QPS for Offline.
func CreateSettings(model Model, scenario settings.Scenario, target float64, coalesce bool) (settings.TestSettings, error) {
	switch scenario {
	case settings.SingleStream:
		return CreateSingleStreamSettings(model, time.Duration(target)), nil
	case settings.MultiStream:
		return CreateMultiStreamSettings(model, int(target)), nil
	case settings.Server:
		return CreateServerSettings(model, target, coalesce), nil
	case settings.Offline:
		return CreateOfflineSettings(model, target), nil
	default:
		return settings.TestSettings{}, errors.Errorf("unknown scenario %q", scenario)
	}
}
