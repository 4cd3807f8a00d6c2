// Package metrics exposes run progress as Prometheus collectors.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"benchq/internal/errs"
	"benchq/internal/settings"
)

const prefix = "benchq_"

var queriesIssued = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: prefix + "queries_issued_total",
		Help: "Number of queries handed to the system under test",
	},
	[]string{"scenario"},
)

var samplesIssued = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: prefix + "samples_issued_total",
		Help: "Number of samples handed to the system under test",
	},
	[]string{"scenario"},
)

var samplesCompleted = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: prefix + "samples_completed_total",
		Help: "Number of sample completions attributed to an issued sample",
	},
	[]string{"scenario"},
)

var sampleLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    prefix + "sample_latency_seconds",
		Help:    "Latency from issue to completion of a sample",
		Buckets: prometheus.ExponentialBuckets(0.00001, 2, 24),
	},
	[]string{"scenario"},
)

var contractViolations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: prefix + "contract_violations_total",
		Help: "Completions that broke the integration contract",
	},
	[]string{"scenario", "kind"},
)

var pacerOverruns = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: prefix + "pacer_overruns_total",
		Help: "Pacing deadlines missed by the engine",
	},
	[]string{"scenario"},
)

var runsFinished = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: prefix + "runs_total",
		Help: "Finished runs by verdict",
	},
	[]string{"scenario", "valid"},
)

// Recorder updates the collectors for one scenario. A nil Recorder is valid
// and records nothing.
type Recorder struct {
	issuedQueries prometheus.Counter
	issuedSamples prometheus.Counter
	completed     prometheus.Counter
	latency       prometheus.Observer
	overruns      prometheus.Counter
	scenario      string
}

func NewRecorder(scenario settings.Scenario) *Recorder {
	sc := string(scenario)
	return &Recorder{
		issuedQueries: queriesIssued.WithLabelValues(sc),
		issuedSamples: samplesIssued.WithLabelValues(sc),
		completed:     samplesCompleted.WithLabelValues(sc),
		latency:       sampleLatency.WithLabelValues(sc),
		overruns:      pacerOverruns.WithLabelValues(sc),
		scenario:      sc,
	}
}

func (r *Recorder) RecordIssued(samples int) {
	if r == nil {
		return
	}
	r.issuedQueries.Inc()
	r.issuedSamples.Add(float64(samples))
}

func (r *Recorder) RecordCompletions(latencies []time.Duration) {
	if r == nil || len(latencies) == 0 {
		return
	}
	r.completed.Add(float64(len(latencies)))
	for _, d := range latencies {
		r.latency.Observe(d.Seconds())
	}
}

func (r *Recorder) RecordViolation(v *errs.ContractViolation) {
	if r == nil {
		return
	}
	contractViolations.WithLabelValues(r.scenario, v.Kind.String()).Add(float64(v.Count))
}

func (r *Recorder) RecordOverruns(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.overruns.Add(float64(n))
}

func (r *Recorder) RecordRun(valid bool) {
	if r == nil {
		return
	}
	v := "false"
	if valid {
		v = "true"
	}
	runsFinished.WithLabelValues(r.scenario, v).Inc()
}

// Serve exposes the default registry on addr under /metrics and returns a
// function that shuts the server down.
func Serve(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Infof("Serving metrics on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Metrics server failed")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("Metrics server did not shut down cleanly")
		}
	}
}
