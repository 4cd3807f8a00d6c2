package runner

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"benchq/internal/completion"
	"benchq/internal/errs"
	"benchq/internal/pacer"
	"benchq/internal/qsl"
	"benchq/internal/settings"
	"benchq/internal/stats"
	"benchq/pkg/sut"
)

const defaultUpdateInterval = 200 * time.Millisecond

// Controller runs one test of a SUT against a sample library.
type Controller struct {
	sut      sut.SystemUnderTest
	lib      sut.SampleLibrary
	settings settings.TestSettings
	opts     Options
	log      *log.Entry
	live     *stats.Live
}

func New(s sut.SystemUnderTest, lib sut.SampleLibrary, ts settings.TestSettings, opts Options) *Controller {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.UpdateInterval <= 0 {
		opts.UpdateInterval = defaultUpdateInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Controller{
		sut:      s,
		lib:      lib,
		settings: ts,
		opts:     opts,
		log: logger.WithFields(log.Fields{
			"run_id":   opts.RunID,
			"scenario": ts.Scenario,
		}),
		live: stats.NewLive(),
	}
}

// RunID identifies the run in logs, reports and history.
func (c *Controller) RunID() string {
	return c.opts.RunID
}

// Live exposes the counters updated while the run is in progress.
func (c *Controller) Live() *stats.Live {
	return c.live
}

// Run validates the settings and executes the passes the mode asks for. The
// only errors returned are configuration errors; everything that goes wrong
// once the run started is reported in the Result verdict.
func (c *Controller) Run(ctx context.Context) (*Result, error) {
	if err := c.settings.Validate(); err != nil {
		return nil, err
	}
	src, err := qsl.NewSource(c.lib, c.settings.QSLSeed, c.settings.SampleIndexSeed)
	if err != nil {
		return nil, err
	}

	res := &Result{
		RunID:     c.opts.RunID,
		SUTName:   c.sut.Name(),
		QSLName:   c.lib.Name(),
		Settings:  c.settings,
		StartedAt: time.Now(),
	}
	c.log.WithFields(log.Fields{
		"sut":  res.SUTName,
		"qsl":  res.QSLName,
		"mode": c.settings.Mode,
	}).Info("Starting run")

	var failures []error
	if c.settings.Mode.RunsPerformance() {
		failures = append(failures, c.performance(ctx, src, res)...)
	}
	if c.settings.Mode.RunsAccuracy() {
		if ctx.Err() != nil {
			failures = append(failures, errors.Wrap(ctx.Err(), "accuracy pass skipped"))
		} else {
			acc, accFailures := c.accuracy(ctx)
			res.Accuracy = acc
			failures = append(failures, accFailures...)
		}
	}

	c.evaluate(res, failures)
	c.opts.Metrics.RecordRun(res.Valid)
	c.log.WithFields(log.Fields{
		"valid":    res.Valid,
		"duration": res.Duration,
		"qps":      res.QPS,
	}).Info("Run finished")
	return res, nil
}

// performance drives the pacer until issuance is over and every issued
// sample completed, or the drain timeout expired. It returns the reasons
// the pass is invalid.
func (c *Controller) performance(ctx context.Context, src *qsl.Source, res *Result) []error {
	src.Load()
	defer src.Unload()

	sink := completion.NewSink(c.opts.Sink)
	p := pacer.New(c.settings, c.log)
	start := time.Now()
	hint := c.capacityHint()
	tr := newTracker(start, hint)
	sampleAgg := stats.NewAggregator(hint)
	queryAgg := stats.NewAggregator(hint / c.settings.SamplesPerQuery())

	progressCtx, stopProgress := context.WithCancel(ctx)
	defer stopProgress()

	// The consumer outlives ctx so completions keep being attributed while
	// the run drains; it stops once the sink is closed.
	var g errgroup.Group
	g.Go(func() error {
		c.consume(sink, tr, p, sampleAgg, queryAgg)
		return nil
	})
	g.Go(func() error {
		c.publish(progressCtx, start)
		return nil
	})

	p.Start(start)
	for {
		q, ok := p.Next(ctx)
		if !ok {
			break
		}
		samples := src.Next(q.Samples)
		tr.register(samples, time.Now())
		p.Issued(q)
		c.live.Queries.Add(1)
		c.live.Issued.Add(uint64(len(samples)))
		c.opts.Metrics.RecordIssued(len(samples))
		c.sut.IssueQuery(sink, samples)
	}
	issuedAt := time.Since(start)
	c.log.WithFields(log.Fields{
		"queries": p.IssuedQueries(),
		"elapsed": issuedAt,
	}).Debug("Issuance finished, draining")

	// A cancelled ctx only ends issuance. Outstanding samples still drain,
	// bounded by the drain timeout.
	var failures []error
	timer := time.NewTimer(c.settings.DrainTimeout)
	select {
	case <-p.Done():
	case <-timer.C:
		failures = append(failures, &errs.DrainTimeoutError{
			Timeout:     c.settings.DrainTimeout,
			Outstanding: tr.outstanding(),
		})
	}
	timer.Stop()
	if ctx.Err() != nil {
		failures = append(failures, errors.Wrap(ctx.Err(), "run interrupted"))
	}

	stopProgress()
	sink.Close()
	_ = g.Wait()

	issued, completed, queries, last := tr.counts()
	res.Duration = last
	if res.Duration < issuedAt {
		res.Duration = issuedAt
	}
	res.QueryCount = queries
	res.SampleCount = issued
	res.CompletedSamples = completed
	res.Overruns = p.Overruns()
	res.SkippedTicks = p.Skipped()
	if secs := res.Duration.Seconds(); secs > 0 {
		res.QPS = float64(queryAgg.Len()) / secs
		res.SamplesPerSecond = float64(completed) / secs
	}
	c.opts.Metrics.RecordOverruns(res.Overruns)

	for _, v := range tr.contractViolations() {
		c.log.WithError(v).Warn("SUT broke the completion contract")
		c.opts.Metrics.RecordViolation(v)
		failures = append(failures, v)
	}
	if n, id := sink.Late(); n > 0 {
		v := &errs.ContractViolation{Kind: errs.LateCompletion, FirstID: id, Count: n}
		c.log.WithError(v).Warn("SUT completed samples after the run was torn down")
		c.opts.Metrics.RecordViolation(v)
		failures = append(failures, v)
	}

	if sum, err := sampleAgg.Summarize(c.quantiles()...); err == nil {
		res.Latency = &sum
	} else {
		failures = append(failures, err)
	}
	if sum, err := queryAgg.Summarize(c.quantiles()...); err == nil {
		res.QueryLatency = &sum
	}
	res.sampleLatencies = sampleAgg.Latencies()

	c.sut.ReportLatencyResults(res.sampleLatencies)
	c.sendUpdate(c.live.Snapshot(res.Duration), true)
	return failures
}

// consume attributes completions until the sink is closed and drained.
func (c *Controller) consume(sink *completion.Sink, tr *tracker, p *pacer.Pacer, sampleAgg, queryAgg *stats.Aggregator) {
	var (
		batches   [][]completion.Record
		sampleLat []time.Duration
		queryLat  []time.Duration
	)
	ctx := context.Background()
	for {
		var alive bool
		batches, alive = sink.Wait(ctx, batches[:0])
		for _, b := range batches {
			sampleLat, queryLat = tr.complete(b, sampleLat[:0], queryLat[:0])
			for _, d := range sampleLat {
				sampleAgg.Add(d)
			}
			for _, d := range queryLat {
				queryAgg.Add(d)
			}
			c.live.Completed.Add(uint64(len(sampleLat)))
			c.live.Latency.RecordBatch(sampleLat)
			c.opts.Metrics.RecordCompletions(sampleLat)
			if len(queryLat) > 0 {
				p.Completed(len(queryLat))
			}
		}
		if len(batches) > 0 {
			sink.Recycle(batches)
			for i := range batches {
				batches[i] = nil
			}
		}
		if !alive {
			return
		}
	}
}

// publish sends a snapshot every update interval until ctx is done.
func (c *Controller) publish(ctx context.Context, start time.Time) {
	if c.opts.Updates == nil {
		return
	}
	ticker := time.NewTicker(c.opts.UpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sendUpdate(c.live.Snapshot(time.Since(start)), false)
		}
	}
}

func (c *Controller) sendUpdate(s stats.Snapshot, finished bool) {
	if c.opts.Updates == nil {
		return
	}
	s.Finished = finished
	select {
	case c.opts.Updates <- s:
	default:
		// Drop update if channel full, display acts as backpressure
	}
}

func (c *Controller) quantiles() []float64 {
	return append(append([]float64(nil), stats.DefaultQuantiles...), c.settings.TargetLatencyPercentile)
}

// capacityHint sizes the tracker and aggregators from the expected sample
// count so the consumer rarely grows them.
func (c *Controller) capacityHint() int {
	n := c.settings.MinQueryCount
	if c.settings.Scenario == settings.Offline {
		n = c.settings.OfflineQueryCount()
	}
	n *= c.settings.SamplesPerQuery()
	const maxHint = 1 << 20
	if n > maxHint {
		n = maxHint
	}
	if n < 16 {
		n = 16
	}
	return n
}
