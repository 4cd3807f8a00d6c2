package runner

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"benchq/internal/completion"
	"benchq/internal/errs"
	"benchq/internal/qsl"
	"benchq/pkg/sut"
)

// accuracy issues every sample of the population once, without pacing. The
// population is made resident one working-set-sized chunk at a time and a
// chunk is unloaded only after all of its samples completed.
func (c *Controller) accuracy(ctx context.Context) (*AccuracyResult, []error) {
	total := c.lib.TotalSampleCount()
	chunks := qsl.Chunks(total, c.lib.PerformanceSampleCount())
	perQuery := c.settings.SamplesPerQuery()

	hint := total
	if hint > 1<<20 {
		hint = 1 << 20
	}
	sink := completion.NewSink(c.opts.Sink)
	start := time.Now()
	tr := newTracker(start, hint)

	done := make(chan struct{})
	go func() {
		defer close(done)
		var batches [][]completion.Record
		for {
			var alive bool
			batches, alive = sink.Wait(context.Background(), batches[:0])
			for _, b := range batches {
				tr.complete(b, nil, nil)
			}
			if len(batches) > 0 {
				sink.Recycle(batches)
			}
			if !alive {
				return
			}
		}
	}()

	logger := c.log.WithField("pass", "accuracy")
	logger.WithFields(log.Fields{"samples": total, "chunks": len(chunks)}).Info("Starting accuracy pass")

	var failures []error
	var next sut.ResponseID
	for i, chunk := range chunks {
		c.lib.LoadSamplesToRam(chunk)
		for off := 0; off < len(chunk); off += perQuery {
			end := off + perQuery
			if end > len(chunk) {
				end = len(chunk)
			}
			samples := make([]sut.QuerySample, 0, end-off)
			for _, idx := range chunk[off:end] {
				samples = append(samples, sut.QuerySample{ID: next, Index: idx})
				next++
			}
			tr.register(samples, time.Now())
			c.sut.IssueQuery(sink, samples)
		}

		ok := tr.waitCompleted(ctx, int(next), c.settings.DrainTimeout)
		c.lib.UnloadSamplesFromRam(chunk)
		if !ok {
			if ctx.Err() != nil {
				failures = append(failures, errors.Wrapf(ctx.Err(), "accuracy pass interrupted in chunk %d", i))
			} else {
				failures = append(failures, &errs.DrainTimeoutError{
					Timeout:     c.settings.DrainTimeout,
					Outstanding: tr.outstanding(),
				})
			}
			break
		}
	}

	sink.Close()
	<-done

	issued, completed, _, last := tr.counts()
	acc := &AccuracyResult{Issued: issued, Completed: completed, Duration: last}
	for _, v := range tr.contractViolations() {
		logger.WithError(v).Warn("SUT broke the completion contract")
		c.opts.Metrics.RecordViolation(v)
		failures = append(failures, v)
	}
	if n, id := sink.Late(); n > 0 {
		failures = append(failures, &errs.ContractViolation{Kind: errs.LateCompletion, FirstID: id, Count: n})
	}
	if completed < total {
		failures = append(failures, errors.Errorf("accuracy pass completed %d of %d samples", completed, total))
	}
	logger.WithFields(log.Fields{"completed": completed, "duration": last}).Info("Accuracy pass finished")
	return acc, failures
}
