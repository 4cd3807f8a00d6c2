// Package report writes the files describing a finished run.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"benchq/internal/runner"
	"benchq/internal/settings"
	"benchq/internal/stats"
)

const (
	summaryFile   = "summary.txt"
	detailFile    = "detail.json"
	latenciesFile = "latencies.csv"
)

// Paths lists the files written for a run; empty entries were not written.
type Paths struct {
	Summary   string
	Detail    string
	Latencies string
}

// Write creates the output directory and writes the summary and detail
// files, plus the per-sample latency CSV when requested. When stdout is not
// nil and the settings ask for it, the summary is copied there as well.
func Write(out settings.OutputSettings, res *runner.Result, stdout io.Writer) (Paths, error) {
	dir := out.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Paths{}, errors.Wrapf(err, "creating output directory %s", dir)
	}
	name := func(f string) string { return filepath.Join(dir, out.Prefix+f) }

	var paths Paths
	var summary strings.Builder
	WriteSummary(&summary, res)
	paths.Summary = name(summaryFile)
	if err := os.WriteFile(paths.Summary, []byte(summary.String()), 0o644); err != nil {
		return Paths{}, errors.Wrap(err, "writing summary")
	}
	if out.CopySummaryToStdout && stdout != nil {
		_, _ = io.WriteString(stdout, summary.String())
	}

	paths.Detail = name(detailFile)
	if err := ExportJSON(res, paths.Detail); err != nil {
		return paths, err
	}

	if out.PerQueryLatencies {
		paths.Latencies = name(latenciesFile)
		if err := ExportCSV(res.SampleLatencies(), paths.Latencies); err != nil {
			return paths, err
		}
	}
	return paths, nil
}

// ExportJSON writes the machine-readable result.
func ExportJSON(res *runner.Result, filename string) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding result")
	}
	return errors.Wrap(os.WriteFile(filename, data, 0o644), "writing detail log")
}

// ExportCSV writes one row per sample, in completion order.
// Schema: sample,latency_ns
func ExportCSV(latencies []time.Duration, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "creating latency log")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"sample", "latency_ns"}); err != nil {
		return errors.WithStack(err)
	}
	for i, d := range latencies {
		if err := w.Write([]string{strconv.Itoa(i), strconv.FormatInt(int64(d), 10)}); err != nil {
			return errors.WithStack(err)
		}
	}
	w.Flush()
	return errors.Wrap(w.Error(), "writing latency log")
}

const rule = "======================================================================\n"

// WriteSummary renders the human-readable summary.
func WriteSummary(w io.Writer, res *runner.Result) {
	s := res.Settings
	verdict := "VALID"
	if !res.Valid {
		verdict = "INVALID"
	}

	fmt.Fprintf(w, "BENCHQ RESULTS SUMMARY\n")
	fmt.Fprint(w, rule)
	fmt.Fprintf(w, "Run ID         : %s\n", res.RunID)
	fmt.Fprintf(w, "SUT            : %s\n", res.SUTName)
	fmt.Fprintf(w, "QSL            : %s\n", res.QSLName)
	fmt.Fprintf(w, "Scenario       : %s\n", s.Scenario)
	fmt.Fprintf(w, "Mode           : %s\n", s.Mode)
	fmt.Fprintf(w, "Result         : %s\n", verdict)
	for _, r := range res.Reasons {
		fmt.Fprintf(w, "   - %s\n", r)
	}

	if s.Mode.RunsPerformance() {
		fmt.Fprintf(w, "\nPERFORMANCE\n")
		fmt.Fprintf(w, "Duration       : %s\n", res.Duration.Round(time.Millisecond))
		fmt.Fprintf(w, "Queries        : %d\n", res.QueryCount)
		fmt.Fprintf(w, "Samples        : %d issued, %d completed\n", res.SampleCount, res.CompletedSamples)
		fmt.Fprintf(w, "Queries/s      : %.2f\n", res.QPS)
		fmt.Fprintf(w, "Samples/s      : %.2f\n", res.SamplesPerSecond)
		if res.Overruns > 0 || res.SkippedTicks > 0 {
			fmt.Fprintf(w, "Overruns       : %d (skipped ticks %d)\n", res.Overruns, res.SkippedTicks)
		}
		if got, target, ok := res.TargetLatency(); ok {
			fmt.Fprintf(w, "Target latency : p%g %s (achieved %s)\n", s.TargetLatencyPercentile*100, target, got)
		}
		writeLatency(w, "SAMPLE LATENCY", res.Latency)
		if s.Scenario == settings.MultiStream {
			writeLatency(w, "QUERY LATENCY", res.QueryLatency)
		}
	}

	if res.Accuracy != nil {
		fmt.Fprintf(w, "\nACCURACY\n")
		fmt.Fprintf(w, "Samples        : %d issued, %d completed\n", res.Accuracy.Issued, res.Accuracy.Completed)
		fmt.Fprintf(w, "Duration       : %s\n", res.Accuracy.Duration.Round(time.Millisecond))
	}

	fmt.Fprintf(w, "\nSETTINGS\n")
	fmt.Fprintf(w, "min_duration                  : %s\n", s.MinDuration)
	fmt.Fprintf(w, "min_query_count               : %d\n", s.MinQueryCount)
	fmt.Fprintf(w, "qsl_seed                      : %#x\n", s.QSLSeed)
	fmt.Fprintf(w, "sample_index_seed             : %#x\n", s.SampleIndexSeed)
	fmt.Fprintf(w, "schedule_seed                 : %#x\n", s.ScheduleSeed)
	switch s.Scenario {
	case settings.SingleStream:
		fmt.Fprintf(w, "single_stream_expected_latency: %s\n", s.SingleStreamExpectedLatency)
	case settings.MultiStream:
		fmt.Fprintf(w, "multi_stream_target_qps       : %g\n", s.MultiStreamTargetQPS)
		fmt.Fprintf(w, "multi_stream_target_latency   : %s\n", s.MultiStreamTargetLatency)
		fmt.Fprintf(w, "multi_stream_samples_per_query: %d\n", s.MultiStreamSamplesPerQuery)
		fmt.Fprintf(w, "multi_stream_max_async_queries: %d\n", s.MultiStreamMaxAsyncQueries)
	case settings.Server:
		fmt.Fprintf(w, "server_target_qps             : %g\n", s.ServerTargetQPS)
		fmt.Fprintf(w, "server_target_latency         : %s\n", s.ServerTargetLatency)
		fmt.Fprintf(w, "server_coalesce_queries       : %t\n", s.ServerCoalesceQueries)
	case settings.Offline:
		fmt.Fprintf(w, "offline_expected_qps          : %g\n", s.OfflineExpectedQPS)
	}
	fmt.Fprintf(w, "target_latency_percentile     : %g\n", s.TargetLatencyPercentile)
	fmt.Fprint(w, rule)
}

func writeLatency(w io.Writer, title string, sum *stats.Summary) {
	fmt.Fprintf(w, "\n%s\n", title)
	if sum == nil {
		fmt.Fprintf(w, "   no completions\n")
		return
	}
	fmt.Fprintf(w, "   Min  : %s\n", sum.Min)
	fmt.Fprintf(w, "   Mean : %s\n", sum.Mean)
	for _, p := range sum.Percentiles {
		fmt.Fprintf(w, "   P%-4g: %s\n", p.Quantile*100, p.Latency)
	}
	fmt.Fprintf(w, "   Max  : %s\n", sum.Max)
}
