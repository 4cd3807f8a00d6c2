// Package cli is the headless front end: a progress line while the run is
// going and a summary block when it ends.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"benchq/internal/report"
	"benchq/internal/runner"
	"benchq/internal/settings"
	"benchq/internal/stats"
	"benchq/internal/tui/live"
)

// RunFunc executes the run with the given update channel wired in.
type RunFunc func(ctx context.Context) (*runner.Result, error)

// Start prints the header, runs the test while drawing progress to w, and
// prints the summary.
func Start(ctx context.Context, w io.Writer, title string, ts settings.TestSettings, updates runner.StatsUpdateChan, run RunFunc) (*runner.Result, error) {
	printHeader(w, title, ts)

	type outcome struct {
		res *runner.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := run(ctx)
		done <- outcome{res, err}
	}()

	goal := Goal(ts)
	for {
		select {
		case s := <-updates:
			printProgress(w, goal, s)
		case o := <-done:
			// drain whatever the run published last
			for len(updates) > 0 {
				printProgress(w, goal, <-updates)
			}
			fmt.Fprintln(w)
			if o.err != nil {
				return nil, o.err
			}
			fmt.Fprintln(w)
			report.WriteSummary(w, o.res)
			return o.res, nil
		}
	}
}

// Goal is the issuance target shown by the progress displays.
func Goal(ts settings.TestSettings) live.Goal {
	if ts.Scenario == settings.Offline {
		return live.Goal{Queries: ts.OfflineQueryCount()}
	}
	return live.Goal{Duration: ts.MinDuration, Queries: ts.MinQueryCount}
}

func printHeader(w io.Writer, title string, ts settings.TestSettings) {
	fmt.Fprintf(w, "\nSTARTING %s\n", strings.ToUpper(title))
	fmt.Fprintf(w, "======================================================================\n")
	fmt.Fprintf(w, "Scenario   : %s\n", ts.Scenario)
	fmt.Fprintf(w, "Mode       : %s\n", ts.Mode)
	switch ts.Scenario {
	case settings.MultiStream:
		fmt.Fprintf(w, "Target     : %g QPS, %d samples/query\n", ts.MultiStreamTargetQPS, ts.MultiStreamSamplesPerQuery)
	case settings.Server:
		fmt.Fprintf(w, "Target     : %g QPS, p%g <= %s\n", ts.ServerTargetQPS, ts.TargetLatencyPercentile*100, ts.ServerTargetLatency)
	case settings.Offline:
		fmt.Fprintf(w, "Planned    : %d queries\n", ts.OfflineQueryCount())
	}
	fmt.Fprintf(w, "Floors     : %s and %d queries\n", ts.MinDuration, ts.MinQueryCount)
	fmt.Fprintf(w, "======================================================================\n\n")
}

func printProgress(w io.Writer, goal live.Goal, s stats.Snapshot) {
	pct := goal.Progress(s)
	if s.Finished {
		pct = 1
	}
	fmt.Fprintf(w, "\r%s %3.0f%% | %s | Q: %d | Done: %d | Out: %d | %.1f/s | p99: %s",
		progressBar(pct, 20), pct*100,
		s.Elapsed.Round(time.Second),
		s.Queries, s.Completed, s.Outstanding,
		s.CompletionRate(),
		s.P99,
	)
}

func progressBar(pct float64, width int) string {
	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("-", width-filled) + "]"
}
