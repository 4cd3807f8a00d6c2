package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"benchq/internal/cli"
	"benchq/internal/dummy"
	"benchq/internal/httpsut"
	"benchq/internal/metrics"
	"benchq/internal/report"
	"benchq/internal/runner"
	"benchq/internal/settings"
	"benchq/internal/storage"
	"benchq/internal/submission"
	"benchq/internal/tui"
	"benchq/pkg/sut"
)

var errInvalidRun = errors.New("run is INVALID")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one benchmark test",
	Long: `Run one benchmark test against a synthetic or HTTP system under test.

Settings start from the submission rules for --model and --scenario, are then
overridden by the "settings:" section of the config file, and finally by the
flags given explicitly. The result is checked as supplied; nothing is
adjusted to make it valid.

--target is read per scenario:
  SingleStream  expected latency in milliseconds
  MultiStream   samples per query
  Server        target queries per second
  Offline       expected queries per second`,
	RunE: runTest,
}

func init() {
	f := runCmd.Flags()
	f.StringP("scenario", "s", string(settings.SingleStream), "SingleStream, MultiStream, Server or Offline")
	f.StringP("model", "m", string(submission.ResNet50V15), "Model whose submission rules apply")
	f.Float64P("target", "t", 0, "Scenario target, see above (0 = scenario default)")
	f.Bool("coalesce", false, "Server: merge queries that are due at the same instant")
	f.String("mode", string(settings.PerformanceOnly), "PerformanceOnly, AccuracyOnly or SubmissionRun")
	f.Duration("min-duration", 0, "Override the minimum duration")
	f.Int("min-query-count", 0, "Override the minimum query count")
	f.Duration("drain-timeout", 0, "Override how long to wait for outstanding samples")

	f.String("sut", "null", "System under test: null, async, pool, delay or http")
	f.Int("workers", 4, "pool: worker goroutines")
	f.Duration("delay", 5*time.Millisecond, "delay: artificial latency per query")
	f.StringP("url", "u", "", "http: target URL")
	f.StringP("method", "X", "POST", "http: method")
	f.StringP("body", "b", "", "http: body template ({{index}}, {{id}}, {{requestID}})")
	f.Duration("timeout", 30*time.Second, "http: request timeout")
	f.Int("total-samples", dummy.DefaultTotalSamples, "Sample library population")
	f.Int("perf-samples", dummy.DefaultPerformanceSamples, "Sample library working set")

	f.StringP("out-dir", "o", "", "Write summary.txt, detail.json (and latencies.csv) here")
	f.String("prefix", "", "File name prefix for reports")
	f.Bool("per-query-latencies", false, "Also write latencies.csv")
	f.Bool("tui", false, "Show the live dashboard instead of the progress line")
	f.Bool("edit", false, "With --tui: review the main settings in a form before starting")
	f.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	f.Bool("no-history", false, "Do not record the run in the history database")

	_ = viper.BindPFlags(f)
}

func defaultTarget(sc settings.Scenario) float64 {
	switch sc {
	case settings.SingleStream:
		return 1
	case settings.MultiStream:
		return 4
	case settings.Server:
		return 100
	default:
		return 1000
	}
}

// buildSettings layers the submission defaults, the config file and the
// explicitly set flags.
func buildSettings() (settings.TestSettings, error) {
	sc, err := settings.ParseScenario(viper.GetString("scenario"))
	if err != nil {
		return settings.TestSettings{}, err
	}
	model, err := submission.ParseModel(viper.GetString("model"))
	if err != nil {
		return settings.TestSettings{}, err
	}

	target := viper.GetFloat64("target")
	if target == 0 {
		target = defaultTarget(sc)
	}
	if sc == settings.SingleStream {
		target = float64(time.Duration(target * float64(time.Millisecond)))
	}
	ts, err := submission.CreateSettings(model, sc, target, viper.GetBool("coalesce"))
	if err != nil {
		return settings.TestSettings{}, err
	}

	mode, err := settings.ParseMode(viper.GetString("mode"))
	if err != nil {
		return settings.TestSettings{}, err
	}
	ts.Mode = mode

	if viper.IsSet("settings") {
		if err := viper.UnmarshalKey("settings", &ts); err != nil {
			return settings.TestSettings{}, errors.Wrap(err, "reading settings from config")
		}
	}

	if viper.IsSet("mode") {
		ts.Mode = mode
	}
	if viper.IsSet("min-duration") {
		ts.MinDuration = viper.GetDuration("min-duration")
	}
	if viper.IsSet("min-query-count") {
		ts.MinQueryCount = viper.GetInt("min-query-count")
	}
	if viper.IsSet("drain-timeout") {
		ts.DrainTimeout = viper.GetDuration("drain-timeout")
	}
	return ts, nil
}

// buildSUT returns the system under test and a function releasing it.
func buildSUT(logger *log.Entry) (sut.SystemUnderTest, func(), error) {
	noop := func() {}
	switch name := viper.GetString("sut"); name {
	case "null":
		return dummy.NullSUT{}, noop, nil
	case "async":
		return dummy.AsyncSUT{}, noop, nil
	case "pool":
		p := dummy.NewPoolSUT(viper.GetInt("workers"))
		return p, p.Close, nil
	case "delay":
		return dummy.NewDelaySUT(viper.GetDuration("delay")), noop, nil
	case "http":
		h, err := httpsut.New(httpsut.Config{
			URL:     viper.GetString("url"),
			Method:  viper.GetString("method"),
			Body:    viper.GetString("body"),
			Timeout: viper.GetDuration("timeout"),
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return h, h.Close, nil
	default:
		return nil, nil, errors.Errorf("unknown sut %q", name)
	}
}

func runTest(cmd *cobra.Command, args []string) error {
	ts, err := buildSettings()
	if err != nil {
		return err
	}

	if viper.GetBool("tui") && viper.GetBool("edit") {
		edited, ok, err := tui.Configure(ts)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		ts = edited
	}

	runID := uuid.NewString()
	logger := log.WithField("run_id", runID)

	s, release, err := buildSUT(logger)
	if err != nil {
		return err
	}
	defer release()
	lib := dummy.NewNullLibrary(viper.GetInt("total-samples"), viper.GetInt("perf-samples"))

	var recorder *metrics.Recorder
	if addr := viper.GetString("metrics-addr"); addr != "" {
		shutdown := metrics.Serve(addr)
		defer shutdown()
		recorder = metrics.NewRecorder(ts.Scenario)
	}

	updates := make(runner.StatsUpdateChan, 100)
	run := func(ctx context.Context) (*runner.Result, error) {
		return runner.New(s, lib, ts, runner.Options{
			RunID:   runID,
			Logger:  log.NewEntry(log.StandardLogger()),
			Updates: updates,
			Metrics: recorder,
		}).Run(ctx)
	}

	var res *runner.Result
	if viper.GetBool("tui") {
		res, err = tui.Run(tui.NewModel("benchq "+string(ts.Scenario)+" on "+s.Name(), cli.Goal(ts), updates, run))
	} else {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		res, err = cli.Start(ctx, os.Stdout, "benchq", ts, updates, run)
	}
	if err != nil {
		return err
	}
	if res == nil {
		return errors.New("run did not finish")
	}

	dir := viper.GetString("out-dir")
	if dir != "" {
		paths, err := report.Write(settings.OutputSettings{
			Dir:               dir,
			Prefix:            viper.GetString("prefix"),
			PerQueryLatencies: viper.GetBool("per-query-latencies"),
		}, res, nil)
		if err != nil {
			return err
		}
		logger.WithFields(log.Fields{
			"summary": paths.Summary,
			"detail":  paths.Detail,
		}).Info("Reports written")
	}

	if !viper.GetBool("no-history") {
		saveHistory(res, dir, logger)
	}

	if !res.Valid {
		return errInvalidRun
	}
	return nil
}

func saveHistory(res *runner.Result, dir string, logger *log.Entry) {
	store, err := openHistory()
	if err != nil {
		logger.WithError(err).Warn("Could not open run history")
		return
	}
	defer store.Close()
	if err := store.Save(storage.NewHistoryItem(res, dir)); err != nil {
		logger.WithError(err).Warn("Could not record run in history")
	}
}
