package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"benchq/internal/storage"
	"benchq/internal/tui"
	"benchq/internal/tui/styles"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List stored runs, or show one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		if len(args) == 1 {
			item, err := store.Get(args[0])
			if err != nil {
				return err
			}
			printHistoryItem(*item)
			return nil
		}

		items, err := store.List()
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println(styles.Subtle.Render("No runs stored in " + store.Path()))
			return nil
		}

		if interactive, _ := cmd.Flags().GetBool("tui"); interactive {
			picked, err := tui.BrowseHistory(items)
			if err != nil || picked == nil {
				return err
			}
			printHistoryItem(*picked)
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tRUN\tSUT\tSCENARIO\tQUERIES/S\tP99\tRESULT")
		for _, item := range items {
			verdict := "VALID"
			if !item.Summary.Valid {
				verdict = "INVALID"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.1f\t%s\t%s\n",
				item.Timestamp.Format(time.RFC3339), item.ID, item.SUT, item.Settings.Scenario,
				item.Summary.QPS, item.Summary.P99Latency, verdict)
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().Bool("tui", false, "Browse runs interactively")
}

func openHistory() (*storage.Store, error) {
	path := viper.GetString("history-db")
	if path == "" {
		var err error
		if path, err = storage.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return storage.Open(path)
}

func printHistoryItem(item storage.HistoryItem) {
	fmt.Printf("Run        : %s\n", item.ID)
	fmt.Printf("Time       : %s\n", item.Timestamp.Format(time.RFC3339))
	fmt.Printf("SUT / QSL  : %s / %s\n", item.SUT, item.QSL)
	fmt.Printf("Scenario   : %s (%s)\n", item.Settings.Scenario, item.Settings.Mode)
	fmt.Printf("Result     : %s\n", styles.Verdict(item.Summary.Valid))
	for _, r := range item.Summary.Reasons {
		fmt.Printf("   - %s\n", r)
	}
	fmt.Printf("Duration   : %s\n", item.Summary.Duration)
	fmt.Printf("Queries    : %d (%.2f/s)\n", item.Summary.Queries, item.Summary.QPS)
	fmt.Printf("Samples    : %d completed\n", item.Summary.CompletedSamples)
	fmt.Printf("Latency    : mean %s, p99 %s\n", item.Summary.MeanLatency, item.Summary.P99Latency)
	if item.ReportDir != "" {
		fmt.Printf("Reports    : %s\n", item.ReportDir)
	}
}
