package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/localdeck/localdeck/internal/git"
	"github.com/localdeck/localdeck/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show deploy history",
	Long: `Show the recorded deploy runs of the active project, newest first.

Failed runs are recorded too, so the history is a reliable audit
trail of every attempt.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var (
	historyLimitFlag int
	historyJSONFlag  bool
)

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimitFlag, "limit", "n", 20, "number of runs to show")
	historyCmd.Flags().BoolVar(&historyJSONFlag, "json", false, "output in JSON format")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ws := activeWorkspace(cfg)
	project, err := requireProject(ws)
	if err != nil {
		return err
	}

	runs, err := newLedger(ws).List(historyLimitFlag)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	if len(runs) == 0 {
		fmt.Printf("No deploys recorded for %q.\n", project.Name)
		return nil
	}

	if historyJSONFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	succeeded, failed := 0, 0
	for _, r := range runs {
		if r.Success {
			succeeded++
		} else {
			failed++
		}
	}

	fmt.Printf("Deploy history for %s (%d succeeded, %d failed):\n\n", project.Name, succeeded, failed)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tWHEN\tRESULT\tDURATION\tBACKEND\tFRONTEND\tFLAGS")
	for _, r := range runs {
		result := "ok"
		if !r.Success {
			result = "failed"
		}
		flags := "-"
		if len(r.Flags) > 0 {
			flags = strings.Join(r.Flags, " ")
		}
		fmt.Fprintf(w, "  #%d\t%s\t%s\t%.1fs\t%s\t%s\t%s\n",
			r.ID,
			r.Timestamp.Format("2006-01-02 15:04"),
			result,
			r.DurationSeconds,
			git.ShortSHA(r.Backend.After),
			git.ShortSHA(r.Frontend.After),
			flags)
	}
	w.Flush()

	for _, r := range runs {
		if r.Error != "" {
			fmt.Printf("\n#%d error: %s\n", r.ID, r.Error)
		}
	}

	return nil
}

// lastRunSummary formats the most recent run for status-like output.
func lastRunSummary(ledger *history.Ledger) string {
	run, err := ledger.Last()
	if err != nil {
		return ""
	}
	result := "ok"
	if !run.Success {
		result = "failed"
	}
	return fmt.Sprintf("#%d %s (%s)", run.ID, result, run.Timestamp.Format("2006-01-02 15:04"))
}
