package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history [suite]",
	Short: "Show recorded runs",
	Long: `Show the runs recorded with --history, most recent first.

Examples:
  suitecast history --history runs.db
  suitecast history api --history runs.db --limit 5`,
	Args: cobra.MaximumNArgs(1),
	RunE: historyCommand,
}

var (
	historyDBFlag     string
	historyLimitFlag  int
	historyConfigFlag string
)

func init() {
	historyCmd.Flags().StringVar(&historyConfigFlag, "config", getEnvString("SUITECAST_CONFIG", ""), "Path to config file (env: SUITECAST_CONFIG)")
	historyCmd.Flags().StringVar(&historyDBFlag, "history", getEnvString("SUITECAST_HISTORY", ""), "SQLite file holding the runs (env: SUITECAST_HISTORY)")
	historyCmd.Flags().IntVarP(&historyLimitFlag, "limit", "n", getEnvInt("SUITECAST_HISTORY_LIMIT", 20), "Number of runs to show, 0 for all (env: SUITECAST_HISTORY_LIMIT)")
}

func historyCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(historyConfigFlag, nil)
	if err != nil {
		return err
	}
	path := cfg.History
	if historyDBFlag != "" {
		path = historyDBFlag
	}
	if path == "" {
		return exitWith(ExitUsageError, fmt.Errorf("no history database configured (use --history)"))
	}

	store, err := openHistory(path)
	if err != nil {
		return err
	}
	defer store.Close()

	suiteName := ""
	if len(args) == 1 {
		suiteName = args[0]
	}

	runs, err := store.List(commandContext(cmd), suiteName, historyLimitFlag)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tSUITE\tPASSED\tBUILD\tDURATION")
	for _, run := range runs {
		build := green("OK")
		if !run.BuildOK {
			build = red("KO")
		}
		fmt.Fprintf(tw, "%s\t%s\t%d/%d (%d%%)\t%s\t%s\n",
			run.StartedAt.Local().Format(time.DateTime),
			run.Suite,
			run.Passed, run.Total, run.Percentage,
			build,
			run.Duration.Round(time.Millisecond))
	}
	return tw.Flush()
}
