package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/suitecast/packages/core/config"
	"github.com/abdul-hamid-achik/suitecast/packages/core/runner"
	"github.com/abdul-hamid-achik/suitecast/packages/core/suite"
	"github.com/abdul-hamid-achik/suitecast/packages/logx"
	"github.com/abdul-hamid-achik/suitecast/packages/report"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <file|directory>",
	Short: "Run suite files and report the results",
	Long: `Run the test sets defined in .suite.yaml files.

Verbosity:
  (none)  intro and total result only
  -v      adds one line per test set
  -vv     adds one line per test
  -vvv    also logs diagnostics to stderr

Examples:
  suitecast run api.suite.yaml
  suitecast run ./suites/ -vv
  suitecast run ./suites/ --output stream > results.jsonl
  suitecast run ./suites/ --watch
  suitecast run ./suites/ --history runs.db --notify slack --slack-webhook $SLACK_WEBHOOK`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	verboseFlag      int // 0=totals, 1=-v sets, 2=-vv tests, 3=-vvv diagnostics
	noColorFlag      bool
	outputFlag       string
	configFlag       string
	rateFlag         float64
	historyFlag      string
	envFileFlag      string
	watchFlag        bool
	notifyFlag       string
	notifyOnFlag     string
	slackWebhookFlag string
	slackChannelFlag string
)

func init() {
	runCmd.Flags().StringVar(&configFlag, "config", getEnvString("SUITECAST_CONFIG", ""), "Path to config file (env: SUITECAST_CONFIG)")

	// Output flags
	runCmd.Flags().CountVarP(&verboseFlag, "verbose", "v", "Verbose output (-v, -vv, -vvv for more detail)")
	runCmd.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("SUITECAST_NO_COLOR", false), "Disable colored output (env: SUITECAST_NO_COLOR)")
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("SUITECAST_OUTPUT", ""), "Output mode: terminal, stream (env: SUITECAST_OUTPUT)")

	// Execution flags
	runCmd.Flags().Float64VarP(&rateFlag, "rate", "r", getEnvFloat("SUITECAST_RATE", 0), "Maximum tests started per second, 0 for no limit (env: SUITECAST_RATE)")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch suite files for changes and re-run them")
	runCmd.Flags().StringVar(&envFileFlag, "env-file", getEnvString("SUITECAST_ENV_FILE", ""), "Dotenv file whose variables are passed to every test (env: SUITECAST_ENV_FILE)")
	runCmd.Flags().StringVar(&historyFlag, "history", getEnvString("SUITECAST_HISTORY", ""), "SQLite file recording every run (env: SUITECAST_HISTORY)")

	// Notification flags
	runCmd.Flags().StringVar(&notifyFlag, "notify", getEnvString("SUITECAST_NOTIFY", ""), "Notification service: slack (env: SUITECAST_NOTIFY)")
	runCmd.Flags().StringVar(&notifyOnFlag, "notify-on", getEnvString("SUITECAST_NOTIFY_ON", ""), "When to notify: always, failure, success, recovery (env: SUITECAST_NOTIFY_ON)")
	runCmd.Flags().StringVar(&slackWebhookFlag, "slack-webhook", getEnvString("SLACK_WEBHOOK", ""), "Slack webhook URL (env: SLACK_WEBHOOK)")
	runCmd.Flags().StringVar(&slackChannelFlag, "slack-channel", getEnvString("SLACK_CHANNEL", ""), "Slack channel override (env: SLACK_CHANNEL)")
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// runFlagConfig collects the run flags into a config layer
func runFlagConfig() *config.Config {
	flags := &config.Config{
		Verbosity: verboseFlag,
		Output:    outputFlag,
		Rate:      rateFlag,
		History:   historyFlag,
		EnvFile:   envFileFlag,
		Notify: config.NotifyConfig{
			On:           notifyOnFlag,
			SlackWebhook: slackWebhookFlag,
			SlackChannel: slackChannelFlag,
		},
	}
	if noColorFlag {
		flags.NoColor = config.BoolPtr(true)
	}
	return flags
}

func runCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(configFlag, runFlagConfig())
	if err != nil {
		return err
	}

	logx.Configure(cmd.ErrOrStderr(), cfg.Verbosity >= 3)

	mode, err := report.ParseMode(cfg.Output)
	if err != nil {
		return exitWith(ExitUsageError, err)
	}

	files, err := suite.CollectFiles(args)
	if err != nil {
		return exitWith(ExitUsageError, err)
	}
	if len(files) == 0 {
		return exitWith(ExitUsageError, fmt.Errorf("no .suite.yaml files found"))
	}

	out := cmd.OutOrStdout()
	opts := report.Options{
		Verbosity:    report.Verbosity(cfg.Verbosity),
		Table:        cfg.Table(),
		ColorCapable: colorCapable(out, cfg.GetNoColor()),
		Writer:       out,
	}
	if mode == report.ModeStream {
		opts.Channel = report.NewWriterChannel(out)
	}

	rep, err := report.New(mode, opts)
	if err != nil {
		return exitWith(ExitConfigError, err)
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openHistory(cfg.History)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	notifier, err := newNotifyManager(ctx, cfg, strings.ToLower(strings.TrimSpace(notifyFlag)), store)
	if err != nil {
		return err
	}

	vars, err := testEnv(cfg)
	if err != nil {
		return err
	}

	exec := &suiteExecutor{
		runner:   runner.NewRunner(&runner.Config{Rate: cfg.Rate, Env: vars}),
		history:  store,
		notifier: notifier,
	}

	ok, err := exec.execute(ctx, files, rep)
	if err != nil {
		return err
	}

	if !watchFlag {
		if !ok {
			return exitWith(ExitTestFailure, nil)
		}
		return nil
	}

	return watchAndRerun(ctx, cmd, args, files, func() {
		current, err := suite.CollectFiles(args)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			return
		}
		if _, err := exec.execute(ctx, current, rep); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
	})
}

// watchAndRerun calls rerun whenever one of the suite files changes, until
// ctx is done. Reruns happen on this goroutine so a reporter never sees two
// runs at once.
func watchAndRerun(ctx context.Context, cmd *cobra.Command, args, files []string, rerun func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	log := logx.WithComponent("watch")

	// Add files and directories to watch
	watchedDirs := make(map[string]bool)
	for _, file := range files {
		dir := filepath.Dir(file)
		if !watchedDirs[dir] {
			if err := watcher.Add(dir); err != nil {
				log.WithError(err).WithField("dir", dir).Warn("cannot watch directory")
			}
			watchedDirs[dir] = true
		}
	}

	// Also watch the original args if they're directories
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err == nil && info.IsDir() {
			_ = filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if info.IsDir() && !watchedDirs[path] {
					_ = watcher.Add(path)
					watchedDirs[path] = true
				}
				return nil
			})
		}
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "\nWatching for changes... (press Ctrl+C to stop)\n\n")

	var debounce <-chan time.Time
	var changed string

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Only react to writes and creates of suite files
			if (ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) && suite.IsSuiteFile(ev.Name) {
				changed = ev.Name
				debounce = time.After(WatchDebounceDelay)
			}

		case <-debounce:
			debounce = nil
			fmt.Fprintf(cmd.ErrOrStderr(), "\nFile changed: %s\nRe-running suites...\n\n", changed)
			rerun()
			fmt.Fprintf(cmd.ErrOrStderr(), "\nWatching for changes... (press Ctrl+C to stop)\n")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("watcher error")
		}
	}
}
