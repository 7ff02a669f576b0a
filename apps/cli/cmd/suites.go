package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/abdul-hamid-achik/suitecast/packages/core/config"
	"github.com/abdul-hamid-achik/suitecast/packages/core/env"
	"github.com/abdul-hamid-achik/suitecast/packages/core/runner"
	"github.com/abdul-hamid-achik/suitecast/packages/core/suite"
	"github.com/abdul-hamid-achik/suitecast/packages/history"
	"github.com/abdul-hamid-achik/suitecast/packages/logx"
	"github.com/abdul-hamid-achik/suitecast/packages/notify"
	"github.com/abdul-hamid-achik/suitecast/packages/report"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// suiteExecutor runs suite files against a reporter and takes care of the
// bookkeeping shared by run and serve: history and notifications.
type suiteExecutor struct {
	runner   *runner.Runner
	history  *history.Store
	notifier *notify.Manager
}

// execute runs every file in order. It reports whether every build was OK.
func (e *suiteExecutor) execute(ctx context.Context, files []string, rep report.Reporter) (bool, error) {
	allOK := true

	for _, file := range files {
		s, err := suite.ParseFile(file)
		if err != nil {
			return false, exitWith(ExitParseError, err)
		}

		started := time.Now()
		summary, err := e.runner.Run(ctx, s, rep)
		if err != nil {
			return false, err
		}
		if !summary.BuildOK() {
			allOK = false
		}

		e.record(ctx, summary, started)
		e.notify(summary)
	}

	return allOK, nil
}

func (e *suiteExecutor) record(ctx context.Context, summary *runner.Summary, started time.Time) {
	if e.history == nil {
		return
	}
	pct, _ := summary.Percentage()
	run := &history.Run{
		Suite:      summary.Suite,
		Total:      summary.Total,
		Passed:     summary.Passed,
		Percentage: pct,
		BuildOK:    summary.BuildOK(),
		Duration:   summary.Duration,
		StartedAt:  started,
	}
	if err := e.history.Record(ctx, run); err != nil {
		logx.WithComponent("history").WithError(err).Warn("run not recorded")
	}
}

func (e *suiteExecutor) notify(summary *runner.Summary) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(toNotifySummary(summary)); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to send notification: %v\n", err)
	}
}

func toNotifySummary(s *runner.Summary) *notify.RunSummary {
	pct, _ := s.Percentage()
	out := &notify.RunSummary{
		Suite:       s.Suite,
		TotalTests:  s.Total,
		PassedTests: s.Passed,
		DirtyTests:  s.Dirty,
		Percentage:  pct,
		BuildOK:     s.BuildOK(),
		Duration:    s.Duration,
		P95:         s.P95,
	}
	for _, set := range s.Sets {
		if set.Passed < set.Total {
			out.FailedSets = append(out.FailedSets, notify.FailedSet{
				Name:   set.Name,
				Total:  set.Total,
				Passed: set.Passed,
			})
		}
	}
	return out
}

// openHistory opens the run history store, or returns nil when none is configured
func openHistory(path string) (*history.Store, error) {
	if path == "" {
		return nil, nil
	}
	store, err := history.Open(path)
	if err != nil {
		return nil, exitWith(ExitConfigError, err)
	}
	return store, nil
}

// newNotifyManager builds the notification manager from cfg, or returns nil
// when no service is enabled. The last build state is seeded from the most
// recent recorded run so recovery notifications survive restarts.
func newNotifyManager(ctx context.Context, cfg *config.Config, service string, store *history.Store) (*notify.Manager, error) {
	if service == "" {
		return nil, nil
	}

	notifyOn, err := notify.ParseNotifyOn(cfg.Notify.On)
	if err != nil {
		return nil, exitWith(ExitUsageError, err)
	}

	var notifiers []notify.Notifier
	switch service {
	case "slack":
		if cfg.Notify.SlackWebhook == "" {
			return nil, exitWith(ExitUsageError, fmt.Errorf("--slack-webhook is required when using --notify slack"))
		}
		var slackOpts []notify.SlackOption
		if cfg.Notify.SlackChannel != "" {
			slackOpts = append(slackOpts, notify.WithSlackChannel(cfg.Notify.SlackChannel))
		}
		notifiers = append(notifiers, notify.NewSlackNotifier(cfg.Notify.SlackWebhook, slackOpts...))
	default:
		return nil, exitWith(ExitUsageError, fmt.Errorf("unknown notification service %q (use slack)", service))
	}

	m := notify.NewManager(notifyOn, notifiers...)
	if store != nil {
		last, err := store.Last(ctx, "")
		if err != nil {
			logx.WithComponent("history").WithError(err).Warn("cannot read last run")
		} else if last != nil {
			m.SetLastState(last.BuildOK)
		}
	}
	return m, nil
}

// colorCapable reports whether w is a terminal that should get color
func colorCapable(w any, noColor bool) bool {
	if noColor {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// loadSettings reads the config file and lays the flag values on top
func loadSettings(path string, flags *config.Config) (*config.Config, error) {
	fileConfig, err := config.LoadConfig(path)
	if err != nil {
		return nil, exitWith(ExitConfigError, fmt.Errorf("loading config: %w", err))
	}
	return fileConfig.Merge(flags), nil
}

// testEnv collects the variables passed to every test command: the env file
// first, then the config's env map, whose values may reference the former.
func testEnv(cfg *config.Config) (map[string]string, error) {
	var fileVars map[string]string
	if cfg.EnvFile != "" {
		vars, err := env.Load(cfg.EnvFile)
		if err != nil {
			return nil, exitWith(ExitConfigError, err)
		}
		fileVars = vars
	}

	configVars := make(map[string]string, len(cfg.Env))
	for k, v := range cfg.Env {
		configVars[k] = env.Expand(v, fileVars)
	}
	return env.Merge(fileVars, configVars), nil
}

// commandContext returns the command's context, or a background context when
// the command runs outside Execute
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
