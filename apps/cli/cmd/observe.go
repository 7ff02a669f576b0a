package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/abdul-hamid-achik/suitecast/packages/core/config"
	"github.com/abdul-hamid-achik/suitecast/packages/event"
	"github.com/abdul-hamid-achik/suitecast/packages/logx"
	"github.com/abdul-hamid-achik/suitecast/packages/output"
	"github.com/abdul-hamid-achik/suitecast/packages/transport/ws"
	"github.com/spf13/cobra"
)

var observeCmd = &cobra.Command{
	Use:   "observe <ws-url>",
	Short: "Start a run on a suitecast server and render it locally",
	Long: `Connect to a server started with 'suitecast serve', start a run and
print its results the same way 'suitecast run' prints them on a terminal.

The exit code follows the remote build: 0 when OK, 1 when KO.

Examples:
  suitecast observe ws://127.0.0.1:8765/ws
  suitecast observe ws://ci.internal:8765/ws --token secret -vv`,
	Args: cobra.ExactArgs(1),
	RunE: observeCommand,
}

var (
	observeTokenFlag   string
	observeVerboseFlag int
	observeNoColorFlag bool
	observeConfigFlag  string
)

func init() {
	observeCmd.Flags().StringVar(&observeConfigFlag, "config", getEnvString("SUITECAST_CONFIG", ""), "Path to config file for local templates and colors (env: SUITECAST_CONFIG)")
	observeCmd.Flags().StringVar(&observeTokenFlag, "token", getEnvString("SUITECAST_TOKEN", ""), "Bearer token for the server (env: SUITECAST_TOKEN)")
	observeCmd.Flags().CountVarP(&observeVerboseFlag, "verbose", "v", "Requested verbosity (-v, -vv); the server default applies when omitted")
	observeCmd.Flags().BoolVar(&observeNoColorFlag, "no-color", getEnvBool("SUITECAST_NO_COLOR", false), "Disable colored output (env: SUITECAST_NO_COLOR)")
}

// envelopeSource yields raw envelopes until the run ends
type envelopeSource interface {
	Next() ([]byte, error)
}

func observeCommand(cmd *cobra.Command, args []string) error {
	flags := &config.Config{}
	if observeNoColorFlag {
		flags.NoColor = config.BoolPtr(true)
	}
	cfg, err := loadSettings(observeConfigFlag, flags)
	if err != nil {
		return err
	}

	formatter, err := output.NewFormatter(cfg.Table())
	if err == nil {
		err = formatter.Validate()
	}
	if err != nil {
		return exitWith(ExitConfigError, err)
	}

	verbosity := -1
	if cmd.Flags().Changed("verbose") {
		verbosity = observeVerboseFlag
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	in, err := ws.Dial(ctx, args[0], observeTokenFlag, verbosity)
	if err != nil {
		return exitWith(ExitNetworkError, err)
	}
	defer in.Close()

	go func() {
		<-ctx.Done()
		_ = in.Close()
	}()

	out := cmd.OutOrStdout()
	buildOK, err := renderEnvelopes(in, formatter, out, colorCapable(out, cfg.GetNoColor()))
	if err != nil && ctx.Err() != nil {
		return exitWith(ExitTestFailure, errors.New("interrupted"))
	}
	return observeResult(buildOK, err)
}

// observeResult maps the outcome of a remote run to the exit the local
// command reports
func observeResult(buildOK bool, err error) error {
	var aborted *ws.AbortedError
	switch {
	case errors.As(err, &aborted):
		return exitWith(ExitTestFailure, err)
	case err != nil:
		return exitWith(ExitNetworkError, err)
	case !buildOK:
		return exitWith(ExitTestFailure, nil)
	}
	return nil
}

// renderEnvelopes prints every envelope from src until the server closes the
// run. It reports whether at least one build signal arrived and all of them
// were OK.
func renderEnvelopes(src envelopeSource, f *output.Formatter, w io.Writer, color bool) (bool, error) {
	log := logx.WithComponent("observe")
	buildOK := false
	seen := false

	for {
		data, err := src.Next()
		if errors.Is(err, ws.ErrClosed) {
			return buildOK, nil
		}
		if err != nil {
			return false, err
		}

		ev, err := output.Decode(data)
		if err != nil {
			log.WithError(err).Warn("skipping message")
			continue
		}
		if b, ok := ev.(event.BuildResult); ok {
			buildOK = b.OK && (buildOK || !seen)
			seen = true
		}

		text, err := f.Text(ev, color)
		if err != nil {
			log.WithError(err).Warn("cannot render message")
			continue
		}
		if _, err := fmt.Fprintln(w, text); err != nil {
			return false, err
		}
	}
}
