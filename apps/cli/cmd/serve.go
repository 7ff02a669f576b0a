package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/suitecast/packages/core/config"
	"github.com/abdul-hamid-achik/suitecast/packages/core/runner"
	"github.com/abdul-hamid-achik/suitecast/packages/core/suite"
	"github.com/abdul-hamid-achik/suitecast/packages/history"
	"github.com/abdul-hamid-achik/suitecast/packages/logx"
	"github.com/abdul-hamid-achik/suitecast/packages/output"
	"github.com/abdul-hamid-achik/suitecast/packages/report"
	"github.com/abdul-hamid-achik/suitecast/packages/transport/ws"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve <file|directory>",
	Short: "Run suites for remote observers over a websocket",
	Long: `Listen for observers on a websocket endpoint. Every observer that
connects gets a fresh run of the given suite files, streamed to it as JSON
envelopes at the verbosity it asked for.

Endpoints:
  /ws?verbosity=N   start a run (verbosity defaults to the -v count)
  /healthz          liveness probe

Examples:
  suitecast serve ./suites/
  suitecast serve ./suites/ --addr 0.0.0.0:8765 --token secret -v
  suitecast observe ws://127.0.0.1:8765/ws -vv`,
	Args: cobra.MinimumNArgs(1),
	RunE: serveCommand,
}

const shutdownTimeout = 10 * time.Second

var (
	serveAddrFlag      string
	serveTokenFlag     string
	serveOriginsFlag   []string
	serveVerboseFlag   int
	serveConfigFlag    string
	serveRateFlag      float64
	serveHistoryFlag   string
	serveEnvFileFlag   string
	serveQueueSizeFlag int
)

func init() {
	serveCmd.Flags().StringVar(&serveConfigFlag, "config", getEnvString("SUITECAST_CONFIG", ""), "Path to config file (env: SUITECAST_CONFIG)")
	serveCmd.Flags().StringVar(&serveAddrFlag, "addr", getEnvString("SUITECAST_ADDR", ""), "Listen address (default 127.0.0.1:8765) (env: SUITECAST_ADDR)")
	serveCmd.Flags().StringVar(&serveTokenFlag, "token", getEnvString("SUITECAST_TOKEN", ""), "Bearer token observers must present (env: SUITECAST_TOKEN)")
	serveCmd.Flags().StringSliceVar(&serveOriginsFlag, "allowed-origins", nil, "Browser origins allowed to connect")
	serveCmd.Flags().CountVarP(&serveVerboseFlag, "verbose", "v", "Default verbosity for observers that do not ask for one")
	serveCmd.Flags().Float64VarP(&serveRateFlag, "rate", "r", getEnvFloat("SUITECAST_RATE", 0), "Maximum tests started per second, 0 for no limit (env: SUITECAST_RATE)")
	serveCmd.Flags().StringVar(&serveEnvFileFlag, "env-file", getEnvString("SUITECAST_ENV_FILE", ""), "Dotenv file whose variables are passed to every test (env: SUITECAST_ENV_FILE)")
	serveCmd.Flags().StringVar(&serveHistoryFlag, "history", getEnvString("SUITECAST_HISTORY", ""), "SQLite file recording every run (env: SUITECAST_HISTORY)")
	serveCmd.Flags().IntVar(&serveQueueSizeFlag, "queue-size", getEnvInt("SUITECAST_QUEUE_SIZE", ws.DefaultQueueSize), "Messages buffered per observer (env: SUITECAST_QUEUE_SIZE)")
}

func serveCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(serveConfigFlag, &config.Config{
		Verbosity: serveVerboseFlag,
		Rate:      serveRateFlag,
		History:   serveHistoryFlag,
		EnvFile:   serveEnvFileFlag,
		Server: config.ServerConfig{
			Addr:           serveAddrFlag,
			Token:          serveTokenFlag,
			AllowedOrigins: serveOriginsFlag,
		},
	})
	if err != nil {
		return err
	}

	logx.Configure(cmd.ErrOrStderr(), cfg.Verbosity >= 3)
	log := logx.WithComponent("serve")

	files, err := suite.CollectFiles(args)
	if err != nil {
		return exitWith(ExitUsageError, err)
	}
	if len(files) == 0 {
		return exitWith(ExitUsageError, fmt.Errorf("no .suite.yaml files found"))
	}

	table := cfg.Table()
	// Catch template problems before anyone connects
	formatter, err := output.NewFormatter(table)
	if err == nil {
		err = formatter.Validate()
	}
	if err != nil {
		return exitWith(ExitConfigError, err)
	}

	store, err := openHistory(cfg.History)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	vars, err := testEnv(cfg)
	if err != nil {
		return err
	}

	handler := newSessionHandler(files, table, &runner.Config{Rate: cfg.Rate, Env: vars}, store)
	server := ws.NewServer(handler,
		ws.WithAuthToken(cfg.Server.Token),
		ws.WithAllowedOrigins(cfg.Server.AllowedOrigins),
		ws.WithDefaultVerbosity(cfg.Verbosity),
		ws.WithQueueSize(serveQueueSizeFlag),
	)

	mux := http.NewServeMux()
	server.SetupRoutes(mux)

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return exitWith(ExitNetworkError, fmt.Errorf("listen %s: %w", cfg.Server.Addr, err))
	}

	httpServer := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()

	fmt.Fprintf(cmd.ErrOrStderr(), "Serving %d suite file(s) on ws://%s/ws\n", len(files), ln.Addr())
	if cfg.Server.Token == "" {
		log.Warn("no token configured, any client that can reach the address may start runs")
	}

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return exitWith(ExitNetworkError, err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("shutdown did not complete")
	}

	// Hijacked websocket connections are not tracked by http.Server
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("sessions still running, waiting for them")
		server.Wait()
	}
	return nil
}

// newSessionHandler runs every suite file for one observer through a
// stream reporter that owns the session channel. A run that cannot finish
// aborts the channel so the observer does not mistake it for a clean build.
func newSessionHandler(files []string, table config.Table, runnerConfig *runner.Config, store *history.Store) ws.SessionHandler {
	return func(ctx context.Context, s *ws.Session) {
		log := logx.WithComponent("serve").WithField("session", s.ID)

		rep, err := report.New(report.ModeStream, report.Options{
			Verbosity: report.Verbosity(s.Verbosity),
			Table:     table,
			Channel:   s.Channel,
		})
		if err != nil {
			log.WithError(err).Error("cannot build reporter")
			_ = s.Channel.Abort(err.Error())
			return
		}

		// NewRunner writes defaults into the config it gets
		rc := *runnerConfig
		exec := &suiteExecutor{
			runner:  runner.NewRunner(&rc),
			history: store,
		}
		ok, err := exec.execute(ctx, files, rep)
		if err != nil {
			log.WithError(err).Warn("run aborted")
			if cerr := s.Channel.Abort(err.Error()); cerr != nil {
				log.WithError(cerr).Debug("observer left before the abort was sent")
			}
			return
		}
		log.WithField("build_ok", ok).Info("run finished")
	}
}
