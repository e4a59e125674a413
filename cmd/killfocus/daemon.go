package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"killfocus/internal/config"
	"killfocus/internal/daemon"
	"killfocus/internal/reporter"
	"killfocus/internal/tracker"
	"killfocus/internal/web"
	"killfocus/pkg/detector"
)

const daemonChildEnv = "KILLFOCUS_DAEMON_CHILD"

func isDaemonChild() bool {
	return os.Getenv(daemonChildEnv) == "1"
}

func defaultLogFile() string {
	return fmt.Sprintf("/tmp/killfocus-%d.log", os.Getuid())
}

func NewTrackCmd() *cobra.Command {
	var foreground bool
	cmd := &cobra.Command{
		Use:   "track",
		Short: "Start the focus tracking daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return startDaemon(cmd, foreground, false, 0)
		},
	}
	cmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "run in the foreground instead of forking")
	return cmd
}

func NewServeCmd() *cobra.Command {
	var (
		foreground bool
		port       int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the tracking daemon with the web API",
		Long: `Start the tracking daemon with the web API.

Bind a hotkey to
  curl -X POST -H 'X-Killfocus-Trigger: 1' http://localhost:<port>/api/kill
to kill the foreground app through the daemon.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return startDaemon(cmd, foreground, true, port)
		},
	}
	cmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "run in the foreground instead of forking")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "web API port (overrides KILLFOCUS_WEB_PORT)")
	return cmd
}

func startDaemon(cmd *cobra.Command, foreground, withWeb bool, port int) error {
	cfg := getConfig(cmd)
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	if port > 0 {
		if err := cfg.SetWebPort(port); err != nil {
			return err
		}
	}

	dm := daemon.New(cfg.Daemon.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		return errors.Wrap(err, "failed to check daemon status")
	}
	if running {
		return errors.Errorf("daemon is already running (PID: %d)", pid)
	}

	if !foreground && !isDaemonChild() {
		return daemonize(cmd, cfg, withWeb)
	}

	return runDaemon(cmd.Context(), cfg, getLogger(cmd), dm, withWeb)
}

func runDaemon(ctx context.Context, cfg *config.Config, logger *zap.Logger, dm *daemon.Daemon, withWeb bool) error {
	svc, err := newServices(cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	logger.Info("Window detector initialized", zap.String("display_server", svc.detector.GetDisplayServer()))

	if err := dm.WritePID(); err != nil {
		return err
	}
	defer dm.RemovePID()

	trackerSvc := tracker.NewService(cfg, svc.repo, svc.detector, svc.metrics, logger)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var webServer *web.Server
	if withWeb {
		orch := svc.orchestrator()
		rep := reporter.New(cfg, svc.usageSource(), orch)
		handler := web.NewHandler(cfg, orch, svc.repo, rep, svc.metrics.Handler(), logger)
		webServer = web.NewServer(cfg, handler, 0, logger)

		go func() {
			if err := webServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Web server error", zap.Error(err))
				cancel()
			}
		}()
	}

	logger.Info("Starting killfocus daemon", zap.Bool("web", withWeb))
	logger.Debug("Configuration\n" + cfg.String())

	err = trackerSvc.Start(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Tracker error", zap.Error(err))
	}

	if webServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := webServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Error shutting down web server", zap.Error(err))
		}
	}

	logger.Info("Daemon stopped")
	return nil
}

// daemonize re-executes the binary in a new session with the child marker
// set and returns once the child has started.
func daemonize(cmd *cobra.Command, cfg *config.Config, withWeb bool) error {
	env := append(os.Environ(), daemonChildEnv+"=1")

	procAttr := &os.ProcAttr{
		Env:   env,
		Files: []*os.File{nil, nil, nil},
		Sys: &syscall.SysProcAttr{
			Setsid: true,
		},
	}

	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}

	process, err := os.StartProcess(exe, os.Args, procAttr)
	if err != nil {
		return errors.Wrap(err, "failed to start daemon process")
	}

	logFile := cfg.Logging.File
	if logFile == "" {
		logFile = defaultLogFile()
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Daemon started successfully (PID: %d)\n", process.Pid)
	if withWeb {
		fmt.Fprintf(out, "Web API available at: http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	}
	fmt.Fprintf(out, "Logs: %s\n", logFile)
	return process.Release()
}

func NewStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the tracking daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig(cmd)
			dm := daemon.New(cfg.Daemon.PIDFile)

			running, pid, err := dm.IsRunning()
			if err != nil {
				return errors.Wrap(err, "failed to check daemon status")
			}

			out := cmd.OutOrStdout()
			if !running {
				fmt.Fprintln(out, "Daemon is not running")
				return nil
			}

			fmt.Fprintf(out, "Stopping daemon (PID: %d)...\n", pid)
			if err := dm.Stop(); err != nil {
				return errors.Wrap(err, "failed to stop daemon")
			}

			fmt.Fprintln(out, "Daemon stopped successfully")
			return nil
		},
	}
}

func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and the current focused app",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig(cmd)
			dm := daemon.New(cfg.Daemon.PIDFile)
			out := cmd.OutOrStdout()

			running, pid, err := dm.IsRunning()
			if err != nil {
				return errors.Wrap(err, "failed to check daemon status")
			}

			if !running {
				fmt.Fprintln(out, "Status: Not running")
			} else {
				fmt.Fprintf(out, "Status: Running (PID: %d)\n", pid)
				fmt.Fprintf(out, "Poll Interval: %v\n", cfg.Tracker.PollInterval)
				fmt.Fprintf(out, "Web API: http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
			}
			fmt.Fprintf(out, "Kill Enabled: %v\n", cfg.Killer.Enabled)
			fmt.Fprintf(out, "Protected: %s, %s (fallback home)\n", cfg.Killer.SystemUIPackage, cfg.Killer.FallbackHomePackage)
			fmt.Fprintf(out, "Display Server: %s\n", detector.DetectDisplayServer())

			det, err := detector.New()
			if err != nil {
				fmt.Fprintf(out, "\nCould not detect current window: %v\n", err)
				return nil
			}
			defer det.Close()

			windowInfo, err := det.GetFocusedWindow()
			if err == nil && windowInfo != nil {
				fmt.Fprintf(out, "\nCurrent Window:\n")
				fmt.Fprintf(out, "  App: %s\n", windowInfo.AppName)
				fmt.Fprintf(out, "  Title: %s\n", windowInfo.WindowTitle)
				fmt.Fprintf(out, "  PID: %d\n", windowInfo.PID)
			}

			if home, err := det.DesktopWindowClass(); err == nil && home != "" {
				fmt.Fprintf(out, "  Desktop: %s\n", home)
			}
			return nil
		},
	}
}
