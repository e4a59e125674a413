package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"killfocus/internal/config"
	"killfocus/internal/logging"
)

type globalOptions struct {
	LogLevel string
	Dev      bool
}

type ctxKey int

const (
	configKey ctxKey = iota
	loggerKey
)

func NewRootCmd() *cobra.Command {
	options := globalOptions{}
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Kill the app you were just using",
		Long: `killfocus kills the most recently foregrounded desktop app.

The tracker daemon records which app holds focus. A kill invocation picks
the app that was last brought to the foreground, refuses when it is the
shell or the desktop, stops its processes and closes its windows.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}
			if options.LogLevel != "" {
				cfg.Logging.Level = options.LogLevel
			}
			if options.Dev {
				cfg.Logging.Development = true
			}
			if isDaemonChild() && cfg.Logging.File == "" {
				cfg.Logging.File = defaultLogFile()
			}

			logCfg := logging.DefaultConfig()
			logCfg.Level = cfg.Logging.Level
			logCfg.Development = cfg.Logging.Development
			if cfg.Logging.File != "" {
				logCfg.OutputPaths = []string{cfg.Logging.File}
			}
			logger, err := logging.New(logCfg)
			if err != nil {
				return errors.Wrap(err, "failed to create logger")
			}

			ctx := context.WithValue(cmd.Context(), configKey, cfg)
			ctx = context.WithValue(ctx, loggerKey, logger)
			cmd.SetContext(ctx)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = getLogger(cmd).Sync()
		},
	}

	cmd.PersistentFlags().StringVar(&options.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&options.Dev, "dev", false, "human-readable development logging")

	cmd.AddCommand(
		NewTrackCmd(),
		NewServeCmd(),
		NewStopCmd(),
		NewStatusCmd(),
		NewKillCmd(),
		NewUsageCmd(),
		NewClearCmd(),
		NewVersionCmd(),
	)

	return cmd
}

func getConfig(cmd *cobra.Command) *config.Config {
	if cmd.Context() != nil {
		if cfg, ok := cmd.Context().Value(configKey).(*config.Config); ok {
			return cfg
		}
	}
	return config.NewOrDefault()
}

func getLogger(cmd *cobra.Command) *zap.Logger {
	if cmd.Context() != nil {
		if logger, ok := cmd.Context().Value(loggerKey).(*zap.Logger); ok {
			return logger
		}
	}
	return logging.NewDefault()
}

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s version %s\n", appName, version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", date)
		},
	}
}
