package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"killfocus/internal/database"
	"killfocus/internal/killer"
	"killfocus/internal/reporter"
	"killfocus/pkg/desktop"
	"killfocus/pkg/detector"
	"killfocus/pkg/integrations/x11"
)

func NewKillCmd() *cobra.Command {
	var (
		dryRun     bool
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "kill",
		Short: "Kill the most recently foregrounded app",
		Long: `Kill the most recently foregrounded app.

The target is the app whose last recorded event inside the usage window is
a foreground event with the latest timestamp. The shell and the desktop are
never killed. With --dry-run only the decision is printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig(cmd)
			svc, err := newServices(cfg, getLogger(cmd))
			if err != nil {
				return err
			}
			defer svc.Close()

			orch := svc.orchestrator()
			out := cmd.OutOrStdout()

			if dryRun {
				decision, err := orch.Decide(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return json.NewEncoder(out).Encode(decision)
				}
				fmt.Fprintln(out, describeDecision(decision))
				return nil
			}

			outcome := orch.Run(cmd.Context())
			if jsonOutput {
				if err := json.NewEncoder(out).Encode(outcome); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(out, describeOutcome(outcome))
			}

			return outcomeExit(outcome)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the target without killing anything")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the result as JSON")
	return cmd
}

// outcomeExit fails the command without an error message when the kill
// was refused or a collaborator failed. The logger already has the cause.
func outcomeExit(o killer.Outcome) error {
	switch o.Reason {
	case killer.ReasonPermissionDenied, killer.ReasonLockTaskActive, killer.ReasonRemoteFailure:
		return exitCode(1)
	}
	return nil
}

func describeDecision(d killer.KillDecision) string {
	switch {
	case d.HasTarget():
		return fmt.Sprintf("Would kill: %s", d.TargetPackageID)
	case d.Reason == killer.ReasonProtected:
		return fmt.Sprintf("Would kill: nothing (%s is protected)", d.DisplayName)
	default:
		return "Would kill: nothing (no foreground app in the usage window)"
	}
}

func describeOutcome(o killer.Outcome) string {
	if o.Killed {
		msg := fmt.Sprintf("Killed %s (%s)", o.DisplayName, o.PackageID)
		if len(o.RemovedTasks) > 0 {
			msg += fmt.Sprintf(", closed %d window(s)", len(o.RemovedTasks))
		}
		return msg
	}
	return fmt.Sprintf("Nothing killed: %s", o.Reason)
}

func NewUsageCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show recent app usage and the next kill target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig(cmd)
			logger := getLogger(cmd)

			db, repo, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			home := desktop.HomeChain{desktop.NewEnvHome()}
			if det, err := detector.New(); err == nil {
				defer det.Close()
				home = desktop.HomeChain{x11.NewHomeResolver(det), desktop.NewEnvHome()}
			} else {
				logger.Debug("Window detector unavailable, resolving home from the environment", zap.Error(err))
			}

			usage := database.NewUsageSource(repo)
			protection := killer.NewOrchestrator(killer.Options{
				SystemUIPackage:     cfg.Killer.SystemUIPackage,
				FallbackHomePackage: cfg.Killer.FallbackHomePackage,
			}, killer.Deps{Usage: usage, Home: home}, logger)

			rep := reporter.New(cfg, usage, protection)
			view, err := rep.GenerateUsage(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput {
				jsonStr, err := rep.FormatUsageJSON(view)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), jsonStr)
				return nil
			}

			rep.WriteUsageText(cmd.OutOrStdout(), view)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the usage view as JSON")
	return cmd
}

func NewClearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear all focus history from the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if !yes {
				fmt.Fprint(out, "This will delete all focus history. Are you sure? (yes/no): ")
				response, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				response = strings.ToLower(strings.TrimSpace(response))
				if response != "yes" && response != "y" {
					fmt.Fprintln(out, "Operation cancelled")
					return nil
				}
			}

			db, repo, err := openDatabase(getConfig(cmd))
			if err != nil {
				return err
			}
			defer db.Close()

			if err := repo.Clear(); err != nil {
				return errors.Wrap(err, "failed to clear database")
			}

			fmt.Fprintln(out, "Database cleared successfully")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
