package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Akanyi/AkayiRawjsonweb/internal/history"
	"github.com/Akanyi/AkayiRawjsonweb/internal/metrics"
	"github.com/Akanyi/AkayiRawjsonweb/internal/runner"
	"github.com/Akanyi/AkayiRawjsonweb/internal/runner/tasks"
	"github.com/Akanyi/AkayiRawjsonweb/internal/verify"
)

func newScheduleCommand(gs *globalState) *cobra.Command {
	var now bool
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the verification on the configured cron schedule",
		Long: `Runs the verification repeatedly using schedule.cron (seconds field
supported, e.g. "*/30 * * * * *" or "@every 5m") until interrupted.
Failures are logged and recorded but never stop the scheduler.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			_, cfg, logger, err := gs.load(nil)
			if err != nil {
				return err
			}
			scenario, opts, err := verify.FromConfig(cfg)
			if err != nil {
				return err
			}
			launcher, err := gs.newLauncher(cfg.Browser.Driver)
			if err != nil {
				return err
			}

			sinks := []verify.Sink{metrics.NewRecorder().Sink(cfg.Artifacts.MetricsPath)}
			if cfg.History.Enabled {
				store, err := history.Open(ctx, cfg.History.Path)
				if err != nil {
					return err
				}
				defer store.Close()
				sinks = append(sinks, store)
			}

			registry := runner.NewTaskRegistry()
			task := tasks.NewVerificationTask(
				verify.NewRunner(launcher, scenario, opts, logger),
				cfg.Schedule.Cron, cfg.Schedule.Timeout, logger, sinks...,
			)
			if err := registry.Register(task); err != nil {
				return err
			}

			var runOpts []runner.Option
			if now {
				runOpts = append(runOpts, runner.WithRunOnStart())
			}
			err = runner.NewRunner(registry, logger, runOpts...).Start(ctx)
			if ctx.Err() != nil {
				return nil
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&now, "now", false, "Run once immediately instead of waiting for the first tick")
	return cmd
}
