package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Akanyi/AkayiRawjsonweb/internal/config"
	"github.com/Akanyi/AkayiRawjsonweb/internal/history"
	"github.com/Akanyi/AkayiRawjsonweb/internal/logging"
	"github.com/Akanyi/AkayiRawjsonweb/internal/metrics"
	"github.com/Akanyi/AkayiRawjsonweb/internal/report"
	"github.com/Akanyi/AkayiRawjsonweb/internal/verify"
)

const successMessage = "Verification script ran successfully."

type runFlags struct {
	url        string
	driver     string
	headed     bool
	screenshot string
	repeat     int
	strict     bool
	watch      bool
}

func newRunCommand(gs *globalState) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the toast verification once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runVerify(ctx, gs, cmd, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.url, "url", "", "Base URL of the application under test")
	flags.StringVar(&f.driver, "driver", "", "Browser driver (playwright, chromedp)")
	flags.BoolVar(&f.headed, "headed", false, "Show the browser window")
	flags.StringVar(&f.screenshot, "screenshot", "", "Where to save the screenshot")
	flags.IntVar(&f.repeat, "repeat", 1, "Run the scenario this many times, each in a fresh browser")
	flags.BoolVar(&f.strict, "strict", false, "Exit non-zero when verification fails")
	flags.BoolVar(&f.watch, "watch", false, "Re-run whenever the config file changes")
	return cmd
}

func (f *runFlags) bind(cmd *cobra.Command) func(v *viper.Viper) error {
	return func(v *viper.Viper) error {
		if cmd.Flags().Changed("url") {
			v.Set("target.url", f.url)
		}
		if cmd.Flags().Changed("driver") {
			v.Set("browser.driver", f.driver)
		}
		if cmd.Flags().Changed("headed") {
			v.Set("browser.headless", !f.headed)
		}
		if cmd.Flags().Changed("screenshot") {
			v.Set("artifacts.screenshot_path", f.screenshot)
		}
		return nil
	}
}

func runVerify(ctx context.Context, gs *globalState, cmd *cobra.Command, f *runFlags) error {
	if f.repeat < 1 {
		return fmt.Errorf("--repeat must be at least 1, got %d", f.repeat)
	}

	v, cfg, logger, err := gs.load(f.bind(cmd))
	if err != nil {
		return err
	}

	rec := metrics.NewRecorder()
	ok, err := verifyOnce(ctx, gs, cfg, logger, rec, f.repeat)
	if err != nil {
		return err
	}
	if !f.watch {
		if f.strict && !ok {
			return errVerificationFailed
		}
		return nil
	}

	if v.ConfigFileUsed() == "" {
		return errors.New("--watch needs a config file")
	}
	logger.WithField("file", v.ConfigFileUsed()).Info("Watching config for changes")

	changed := make(chan *config.Config, 1)
	invalid := make(chan error, 1)
	config.Watch(v, func(c *config.Config) {
		select {
		case changed <- c:
		default:
		}
	}, func(err error) {
		select {
		case invalid <- err:
		default:
		}
	})

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-invalid:
			logger.WithError(err).Warn("Ignoring invalid config change")
		case c := <-changed:
			logger = reloadLogger(gs, c, logger)
			logger.Info("Config changed, re-running verification")
			if _, err := verifyOnce(ctx, gs, c, logger, rec, f.repeat); err != nil {
				logger.WithError(err).Error("Could not start verification")
			}
		}
	}
}

// reloadLogger rebuilds the logger for a reloaded config, keeping current
// when the new logging section is unusable.
func reloadLogger(gs *globalState, c *config.Config, current *logrus.Logger) *logrus.Logger {
	next, err := logging.New(c.Logging, gs.stderr)
	if err != nil {
		current.WithError(err).Warn("Keeping previous logging settings")
		return current
	}
	return next
}

// verifyOnce runs the scenario repeat times, prints the outcome and publishes
// results. It reports whether every run passed; setup problems are returned as errors.
func verifyOnce(ctx context.Context, gs *globalState, cfg *config.Config, logger *logrus.Logger, rec *metrics.Recorder, repeat int) (bool, error) {
	scenario, opts, err := verify.FromConfig(cfg)
	if err != nil {
		return false, err
	}
	launcher, err := gs.newLauncher(cfg.Browser.Driver)
	if err != nil {
		return false, err
	}

	sinks := []verify.Sink{rec.Sink(cfg.Artifacts.MetricsPath)}
	if cfg.History.Enabled {
		store, err := history.Open(ctx, cfg.History.Path)
		if err != nil {
			return false, err
		}
		defer store.Close()
		sinks = append(sinks, store)
	}

	runner := verify.NewRunner(launcher, scenario, opts, logger)
	results := runner.RunN(ctx, repeat)

	allPassed := len(results) == repeat
	for _, res := range results {
		if res.Success {
			fmt.Fprintln(gs.stdout, successMessage)
		} else {
			allPassed = false
			fmt.Fprintf(gs.stdout, "Verification failed: %s\n", res.Error)
		}
		if res.CleanupError != "" {
			logger.WithField("run_id", res.ID).Warnf("Browser did not close cleanly: %s", res.CleanupError)
		}
		for _, sink := range sinks {
			if err := sink.Handle(ctx, res); err != nil {
				logger.WithError(err).Warn("Failed to publish result")
			}
		}
	}

	if repeat > 1 && !verify.Consistent(results) {
		logger.Warn("Repeated runs disagreed")
	}
	if path := cfg.Artifacts.ReportPath; path != "" {
		if err := report.Write(path, results); err != nil {
			logger.WithError(err).Warn("Failed to write report")
		} else {
			logger.WithField("path", path).Info("Report written")
		}
	}
	return allPassed, nil
}
