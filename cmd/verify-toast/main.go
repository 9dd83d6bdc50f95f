package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Akanyi/AkayiRawjsonweb/internal/browser"
	"github.com/Akanyi/AkayiRawjsonweb/internal/config"
	"github.com/Akanyi/AkayiRawjsonweb/internal/logging"
	"github.com/Akanyi/AkayiRawjsonweb/internal/version"
)

// errVerificationFailed is returned in --strict mode; the failure itself has already been printed.
var errVerificationFailed = errors.New("verification failed")

// globalState carries what every command needs and what tests replace.
type globalState struct {
	stdout, stderr io.Writer

	configFile string
	logLevel   string

	newLauncher func(name string) (browser.Launcher, error)
}

func newGlobalState() *globalState {
	return &globalState{
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		newLauncher: browser.New,
	}
}

// load reads configuration, applying flags bound by the calling command.
func (gs *globalState) load(bind func(v *viper.Viper) error) (*viper.Viper, *config.Config, *logrus.Logger, error) {
	v, err := config.New(gs.configFile)
	if err != nil {
		return nil, nil, nil, err
	}
	if bind != nil {
		if err := bind(v); err != nil {
			return nil, nil, nil, err
		}
	}
	if gs.logLevel != "" {
		v.Set("logging.level", gs.logLevel)
	}
	cfg, err := config.Decode(v)
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := logging.New(cfg.Logging, gs.stderr)
	if err != nil {
		return nil, nil, nil, err
	}
	return v, cfg, logger, nil
}

func newRootCommand(gs *globalState) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "verify-toast",
		Short: "Browser smoke test for the RawJSON editor's empty-copy toast",
		Long: `verify-toast drives a headless browser against the RawJSON editor,
checks the ARIA labels of the menu button and the rich text editor, presses
"copy" with an empty editor and expects the "nothing to copy" toast.

Running without a subcommand is the same as "verify-toast run".`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&gs.configFile, "config", "", "Path to a verify.yaml config file (default: ./verify.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&gs.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	runCmd := newRunCommand(gs)
	rootCmd.Flags().AddFlagSet(runCmd.Flags())
	rootCmd.RunE = runCmd.RunE

	rootCmd.AddCommand(
		runCmd,
		newScheduleCommand(gs),
		newHistoryCommand(gs),
		newConfigCommand(gs),
		newVersionCommand(gs),
	)
	return rootCmd
}

func newVersionCommand(gs *globalState) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(gs.stdout, "verify-toast %s\n", version.Full())
		},
	}
}

func main() {
	gs := newGlobalState()
	if err := newRootCommand(gs).Execute(); err != nil {
		if !errors.Is(err, errVerificationFailed) {
			fmt.Fprintf(gs.stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
