package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Akanyi/AkayiRawjsonweb/internal/history"
)

const historyDisabledMessage = "History is disabled; set history.enabled to record runs."

func newHistoryCommand(gs *globalState) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent verification runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, _, err := gs.load(nil)
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				fmt.Fprintln(gs.stdout, historyDisabledMessage)
				return nil
			}

			store, err := history.Open(cmd.Context(), cfg.History.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(gs.stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "STARTED\tRESULT\tDURATION\tDRIVER\tFAILED STEP\tERROR")
			for _, r := range runs {
				result := "PASS"
				if !r.Success {
					result = "FAIL"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					r.StartedAt.Local().Format(time.DateTime),
					result,
					(time.Duration(r.DurationMS) * time.Millisecond).String(),
					r.Driver,
					dash(r.FailedStep),
					dash(history.Excerpt(r.Error, 60)),
				)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(gs.stdout, "\n%d runs, %d passed\n", stats.Total, stats.Success)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to show")
	return cmd
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
