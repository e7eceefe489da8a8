// Show command: details of a single run.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/geoforge/roofmat/internal/report"
	"github.com/geoforge/roofmat/pkg/types"
)

var showCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the details of a run",
	Long: `Show prints the full record of a run. A unique run ID prefix is
accepted in place of the full ID. When the run has ingested metrics,
the headline numbers are printed too.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := attachStore()
		if err != nil {
			fatalf(exitSysError, "show: %s", err)
		}
		defer st.Detach()

		run, err := findRun(st, args[0])
		if err != nil {
			if errors.Is(err, types.ErrNotFound) {
				fmt.Fprintf(os.Stderr, "show: no run matching %q\n", args[0])
				os.Exit(exitUserError)
			}
			fatalf(exitSysError, "show: %s", err)
		}

		if flagJSON {
			return printJSON(run)
		}
		fmt.Println(report.RunDetail(run))

		if run.MetricsPath != "" {
			m, err := report.LoadMetrics(run.MetricsPath)
			if err != nil {
				fmt.Fprintln(os.Stderr, "read metrics:", err)
				return nil
			}
			fmt.Println(report.Summary(m))
		}
		return nil
	},
}
