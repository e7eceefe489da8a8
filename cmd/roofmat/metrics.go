// Metrics commands: inspect the metrics of a finished run.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/geoforge/roofmat/internal/report"
	"github.com/geoforge/roofmat/pkg/types"
)

var (
	metricsFile        string
	metricsCurveHeight int
	metricsExportOut   string
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Inspect training metrics",
	Long: `Metrics reads the metrics file of a run and renders it. Subcommands
take either a run ID (the metrics attached to that run) or an explicit
--file path.`,
}

var metricsShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Print the summary and per-class report",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m := resolveMetrics(args)
		if flagJSON {
			return printJSON(m)
		}
		fmt.Println(report.Summary(m))
		fmt.Println(report.ClassReportTable(m))
		return nil
	},
}

var metricsCurvesCmd = &cobra.Command{
	Use:   "curves [run-id]",
	Short: "Plot train and validation loss curves",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m := resolveMetrics(args)
		fmt.Println(report.LossCurves(m, metricsCurveHeight))
		return nil
	},
}

var metricsConfusionCmd = &cobra.Command{
	Use:   "confusion [run-id]",
	Short: "Print the test confusion matrix",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m := resolveMetrics(args)
		if flagJSON {
			return printJSON(m.TestConfusionMatrix)
		}
		fmt.Println(report.ConfusionTable(m))
		return nil
	},
}

var metricsExportCmd = &cobra.Command{
	Use:   "export [run-id]",
	Short: "Export the loss history as CSV",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m := resolveMetrics(args)

		out := os.Stdout
		if metricsExportOut != "" {
			f, err := os.Create(metricsExportOut)
			if err != nil {
				fatalf(exitSysError, "metrics export: %s", err)
			}
			defer f.Close()
			out = f
		}
		if err := report.WriteLossCSV(out, m); err != nil {
			fatalf(exitSysError, "metrics export: %s", err)
		}
		if metricsExportOut != "" {
			fmt.Println("Wrote", metricsExportOut)
		}
		return nil
	},
}

func init() {
	metricsCmd.PersistentFlags().StringVar(&metricsFile, "file", "", "metrics JSON file to read instead of a run's")
	metricsCurvesCmd.Flags().IntVar(&metricsCurveHeight, "height", report.DefaultCurveHeight, "plot height in rows")
	metricsExportCmd.Flags().StringVar(&metricsExportOut, "out", "", "CSV output path (default: stdout)")

	metricsCmd.AddCommand(metricsShowCmd)
	metricsCmd.AddCommand(metricsCurvesCmd)
	metricsCmd.AddCommand(metricsConfusionCmd)
	metricsCmd.AddCommand(metricsExportCmd)
}

// resolveMetrics loads metrics from --file or from the run named by the
// positional argument. It exits on user error.
func resolveMetrics(args []string) *types.Metrics {
	switch {
	case metricsFile != "" && len(args) > 0:
		fmt.Fprintln(os.Stderr, "metrics: pass a run ID or --file, not both")
		os.Exit(exitUserError)
	case metricsFile == "" && len(args) == 0:
		fmt.Fprintln(os.Stderr, "metrics: a run ID or --file is required")
		os.Exit(exitUserError)
	}

	path := metricsFile
	if len(args) > 0 {
		path = metricsPathForRun(args[0])
	}

	m, err := report.LoadMetrics(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "metrics:", err)
		os.Exit(exitUserError)
	}
	return m
}

func metricsPathForRun(idOrPrefix string) string {
	st, err := attachStore()
	if err != nil {
		fatalf(exitSysError, "metrics: %s", err)
	}
	defer st.Detach()

	run, err := findRun(st, idOrPrefix)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			fmt.Fprintf(os.Stderr, "metrics: no run matching %q\n", idOrPrefix)
			os.Exit(exitUserError)
		}
		fatalf(exitSysError, "metrics: %s", err)
	}
	if run.MetricsPath == "" {
		fmt.Fprintf(os.Stderr, "metrics: run %s has no metrics attached\n", report.ShortID(run.RunID))
		os.Exit(exitUserError)
	}
	return run.MetricsPath
}
