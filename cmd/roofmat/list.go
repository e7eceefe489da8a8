// List command: show recorded runs.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/geoforge/roofmat/internal/report"
	"github.com/geoforge/roofmat/internal/store"
	"github.com/geoforge/roofmat/pkg/types"
)

var (
	listKind       string
	listState      string
	listExpVersion string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		if listKind != "" && !types.ValidKind(listKind) {
			fmt.Fprintf(os.Stderr, "list: unknown kind %q\n", listKind)
			os.Exit(exitUserError)
		}
		if listState != "" && !types.ValidState(listState) {
			fmt.Fprintf(os.Stderr, "list: unknown state %q\n", listState)
			os.Exit(exitUserError)
		}

		st, err := attachStore()
		if err != nil {
			fatalf(exitSysError, "list: %s", err)
		}
		defer st.Detach()

		runs, err := st.ListRuns(store.RunFilter{
			Kind:       listKind,
			State:      listState,
			ExpVersion: listExpVersion,
		})
		if err != nil {
			fatalf(exitSysError, "list runs: %s", err)
		}

		if flagJSON {
			return printJSON(runs)
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}
		fmt.Println(report.RunsTable(runs))
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listKind, "kind", "", "filter by kind (train or infer)")
	listCmd.Flags().StringVar(&listState, "state", "", "filter by state")
	listCmd.Flags().StringVar(&listExpVersion, "exp-version", "", "filter by experiment version")
}
