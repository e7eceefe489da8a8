// Delete command: remove a run record from the registry.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/geoforge/roofmat/internal/report"
	"github.com/geoforge/roofmat/pkg/types"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a run record",
	Long: `Delete removes a run record from the registry. Output directories,
logs, and checkpoints on disk are left untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := attachStore()
		if err != nil {
			fatalf(exitSysError, "delete: %s", err)
		}
		defer st.Detach()

		run, err := findRun(st, args[0])
		if err != nil {
			if errors.Is(err, types.ErrNotFound) {
				fmt.Fprintf(os.Stderr, "delete: no run matching %q\n", args[0])
				os.Exit(exitUserError)
			}
			fatalf(exitSysError, "delete: %s", err)
		}

		if err := st.DeleteRun(run.RunID); err != nil {
			fatalf(exitSysError, "delete run: %s", err)
		}
		fmt.Printf("Deleted run %s\n", report.ShortID(run.RunID))
		return nil
	},
}
