// Init command: create the config and registry directories.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the roofmat configuration and run registry",
	Long: `Init creates the configuration directory with a default config.yaml
and initializes the run registry in the data directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Config dir and default config.yaml were created by
		// PersistentPreRunE; attaching once materializes the registry.
		st, err := attachStore()
		if err != nil {
			fatalf(exitSysError, "init: %s", err)
		}
		defer st.Detach()

		dataDir, err := resolveDataDir()
		if err != nil {
			return err
		}
		fmt.Println("Initialized run registry in", dataDir)
		return nil
	},
}
