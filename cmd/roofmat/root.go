// Root command for the roofmat CLI.
package main

import (
	"github.com/spf13/cobra"

	"github.com/geoforge/roofmat/internal/paths"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// Version is the CLI version, overridable at build time.
var Version = "0.1.0"

// Global flag values.
var (
	flagConfigDir string
	flagDataDir   string
	flagJSON      bool
)

// Values loaded from config.yaml by PersistentPreRunE so all subcommands
// can use them.
var (
	configBackend string
	configDataDir string
	cfgScripts    scriptSettings
	cfgDefaults   launchDefaults
)

var rootCmd = &cobra.Command{
	Use:   "roofmat",
	Short: "Roofmat orchestrates roof-material classifier experiments",
	Long: `Roofmat is a local-first experiment runner for the roof-material
image classification pipeline. It launches the external training and
inference scripts, keeps a registry of every run, ingests metrics files,
and carries the geospatial helpers around the pipeline: restricting
building annotations to a raster's extent and building tile split files.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configDir, err := resolveConfigDir()
		if err != nil {
			return err
		}

		cfg, err := loadConfig(configDir)
		if err != nil {
			return err
		}

		configBackend = cfg.GetString(cfgKeyBackend)
		configDataDir = cfg.GetString(cfgKeyDataDir)
		cfgScripts = scriptSettings{
			Python: cfg.GetString(cfgKeyScriptsPython),
			Train:  cfg.GetString(cfgKeyScriptsTrain),
			Infer:  cfg.GetString(cfgKeyScriptsInfer),
		}
		cfgDefaults = launchDefaults{
			BatchSize:      cfg.GetInt(cfgKeyDefaultBatchSize),
			NumWorkers:     cfg.GetInt(cfgKeyDefaultNumWorkers),
			Device:         cfg.GetString(cfgKeyDefaultDevice),
			ExperimentsDir: cfg.GetString(cfgKeyExperimentsDir),
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: platform config dir)")
	// Named --registry-dir rather than --data-dir: train has a local
	// --data-dir flag for the chip dataset, which would shadow a
	// persistent flag of the same name.
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "registry-dir", "", "run registry directory (default: $(CWD)/.roofmat-db)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(inferCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(filterCmd)
	rootCmd.AddCommand(splitCmd)
}

// resolveDataDir returns the registry data directory following the
// precedence: --registry-dir flag > config.yaml data_dir > env > default.
func resolveDataDir() (string, error) {
	return paths.ResolveDataDir(flagDataDir, configDataDir)
}

// resolveConfigDir returns the configuration directory following the
// precedence: --config-dir flag > env > platform default.
func resolveConfigDir() (string, error) {
	return paths.ResolveConfigDir(flagConfigDir)
}
