// Config loading for the roofmat CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/geoforge/roofmat/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	// Config keys.
	cfgKeyBackend           = "backend"
	cfgKeyDataDir           = "data_dir"
	cfgKeyScriptsPython     = "scripts.python"
	cfgKeyScriptsTrain      = "scripts.train"
	cfgKeyScriptsInfer      = "scripts.infer"
	cfgKeyDefaultBatchSize  = "defaults.batch_size"
	cfgKeyDefaultNumWorkers = "defaults.num_workers"
	cfgKeyDefaultDevice     = "defaults.device"
	cfgKeyExperimentsDir    = "experiments_dir"

	// Built-in defaults.
	defaultBackend        = "sqlite"
	defaultBatchSize      = 32
	defaultNumWorkers     = 4
	defaultDevice         = "cuda:0"
	defaultExperimentsDir = "experiments"
)

// scriptSettings mirrors the scripts section of config.yaml.
type scriptSettings struct {
	Python string
	Train  string
	Infer  string
}

// launchDefaults mirrors the defaults section of config.yaml.
type launchDefaults struct {
	BatchSize      int
	NumWorkers     int
	Device         string
	ExperimentsDir string
}

// scriptConfig converts the loaded settings to the shared type.
func (s scriptSettings) scriptConfig() types.ScriptConfig {
	return types.ScriptConfig{Python: s.Python, Train: s.Train, Infer: s.Infer}
}

// defaultConfigYAML is the content written to config.yaml on first run.
const defaultConfigYAML = `# Roofmat CLI configuration

# Run registry backend
backend: sqlite

# Registry data directory (optional; overridable by --registry-dir flag)
# data_dir:

# External pipeline scripts
scripts:
  python: python3
  train: train.py
  infer: inference.py

# Launch defaults, overridable per command
defaults:
  batch_size: 32
  num_workers: 4
  device: cuda:0

# Where run output directories are created by default
experiments_dir: experiments
`

// loadConfig reads config.yaml from the resolved config directory using
// Viper. It creates the config directory and a default config.yaml on
// first run. A missing config.yaml is not an error.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := ensureConfigDir(configDir); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}

	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, defaultBackend)
	v.SetDefault(cfgKeyDefaultBatchSize, defaultBatchSize)
	v.SetDefault(cfgKeyDefaultNumWorkers, defaultNumWorkers)
	v.SetDefault(cfgKeyDefaultDevice, defaultDevice)
	v.SetDefault(cfgKeyExperimentsDir, defaultExperimentsDir)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	return v, nil
}

// ensureConfigDir creates the config directory if it does not exist.
func ensureConfigDir(configDir string) error {
	return os.MkdirAll(configDir, 0o755)
}

// ensureDefaultConfigFile creates a default config.yaml if the file does
// not exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
