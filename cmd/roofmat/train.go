// Train command: launch the external training script and record the run.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/geoforge/roofmat/internal/report"
	"github.com/geoforge/roofmat/internal/runner"
	"github.com/geoforge/roofmat/internal/split"
	"github.com/geoforge/roofmat/internal/store"
	"github.com/geoforge/roofmat/pkg/types"
)

var (
	trainExpVersion    string
	trainDataDir       string
	trainTileSplitFile string
	trainOutputDir     string
	trainBatchSize     int
	trainNumWorkers    int
	trainMaxEpochs     int
	trainDevice        string
	trainResume        string
	trainNotes         string
	trainTilesFile     string
	trainSplitRatios   string
	trainSplitSeed     int64
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Launch a training run of the roof-material classifier",
	Long: `Train launches the external training script with the given experiment
version and records the run in the registry. When the run finishes, the
metrics file from the output directory is ingested automatically.

Instead of a prebuilt tile split file, --tiles-file can name a list of
tile IDs (one per line); a temporary split file is then generated with
--split-ratios and --split-seed, passed to the script, and removed when
the run ends.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if trainExpVersion == "" {
			fmt.Fprintln(os.Stderr, "train: --exp-version is required")
			os.Exit(exitUserError)
		}
		if trainTileSplitFile != "" && trainTilesFile != "" {
			fmt.Fprintln(os.Stderr, "train: --tile-split-file and --tiles-file are mutually exclusive")
			os.Exit(exitUserError)
		}

		spec := runner.TrainSpec{
			ExpVersion:       trainExpVersion,
			DataDir:          trainDataDir,
			TileSplitFile:    trainTileSplitFile,
			OutputDir:        trainOutputDir,
			BatchSize:        trainBatchSize,
			NumWorkers:       trainNumWorkers,
			MaxEpochs:        trainMaxEpochs,
			Device:           trainDevice,
			ResumeCheckpoint: trainResume,
			MetricsFormat:    "json",
		}
		applyTrainDefaults(&spec)

		// os.Exit skips deferred functions, so failure paths run the
		// registered cleanups explicitly before exiting. The temp split
		// file in particular must go away even when the run fails.
		var cleanups []func()
		runCleanups := func() {
			for i := len(cleanups) - 1; i >= 0; i-- {
				cleanups[i]()
			}
		}
		defer runCleanups()
		fail := func(code int, format string, args ...any) {
			runCleanups()
			fatalf(code, format, args...)
		}

		// A split generated from a tiles list lives only for this run.
		if trainTilesFile != "" {
			tmpSplit, rm, err := makeTempSplit(trainTilesFile, trainSplitRatios, trainSplitSeed)
			if err != nil {
				fmt.Fprintln(os.Stderr, "train:", err)
				os.Exit(exitUserError)
			}
			cleanups = append(cleanups, rm)
			spec.TileSplitFile = tmpSplit
		}

		if err := spec.Validate(); err != nil {
			fail(exitUserError, "train: %s", err)
		}

		st, err := attachStore()
		if err != nil {
			fail(exitSysError, "train: %s", err)
		}
		cleanups = append(cleanups, func() { st.Detach() })

		r := runner.New(cfgScripts.scriptConfig().Interpreter(), cfgScripts.scriptConfig().TrainScript())
		r.ExtraEnv = runner.DeviceEnv(spec.Device)

		run := &types.Run{
			Kind:       types.KindTrain,
			ExpVersion: spec.ExpVersion,
			State:      types.StatePending,
			Command:    append([]string{r.Interpreter, r.Script}, spec.Args()...),
			OutputDir:  spec.OutputDir,
			Notes:      trainNotes,
		}
		run.LogPath = filepath.Join(spec.OutputDir, "train.log")
		if err := st.SaveRun(run); err != nil {
			fail(exitSysError, "record run: %s", err)
		}

		fmt.Printf("Starting train run %s (exp %s)\n", report.ShortID(run.RunID), run.ExpVersion)
		exitCode, err := launchRun(cmd, st, run, r, spec.Args())
		switch {
		case err != nil && errors.Is(err, cmd.Context().Err()):
			fmt.Fprintln(os.Stderr, "run canceled")
			runCleanups()
			os.Exit(exitUserError)
		case err != nil:
			fail(exitSysError, "train: %s", err)
		}

		if exitCode == 0 {
			ingestMetrics(st, run)
			return nil
		}
		runCleanups()
		os.Exit(exitSysError)
		return nil
	},
}

func init() {
	trainCmd.Flags().StringVar(&trainExpVersion, "exp-version", "", "experiment version label (required)")
	trainCmd.Flags().StringVar(&trainDataDir, "data-dir", "", "chip dataset directory (required)")
	trainCmd.Flags().StringVar(&trainTileSplitFile, "tile-split-file", "", "tile split YAML file")
	trainCmd.Flags().StringVar(&trainOutputDir, "output-dir", "", "run output directory (default: <experiments_dir>/<exp-version>)")
	trainCmd.Flags().IntVar(&trainBatchSize, "batch-size", 0, "training batch size")
	trainCmd.Flags().IntVar(&trainNumWorkers, "num-workers", -1, "data loader worker count")
	trainCmd.Flags().IntVar(&trainMaxEpochs, "max-epochs", 0, "maximum training epochs")
	trainCmd.Flags().StringVar(&trainDevice, "device", "", "compute device, e.g. cuda:0 or cpu")
	trainCmd.Flags().StringVar(&trainResume, "resume-checkpoint", "", "checkpoint to resume from")
	trainCmd.Flags().StringVar(&trainNotes, "notes", "", "free-form notes stored on the run")
	trainCmd.Flags().StringVar(&trainTilesFile, "tiles-file", "", "tile ID list to build a temporary split from")
	trainCmd.Flags().StringVar(&trainSplitRatios, "split-ratios", "0.7,0.15,0.15", "train,val,test ratios for --tiles-file")
	trainCmd.Flags().Int64Var(&trainSplitSeed, "split-seed", 42, "shuffle seed for --tiles-file")

	trainCmd.MarkFlagRequired("exp-version")
	trainCmd.MarkFlagRequired("data-dir")
}

// applyTrainDefaults fills unset launch parameters from config.yaml.
func applyTrainDefaults(spec *runner.TrainSpec) {
	if spec.BatchSize == 0 {
		spec.BatchSize = cfgDefaults.BatchSize
	}
	if spec.NumWorkers < 0 {
		spec.NumWorkers = cfgDefaults.NumWorkers
	}
	if spec.Device == "" {
		spec.Device = cfgDefaults.Device
	}
	if spec.OutputDir == "" {
		spec.OutputDir = filepath.Join(cfgDefaults.ExperimentsDir, spec.ExpVersion)
	}
}

// launchRun drives a run through its lifecycle around the script
// execution and returns the script's exit code. It never exits the
// process itself, so callers can release resources before mapping the
// error to an exit code; a context error signals cancellation.
func launchRun(cmd *cobra.Command, st *store.Store, run *types.Run, r *runner.Runner, args []string) (int, error) {
	now := time.Now().UTC()
	if err := run.Start(now); err != nil {
		return -1, fmt.Errorf("start run: %w", err)
	}
	if err := st.SaveRun(run); err != nil {
		return -1, fmt.Errorf("record run: %w", err)
	}

	exitCode, err := r.Run(cmd.Context(), args, run.LogPath)
	now = time.Now().UTC()

	switch {
	case err != nil && errors.Is(err, cmd.Context().Err()):
		_ = run.Cancel(now)
		if saveErr := st.SaveRun(run); saveErr != nil {
			return exitCode, fmt.Errorf("record run: %w", saveErr)
		}
		return exitCode, err
	case err != nil:
		// Launch failure: the script never produced an exit code.
		_ = run.Finish(-1, now)
		run.Notes = strings.TrimSpace(run.Notes + "\nlaunch error: " + err.Error())
		if saveErr := st.SaveRun(run); saveErr != nil {
			return -1, fmt.Errorf("record run: %w", saveErr)
		}
		return -1, fmt.Errorf("launch script: %w", err)
	}

	if err := run.Finish(exitCode, now); err != nil {
		return exitCode, fmt.Errorf("finish run: %w", err)
	}
	if err := st.SaveRun(run); err != nil {
		return exitCode, fmt.Errorf("record run: %w", err)
	}
	fmt.Printf("Run %s finished: %s (exit %d)\n", report.ShortID(run.RunID), run.State, exitCode)
	return exitCode, nil
}

// ingestMetrics attaches the metrics file from the run's output
// directory when the script produced one, and prints the headline
// numbers.
func ingestMetrics(st *store.Store, run *types.Run) {
	path := filepath.Join(run.OutputDir, report.DefaultMetricsFileName)
	m, err := report.LoadMetrics(path)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("No metrics file at", path)
			return
		}
		fmt.Fprintln(os.Stderr, "ingest metrics:", err)
		return
	}
	if err := st.AttachMetrics(run.RunID, path); err != nil {
		fmt.Fprintln(os.Stderr, "attach metrics:", err)
		return
	}
	fmt.Println(report.Summary(m))
}

// makeTempSplit builds a temporary tile split file from a tile ID list.
// The returned cleanup removes the file and must run even when the
// training fails.
func makeTempSplit(tilesFile, ratios string, seed int64) (string, func(), error) {
	tiles, err := readTileList(tilesFile)
	if err != nil {
		return "", nil, err
	}
	r, err := parseRatios(ratios)
	if err != nil {
		return "", nil, err
	}
	s, err := split.Make(tiles, r, seed)
	if err != nil {
		return "", nil, err
	}

	tmp, err := os.CreateTemp("", "roofmat-split-*.yaml")
	if err != nil {
		return "", nil, err
	}
	tmpName := tmp.Name()
	tmp.Close()
	if err := split.Save(tmpName, s); err != nil {
		os.Remove(tmpName)
		return "", nil, err
	}
	return tmpName, func() { os.Remove(tmpName) }, nil
}

// parseRatios parses "train,val,test" fractions.
func parseRatios(s string) (split.Ratios, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return split.Ratios{}, fmt.Errorf("expected three comma-separated ratios, got %q", s)
	}
	vals := make([]float64, 3)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return split.Ratios{}, fmt.Errorf("bad ratio %q: %w", p, err)
		}
		vals[i] = v
	}
	return split.Ratios{Train: vals[0], Val: vals[1], Test: vals[2]}, nil
}
