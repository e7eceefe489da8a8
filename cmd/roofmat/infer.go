// Infer command: launch the external inference script over a tile set.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/geoforge/roofmat/internal/report"
	"github.com/geoforge/roofmat/internal/runner"
	"github.com/geoforge/roofmat/pkg/types"
)

var (
	inferCheckpoint    string
	inferImageDir      string
	inferDetectionsDir string
	inferOutputDir     string
	inferExpVersion    string
	inferBatchSize     int
	inferNumWorkers    int
	inferDevice        string
	inferNotes         string
)

var inferCmd = &cobra.Command{
	Use:   "infer",
	Short: "Run inference with a trained checkpoint over an image directory",
	Long: `Infer launches the external inference script against a directory of
imagery tiles and their building detections, writing per-building
material predictions to the output directory. The run is recorded in
the registry like a training run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		spec := runner.InferSpec{
			CheckpointPath:        inferCheckpoint,
			ImageDir:              inferImageDir,
			BuildingDetectionsDir: inferDetectionsDir,
			OutputDir:             inferOutputDir,
			BatchSize:             inferBatchSize,
			NumWorkers:            inferNumWorkers,
			Device:                inferDevice,
		}
		if spec.BatchSize == 0 {
			spec.BatchSize = cfgDefaults.BatchSize
		}
		if spec.NumWorkers < 0 {
			spec.NumWorkers = cfgDefaults.NumWorkers
		}
		if spec.Device == "" {
			spec.Device = cfgDefaults.Device
		}
		if err := spec.Validate(); err != nil {
			fmt.Fprintln(os.Stderr, "infer:", err)
			os.Exit(exitUserError)
		}

		st, err := attachStore()
		if err != nil {
			fatalf(exitSysError, "infer: %s", err)
		}
		defer st.Detach()

		r := runner.New(cfgScripts.scriptConfig().Interpreter(), cfgScripts.scriptConfig().InferScript())
		r.ExtraEnv = runner.DeviceEnv(spec.Device)

		run := &types.Run{
			Kind:       types.KindInfer,
			ExpVersion: inferExpVersion,
			State:      types.StatePending,
			Command:    append([]string{r.Interpreter, r.Script}, spec.Args()...),
			OutputDir:  spec.OutputDir,
			Notes:      inferNotes,
		}
		run.LogPath = filepath.Join(spec.OutputDir, "infer.log")
		if err := st.SaveRun(run); err != nil {
			fatalf(exitSysError, "record run: %s", err)
		}

		fmt.Printf("Starting infer run %s\n", report.ShortID(run.RunID))
		exitCode, err := launchRun(cmd, st, run, r, spec.Args())
		switch {
		case err != nil && errors.Is(err, cmd.Context().Err()):
			fmt.Fprintln(os.Stderr, "run canceled")
			st.Detach()
			os.Exit(exitUserError)
		case err != nil:
			st.Detach()
			fatalf(exitSysError, "infer: %s", err)
		}
		if exitCode != 0 {
			st.Detach()
			os.Exit(exitSysError)
		}
		return nil
	},
}

func init() {
	inferCmd.Flags().StringVar(&inferCheckpoint, "checkpoint-path", "", "model checkpoint to load (required)")
	inferCmd.Flags().StringVar(&inferImageDir, "image-dir", "", "directory of imagery tiles (required)")
	inferCmd.Flags().StringVar(&inferDetectionsDir, "building-detections-dir", "", "directory of building detection files (required)")
	inferCmd.Flags().StringVar(&inferOutputDir, "output-dir", "", "prediction output directory (required)")
	inferCmd.Flags().StringVar(&inferExpVersion, "exp-version", "", "experiment version the checkpoint came from")
	inferCmd.Flags().IntVar(&inferBatchSize, "batch-size", 0, "inference batch size")
	inferCmd.Flags().IntVar(&inferNumWorkers, "num-workers", -1, "data loader worker count")
	inferCmd.Flags().StringVar(&inferDevice, "device", "", "compute device, e.g. cuda:0 or cpu")
	inferCmd.Flags().StringVar(&inferNotes, "notes", "", "free-form notes stored on the run")

	inferCmd.MarkFlagRequired("checkpoint-path")
	inferCmd.MarkFlagRequired("image-dir")
	inferCmd.MarkFlagRequired("building-detections-dir")
	inferCmd.MarkFlagRequired("output-dir")
}
