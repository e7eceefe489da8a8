// Launch specifications for the external training and inference scripts.
// The flag names here are the scripts' contract; keep them in sync with
// the pipeline repository.
package runner

import (
	"errors"
	"strconv"
	"strings"
)

// Launch parameter errors.
var (
	ErrMissingExpVersion = errors.New("exp version is required")
	ErrMissingDataDir    = errors.New("data dir is required")
	ErrMissingOutputDir  = errors.New("output dir is required")
	ErrMissingCheckpoint = errors.New("checkpoint path is required")
	ErrMissingImageDir   = errors.New("image dir is required")
	ErrBadBatchSize      = errors.New("batch size must be positive")
	ErrBadNumWorkers     = errors.New("num workers must not be negative")
)

// TrainSpec describes one training launch.
type TrainSpec struct {
	ExpVersion       string
	DataDir          string
	TileSplitFile    string
	OutputDir        string
	BatchSize        int
	NumWorkers       int
	MaxEpochs        int
	Device           string
	ResumeCheckpoint string
	MetricsFormat    string
}

// Validate checks required fields and numeric ranges.
func (s TrainSpec) Validate() error {
	if s.ExpVersion == "" {
		return ErrMissingExpVersion
	}
	if s.DataDir == "" {
		return ErrMissingDataDir
	}
	if s.OutputDir == "" {
		return ErrMissingOutputDir
	}
	if s.BatchSize <= 0 {
		return ErrBadBatchSize
	}
	if s.NumWorkers < 0 {
		return ErrBadNumWorkers
	}
	return nil
}

// Args renders the script's command-line flags.
func (s TrainSpec) Args() []string {
	args := []string{
		"--exp-version", s.ExpVersion,
		"--data-dir", s.DataDir,
		"--output-dir", s.OutputDir,
		"--batch-size", strconv.Itoa(s.BatchSize),
		"--num-workers", strconv.Itoa(s.NumWorkers),
	}
	if s.TileSplitFile != "" {
		args = append(args, "--tile-split-file", s.TileSplitFile)
	}
	if s.MaxEpochs > 0 {
		args = append(args, "--max-epochs", strconv.Itoa(s.MaxEpochs))
	}
	if s.Device != "" {
		args = append(args, "--device", s.Device)
	}
	if s.ResumeCheckpoint != "" {
		args = append(args, "--resume-checkpoint", s.ResumeCheckpoint)
	}
	if s.MetricsFormat != "" {
		args = append(args, "--metrics-format", s.MetricsFormat)
	}
	return args
}

// InferSpec describes one inference launch over an image directory.
type InferSpec struct {
	CheckpointPath        string
	ImageDir              string
	BuildingDetectionsDir string
	OutputDir             string
	BatchSize             int
	NumWorkers            int
	Device                string
}

// Validate checks required fields and numeric ranges.
func (s InferSpec) Validate() error {
	if s.CheckpointPath == "" {
		return ErrMissingCheckpoint
	}
	if s.ImageDir == "" {
		return ErrMissingImageDir
	}
	if s.OutputDir == "" {
		return ErrMissingOutputDir
	}
	if s.BatchSize <= 0 {
		return ErrBadBatchSize
	}
	if s.NumWorkers < 0 {
		return ErrBadNumWorkers
	}
	return nil
}

// Args renders the script's command-line flags.
func (s InferSpec) Args() []string {
	args := []string{
		"--checkpoint-path", s.CheckpointPath,
		"--image-dir", s.ImageDir,
		"--output-dir", s.OutputDir,
		"--batch-size", strconv.Itoa(s.BatchSize),
		"--num-workers", strconv.Itoa(s.NumWorkers),
	}
	if s.BuildingDetectionsDir != "" {
		args = append(args, "--building-detections-dir", s.BuildingDetectionsDir)
	}
	if s.Device != "" {
		args = append(args, "--device", s.Device)
	}
	return args
}

// DeviceEnv maps a device selector to the environment override the
// scripts honor. "cuda:N" pins the process to GPU N through
// CUDA_VISIBLE_DEVICES; "cpu" hides all GPUs; anything else is left to
// the script's own device handling.
func DeviceEnv(device string) []string {
	switch {
	case device == "cpu":
		return []string{"CUDA_VISIBLE_DEVICES="}
	case strings.HasPrefix(device, "cuda:"):
		return []string{"CUDA_VISIBLE_DEVICES=" + strings.TrimPrefix(device, "cuda:")}
	default:
		return nil
	}
}
