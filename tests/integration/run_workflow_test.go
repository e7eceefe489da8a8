// Run registry workflow tests: the full record/launch/ingest cycle the
// train command drives, exercised through the packages directly.
package integration

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/geoforge/roofmat/internal/report"
	"github.com/geoforge/roofmat/internal/runner"
	"github.com/geoforge/roofmat/internal/store"
	"github.com/geoforge/roofmat/pkg/types"
)

// TestTrainRunLifecycle drives a run through pending, running, and
// succeeded, executing a stand-in script, and attaches its metrics.
func TestTrainRunLifecycle(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}

	st, _ := setupStore(t)
	outputDir := t.TempDir()

	// Stand-in training script: writes a line and exits 0.
	script := filepath.Join(t.TempDir(), "train.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\necho epoch done\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	run := &types.Run{
		Kind:       types.KindTrain,
		ExpVersion: "v3",
		State:      types.StatePending,
		OutputDir:  outputDir,
		LogPath:    filepath.Join(outputDir, "train.log"),
	}
	if err := st.SaveRun(run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if run.RunID == "" {
		t.Fatal("run ID not assigned")
	}

	if err := run.Start(time.Now().UTC()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := st.SaveRun(run); err != nil {
		t.Fatalf("SaveRun running: %v", err)
	}

	r := runner.New("sh", script)
	exitCode, err := r.Run(context.Background(), nil, run.LogPath)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if exitCode != 0 {
		t.Fatalf("exit code = %d, want 0", exitCode)
	}

	if err := run.Finish(exitCode, time.Now().UTC()); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if err := st.SaveRun(run); err != nil {
		t.Fatalf("SaveRun finished: %v", err)
	}

	// The script's output lands in the log file.
	logData, err := os.ReadFile(run.LogPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if string(logData) != "epoch done\n" {
		t.Errorf("log = %q", logData)
	}

	// Ingest metrics the way the train command does.
	metricsPath := writeMetricsFile(t, outputDir)
	m, err := report.LoadMetrics(metricsPath)
	if err != nil {
		t.Fatalf("LoadMetrics: %v", err)
	}
	if m.NumClasses() != 3 {
		t.Errorf("NumClasses = %d, want 3", m.NumClasses())
	}
	if err := st.AttachMetrics(run.RunID, metricsPath); err != nil {
		t.Fatalf("AttachMetrics: %v", err)
	}

	got, err := st.GetRun(run.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.State != types.StateSucceeded {
		t.Errorf("state = %s, want %s", got.State, types.StateSucceeded)
	}
	if got.MetricsPath != metricsPath {
		t.Errorf("metrics path = %q, want %q", got.MetricsPath, metricsPath)
	}
}

// TestRunSurvivesReattach verifies the JSONL source of truth: a new
// store over the same data directory sees the recorded run.
func TestRunSurvivesReattach(t *testing.T) {
	st, dir := setupStore(t)

	run := &types.Run{
		Kind:       types.KindInfer,
		ExpVersion: "v3",
		State:      types.StatePending,
	}
	if err := st.SaveRun(run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if err := st.Detach(); err != nil {
		t.Fatalf("Detach: %v", err)
	}

	st2 := store.New()
	if err := st2.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}); err != nil {
		t.Fatalf("reattach: %v", err)
	}
	defer st2.Detach()

	got, err := st2.GetRun(run.RunID)
	if err != nil {
		t.Fatalf("GetRun after reattach: %v", err)
	}
	if got.Kind != types.KindInfer || got.ExpVersion != "v3" {
		t.Errorf("got %+v", got)
	}
}

// TestCanceledRunRecorded verifies that a canceled context ends the
// script and the run can be marked canceled.
func TestCanceledRunRecorded(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}

	st, _ := setupStore(t)
	outputDir := t.TempDir()

	script := filepath.Join(t.TempDir(), "train.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\nsleep 30\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	run := &types.Run{
		Kind:       types.KindTrain,
		ExpVersion: "v3",
		State:      types.StatePending,
		OutputDir:  outputDir,
		LogPath:    filepath.Join(outputDir, "train.log"),
	}
	if err := st.SaveRun(run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if err := run.Start(time.Now().UTC()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	r := runner.New("sh", script)
	_, err := r.Run(ctx, nil, run.LogPath)
	if err == nil {
		t.Fatal("expected error from canceled run")
	}

	if err := run.Cancel(time.Now().UTC()); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := st.SaveRun(run); err != nil {
		t.Fatalf("SaveRun canceled: %v", err)
	}

	got, err := st.GetRun(run.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.State != types.StateCanceled {
		t.Errorf("state = %s, want %s", got.State, types.StateCanceled)
	}
	if !got.Terminal() {
		t.Error("canceled run should be terminal")
	}
}
