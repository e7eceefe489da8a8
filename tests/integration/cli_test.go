// CLI integration tests for roofmat. These build the binary once and
// drive it as a subprocess, so they cover the command wiring the
// package-level tests cannot reach.
package integration

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
)

var roofmatBin string

// TestMain builds the roofmat binary once before running tests.
func TestMain(m *testing.M) {
	projectRoot, err := findProjectRoot()
	if err != nil {
		os.Stderr.WriteString("finding project root: " + err.Error() + "\n")
		os.Exit(1)
	}

	tmpDir, err := os.MkdirTemp("", "roofmat-test-*")
	if err != nil {
		os.Stderr.WriteString("creating temp dir: " + err.Error() + "\n")
		os.Exit(1)
	}
	roofmatBin = filepath.Join(tmpDir, "roofmat")

	cmd := exec.Command("go", "build", "-o", roofmatBin, "./cmd/roofmat")
	cmd.Dir = projectRoot
	if output, err := cmd.CombinedOutput(); err != nil {
		os.Stderr.WriteString("building roofmat: " + err.Error() + "\n" + string(output))
		os.RemoveAll(tmpDir)
		os.Exit(1)
	}

	code := m.Run()
	os.RemoveAll(tmpDir)
	os.Exit(code)
}

// findProjectRoot walks up from the working directory to go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("go.mod not found above working directory")
		}
		dir = parent
	}
}

// cliEnv isolates a roofmat invocation: its own config dir, registry
// dir, and temp dir.
type cliEnv struct {
	Tmp         string
	ConfigDir   string
	RegistryDir string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	return &cliEnv{
		Tmp:         t.TempDir(),
		ConfigDir:   t.TempDir(),
		RegistryDir: t.TempDir(),
	}
}

// run executes the binary and returns its combined output and exit code.
func (e *cliEnv) run(t *testing.T, args ...string) (string, int) {
	t.Helper()
	cmd := exec.Command(roofmatBin, args...)
	cmd.Env = append(os.Environ(),
		"TMPDIR="+e.Tmp,
		"ROOFMAT_CONFIG_DIR="+e.ConfigDir,
		"ROOFMAT_DATA_DIR="+e.RegistryDir,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			t.Fatalf("running roofmat %v: %v", args, err)
		}
		return string(output), exitErr.ExitCode()
	}
	return string(output), 0
}

// TestInitCreatesRegistry verifies init materializes the registry files.
func TestInitCreatesRegistry(t *testing.T) {
	env := newCLIEnv(t)

	out, code := env.run(t, "init")
	if code != 0 {
		t.Fatalf("init exited %d:\n%s", code, out)
	}
	if _, err := os.Stat(filepath.Join(env.RegistryDir, "runs.jsonl")); err != nil {
		t.Errorf("runs.jsonl not created: %v", err)
	}
}

// TestRegistryDirFlag verifies the persistent --registry-dir flag
// overrides the environment on every subcommand, including train with
// its own --data-dir dataset flag.
func TestRegistryDirFlag(t *testing.T) {
	env := newCLIEnv(t)
	override := t.TempDir()

	out, code := env.run(t, "--registry-dir", override, "init")
	if code != 0 {
		t.Fatalf("init exited %d:\n%s", code, out)
	}
	if _, err := os.Stat(filepath.Join(override, "runs.jsonl")); err != nil {
		t.Errorf("registry not created in --registry-dir location: %v", err)
	}

	// The train verb accepts both flags without one shadowing the other.
	out, _ = env.run(t, "train",
		"--registry-dir", override,
		"--exp-version", "v1",
		"--data-dir", filepath.Join(t.TempDir(), "chips"),
		"--output-dir", t.TempDir(),
		"--device", "cpu",
	)
	data, err := os.ReadFile(filepath.Join(override, "runs.jsonl"))
	if err != nil {
		t.Fatalf("read runs.jsonl: %v", err)
	}
	if len(data) == 0 {
		t.Errorf("train did not record its run in the --registry-dir registry:\n%s", out)
	}
}

// TestFailedTrainRemovesTempSplit verifies the temp split file built
// from --tiles-file is removed even when the run fails. The training
// script does not exist here, so the launch fails, which is exactly the
// path that must still clean up.
func TestFailedTrainRemovesTempSplit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on TMPDIR")
	}
	env := newCLIEnv(t)

	tilesFile := filepath.Join(t.TempDir(), "tiles.txt")
	if err := os.WriteFile(tilesFile, []byte("t001\nt002\nt003\nt004\n"), 0o644); err != nil {
		t.Fatalf("write tiles file: %v", err)
	}

	out, code := env.run(t, "train",
		"--exp-version", "v1",
		"--data-dir", filepath.Join(t.TempDir(), "chips"),
		"--output-dir", t.TempDir(),
		"--tiles-file", tilesFile,
		"--device", "cpu",
	)
	if code == 0 {
		t.Fatalf("expected train to fail without a training script:\n%s", out)
	}

	leftovers, err := filepath.Glob(filepath.Join(env.Tmp, "roofmat-split-*.yaml"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(leftovers) != 0 {
		t.Errorf("temp split files left behind after failed run: %v", leftovers)
	}
}
