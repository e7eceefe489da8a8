// Package runner launches the external training and inference scripts,
// streaming their output to a per-run log file and reporting exit codes.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
)

// Runner invokes a script through a Python interpreter. The zero value
// is not usable; construct with New.
type Runner struct {
	// Interpreter is the python executable.
	Interpreter string
	// Script is the path of the script to run.
	Script string
	// Mirror receives a copy of the script's combined output in addition
	// to the log file. Usually os.Stdout.
	Mirror io.Writer
	// ExtraEnv entries are appended to the inherited environment.
	ExtraEnv []string
}

// New constructs a Runner for the given interpreter and script.
func New(interpreter, script string) *Runner {
	return &Runner{
		Interpreter: interpreter,
		Script:      script,
		Mirror:      os.Stdout,
	}
}

// Run executes the script with the given arguments. Combined
// stdout/stderr is written to logPath (and to Mirror when set). The
// returned exit code is the script's; err is non-nil only for launch or
// log-file failures, context cancellation, or abnormal termination
// without an exit code.
func (r *Runner) Run(ctx context.Context, args []string, logPath string) (int, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return -1, fmt.Errorf("create log dir: %w", err)
	}
	logFile, err := os.Create(logPath)
	if err != nil {
		return -1, fmt.Errorf("create log file: %w", err)
	}
	defer logFile.Close()

	out := io.Writer(logFile)
	if r.Mirror != nil {
		out = io.MultiWriter(logFile, r.Mirror)
	}

	argv := append([]string{r.Script}, args...)
	cmd := exec.CommandContext(ctx, r.Interpreter, argv...)
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.Env = append(os.Environ(), r.ExtraEnv...)

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Prefer reporting the cancellation over the resulting kill.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return exitErr.ExitCode(), ctxErr
			}
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("launch %s: %w", r.Script, err)
	}
	return 0, nil
}
