// Package runner executes external commands with captured output,
// exit codes and context cancellation. The build and publish stages
// drive the container toolchain through it.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Result holds the output and status from a command execution.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Combined returns stdout and stderr concatenated for diagnostics.
func (r *Result) Combined() string {
	return strings.TrimSpace(r.Stdout + "\n" + r.Stderr)
}

// Runner is the command-execution interface the deployment stages
// depend on; tests substitute a scripted fake.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (*Result, error)
	RunWithInput(ctx context.Context, input, name string, args ...string) (*Result, error)
}

// ExecRunner runs commands via os/exec.
type ExecRunner struct {
	// Dir is the working directory for every command; empty means the
	// process working directory.
	Dir string
}

func New() *ExecRunner {
	return &ExecRunner{}
}

func (e *ExecRunner) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	return e.RunWithInput(ctx, "", name, args...)
}

func (e *ExecRunner) RunWithInput(ctx context.Context, input, name string, args ...string) (*Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = e.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}

	err := cmd.Run()
	result := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("failed to run %s: %w", name, err)
	}

	return result, nil
}
