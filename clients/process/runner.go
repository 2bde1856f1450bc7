package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/jonit-dev/night-watch-cli-sub005/clients"
	"github.com/jonit-dev/night-watch-cli-sub005/core/log"
)

// ExecRunner implements clients.ProcessRunner with os/exec
type ExecRunner struct{}

func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes the command and waits for it. A non-zero exit is returned as *clients.ErrCommandFailed
// together with the result; any other error means the process could not be started.
func (r *ExecRunner) Run(ctx context.Context, spec clients.CommandSpec) (*clients.ProcessResult, error) {
	log.Info("📋 Starting to run command: %s %v (dir: %s)", spec.Name, spec.Args, spec.Dir)

	cmd := exec.CommandContext(ctx, spec.Name, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = append(os.Environ(), spec.Env...)

	output, err := cmd.CombinedOutput()
	result := &clients.ProcessResult{Output: string(output)}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			log.Error("❌ Command %s exited with code %d", spec.Name, result.ExitCode)
			return result, &clients.ErrCommandFailed{Err: err, ExitCode: result.ExitCode, Output: result.Output}
		}
		log.Error("❌ Failed to start command %s: %v", spec.Name, err)
		return nil, fmt.Errorf("failed to start %s: %w", spec.Name, err)
	}

	log.Info("📋 Completed successfully - command %s exited cleanly", spec.Name)
	return result, nil
}
