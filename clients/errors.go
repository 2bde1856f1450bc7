package clients

import (
	"errors"
	"fmt"
)

// ErrCommandFailed is returned when a process ran but exited non-zero
type ErrCommandFailed struct {
	Err      error
	ExitCode int
	Output   string
}

func (e *ErrCommandFailed) Error() string {
	return fmt.Sprintf("command failed with exit code %d: %v\nOutput: %s", e.ExitCode, e.Err, e.Output)
}

func (e *ErrCommandFailed) Unwrap() error {
	return e.Err
}

// IsCommandFailed checks if an error is a non-zero process exit
func IsCommandFailed(err error) (*ErrCommandFailed, bool) {
	var cmdErr *ErrCommandFailed
	if errors.As(err, &cmdErr) {
		return cmdErr, true
	}
	return nil, false
}
