package process

import (
	"context"
	"sync"

	"github.com/jonit-dev/night-watch-cli-sub005/clients"
)

// MockProcessRunner implements ProcessRunner interface for testing
type MockProcessRunner struct {
	MockRun func(ctx context.Context, spec clients.CommandSpec) (*clients.ProcessResult, error)

	mu    sync.Mutex
	specs []clients.CommandSpec
}

func NewMockProcessRunner() *MockProcessRunner {
	return &MockProcessRunner{}
}

// Run records the spec and delegates to MockRun, succeeding by default
func (m *MockProcessRunner) Run(ctx context.Context, spec clients.CommandSpec) (*clients.ProcessResult, error) {
	m.mu.Lock()
	m.specs = append(m.specs, spec)
	m.mu.Unlock()

	if m.MockRun != nil {
		return m.MockRun(ctx, spec)
	}
	return &clients.ProcessResult{ExitCode: 0}, nil
}

// Specs returns every command spec run so far
func (m *MockProcessRunner) Specs() []clients.CommandSpec {
	m.mu.Lock()
	defer m.mu.Unlock()
	specs := make([]clients.CommandSpec, len(m.specs))
	copy(specs, m.specs)
	return specs
}
