package anthropic

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/jonit-dev/night-watch-cli-sub005/clients"
)

// MockAIClient is a mock implementation of clients.AIClient
type MockAIClient struct {
	mock.Mock
}

// NewMockAIClient creates a new mock client for testing
func NewMockAIClient() *MockAIClient {
	return &MockAIClient{}
}

// Complete mocks a completion call
func (m *MockAIClient) Complete(ctx context.Context, request clients.CompletionRequest) (string, error) {
	args := m.Called(ctx, request)
	return args.String(0), args.Error(1)
}

// WithResponse configures the mock to answer every completion with text
func (m *MockAIClient) WithResponse(text string) *MockAIClient {
	m.On("Complete", mock.Anything, mock.Anything).Return(text, nil)
	return m
}
