package github

import (
	"context"
	"fmt"

	"github.com/jonit-dev/night-watch-cli-sub005/clients"
	"github.com/jonit-dev/night-watch-cli-sub005/core"
)

// MockGitHubClient implements GitHubClient interface for testing
type MockGitHubClient struct {
	MockGetIssue           func(ctx context.Context, owner, repo string, number int) (*clients.GitHubIssue, error)
	MockGetPullRequest     func(ctx context.Context, owner, repo string, number int) (*clients.GitHubPullRequest, error)
	MockGetPullRequestDiff func(ctx context.Context, owner, repo string, number int) (string, error)
}

func NewMockGitHubClient() *MockGitHubClient {
	return &MockGitHubClient{}
}

func (m *MockGitHubClient) GetIssue(ctx context.Context, owner, repo string, number int) (*clients.GitHubIssue, error) {
	if m.MockGetIssue != nil {
		return m.MockGetIssue(ctx, owner, repo, number)
	}
	return nil, fmt.Errorf("issue %s/%s#%d: %w", owner, repo, number, core.ErrNotFound)
}

func (m *MockGitHubClient) GetPullRequest(ctx context.Context, owner, repo string, number int) (*clients.GitHubPullRequest, error) {
	if m.MockGetPullRequest != nil {
		return m.MockGetPullRequest(ctx, owner, repo, number)
	}
	return nil, fmt.Errorf("pull request %s/%s#%d: %w", owner, repo, number, core.ErrNotFound)
}

func (m *MockGitHubClient) GetPullRequestDiff(ctx context.Context, owner, repo string, number int) (string, error) {
	if m.MockGetPullRequestDiff != nil {
		return m.MockGetPullRequestDiff(ctx, owner, repo, number)
	}
	return "", fmt.Errorf("pull request diff %s/%s#%d: %w", owner, repo, number, core.ErrNotFound)
}
