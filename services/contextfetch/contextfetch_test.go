package contextfetch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonit-dev/night-watch-cli-sub005/clients"
	githubclient "github.com/jonit-dev/night-watch-cli-sub005/clients/github"
	"github.com/jonit-dev/night-watch-cli-sub005/models"
)

func TestParseGitHubRef(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected GitHubRef
		wantErr  bool
	}{
		{
			name:     "Issue",
			url:      "https://github.com/acme/web/issues/42",
			expected: GitHubRef{Owner: "acme", Repo: "web", Kind: "issues", Number: 42},
		},
		{
			name:     "Pull request",
			url:      "https://github.com/acme/night-watch-cli/pull/25",
			expected: GitHubRef{Owner: "acme", Repo: "night-watch-cli", Kind: "pull", Number: 25},
		},
		{name: "Not GitHub", url: "https://gitlab.com/acme/web/issues/1", wantErr: true},
		{name: "Repository root", url: "https://github.com/acme/web", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ParseGitHubRef(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ref)
		})
	}
}

func newMockGitHub() *githubclient.MockGitHubClient {
	mock := githubclient.NewMockGitHubClient()
	mock.MockGetIssue = func(ctx context.Context, owner, repo string, number int) (*clients.GitHubIssue, error) {
		return &clients.GitHubIssue{
			Number: number,
			Title:  "Login fails on Safari",
			Body:   "Clicking login does nothing.",
			State:  "open",
			Labels: []string{"bug"},
		}, nil
	}
	mock.MockGetPullRequest = func(ctx context.Context, owner, repo string, number int) (*clients.GitHubPullRequest, error) {
		return &clients.GitHubPullRequest{Number: number, Title: "Fix login", HeadRef: "fix/login", BaseRef: "main"}, nil
	}
	mock.MockGetPullRequestDiff = func(ctx context.Context, owner, repo string, number int) (string, error) {
		return "diff --git a/src/login.ts b/src/login.ts\n+  await submit()\n", nil
	}
	return mock
}

func TestContextFetcherService_FetchIssueContext(t *testing.T) {
	service := NewContextFetcherService(newMockGitHub())

	text, err := service.FetchIssueContext(context.Background(), "https://github.com/acme/web/issues/42")
	require.NoError(t, err)
	assert.Contains(t, text, "Issue #42: Login fails on Safari")
	assert.Contains(t, text, "Repository: acme/web")
	assert.Contains(t, text, "Labels: bug")
	assert.Contains(t, text, "Clicking login does nothing.")
}

func TestContextFetcherService_FetchPullRequestContext(t *testing.T) {
	t.Run("With diff", func(t *testing.T) {
		service := NewContextFetcherService(newMockGitHub())

		text, err := service.FetchPullRequestContext(context.Background(), "https://github.com/acme/web/pull/7")
		require.NoError(t, err)
		assert.Contains(t, text, "Pull request #7: Fix login")
		assert.Contains(t, text, "Branch: fix/login -> main")
		assert.Contains(t, text, "```diff\ndiff --git a/src/login.ts b/src/login.ts")
	})

	t.Run("Diff failure is tolerated", func(t *testing.T) {
		mock := newMockGitHub()
		mock.MockGetPullRequestDiff = func(ctx context.Context, owner, repo string, number int) (string, error) {
			return "", errors.New("boom")
		}
		service := NewContextFetcherService(mock)

		text, err := service.FetchPullRequestContext(context.Background(), "https://github.com/acme/web/pull/7")
		require.NoError(t, err)
		assert.NotContains(t, text, "Diff:")
	})

	t.Run("Pull request failure", func(t *testing.T) {
		service := NewContextFetcherService(githubclient.NewMockGitHubClient())

		_, err := service.FetchPullRequestContext(context.Background(), "https://github.com/acme/web/pull/7")
		require.Error(t, err)
	})
}

func TestContextFetcherService_EnrichTrigger(t *testing.T) {
	service := NewContextFetcherService(newMockGitHub())

	t.Run("Issue review trigger", func(t *testing.T) {
		trigger := models.Trigger{Type: models.TriggerTypeIssueReview, Ref: "https://github.com/acme/web/issues/42"}
		enriched := service.EnrichTrigger(context.Background(), trigger)
		assert.Contains(t, enriched.Context, "Issue #42")
	})

	t.Run("PR trigger keeps existing context first", func(t *testing.T) {
		trigger := models.Trigger{
			Type:    models.TriggerTypePRReview,
			Ref:     "acme/web#7",
			Context: "CI is red",
			PRURL:   "https://github.com/acme/web/pull/7",
		}
		enriched := service.EnrichTrigger(context.Background(), trigger)
		assert.Regexp(t, `(?s)^CI is red\n\nPull request #7`, enriched.Context)
	})

	t.Run("Failure leaves trigger untouched", func(t *testing.T) {
		failing := NewContextFetcherService(githubclient.NewMockGitHubClient())
		trigger := models.Trigger{Type: models.TriggerTypeIssueReview, Ref: "https://github.com/acme/web/issues/1", Context: "orig"}
		assert.Equal(t, trigger, failing.EnrichTrigger(context.Background(), trigger))
	})

	t.Run("Trigger without tracker reference", func(t *testing.T) {
		trigger := models.Trigger{Type: models.TriggerTypeBuildFailure, Ref: "build-991", Context: "log"}
		assert.Equal(t, trigger, service.EnrichTrigger(context.Background(), trigger))
	})
}
