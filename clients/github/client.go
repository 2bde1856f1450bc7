package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v68/github"

	"github.com/jonit-dev/night-watch-cli-sub005/clients"
	"github.com/jonit-dev/night-watch-cli-sub005/core"
)

const DefaultAPIURL = "https://api.github.com"

// GitHubClient implements the clients.GitHubClient interface over go-github
type GitHubClient struct {
	client *gh.Client
}

// NewGitHubClient creates a client. An empty token works for public repositories.
// apiURL points at a GitHub Enterprise or test server; empty means github.com.
func NewGitHubClient(apiURL, token string) clients.GitHubClient {
	client := gh.NewClient(&http.Client{Timeout: 30 * time.Second})
	if token != "" {
		client = client.WithAuthToken(token)
	}

	if apiURL != "" && strings.TrimRight(apiURL, "/") != DefaultAPIURL {
		baseURL, err := url.Parse(strings.TrimRight(apiURL, "/") + "/")
		if err == nil {
			client.BaseURL = baseURL
		}
	}

	return &GitHubClient{client: client}
}

// wrapError maps a 404 to core.ErrNotFound so callers can tell a missing resource from an outage
func wrapError(resource string, err error) error {
	var errResp *gh.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil && errResp.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("GitHub resource %s: %w", resource, core.ErrNotFound)
	}
	return fmt.Errorf("failed to fetch GitHub resource %s: %w", resource, err)
}

// GetIssue fetches an issue's title, body and labels
func (c *GitHubClient) GetIssue(ctx context.Context, owner, repo string, number int) (*clients.GitHubIssue, error) {
	issue, _, err := c.client.Issues.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, wrapError(fmt.Sprintf("%s/%s#%d", owner, repo, number), err)
	}

	result := &clients.GitHubIssue{
		Number:  issue.GetNumber(),
		Title:   issue.GetTitle(),
		Body:    issue.GetBody(),
		State:   issue.GetState(),
		HTMLURL: issue.GetHTMLURL(),
	}
	for _, label := range issue.Labels {
		result.Labels = append(result.Labels, label.GetName())
	}
	return result, nil
}

// GetPullRequest fetches a pull request's metadata
func (c *GitHubClient) GetPullRequest(ctx context.Context, owner, repo string, number int) (*clients.GitHubPullRequest, error) {
	pr, _, err := c.client.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, wrapError(fmt.Sprintf("%s/%s!%d", owner, repo, number), err)
	}

	return &clients.GitHubPullRequest{
		Number:  pr.GetNumber(),
		Title:   pr.GetTitle(),
		Body:    pr.GetBody(),
		State:   pr.GetState(),
		HTMLURL: pr.GetHTMLURL(),
		HeadRef: pr.GetHead().GetRef(),
		BaseRef: pr.GetBase().GetRef(),
	}, nil
}

// GetPullRequestDiff fetches the unified diff of a pull request
func (c *GitHubClient) GetPullRequestDiff(ctx context.Context, owner, repo string, number int) (string, error) {
	diff, _, err := c.client.PullRequests.GetRaw(ctx, owner, repo, number, gh.RawOptions{Type: gh.Diff})
	if err != nil {
		return "", wrapError(fmt.Sprintf("%s/%s!%d diff", owner, repo, number), err)
	}
	return diff, nil
}
