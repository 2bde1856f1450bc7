package clients

import "context"

// SlackClient is the subset of the Slack Web API the orchestrator posts through
type SlackClient interface {
	AuthTest(ctx context.Context) (*SlackAuthTestResponse, error)
	PostMessage(ctx context.Context, channelID string, message SlackMessage) (*SlackPostMessageResponse, error)
}

// AIClient runs a single prompt/response completion
type AIClient interface {
	Complete(ctx context.Context, request CompletionRequest) (string, error)
}

// GitHubClient reads issue and pull request content from the tracker
type GitHubClient interface {
	GetIssue(ctx context.Context, owner, repo string, number int) (*GitHubIssue, error)
	GetPullRequest(ctx context.Context, owner, repo string, number int) (*GitHubPullRequest, error)
	GetPullRequestDiff(ctx context.Context, owner, repo string, number int) (string, error)
}

// ProcessRunner runs a command to completion
type ProcessRunner interface {
	Run(ctx context.Context, spec CommandSpec) (*ProcessResult, error)
}
