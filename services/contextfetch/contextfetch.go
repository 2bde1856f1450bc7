package contextfetch

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jonit-dev/night-watch-cli-sub005/clients"
	"github.com/jonit-dev/night-watch-cli-sub005/core"
	"github.com/jonit-dev/night-watch-cli-sub005/core/log"
	"github.com/jonit-dev/night-watch-cli-sub005/models"
	"github.com/jonit-dev/night-watch-cli-sub005/utils"
)

const (
	DefaultMaxBodyChars = 4000
	DefaultMaxDiffChars = 12000
)

var githubRefRegex = regexp.MustCompile(`(?i)github\.com/([\w.-]+)/([\w.-]+)/(issues|pull)/(\d+)`)

// GitHubRef identifies an issue or pull request
type GitHubRef struct {
	Owner  string
	Repo   string
	Kind   string
	Number int
}

// ParseGitHubRef extracts owner, repo, kind ("issues" or "pull") and number from a GitHub URL
func ParseGitHubRef(rawURL string) (GitHubRef, error) {
	m := githubRefRegex.FindStringSubmatch(rawURL)
	if m == nil {
		return GitHubRef{}, fmt.Errorf("not a GitHub issue or pull request URL: %s", rawURL)
	}
	number, err := strconv.Atoi(m[4])
	if err != nil {
		return GitHubRef{}, fmt.Errorf("invalid number in %s: %w", rawURL, err)
	}
	return GitHubRef{Owner: m[1], Repo: m[2], Kind: strings.ToLower(m[3]), Number: number}, nil
}

type ContextFetcherService struct {
	githubClient clients.GitHubClient
	maxBodyChars int
	maxDiffChars int
}

func NewContextFetcherService(githubClient clients.GitHubClient) *ContextFetcherService {
	return &ContextFetcherService{
		githubClient: githubClient,
		maxBodyChars: DefaultMaxBodyChars,
		maxDiffChars: DefaultMaxDiffChars,
	}
}

// FetchIssueContext renders an issue's title, labels and body for prompts
func (s *ContextFetcherService) FetchIssueContext(ctx context.Context, issueURL string) (string, error) {
	log.Info("📋 Starting to fetch issue context for %s", issueURL)
	ref, err := ParseGitHubRef(issueURL)
	if err != nil {
		return "", err
	}

	issue, err := s.githubClient.GetIssue(ctx, ref.Owner, ref.Repo, ref.Number)
	if err != nil {
		return "", fmt.Errorf("failed to fetch issue %s: %w", issueURL, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Issue #%d: %s\n", issue.Number, issue.Title)
	fmt.Fprintf(&b, "Repository: %s/%s\n", ref.Owner, ref.Repo)
	if issue.State != "" {
		fmt.Fprintf(&b, "State: %s\n", issue.State)
	}
	if len(issue.Labels) > 0 {
		fmt.Fprintf(&b, "Labels: %s\n", strings.Join(issue.Labels, ", "))
	}
	if body := strings.TrimSpace(issue.Body); body != "" {
		b.WriteString("\n")
		b.WriteString(utils.Truncate(body, s.maxBodyChars))
	}

	log.Info("📋 Completed successfully - fetched issue #%d", issue.Number)
	return b.String(), nil
}

// FetchPullRequestContext renders a pull request's description and diff for prompts.
// A diff that cannot be fetched is left out rather than failing the whole context.
func (s *ContextFetcherService) FetchPullRequestContext(ctx context.Context, prURL string) (string, error) {
	log.Info("📋 Starting to fetch pull request context for %s", prURL)
	ref, err := ParseGitHubRef(prURL)
	if err != nil {
		return "", err
	}

	pr, err := s.githubClient.GetPullRequest(ctx, ref.Owner, ref.Repo, ref.Number)
	if err != nil {
		return "", fmt.Errorf("failed to fetch pull request %s: %w", prURL, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Pull request #%d: %s\n", pr.Number, pr.Title)
	fmt.Fprintf(&b, "Repository: %s/%s\n", ref.Owner, ref.Repo)
	if pr.HeadRef != "" {
		fmt.Fprintf(&b, "Branch: %s -> %s\n", pr.HeadRef, pr.BaseRef)
	}
	if body := strings.TrimSpace(pr.Body); body != "" {
		b.WriteString("\n")
		b.WriteString(utils.Truncate(body, s.maxBodyChars))
		b.WriteString("\n")
	}

	diff, err := s.githubClient.GetPullRequestDiff(ctx, ref.Owner, ref.Repo, ref.Number)
	if err != nil {
		log.Warn("⚠️ Failed to fetch diff for %s: %v", prURL, err)
	} else if strings.TrimSpace(diff) != "" {
		b.WriteString("\nDiff:\n```diff\n")
		b.WriteString(utils.Truncate(strings.TrimRight(diff, "\n"), s.maxDiffChars))
		b.WriteString("\n```")
	}

	log.Info("📋 Completed successfully - fetched pull request #%d", pr.Number)
	return b.String(), nil
}

// EnrichTrigger appends tracker context to a trigger. Fetch failures are logged and the
// trigger is returned with whatever context it already had.
func (s *ContextFetcherService) EnrichTrigger(ctx context.Context, trigger models.Trigger) models.Trigger {
	var (
		fetched string
		err     error
	)

	switch {
	case trigger.PRURL != "":
		fetched, err = s.FetchPullRequestContext(ctx, trigger.PRURL)
	case trigger.Type == models.TriggerTypeIssueReview:
		fetched, err = s.FetchIssueContext(ctx, trigger.Ref)
	default:
		return trigger
	}

	if err != nil {
		if core.IsNotFoundError(err) {
			log.Warn("⚠️ %s no longer exists or is private, discussing without it", trigger.Ref)
		} else {
			log.Error("❌ Could not fetch context for trigger %s (%s): %v", trigger.Type, trigger.Ref, err)
		}
		return trigger
	}

	if strings.TrimSpace(trigger.Context) == "" {
		trigger.Context = fetched
	} else {
		trigger.Context = strings.TrimSpace(trigger.Context) + "\n\n" + fetched
	}
	return trigger
}
