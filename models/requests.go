package models

// JobKind is a CLI subcommand the agent can be asked to run
type JobKind string

const (
	JobKindRun      JobKind = "run"
	JobKindReview   JobKind = "review"
	JobKindQA       JobKind = "qa"
	JobKindProvider JobKind = "provider"
)

// JobRequest is a request to run one of the agent's CLI jobs
type JobRequest struct {
	Job          JobKind
	ProjectHint  string
	PRNumber     string
	FixConflicts bool
}

// ProviderRequest is a direct invocation of an AI provider CLI with a free-form prompt
type ProviderRequest struct {
	Provider    string
	ProjectHint string
	Prompt      string
}

// IssuePickupRequest asks the agent to implement a tracker issue
type IssuePickupRequest struct {
	IssueNumber string
	IssueURL    string
	RepoHint    string
}

// IssueReviewable is a bare issue link posted in a channel, which may open a discussion
type IssueReviewable struct {
	IssueNumber string
	IssueURL    string
	RepoHint    string
}
