package clients

type SlackAuthTestResponse struct {
	UserID string
	TeamID string
	BotID  string
}

// SlackMessage is a message posted under a custom identity
type SlackMessage struct {
	Text     string
	ThreadTS string
	Username string
	IconURL  string
}

type SlackPostMessageResponse struct {
	Channel   string
	Timestamp string
}

type CompletionRequest struct {
	System    string
	Prompt    string
	MaxTokens int
}

type GitHubIssue struct {
	Number  int
	Title   string
	Body    string
	State   string
	HTMLURL string
	Labels  []string
}

type GitHubPullRequest struct {
	Number  int
	Title   string
	Body    string
	State   string
	HTMLURL string
	HeadRef string
	BaseRef string
}

// CommandSpec describes a process invocation
type CommandSpec struct {
	Name string
	Args []string
	Dir  string
	// Env is appended to the current process environment
	Env []string
}

type ProcessResult struct {
	ExitCode int
	Output   string
}
