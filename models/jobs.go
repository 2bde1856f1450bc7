package models

// JobStatus is the lifecycle state of a spawned background job
type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusSkipped   JobStatus = "skipped"
)

// JobParams are passed through to the CLI invocation
type JobParams struct {
	ProjectHint  string
	PRNumber     string
	IssueNumber  string
	FixConflicts bool
	Provider     string
	Prompt       string
}

// Job is a background CLI process started on behalf of a chat request
type Job struct {
	ID          string
	Kind        JobKind
	ProjectName string
	ProjectPath string
	ChannelID   string
	ThreadTS    string
	PersonaID   string
	Params      JobParams
	Status      JobStatus
	ExitCode    int
}
