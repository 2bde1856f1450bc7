package models

// TriggerType identifies what kind of situation opened a discussion
type TriggerType string

const (
	TriggerTypePRReview     TriggerType = "pr_review"
	TriggerTypeBuildFailure TriggerType = "build_failure"
	TriggerTypePRDKickoff   TriggerType = "prd_kickoff"
	TriggerTypeCodeWatch    TriggerType = "code_watch"
	TriggerTypeIssueReview  TriggerType = "issue_review"
)

// Trigger describes an event that may open a multi-persona discussion
type Trigger struct {
	Type        TriggerType
	Ref         string
	Context     string
	ChannelID   string
	ThreadTS    string
	ProjectPath string
	PRURL       string
}
