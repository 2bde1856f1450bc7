package models

import "time"

// DefaultMaxRounds is the number of deliberation rounds a discussion runs at most
const DefaultMaxRounds = 2

// DiscussionStatus is the lifecycle state of a discussion
type DiscussionStatus string

const (
	DiscussionStatusOpen   DiscussionStatus = "open"
	DiscussionStatusClosed DiscussionStatus = "closed"
)

// DiscussionMessage is one posted contribution in a discussion transcript
type DiscussionMessage struct {
	PersonaID   string
	PersonaName string
	Round       int
	Text        string
	TS          string
	PostedAt    time.Time
}

// Discussion is a bounded multi-round deliberation between personas in one thread
type Discussion struct {
	ID           string
	Trigger      Trigger
	ThreadTS     string
	Round        int
	MaxRounds    int
	Lead         Persona
	Contributors []Persona
	Transcript   []DiscussionMessage
	Status       DiscussionStatus
}
