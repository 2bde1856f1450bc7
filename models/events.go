package models

// InboundEventType is the Slack event type an InboundEvent came from
type InboundEventType string

const (
	InboundEventTypeMessage    InboundEventType = "message"
	InboundEventTypeAppMention InboundEventType = "app_mention"
)

// InboundEvent is a chat event as delivered by the transport. It may be redelivered.
type InboundEvent struct {
	Type      InboundEventType
	SubType   string
	BotID     string
	UserID    string
	ChannelID string
	TS        string
	ThreadTS  string
	Text      string
}

// IsRoot reports whether the event is a top-level channel message rather than a thread reply
func (e InboundEvent) IsRoot() bool {
	return e.ThreadTS == "" || e.ThreadTS == e.TS
}

// ReplyThreadTS returns the thread a reply to this event should go into
func (e InboundEvent) ReplyThreadTS() string {
	if e.ThreadTS != "" {
		return e.ThreadTS
	}
	return e.TS
}
