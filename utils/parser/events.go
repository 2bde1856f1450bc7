package parser

import (
	"fmt"

	"github.com/jonit-dev/night-watch-cli-sub005/models"
)

// ShouldIgnore reports whether an inbound event must never be routed:
// edits/joins and other subtypes, bot messages, and our own messages.
func ShouldIgnore(event models.InboundEvent, selfID string) bool {
	if event.SubType != "" || event.BotID != "" {
		return true
	}
	return selfID != "" && event.UserID == selfID
}

// BuildInboundKey is the dedup key of an inbound event. The event type is part of the
// key so the message and app_mention deliveries of the same post never collide.
func BuildInboundKey(channelID, ts string, eventType models.InboundEventType) string {
	return fmt.Sprintf("%s:%s:%s", channelID, ts, eventType)
}
