package utils

import (
	"hash/fnv"
	"regexp"
	"strings"
)

func AssertInvariant(condition bool, message string) {
	if !condition {
		panic("invariant violated - " + message)
	}
}

var (
	slackMentionRegex   = regexp.MustCompile(`<@[^>|]+(?:\|[^>]+)?>`)
	markdownLinkRegex   = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	markdownHeadingLine = regexp.MustCompile(`(?m)^#+\s*(.+)$`)
	markdownBoldRegex   = regexp.MustCompile(`\*\*(.+?)\*\*`)
)

// StripMentions removes Slack user mentions (<@U123> or <@U123|name>) from message text
func StripMentions(text string) string {
	text = slackMentionRegex.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// ContainsUserMention reports whether text mentions the given Slack user id.
func ContainsUserMention(text, userID string) bool {
	if userID == "" {
		return false
	}
	return strings.Contains(text, "<@"+userID+">") || strings.Contains(text, "<@"+userID+"|")
}

// StableHash returns a deterministic 32-bit FNV-1a hash of s.
// Used wherever a choice must be repeatable for the same input across restarts.
func StableHash(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

// Truncate cuts s to at most max runes, appending a marker when something was removed.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "\n…(truncated)"
}

// ConvertMarkdownToSlack converts the markdown produced by AI models into Slack mrkdwn.
func ConvertMarkdownToSlack(message string) string {
	result := markdownLinkRegex.ReplaceAllString(message, "<$2|$1>")

	result = markdownHeadingLine.ReplaceAllStringFunc(result, func(match string) string {
		content := markdownHeadingLine.ReplaceAllString(match, "$1")
		content = markdownBoldRegex.ReplaceAllString(content, "$1")
		return "*" + content + "*"
	})

	return markdownBoldRegex.ReplaceAllString(result, "*$1*")
}
