package deliberation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/samber/mo"

	"github.com/jonit-dev/night-watch-cli-sub005/core"
	"github.com/jonit-dev/night-watch-cli-sub005/models"
	"github.com/jonit-dev/night-watch-cli-sub005/utils"
)

// SkipSentinel is what a persona answers when it has nothing to add
const SkipSentinel = "SKIP"

const (
	maxContextChars    = 6000
	maxTranscriptChars = 600
	maxReplyChars      = 1200
)

var (
	skipReplyRegex  = regexp.MustCompile(`(?i)^\W*skip\W*$`)
	filePathRegex   = regexp.MustCompile(`(?:^|[\s(\x60'"])(?:[\w.-]+/)*[\w.-]+\.(?:go|ts|tsx|js|jsx|mjs|py|rb|java|kt|rs|c|h|cpp|cs|php|swift|md|json|ya?ml|toml|sql|sh|css|scss|html|vue|svelte|proto|tf|lock|mod)(?::\d+)?\b`)
	diffHunkRegex   = regexp.MustCompile(`(?m)@@ -\d+(?:,\d+)? \+\d+(?:,\d+)? @@|^[+-][^+-]`)
	logLineRegex    = regexp.MustCompile(`(?i)\b(?:error|fail(?:ed|ure)?|panic|exception|traceback|fatal|warn(?:ing)?)\b[:\]]|\bexit (?:code|status) \d+|\b\d{2}:\d{2}:\d{2}\b`)
	inlineCodeRegex = regexp.MustCompile("`[^`\n]{3,}`")
	hasLetterRegex  = regexp.MustCompile(`\pL`)
)

// PersonaSystemPrompt is the system prompt every completion for persona runs under
func PersonaSystemPrompt(persona models.Persona) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s", persona.Name)
	if persona.Role != "" {
		fmt.Fprintf(&b, ", the team's %s", persona.Role)
	}
	b.WriteString(".")
	if len(persona.Expertise) > 0 {
		fmt.Fprintf(&b, " Your expertise: %s.", strings.Join(persona.Expertise, ", "))
	}
	b.WriteString(" You are chatting with teammates in a Slack thread. Write like a busy senior engineer: " +
		"short, direct, specific. No greetings, no sign-offs, no markdown headings, never speak for anyone else.")
	return b.String()
}

// BuildContributionPrompt builds the prompt asking persona for its message in the given round.
// Asking for a round outside 1..MaxRounds is an error.
func BuildContributionPrompt(discussion *models.Discussion, persona models.Persona, round int) (string, error) {
	maxRounds := discussion.MaxRounds
	if maxRounds <= 0 {
		maxRounds = models.DefaultMaxRounds
	}
	if round < 1 || round > maxRounds {
		return "", fmt.Errorf("round %d of %d for discussion %s: %w", round, maxRounds, discussion.ID, core.ErrRoundLimit)
	}

	trigger := discussion.Trigger
	var b strings.Builder

	fmt.Fprintf(&b, "Discussion: %s (%s)\n", trigger.Ref, trigger.Type)
	if trigger.ProjectPath != "" {
		fmt.Fprintf(&b, "Project: %s\n", trigger.ProjectPath)
	}
	if trigger.PRURL != "" {
		fmt.Fprintf(&b, "Pull request: %s\n", trigger.PRURL)
	}
	if ctx := strings.TrimSpace(trigger.Context); ctx != "" {
		fmt.Fprintf(&b, "\nContext:\n%s\n", utils.Truncate(ctx, maxContextChars))
	}

	if len(discussion.Transcript) > 0 {
		b.WriteString("\nThread so far:\n")
		for _, msg := range discussion.Transcript {
			fmt.Fprintf(&b, "- %s: %s\n", msg.PersonaName, utils.Truncate(msg.Text, maxTranscriptChars))
		}
	}

	fmt.Fprintf(&b, "\nYou are %s. This is round %d of %d.\n", persona.Name, round, maxRounds)
	switch {
	case round == maxRounds:
		b.WriteString("This is the final round. Give a decisive wrap-up: one clear recommendation or next step " +
			"in at most two sentences. Do not open new questions. ")
	case round == 1:
		b.WriteString("Add one short message (at most three sentences) only if your expertise gives you something " +
			"concrete. It must cite a specific artifact: a file path, a diff hunk, or a log line. ")
	default:
		b.WriteString("Reply to what others said only if you disagree or can add something new and specific. ")
	}
	fmt.Fprintf(&b, "If you have nothing concrete to add, reply with exactly %s.", SkipSentinel)

	return b.String(), nil
}

// IsGrounded reports whether text cites a concrete artifact: a file path, a diff hunk,
// a log line or an inline code reference.
func IsGrounded(text string) bool {
	return filePathRegex.MatchString(text) ||
		diffHunkRegex.MatchString(text) ||
		logLineRegex.MatchString(text) ||
		inlineCodeRegex.MatchString(text)
}

// stripSpeakerLabel removes a leading "Maya:" or "**Maya Chen**:" the model sometimes adds
func stripSpeakerLabel(text string, persona models.Persona) string {
	for _, name := range []string{persona.Name, persona.FirstName()} {
		if name == "" {
			continue
		}
		for _, label := range []string{name + ":", "**" + name + "**:", "**" + name + ":**"} {
			if len(text) >= len(label) && strings.EqualFold(text[:len(label)], label) {
				return strings.TrimSpace(text[len(label):])
			}
		}
	}
	return text
}

// ParseContribution turns a raw completion into a message, or None for an explicit or implicit SKIP.
// Empty output, output with no words and, in round 1, output citing no artifact count as SKIP.
func ParseContribution(raw string, persona models.Persona, round int) mo.Option[string] {
	text := strings.Trim(strings.TrimSpace(raw), "\"")
	text = stripSpeakerLabel(strings.TrimSpace(text), persona)

	if text == "" || skipReplyRegex.MatchString(text) || !hasLetterRegex.MatchString(text) {
		return mo.None[string]()
	}
	if round == 1 && !IsGrounded(text) {
		return mo.None[string]()
	}

	return mo.Some(utils.Truncate(text, maxReplyChars))
}

// BuildReplyPrompt asks persona for a single in-character reply to a chat message
func BuildReplyPrompt(persona models.Persona, message string, history []string) string {
	var b strings.Builder
	if len(history) > 0 {
		b.WriteString("Recent thread messages:\n")
		for _, line := range history {
			fmt.Fprintf(&b, "- %s\n", utils.Truncate(line, maxTranscriptChars))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "A teammate just wrote:\n%s\n\n", utils.Truncate(strings.TrimSpace(message), maxContextChars))
	fmt.Fprintf(&b, "Reply as %s in one to three sentences. Stay in character and answer what was asked.", persona.FirstName())
	return b.String()
}
