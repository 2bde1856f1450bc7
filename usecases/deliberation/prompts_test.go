package deliberation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonit-dev/night-watch-cli-sub005/core"
	"github.com/jonit-dev/night-watch-cli-sub005/models"
)

var (
	maya   = models.Persona{ID: "maya", Name: "Maya Chen", Role: "Tech Lead", Expertise: []string{"architecture"}, IsActive: true}
	carlos = models.Persona{ID: "carlos", Name: "Carlos Ruiz", Role: "Security Engineer", Expertise: []string{"auth", "secrets"}, IsActive: true}
	priya  = models.Persona{ID: "priya", Name: "Priya Nair", Role: "Frontend Engineer", Expertise: []string{"react", "css", "accessibility"}, IsActive: true}
)

func testDiscussion() *models.Discussion {
	return &models.Discussion{
		ID: "disc_test",
		Trigger: models.Trigger{
			Type:      models.TriggerTypePRReview,
			Ref:       "acme/web#26",
			Context:   "Adds retry to the upload client",
			ChannelID: "C1",
			PRURL:     "https://github.com/acme/web/pull/26",
		},
		MaxRounds: 2,
		Lead:      maya,
		Transcript: []models.DiscussionMessage{
			{PersonaID: "maya", PersonaName: "Maya Chen", Round: 0, Text: "Opening review"},
		},
	}
}

func TestBuildContributionPrompt(t *testing.T) {
	t.Run("Round past the limit is an error", func(t *testing.T) {
		_, err := BuildContributionPrompt(testDiscussion(), carlos, 3)
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrRoundLimit)
	})

	t.Run("Round zero is an error", func(t *testing.T) {
		_, err := BuildContributionPrompt(testDiscussion(), carlos, 0)
		assert.ErrorIs(t, err, core.ErrRoundLimit)
	})

	t.Run("First round asks for a grounded message", func(t *testing.T) {
		prompt, err := BuildContributionPrompt(testDiscussion(), carlos, 1)
		require.NoError(t, err)
		assert.Contains(t, prompt, "round 1 of 2")
		assert.Contains(t, prompt, "file path")
		assert.Contains(t, prompt, "Adds retry to the upload client")
		assert.Contains(t, prompt, "Maya Chen: Opening review")
		assert.True(t, strings.HasSuffix(prompt, "reply with exactly SKIP."))
	})

	t.Run("Final round asks for a wrap-up", func(t *testing.T) {
		prompt, err := BuildContributionPrompt(testDiscussion(), carlos, 2)
		require.NoError(t, err)
		assert.Contains(t, prompt, "final round")
		assert.NotContains(t, prompt, "file path")
	})

	t.Run("Zero max rounds falls back to the default", func(t *testing.T) {
		discussion := testDiscussion()
		discussion.MaxRounds = 0
		_, err := BuildContributionPrompt(discussion, carlos, models.DefaultMaxRounds)
		assert.NoError(t, err)
		_, err = BuildContributionPrompt(discussion, carlos, models.DefaultMaxRounds+1)
		assert.ErrorIs(t, err, core.ErrRoundLimit)
	})

	t.Run("Long context is truncated", func(t *testing.T) {
		discussion := testDiscussion()
		discussion.Trigger.Context = strings.Repeat("x", maxContextChars*2)
		prompt, err := BuildContributionPrompt(discussion, carlos, 1)
		require.NoError(t, err)
		assert.Contains(t, prompt, "(truncated)")
		assert.Less(t, len(prompt), maxContextChars*2)
	})
}

func TestPersonaSystemPrompt(t *testing.T) {
	prompt := PersonaSystemPrompt(carlos)
	assert.Contains(t, prompt, "You are Carlos Ruiz, the team's Security Engineer.")
	assert.Contains(t, prompt, "auth, secrets")

	bare := PersonaSystemPrompt(models.Persona{Name: "Dev"})
	assert.True(t, strings.HasPrefix(bare, "You are Dev."))
}

func TestIsGrounded(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "File path", text: "The retry loop in internal/upload/client.go never backs off", want: true},
		{name: "File path with line", text: "see api/handler.ts:42 for the leak", want: true},
		{name: "Diff hunk", text: "@@ -10,3 +10,5 @@ adds a second retry", want: true},
		{name: "Log line", text: "CI says error: connection refused", want: true},
		{name: "Exit status", text: "the job ended with exit code 137", want: true},
		{name: "Inline code", text: "calling `uploadWithRetry` twice doubles the load", want: true},
		{name: "Plain opinion", text: "Looks good to me, ship it", want: false},
		{name: "Vague concern", text: "I worry about performance here", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsGrounded(tt.text))
		})
	}
}

func TestParseContribution(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		round int
		want  string
		skip  bool
	}{
		{name: "Literal SKIP", raw: "SKIP", round: 1, skip: true},
		{name: "Lowercase skip with punctuation", raw: "skip.", round: 2, skip: true},
		{name: "Quoted SKIP", raw: "\"SKIP\"", round: 2, skip: true},
		{name: "Empty", raw: "   ", round: 2, skip: true},
		{name: "No words", raw: "... ---", round: 2, skip: true},
		{name: "Ungrounded first round", raw: "Looks good to me", round: 1, skip: true},
		{name: "Ungrounded later round", raw: "Looks good to me", round: 2, want: "Looks good to me"},
		{
			name:  "Grounded first round",
			raw:   "  internal/upload/client.go retries without backoff  ",
			round: 1,
			want:  "internal/upload/client.go retries without backoff",
		},
		{
			name:  "Contribution starting with the verb skip",
			raw:   "Skip the retry in auth.go:42, it masks the 401",
			round: 1,
			want:  "Skip the retry in auth.go:42, it masks the 401",
		},
		{name: "Labelled SKIP", raw: "Carlos: SKIP", round: 2, skip: true},
		{
			name:  "Speaker label is stripped",
			raw:   "Carlos: `token.Verify` is skipped on refresh",
			round: 1,
			want:  "`token.Verify` is skipped on refresh",
		},
		{
			name:  "Bold full name label is stripped",
			raw:   "**Carlos Ruiz**: agree with the plan",
			round: 2,
			want:  "agree with the plan",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseContribution(tt.raw, carlos, tt.round)
			if tt.skip {
				assert.True(t, got.IsAbsent(), "expected skip, got %q", got.OrEmpty())
				return
			}
			require.True(t, got.IsPresent())
			assert.Equal(t, tt.want, got.MustGet())
		})
	}

	t.Run("Long reply is truncated", func(t *testing.T) {
		got := ParseContribution(strings.Repeat("word ", maxReplyChars), carlos, 2)
		require.True(t, got.IsPresent())
		assert.Contains(t, got.MustGet(), "(truncated)")
	})
}

func TestBuildReplyPrompt(t *testing.T) {
	prompt := BuildReplyPrompt(carlos, "  is the token rotated?  ", []string{"Maya: we shipped it"})
	assert.Contains(t, prompt, "- Maya: we shipped it")
	assert.Contains(t, prompt, "is the token rotated?")
	assert.Contains(t, prompt, "Reply as Carlos")

	withoutHistory := BuildReplyPrompt(carlos, "hi", nil)
	assert.NotContains(t, withoutHistory, "Recent thread messages")
}

func TestBuildOpener(t *testing.T) {
	t.Run("Same ref always gets the same opener", func(t *testing.T) {
		trigger := models.Trigger{Type: models.TriggerTypeBuildFailure, Ref: "acme/web#main-1234"}
		first := BuildOpener(trigger)
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, BuildOpener(trigger))
		}
		assert.Contains(t, first, "acme/web#main-1234")
	})

	t.Run("Every trigger type has a template", func(t *testing.T) {
		for _, triggerType := range []models.TriggerType{
			models.TriggerTypePRReview,
			models.TriggerTypeBuildFailure,
			models.TriggerTypePRDKickoff,
			models.TriggerTypeCodeWatch,
			models.TriggerTypeIssueReview,
		} {
			opener := BuildOpener(models.Trigger{Type: triggerType, Ref: "ref-1"})
			assert.Contains(t, openerTemplates[triggerType], strings.Replace(opener, "ref-1", "%s", 1))
		}
	})

	t.Run("PR review shows the PR URL", func(t *testing.T) {
		opener := BuildOpener(models.Trigger{
			Type:  models.TriggerTypePRReview,
			Ref:   "acme/web#26",
			PRURL: "https://github.com/acme/web/pull/26",
		})
		assert.Contains(t, opener, "https://github.com/acme/web/pull/26")
	})

	t.Run("Unknown type uses the fallback", func(t *testing.T) {
		opener := BuildOpener(models.Trigger{Type: "mystery", Ref: "thing"})
		assert.Equal(t, "Let's talk about thing.", opener)
	})
}
