package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonit-dev/night-watch-cli-sub005/models"
)

func TestParseJobRequest(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected models.JobRequest
	}{
		{
			name:     "Run with project after verb and bot mention",
			text:     "<@UBOT> please run night-watch-cli now",
			expected: models.JobRequest{Job: models.JobKindRun, ProjectHint: "night-watch-cli"},
		},
		{
			name:     "Review without hint",
			text:     "hey can you review?",
			expected: models.JobRequest{Job: models.JobKindReview},
		},
		{
			name: "Merge issues with PR link implies review with conflict fix",
			text: "Can someone fix these merge issues? https://github.com/jonit-dev/night-watch-cli/pull/25",
			expected: models.JobRequest{
				Job:          models.JobKindReview,
				ProjectHint:  "night-watch-cli",
				PRNumber:     "25",
				FixConflicts: true,
			},
		},
		{
			name: "Review and fix conflicts of a PR",
			text: "review and fix conflicts of this PR https://github.com/OWNER/REPO/pull/26",
			expected: models.JobRequest{
				Job:          models.JobKindReview,
				ProjectHint:  "REPO",
				PRNumber:     "26",
				FixConflicts: true,
			},
		},
		{
			name: "On hint wins over PR repository",
			text: "review https://github.com/OWNER/REPO/pull/26 on api",
			expected: models.JobRequest{
				Job:         models.JobKindReview,
				ProjectHint: "api",
				PRNumber:    "26",
			},
		},
		{
			name:     "QA with on hint",
			text:     "qa on web-app please",
			expected: models.JobRequest{Job: models.JobKindQA, ProjectHint: "web-app"},
		},
		{
			name:     "Stop word after verb is not a hint",
			text:     "run it now",
			expected: models.JobRequest{Job: models.JobKindRun},
		},
		{
			name:     "Slack link markup is unwrapped",
			text:     "review <https://github.com/acme/shop/pull/7|PR 7>",
			expected: models.JobRequest{Job: models.JobKindReview, ProjectHint: "shop", PRNumber: "7"},
		},
		{
			name:     "Bare PR link is a review",
			text:     "https://github.com/acme/shop/pull/12",
			expected: models.JobRequest{Job: models.JobKindReview, ProjectHint: "shop", PRNumber: "12"},
		},
		{
			name:     "Conflict language alone is a review",
			text:     "there's a conflict on main",
			expected: models.JobRequest{Job: models.JobKindReview, ProjectHint: "main", FixConflicts: true},
		},
		{
			name:     "QA beats review when both appear",
			text:     "review then qa dashboard",
			expected: models.JobRequest{Job: models.JobKindQA, ProjectHint: "dashboard"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, ok := ParseJobRequest(tt.text).Get()
			require.True(t, ok, "expected a job request")
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseJobRequestNoMatch(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "Empty", text: ""},
		{name: "Small talk", text: "what a great day"},
		{name: "Verb inside a longer word", text: "the runner is fast"},
		{name: "Issue link is not a PR", text: "https://github.com/acme/shop/issues/12"},
		{name: "Verb only inside a URL", text: "see https://example.com/run/review"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, ParseJobRequest(tt.text).IsPresent())
		})
	}
}

func TestParseJobRequestWrappedURL(t *testing.T) {
	expected := models.JobRequest{Job: models.JobKindReview, ProjectHint: "REPO", PRNumber: "26"}

	variants := []string{
		"review https://github.com/OWNER/REPO/pull/26",
		"review https://github.com/OWNER/REPO/\npull/26",
		"review https://github.com/OWNER/\n  REPO/pull/26",
		"review https://github.com/OWNER/REPO/pu\nll/26",
		"review https://github.com/OWNER/REPO/pull/2\n6",
		"review https://github.com/OWNER/REPO/pull\n/26",
		"review https://github.com/OWNER/REPO/pull/26\nthanks",
		"review https://github.com/OWNER/REPO/pull/26\n27 files changed, please look",
		"review https://github.com/OWNER/REPO/pull/2\n6\nthanks",
		"review https://github.com/OWNER/REPO/pu ll/26",
		"review https://github.com/OWNER/RE PO/pu ll/26",
		"review https://github.com/OWNER/REPO/pull/ 26",
	}

	for _, text := range variants {
		t.Run(text, func(t *testing.T) {
			result, ok := ParseJobRequest(text).Get()
			require.True(t, ok)
			assert.Equal(t, expected, result)
		})
	}
}

func TestHasConflictLanguage(t *testing.T) {
	assert.True(t, HasConflictLanguage("please resolve the conflicts"))
	assert.True(t, HasConflictLanguage("can you rebase this"))
	assert.True(t, HasConflictLanguage("fix merge errors"))
	assert.False(t, HasConflictLanguage("merge it when green"))
	assert.False(t, HasConflictLanguage("https://github.com/acme/conflict/pull/1"))
}
