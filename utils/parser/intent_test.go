package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasRequestLanguage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "Can someone", text: "Can someone fix these merge issues?", want: true},
		{name: "Can you", text: "hey can you review?", want: true},
		{name: "Please", text: "please run night-watch-cli", want: true},
		{name: "Need", text: "we need a qa pass on web", want: true},
		{name: "Statement", text: "the review went fine", want: false},
		{name: "Word inside a URL", text: "https://example.com/please/need", want: false},
		{name: "Needle is not need", text: "needle in a haystack", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasRequestLanguage(tt.text))
		})
	}
}

func TestStartsWithJobVerb(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "Review", text: "review https://github.com/acme/web/pull/3", want: true},
		{name: "Run after mention", text: "<@UBOT> run web", want: true},
		{name: "Rerun", text: "rerun qa on web", want: true},
		{name: "QA uppercase", text: "QA web please", want: true},
		{name: "Verb later in sentence", text: "did the review finish?", want: false},
		{name: "Verb prefix of another word", text: "running late today", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StartsWithJobVerb(tt.text))
		})
	}
}

func TestReferencesPullRequest(t *testing.T) {
	assert.True(t, ReferencesPullRequest("look at <https://github.com/acme/web/pull/26|#26>"))
	assert.False(t, ReferencesPullRequest("look at https://github.com/acme/web/issues/26"))
}
