package parser

import (
	"regexp"
	"strings"
)

var (
	requestLanguageRegex = regexp.MustCompile(`(?i)\bcan\s+(?:someone|somebody|anyone|you|u)\b|\bcould\s+(?:someone|you)\b|\bwould\s+you\b|\bplease\b|\bpls\b|\bplz\b|\bneeds?\b|\bi'?d\s+like\b`)
	leadingVerbRegex     = regexp.MustCompile(`(?i)^(?:re-?)?(?:run|review|qa)\b`)
)

// HasRequestLanguage reports whether the text asks for something ("can someone", "please", "need")
func HasRequestLanguage(text string) bool {
	return requestLanguageRegex.MatchString(stripURLs(normalize(text)))
}

// StartsWithJobVerb reports whether the text opens with a bare job verb ("review the PR")
func StartsWithJobVerb(text string) bool {
	return leadingVerbRegex.MatchString(strings.TrimSpace(normalize(text)))
}

// ReferencesPullRequest reports whether the text carries a pull request link
func ReferencesPullRequest(text string) bool {
	return findPullRequestRef(normalize(text)).IsPresent()
}
