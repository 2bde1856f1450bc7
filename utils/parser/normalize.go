// Package parser turns free-text chat messages into structured requests.
// Every function is pure: the same text always yields the same result.
package parser

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/jonit-dev/night-watch-cli-sub005/utils"
)

var (
	slackLinkRegex = regexp.MustCompile(`<(https?://[^|>]+)(?:\|[^>]*)?>`)
	urlStartRegex  = regexp.MustCompile(`https?://`)
)

// normalize strips user mentions, unwraps Slack link markup and re-joins
// URLs that were broken across lines when copy-pasted.
func normalize(text string) string {
	text = utils.StripMentions(text)
	text = slackLinkRegex.ReplaceAllString(text, "$1")
	return joinWrappedURLs(text)
}

func isURLChar(r rune) bool {
	if r > unicode.MaxASCII {
		return false
	}
	return unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("-._~:/?#[]@!$&'()*+,;=%", r)
}

var (
	completeGitHubRefRegex = regexp.MustCompile(`(?i)github\.com/[^/\s]+/[^/\s]+/(?:pull|issues)/\d+`)
	completeBoardRefRegex  = regexp.MustCompile(`(?i)[?&]issue=[^&\s]*%7C\d+`)
	wrappedDigitsRegex     = regexp.MustCompile(`^\d+[ \t]*(?:\r?\n|$)`)
)

// maxWrapFragments bounds how many whitespace-separated fragments are tried when
// re-assembling a URL broken by spaces
const maxWrapFragments = 4

// isGitHubURL reports whether u (a URL prefix) is, or can still become, a github.com URL
func isGitHubURL(u string) bool {
	lower := strings.ToLower(u)
	for _, scheme := range []string{"https://", "http://"} {
		rest, ok := strings.CutPrefix(lower, scheme)
		if !ok {
			continue
		}
		host := "github.com/"
		if strings.HasPrefix(rest, host) || strings.HasPrefix(host, rest) {
			return true
		}
		// "www." prefix variant
		if strings.HasPrefix(rest, "www."+host) || strings.HasPrefix("www."+host, rest) {
			return true
		}
	}
	return false
}

func isCompleteRef(u string) bool {
	return completeGitHubRefRegex.MatchString(u) || completeBoardRefRegex.MatchString(u)
}

// joinWrappedURLs removes whitespace that a wrap left inside a GitHub URL.
// While the URL is still incomplete, whitespace touching a '/', a line break followed by more
// path, or any break whose following fragments complete a PR/issue ref is dropped. Once the URL
// names a full PR/issue, only a wrapped run of digits that fills the rest of its line is joined.
func joinWrappedURLs(text string) string {
	if !urlStartRegex.MatchString(text) {
		return text
	}

	runes := []rune(text)
	var b strings.Builder
	b.Grow(len(text))

	var current strings.Builder
	inURL := false
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if !inURL && hasURLPrefix(runes, i) {
			inURL = true
			current.Reset()
		}
		if !inURL {
			b.WriteRune(r)
			continue
		}
		if isURLChar(r) {
			b.WriteRune(r)
			current.WriteRune(r)
			continue
		}
		if !unicode.IsSpace(r) {
			inURL = false
			b.WriteRune(r)
			continue
		}

		j := i
		hasNewline := false
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			if runes[j] == '\n' || runes[j] == '\r' {
				hasNewline = true
			}
			j++
		}

		if j < len(runes) && shouldJoin(current.String(), runes, i, j, hasNewline) {
			i = j - 1
			continue
		}

		inURL = false
		for k := i; k < j; k++ {
			b.WriteRune(runes[k])
		}
		i = j - 1
	}

	return b.String()
}

func hasURLPrefix(runes []rune, i int) bool {
	rest := string(runes[i:min(len(runes), i+8)])
	return strings.HasPrefix(rest, "https://") || strings.HasPrefix(rest, "http://")
}

// shouldJoin decides whether the whitespace runes[i:j] inside url is a wrap
func shouldJoin(url string, runes []rune, i, j int, hasNewline bool) bool {
	if !isGitHubURL(url) || !isURLChar(runes[j]) || hasURLPrefix(runes, j) {
		return false
	}

	if isCompleteRef(url) {
		last := runes[i-1]
		if !hasNewline || last < '0' || last > '9' {
			return false
		}
		return wrappedDigitsRegex.MatchString(string(runes[j:]))
	}

	if runes[i-1] == '/' || runes[j] == '/' {
		return true
	}
	// a wrapped fragment of the path still carries path/query separators
	if hasNewline && strings.ContainsAny(nextToken(runes, j), "/=%&?") {
		return true
	}
	return completesRef(url, runes, j)
}

// completesRef reports whether gluing the next few fragments onto url yields a full PR/issue ref
func completesRef(url string, runes []rune, j int) bool {
	joined := url
	for n := 0; n < maxWrapFragments && j < len(runes); n++ {
		token := nextToken(runes, j)
		if token == "" || hasURLPrefix(runes, j) {
			return false
		}
		joined += token
		if isCompleteRef(joined) {
			return true
		}
		j += len([]rune(token))
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
	}
	return false
}

func nextToken(runes []rune, j int) string {
	k := j
	for k < len(runes) && !unicode.IsSpace(runes[k]) {
		k++
	}
	return string(runes[j:k])
}

// stripTrailingPunctuation trims sentence punctuation that often sticks to a token
func stripTrailingPunctuation(s string) string {
	return strings.TrimRight(s, ".,!?:;)'\"")
}
