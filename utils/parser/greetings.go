package parser

import (
	"regexp"
	"strings"
)

var (
	greetingRegex = regexp.MustCompile(`^(?:hey|hi|hello|yo|sup|hiya|howdy|gm|morning|good\s+(?:morning|afternoon|evening)|what'?s\s+up|wassup)(?:\s+(?:guys|all|team|everyone|everybody|folks|y'?all|there|people|crew|gang|friends))?$`)
	nonWordTail   = regexp.MustCompile(`[^\p{L}\p{N}']+$`)
	emojiCode     = regexp.MustCompile(`:[a-z0-9_+\-]+:`)
	spaceRun      = regexp.MustCompile(`\s+`)
)

// IsAmbientGreeting detects casual openers ("hey guys", "yo", "gm") that carry no request
func IsAmbientGreeting(text string) bool {
	clean := normalize(text)
	if anyURLRegex.MatchString(clean) {
		return false
	}

	clean = strings.ToLower(clean)
	clean = emojiCode.ReplaceAllString(clean, " ")
	clean = strings.ReplaceAll(clean, "’", "'")
	clean = strings.TrimSpace(spaceRun.ReplaceAllString(clean, " "))
	clean = strings.TrimSpace(nonWordTail.ReplaceAllString(clean, ""))

	if clean == "" {
		return false
	}

	return greetingRegex.MatchString(clean)
}
