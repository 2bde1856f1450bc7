package parser

import (
	"regexp"
	"strings"

	"github.com/samber/mo"

	"github.com/jonit-dev/night-watch-cli-sub005/models"
)

// Providers are the AI CLIs that can be invoked directly from chat
var Providers = []string{"claude", "codex"}

var (
	providerNames         = providerAlternation(Providers)
	providerVerbFormRegex = regexp.MustCompile(`(?is)^(?:please\s+)?(?:run|use|ask)\s+(` + providerNames + `)\b(.*)$`)
	providerBareFormRegex = regexp.MustCompile(`(?is)^(` + providerNames + `)\b(.*)$`)
	providerColonRegex    = regexp.MustCompile(`(?i)^(` + providerNames + `)\s*:`)
	providerOnRegex       = regexp.MustCompile(`(?is)^\s+on\s+([A-Za-z0-9][\w.-]*)`)
	providerLeadInRegex   = regexp.MustCompile(`(?is)^\s*[:,\-–]?\s*(?:to\s+)?`)
)

func providerAlternation(providers []string) string {
	quoted := make([]string, 0, len(providers))
	for _, p := range providers {
		quoted = append(quoted, regexp.QuoteMeta(p))
	}
	return strings.Join(quoted, "|")
}

// ParseProviderRequest recognizes direct provider invocations:
//
//	run claude on <project>: <prompt>
//	<provider> <prompt>
//
// A provider name with nothing after it is not a request.
func ParseProviderRequest(text string) mo.Option[models.ProviderRequest] {
	clean := normalize(text)

	m := providerVerbFormRegex.FindStringSubmatch(clean)
	if m == nil {
		m = providerBareFormRegex.FindStringSubmatch(clean)
	}
	if m == nil {
		return mo.None[models.ProviderRequest]()
	}

	request := models.ProviderRequest{Provider: strings.ToLower(m[1])}
	rest := m[2]

	if on := providerOnRegex.FindStringSubmatch(rest); on != nil {
		request.ProjectHint = stripTrailingPunctuation(on[1])
		rest = rest[len(on[0]):]
	}

	rest = providerLeadInRegex.ReplaceAllString(rest, "")
	request.Prompt = strings.TrimSpace(rest)
	if request.Prompt == "" {
		return mo.None[models.ProviderRequest]()
	}

	return mo.Some(request)
}

// HasProviderCommandPrefix reports whether the text is unambiguously a provider
// command even when the bot is not addressed ("run claude ...", "codex: ...").
func HasProviderCommandPrefix(text string) bool {
	clean := normalize(text)
	return providerVerbFormRegex.MatchString(clean) || providerColonRegex.MatchString(clean)
}
