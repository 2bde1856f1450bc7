package parser

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/jonit-dev/night-watch-cli-sub005/models"
)

// minHandleLength is the shortest @handle treated as a persona mention
const minHandleLength = 2

var handleRegex = regexp.MustCompile(`(?:^|[^\w@<])@([A-Za-z][\w.-]*)`)

// ExtractMentions returns the lowercased, de-duplicated @handles in text, in order of appearance.
// Email addresses, Slack user mentions (<@U123>) and handles shorter than two characters are dropped.
func ExtractMentions(text string) []string {
	var handles []string
	seen := make(map[string]bool)

	for _, m := range handleRegex.FindAllStringSubmatch(text, -1) {
		handle := strings.ToLower(strings.TrimRight(m[1], ".-"))
		if len(handle) < minHandleLength || seen[handle] {
			continue
		}
		seen[handle] = true
		handles = append(handles, handle)
	}

	return handles
}

// compactName lowercases s and drops everything that is not a letter or digit
func compactName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func personaMatchesHandle(p models.Persona, handle string) bool {
	h := compactName(handle)
	if h == "" {
		return false
	}
	return h == compactName(p.Name) || h == compactName(p.FirstName()) || h == compactName(p.ID)
}

// ResolveMentionedPersonas maps the @handles in text to active personas, in mention order
func ResolveMentionedPersonas(text string, personas []models.Persona) []models.Persona {
	var resolved []models.Persona
	seen := make(map[string]bool)

	for _, handle := range ExtractMentions(text) {
		for _, p := range models.ActivePersonas(personas) {
			if seen[p.ID] || !personaMatchesHandle(p, handle) {
				continue
			}
			seen[p.ID] = true
			resolved = append(resolved, p)
			break
		}
	}

	return resolved
}

// ResolveByPlainName finds active personas addressed by bare name ("Maya, can you ...").
// First names shorter than three letters are ignored to avoid matching ordinary words.
func ResolveByPlainName(text string, personas []models.Persona) []models.Persona {
	clean := normalize(text)
	var resolved []models.Persona

	for _, p := range models.ActivePersonas(personas) {
		for _, name := range []string{p.Name, p.FirstName()} {
			name = strings.TrimSpace(name)
			if len([]rune(name)) < 3 {
				continue
			}
			re := regexp.MustCompile(`(?i)(?:^|[^\w@])` + regexp.QuoteMeta(name) + `(?:$|[^\w])`)
			if re.MatchString(clean) {
				resolved = append(resolved, p)
				break
			}
		}
	}

	return resolved
}
