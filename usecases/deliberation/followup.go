package deliberation

import (
	"strings"
	"unicode"

	"github.com/jonit-dev/night-watch-cli-sub005/models"
)

// minKeywordLen drops words like "and" or "ui" from role/expertise keyword matching
const minKeywordLen = 3

// SelectFollowUpPersona picks who answers the latest message in a thread. The incumbent keeps the
// thread unless some candidate's role and expertise match the message strictly better.
func SelectFollowUpPersona(incumbent models.Persona, candidates []models.Persona, latest string) models.Persona {
	words := wordSet(latest)
	if len(words) == 0 {
		return incumbent
	}

	best := incumbent
	bestScore := keywordScore(incumbent, words)
	for _, candidate := range candidates {
		if candidate.ID == incumbent.ID || !candidate.IsActive {
			continue
		}
		if score := keywordScore(candidate, words); score > bestScore {
			best = candidate
			bestScore = score
		}
	}
	return best
}

func keywordScore(persona models.Persona, words map[string]struct{}) int {
	keywords := wordSet(persona.Role + " " + strings.Join(persona.Expertise, " "))
	score := 0
	for keyword := range keywords {
		if _, ok := words[keyword]; ok {
			score++
		}
	}
	return score
}

func wordSet(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		if len([]rune(field)) >= minKeywordLen {
			set[field] = struct{}{}
		}
	}
	return set
}
