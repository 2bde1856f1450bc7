package router

import (
	"context"
	"strings"

	"github.com/jonit-dev/night-watch-cli-sub005/core/log"
	"github.com/jonit-dev/night-watch-cli-sub005/models"
	"github.com/jonit-dev/night-watch-cli-sub005/utils/parser"
)

// fallbackPersona speaks when no persona is configured at all
var fallbackPersona = models.Persona{
	ID:       "night-watch",
	Name:     "Night Watch",
	Role:     "Automation",
	IsActive: true,
}

// roleKeywords maps a job kind to the role words of the persona that naturally owns it
var roleKeywords = map[models.JobKind][]string{
	models.JobKindRun:      {"implement", "developer", "engineer"},
	models.JobKindReview:   {"review", "lead", "architect"},
	models.JobKindQA:       {"qa", "quality", "test"},
	models.JobKindProvider: {"engineer", "developer"},
}

func (u *RouterUseCase) activePersonas(ctx context.Context) []models.Persona {
	personas, err := u.personas.ListActivePersonas(ctx)
	if err != nil {
		log.Warn("⚠️ Could not list personas, using the fallback identity: %v", err)
		return nil
	}
	return models.ActivePersonas(personas)
}

// selectJobPersona picks who acknowledges and narrates a job: an explicitly mentioned persona,
// then the thread's ad hoc owner, then the role-appropriate default, then a random active
// persona, then the first persona, and finally the built-in identity.
func (u *RouterUseCase) selectJobPersona(ctx context.Context, event models.InboundEvent, kind models.JobKind) models.Persona {
	personas := u.activePersonas(ctx)
	if len(personas) == 0 {
		return fallbackPersona
	}

	if mentioned := parser.ResolveMentionedPersonas(event.Text, personas); len(mentioned) > 0 {
		return mentioned[0]
	}

	if ownerID, ok := u.state.AdHocOwner(event.ChannelID, event.ReplyThreadTS()).Get(); ok {
		if owner, ok := u.state.PersonaByID(personas, ownerID).Get(); ok {
			return owner
		}
	}

	if persona, ok := u.roleDefault(personas, kind); ok {
		return persona
	}

	if persona, ok := u.state.PickRandomPersona(personas).Get(); ok {
		return persona
	}

	return personas[0]
}

func (u *RouterUseCase) roleDefault(personas []models.Persona, kind models.JobKind) (models.Persona, bool) {
	if name, ok := u.config.DefaultPersonas[kind]; ok {
		if persona, ok := u.state.FindPersonaByName(personas, name).Get(); ok {
			return persona, true
		}
		log.Warn("⚠️ Default persona %q for %s is not an active persona", name, kind)
	}

	for _, keyword := range roleKeywords[kind] {
		for _, p := range personas {
			if strings.Contains(strings.ToLower(p.Role), keyword) {
				return p, true
			}
		}
	}
	return models.Persona{}, false
}
