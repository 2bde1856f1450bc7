package deliberation

import (
	"fmt"

	"github.com/jonit-dev/night-watch-cli-sub005/models"
	"github.com/jonit-dev/night-watch-cli-sub005/utils"
)

var openerTemplates = map[models.TriggerType][]string{
	models.TriggerTypePRReview: {
		"Opening review on %s. Flag anything concrete you see in the diff.",
		"New PR up for review: %s. Let's go through it.",
		"%s is in the review queue. Eyes on the diff, please.",
	},
	models.TriggerTypeBuildFailure: {
		"Build just broke: %s. Let's find the cause before anyone retries.",
		"CI is red on %s. Who sees what happened?",
		"Heads up, %s failed. Digging into the logs.",
	},
	models.TriggerTypePRDKickoff: {
		"Kicking off %s. Let's poke holes in the plan before anyone writes code.",
		"New PRD: %s. Thoughts on scope and risk?",
		"Starting planning for %s. What's missing?",
	},
	models.TriggerTypeCodeWatch: {
		"Spotted something in %s worth a look.",
		"Code watch flagged %s.",
		"Something in %s caught my eye.",
	},
	models.TriggerTypeIssueReview: {
		"New issue: %s. Is it ready to pick up?",
		"Taking a look at %s. Anything unclear before we start?",
		"%s just came in. Let's size it up.",
	},
}

const fallbackOpener = "Let's talk about %s."

// BuildOpener returns the lead's opening line for a trigger. The variant is chosen by a stable
// hash of the trigger's ref, so the same PR or issue always opens with the same phrasing.
func BuildOpener(trigger models.Trigger) string {
	ref := trigger.Ref
	if trigger.PRURL != "" && trigger.Type == models.TriggerTypePRReview {
		ref = trigger.PRURL
	}

	variants, ok := openerTemplates[trigger.Type]
	if !ok || len(variants) == 0 {
		return fmt.Sprintf(fallbackOpener, ref)
	}

	idx := int(utils.StableHash(trigger.Ref) % uint32(len(variants)))
	return fmt.Sprintf(variants[idx], ref)
}
