package router

import (
	"context"
	"fmt"

	"github.com/jonit-dev/night-watch-cli-sub005/core/log"
	"github.com/jonit-dev/night-watch-cli-sub005/models"
	"github.com/jonit-dev/night-watch-cli-sub005/usecases/deliberation"
	"github.com/jonit-dev/night-watch-cli-sub005/utils/parser"
)

// handleProviderRequest takes "claude <prompt>" style invocations. Without addressing the bot
// only the unambiguous command prefixes count.
func (u *RouterUseCase) handleProviderRequest(ctx context.Context, event models.InboundEvent, addressed bool) bool {
	if !addressed && !parser.HasProviderCommandPrefix(event.Text) {
		return false
	}
	request, ok := parser.ParseProviderRequest(event.Text).Get()
	if !ok {
		return false
	}

	u.dispatchJob(ctx, event, jobDispatch{
		kind: models.JobKindProvider,
		hint: request.ProjectHint,
		params: models.JobParams{
			ProjectHint: request.ProjectHint,
			Provider:    request.Provider,
			Prompt:      request.Prompt,
		},
	})
	return true
}

func (u *RouterUseCase) handleJobRequest(ctx context.Context, event models.InboundEvent, addressed bool) bool {
	if !addressed &&
		!parser.ReferencesPullRequest(event.Text) &&
		!parser.HasConflictLanguage(event.Text) &&
		!parser.HasRequestLanguage(event.Text) &&
		!parser.StartsWithJobVerb(event.Text) {
		return false
	}
	request, ok := parser.ParseJobRequest(event.Text).Get()
	if !ok {
		return false
	}

	u.dispatchJob(ctx, event, jobDispatch{
		kind: request.Job,
		hint: request.ProjectHint,
		params: models.JobParams{
			ProjectHint:  request.ProjectHint,
			PRNumber:     request.PRNumber,
			FixConflicts: request.FixConflicts,
		},
	})
	return true
}

func (u *RouterUseCase) handleIssuePickup(ctx context.Context, event models.InboundEvent, addressed bool) bool {
	if !addressed && !parser.HasRequestLanguage(event.Text) {
		return false
	}
	request, ok := parser.ParseIssuePickupRequest(event.Text).Get()
	if !ok {
		return false
	}

	u.dispatchJob(ctx, event, jobDispatch{
		kind: models.JobKindRun,
		hint: request.RepoHint,
		params: models.JobParams{
			ProjectHint: request.RepoHint,
			IssueNumber: request.IssueNumber,
		},
	})
	return true
}

// handleIssueReview opens a persona discussion about an issue link posted at the top of a channel.
// A link still on cooldown is consumed silently.
func (u *RouterUseCase) handleIssueReview(ctx context.Context, event models.InboundEvent, _ bool) bool {
	if !event.IsRoot() {
		return false
	}
	issue, ok := parser.ParseIssueReviewable(event.Text).Get()
	if !ok {
		return false
	}

	if !u.state.TryMarkReviewed(issue.IssueURL) {
		log.Info("📋 Issue %s was reviewed recently, not starting another discussion", issue.IssueURL)
		return true
	}

	trigger := models.Trigger{
		Type:      models.TriggerTypeIssueReview,
		Ref:       issue.IssueURL,
		ChannelID: event.ChannelID,
		ThreadTS:  event.TS,
	}
	if project, ok := u.projects.MatchHint(issue.RepoHint).Get(); ok {
		trigger.ProjectPath = project.Path
	} else if project, ok := u.projects.ProjectForChannel(event.ChannelID).Get(); ok {
		trigger.ProjectPath = project.Path
	}

	u.goAsync(ctx, func(ctx context.Context) {
		if _, err := u.deliberation.StartDiscussion(ctx, trigger); err != nil {
			log.Error("❌ Discussion for %s failed: %v", issue.IssueURL, err)
		}
	})
	return true
}

// handlePersonaFollowUp answers messages aimed at a persona: an @mention anywhere, or a thread
// reply where a persona already holds the conversation.
func (u *RouterUseCase) handlePersonaFollowUp(ctx context.Context, event models.InboundEvent, _ bool) bool {
	personas := u.activePersonas(ctx)
	if len(personas) == 0 {
		return false
	}

	threadTS := event.ReplyThreadTS()
	persona, ok := u.followUpPersona(event, personas)
	if !ok {
		return false
	}

	u.state.RecordThreadMessage(event.ChannelID, threadTS, event.UserID, event.Text)
	u.state.RememberAdHocOwner(event.ChannelID, threadTS, persona.ID)

	u.goAsync(ctx, func(ctx context.Context) {
		if !u.cascade.ApplyHumanTiming(ctx, event.ChannelID, threadTS, persona) {
			log.Info("📋 %s stands down in %s/%s, someone else answered", persona.Name, event.ChannelID, threadTS)
			return
		}
		history := u.state.RecentThreadMessages(event.ChannelID, threadTS)
		if _, err := u.deliberation.ReplyAsPersona(ctx, persona, event.ChannelID, threadTS, event.Text, history); err != nil {
			log.Error("❌ Follow-up reply as %s failed: %v", persona.Name, err)
		}
	})
	return true
}

func (u *RouterUseCase) followUpPersona(event models.InboundEvent, personas []models.Persona) (models.Persona, bool) {
	if mentioned := parser.ResolveMentionedPersonas(event.Text, personas); len(mentioned) > 0 {
		return mentioned[0], true
	}
	if event.IsRoot() {
		return models.Persona{}, false
	}

	threadTS := event.ReplyThreadTS()
	incumbentID, ok := u.state.AdHocOwner(event.ChannelID, threadTS).Get()
	if !ok {
		incumbentID, ok = u.state.LastRepliedPersona(event.ChannelID, threadTS).Get()
	}
	if !ok {
		return models.Persona{}, false
	}

	if named := parser.ResolveByPlainName(event.Text, personas); len(named) > 0 {
		return named[0], true
	}

	incumbent, ok := u.state.PersonaByID(personas, incumbentID).Get()
	if !ok {
		return models.Persona{}, false
	}
	return deliberation.SelectFollowUpPersona(incumbent, personas, event.Text), true
}

// handleAmbientGreeting lets a random persona answer a bare greeting in a channel that has been quiet
func (u *RouterUseCase) handleAmbientGreeting(ctx context.Context, event models.InboundEvent, _ bool) bool {
	if !event.IsRoot() || !parser.IsAmbientGreeting(event.Text) {
		return false
	}
	if last, ok := u.state.LastChannelActivity(event.ChannelID).Get(); ok && u.state.Now().Sub(last) < u.config.AmbientIdle {
		return false
	}

	persona, ok := u.state.PickRandomPersona(u.activePersonas(ctx)).Get()
	if !ok {
		return false
	}
	// Claim the channel now so a second greeting right after does not get its own answer
	u.state.MarkChannelActivity(event.ChannelID)

	u.goAsync(ctx, func(ctx context.Context) {
		if !u.cascade.ApplyHumanTiming(ctx, event.ChannelID, event.TS, persona) {
			return
		}
		if _, err := u.deliberation.ReplyAsPersona(ctx, persona, event.ChannelID, "", event.Text, nil); err != nil {
			log.Error("❌ Greeting reply as %s failed: %v", persona.Name, err)
		}
	})
	return true
}

// describeJob is the acknowledgement line for a job about to start
func describeJob(kind models.JobKind, project models.Project, params models.JobParams) string {
	switch kind {
	case models.JobKindProvider:
		return fmt.Sprintf("On it, handing this to `%s` in %s.", params.Provider, project.Name)
	case models.JobKindRun:
		if params.IssueNumber != "" {
			return fmt.Sprintf("Picking up issue #%s on %s.", params.IssueNumber, project.Name)
		}
	}

	text := fmt.Sprintf("On it, starting `%s` on %s", kind, project.Name)
	if params.PRNumber != "" {
		text += fmt.Sprintf(" for PR #%s", params.PRNumber)
	}
	if params.FixConflicts {
		text += " and fixing the conflicts"
	}
	return text + "."
}
