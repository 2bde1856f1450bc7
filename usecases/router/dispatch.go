package router

import (
	"context"
	"fmt"

	"github.com/jonit-dev/night-watch-cli-sub005/core/log"
	"github.com/jonit-dev/night-watch-cli-sub005/models"
	"github.com/jonit-dev/night-watch-cli-sub005/services/jobs"
)

type jobDispatch struct {
	kind   models.JobKind
	hint   string
	params models.JobParams
}

// dispatchJob resolves the project, acknowledges as the chosen persona and hands the job to the
// spawner. It returns immediately; the work happens on a tracked goroutine.
func (u *RouterUseCase) dispatchJob(ctx context.Context, event models.InboundEvent, d jobDispatch) {
	persona := u.selectJobPersona(ctx, event, d.kind)
	threadTS := event.ReplyThreadTS()
	u.state.RecordThreadMessage(event.ChannelID, threadTS, event.UserID, event.Text)
	u.state.RememberAdHocOwner(event.ChannelID, threadTS, persona.ID)

	u.goAsync(ctx, func(ctx context.Context) {
		project, ok := u.projects.ResolveProject(ctx, d.hint, event.ChannelID, event.Text).Get()
		if !ok {
			log.Info("📋 No project resolved for %s request (hint %q), asking", d.kind, d.hint)
			u.post(ctx, event.ChannelID, threadTS, persona, u.projects.ClarifyingQuestion())
			return
		}

		if !u.cascade.ApplyHumanTiming(ctx, event.ChannelID, threadTS, persona) {
			log.Debug("📋 Timing wait for %s cut short, acknowledging anyway", persona.Name)
		}
		u.post(ctx, event.ChannelID, threadTS, persona, describeJob(d.kind, project, d.params))

		spec := jobs.JobSpec{
			Kind:     d.kind,
			Project:  project,
			Channel:  event.ChannelID,
			ThreadTS: threadTS,
			Persona:  persona,
			Params:   d.params,
		}
		if _, err := u.jobs.SpawnJob(ctx, spec, u.jobCallbacks(persona)); err != nil {
			log.Error("❌ Invalid %s job for %s: %v", d.kind, project.Name, err)
			u.post(ctx, event.ChannelID, threadTS, persona, fmt.Sprintf("❌ Couldn't start `%s` on %s: %v", d.kind, project.Name, err))
		}
	})
}

func (u *RouterUseCase) jobCallbacks(persona models.Persona) jobs.JobCallbacks {
	return jobs.JobCallbacks{
		MarkChannelActivity: u.state.MarkChannelActivity,
		MarkPersonaReply:    u.state.MarkPersonaReply,
		PostStatus: func(ctx context.Context, job models.Job, text string) {
			u.post(ctx, job.ChannelID, job.ThreadTS, persona, text)
		},
	}
}

// post sends text as persona. Failures are logged and never stop the caller.
func (u *RouterUseCase) post(ctx context.Context, channelID, threadTS string, persona models.Persona, text string) {
	if _, err := u.chat.PostAsPersona(ctx, channelID, threadTS, persona, text); err != nil {
		log.Error("❌ Failed to post as %s in %s: %v", persona.Name, channelID, err)
		return
	}
	u.state.MarkPersonaReply(channelID, threadTS, persona.ID)
	u.state.RecordThreadMessage(channelID, threadTS, persona.Name, text)
}
