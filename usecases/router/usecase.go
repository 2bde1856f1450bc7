package router

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jonit-dev/night-watch-cli-sub005/core/log"
	"github.com/jonit-dev/night-watch-cli-sub005/metrics"
	"github.com/jonit-dev/night-watch-cli-sub005/models"
	"github.com/jonit-dev/night-watch-cli-sub005/services/chat"
	"github.com/jonit-dev/night-watch-cli-sub005/services/jobs"
	"github.com/jonit-dev/night-watch-cli-sub005/services/projects"
	"github.com/jonit-dev/night-watch-cli-sub005/services/threadstate"
	"github.com/jonit-dev/night-watch-cli-sub005/usecases/cascade"
	"github.com/jonit-dev/night-watch-cli-sub005/usecases/deliberation"
	"github.com/jonit-dev/night-watch-cli-sub005/utils"
	"github.com/jonit-dev/night-watch-cli-sub005/utils/parser"
)

const DefaultAmbientIdle = 30 * time.Minute

// Handler names, also used as the metrics label
const (
	HandlerProvider    = "provider"
	HandlerJob         = "job"
	HandlerIssuePickup = "issue_pickup"
	HandlerIssueReview = "issue_review"
	HandlerFollowUp    = "follow_up"
	HandlerGreeting    = "greeting"
	handlerNone        = "none"
	handlerDuplicate   = "duplicate"
	handlerIgnored     = "ignored"
)

type Config struct {
	// BotUserID is the Slack user id of the bot itself, from auth.test
	BotUserID string
	// AmbientIdle is how quiet a channel must be before a greeting gets answered
	AmbientIdle time.Duration
	// DefaultPersonas names the persona that handles each job kind when nobody is addressed
	DefaultPersonas map[models.JobKind]string
}

// RouterUseCase decides which handler, if any, takes an inbound chat event and drives it.
// Slow follow-through (timing, AI calls, posting, spawning) runs on tracked goroutines so
// TryRoute returns as soon as the routing decision is made.
type RouterUseCase struct {
	personas     deliberation.PersonaSource
	chat         *chat.ChatService
	state        *threadstate.ThreadStateManager
	projects     *projects.ProjectsService
	jobs         *jobs.JobsService
	cascade      *cascade.CascadeUseCase
	deliberation *deliberation.DeliberationUseCase
	recorder     *metrics.Recorder
	config       Config

	wg sync.WaitGroup
}

func NewRouterUseCase(
	personas deliberation.PersonaSource,
	chatService *chat.ChatService,
	state *threadstate.ThreadStateManager,
	projectsService *projects.ProjectsService,
	jobsService *jobs.JobsService,
	cascadeUseCase *cascade.CascadeUseCase,
	deliberationUseCase *deliberation.DeliberationUseCase,
	recorder *metrics.Recorder,
	config Config,
) *RouterUseCase {
	if config.AmbientIdle <= 0 {
		config.AmbientIdle = DefaultAmbientIdle
	}
	return &RouterUseCase{
		personas:     personas,
		chat:         chatService,
		state:        state,
		projects:     projectsService,
		jobs:         jobsService,
		cascade:      cascadeUseCase,
		deliberation: deliberationUseCase,
		recorder:     recorder,
		config:       config,
	}
}

// TryRoute routes one inbound event and reports whether a handler took it.
// Redelivered events are recognised by their dedup key and ignored.
func (u *RouterUseCase) TryRoute(ctx context.Context, event models.InboundEvent) bool {
	if !u.state.MarkInboundSeen(parser.BuildInboundKey(event.ChannelID, event.TS, event.Type)) {
		log.Debug("📋 Skipping duplicate delivery of %s %s/%s", event.Type, event.ChannelID, event.TS)
		u.recorder.EventRouted(handlerDuplicate)
		return false
	}

	if parser.ShouldIgnore(event, u.config.BotUserID) {
		u.recorder.EventRouted(handlerIgnored)
		return false
	}

	// The paired app_mention delivery handles messages that address the bot
	if event.Type == models.InboundEventTypeMessage && utils.ContainsUserMention(event.Text, u.config.BotUserID) {
		u.recorder.EventRouted(handlerIgnored)
		return false
	}

	log.Info("📋 Starting to route %s event %s/%s", event.Type, event.ChannelID, event.TS)

	handlers := []struct {
		name   string
		handle func(context.Context, models.InboundEvent, bool) bool
	}{
		{HandlerProvider, u.handleProviderRequest},
		{HandlerJob, u.handleJobRequest},
		{HandlerIssuePickup, u.handleIssuePickup},
		{HandlerIssueReview, u.handleIssueReview},
		{HandlerFollowUp, u.handlePersonaFollowUp},
		{HandlerGreeting, u.handleAmbientGreeting},
	}

	addressed := u.isAddressed(event)
	for _, h := range handlers {
		if h.handle(ctx, event, addressed) {
			u.recorder.EventRouted(h.name)
			log.Info("📋 Completed successfully - %s/%s routed to %s", event.ChannelID, event.TS, h.name)
			return true
		}
	}

	// Any human message counts as channel activity for idle detection and timing
	u.state.MarkChannelActivity(event.ChannelID)
	u.recorder.EventRouted(handlerNone)
	log.Debug("📋 No handler matched %s/%s", event.ChannelID, event.TS)
	return false
}

// Wait blocks until all work started by TryRoute has finished
func (u *RouterUseCase) Wait() {
	u.wg.Wait()
}

func (u *RouterUseCase) isAddressed(event models.InboundEvent) bool {
	if event.Type == models.InboundEventTypeAppMention {
		return true
	}
	// Direct message channels
	if strings.HasPrefix(event.ChannelID, "D") {
		return true
	}
	return utils.ContainsUserMention(event.Text, u.config.BotUserID)
}

// goAsync runs fn on a tracked goroutine that outlives the caller's cancellation
func (u *RouterUseCase) goAsync(ctx context.Context, fn func(ctx context.Context)) {
	ctx = context.WithoutCancel(ctx)
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		fn(ctx)
	}()
}
