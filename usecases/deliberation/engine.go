package deliberation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/mo"

	"github.com/jonit-dev/night-watch-cli-sub005/clients"
	"github.com/jonit-dev/night-watch-cli-sub005/core"
	"github.com/jonit-dev/night-watch-cli-sub005/core/log"
	"github.com/jonit-dev/night-watch-cli-sub005/metrics"
	"github.com/jonit-dev/night-watch-cli-sub005/models"
	"github.com/jonit-dev/night-watch-cli-sub005/services/chat"
	"github.com/jonit-dev/night-watch-cli-sub005/services/contextfetch"
	"github.com/jonit-dev/night-watch-cli-sub005/services/threadstate"
	"github.com/jonit-dev/night-watch-cli-sub005/utils"
)

const (
	DefaultMaxContributors = 3
	DefaultMinReplyDelay   = 20 * time.Second
	DefaultMaxReplyDelay   = 60 * time.Second
	contributionMaxTokens  = 400
	replyMaxTokens         = 300
)

// PersonaSource lists the personas that may take part in a discussion
type PersonaSource interface {
	ListActivePersonas(ctx context.Context) ([]models.Persona, error)
}

type Config struct {
	MaxRounds       int
	MaxContributors int
	MinReplyDelay   time.Duration
	MaxReplyDelay   time.Duration
	// Sleep waits d or until ctx is done and reports whether the full wait elapsed
	Sleep func(ctx context.Context, d time.Duration) bool
}

type DeliberationUseCase struct {
	personas PersonaSource
	chat     *chat.ChatService
	aiClient clients.AIClient
	state    *threadstate.ThreadStateManager
	fetcher  *contextfetch.ContextFetcherService
	recorder *metrics.Recorder
	config   Config
}

// NewDeliberationUseCase wires the engine. fetcher and recorder may be nil.
func NewDeliberationUseCase(
	personas PersonaSource,
	chatService *chat.ChatService,
	aiClient clients.AIClient,
	state *threadstate.ThreadStateManager,
	fetcher *contextfetch.ContextFetcherService,
	recorder *metrics.Recorder,
	config Config,
) *DeliberationUseCase {
	if config.MaxRounds <= 0 {
		config.MaxRounds = models.DefaultMaxRounds
	}
	if config.MaxContributors <= 0 {
		config.MaxContributors = DefaultMaxContributors
	}
	if config.MinReplyDelay < 0 {
		config.MinReplyDelay = 0
	}
	if config.MinReplyDelay == 0 && config.MaxReplyDelay == 0 {
		config.MinReplyDelay = DefaultMinReplyDelay
		config.MaxReplyDelay = DefaultMaxReplyDelay
	}
	if config.MaxReplyDelay < config.MinReplyDelay {
		config.MaxReplyDelay = config.MinReplyDelay
	}
	if config.Sleep == nil {
		config.Sleep = sleepContext
	}

	return &DeliberationUseCase{
		personas: personas,
		chat:     chatService,
		aiClient: aiClient,
		state:    state,
		fetcher:  fetcher,
		recorder: recorder,
		config:   config,
	}
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// SelectLead returns the persona whose role marks it as lead, else the first active persona
func SelectLead(personas []models.Persona) mo.Option[models.Persona] {
	active := models.ActivePersonas(personas)
	if len(active) == 0 {
		return mo.None[models.Persona]()
	}
	for _, p := range active {
		if p.IsLead() {
			return mo.Some(p)
		}
	}
	return mo.Some(active[0])
}

// SelectContributors returns up to limit active non-lead personas, or the lead alone when
// nobody else is available
func SelectContributors(lead models.Persona, personas []models.Persona, limit int) []models.Persona {
	var contributors []models.Persona
	for _, p := range models.ActivePersonas(personas) {
		if p.ID == lead.ID {
			continue
		}
		if len(contributors) >= limit {
			break
		}
		contributors = append(contributors, p)
	}
	if len(contributors) == 0 {
		return []models.Persona{lead}
	}
	return contributors
}

// StartDiscussion opens a thread for trigger as the lead persona and runs the contribution
// rounds to completion. The returned discussion is always closed.
func (u *DeliberationUseCase) StartDiscussion(ctx context.Context, trigger models.Trigger) (*models.Discussion, error) {
	log.Info("📋 Starting to run discussion for %s (%s)", trigger.Ref, trigger.Type)
	utils.AssertInvariant(trigger.ChannelID != "", "trigger channel must not be empty")

	personas, err := u.personas.ListActivePersonas(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list personas: %w", err)
	}
	leadOpt := SelectLead(personas)
	if leadOpt.IsAbsent() {
		return nil, core.ErrNoPersonas
	}
	lead := leadOpt.MustGet()

	if u.fetcher != nil {
		trigger = u.fetcher.EnrichTrigger(ctx, trigger)
	}

	discussion := &models.Discussion{
		ID:           core.NewID("disc"),
		Trigger:      trigger,
		ThreadTS:     trigger.ThreadTS,
		MaxRounds:    u.config.MaxRounds,
		Lead:         lead,
		Contributors: SelectContributors(lead, personas, u.config.MaxContributors),
		Status:       models.DiscussionStatusOpen,
	}
	u.recorder.DiscussionStarted(string(trigger.Type))

	opener := BuildOpener(trigger)
	openerTS, err := u.chat.PostAsPersona(ctx, trigger.ChannelID, discussion.ThreadTS, lead, opener)
	if err != nil {
		discussion.Status = models.DiscussionStatusClosed
		return discussion, fmt.Errorf("failed to post opener: %w", err)
	}
	if discussion.ThreadTS == "" {
		discussion.ThreadTS = openerTS
	}
	u.record(discussion, lead, 0, opener, openerTS)

	for round := 1; round <= discussion.MaxRounds; round++ {
		discussion.Round = round
		spoke, err := u.runRound(ctx, discussion, round)
		if err != nil {
			discussion.Status = models.DiscussionStatusClosed
			return discussion, err
		}
		if spoke == 0 {
			log.Info("📋 Nobody spoke in round %d of discussion %s, closing early", round, discussion.ID)
			break
		}
	}

	discussion.Status = models.DiscussionStatusClosed
	log.Info("📋 Completed successfully - discussion %s closed after %d round(s) with %d message(s)",
		discussion.ID, discussion.Round, len(discussion.Transcript))
	return discussion, nil
}

// runRound asks every contributor in turn and returns how many of them posted
func (u *DeliberationUseCase) runRound(ctx context.Context, discussion *models.Discussion, round int) (int, error) {
	spoke := 0
	for _, persona := range discussion.Contributors {
		if ctx.Err() != nil {
			return spoke, fmt.Errorf("discussion %s interrupted: %w", discussion.ID, ctx.Err())
		}

		prompt, err := BuildContributionPrompt(discussion, persona, round)
		if err != nil {
			return spoke, err
		}

		raw, err := u.aiClient.Complete(ctx, clients.CompletionRequest{
			System:    PersonaSystemPrompt(persona),
			Prompt:    prompt,
			MaxTokens: contributionMaxTokens,
		})
		if err != nil {
			log.Warn("⚠️ Completion for %s failed in round %d, treating as skip: %v", persona.Name, round, err)
			u.recorder.Contribution(false)
			continue
		}

		message := ParseContribution(raw, persona, round)
		if message.IsAbsent() {
			log.Debug("%s skipped round %d of discussion %s", persona.Name, round, discussion.ID)
			u.recorder.Contribution(false)
			continue
		}

		if !u.config.Sleep(ctx, u.replyDelay()) {
			return spoke, fmt.Errorf("discussion %s interrupted: %w", discussion.ID, context.Cause(ctx))
		}

		text := message.MustGet()
		ts, err := u.chat.PostAsPersona(ctx, discussion.Trigger.ChannelID, discussion.ThreadTS, persona, text)
		if err != nil {
			log.Error("❌ Failed to post contribution from %s: %v", persona.Name, err)
			u.recorder.Contribution(false)
			continue
		}
		u.record(discussion, persona, round, text, ts)
		u.recorder.Contribution(true)
		spoke++
	}
	return spoke, nil
}

func (u *DeliberationUseCase) replyDelay() time.Duration {
	spread := u.config.MaxReplyDelay - u.config.MinReplyDelay
	if spread <= 0 {
		return u.config.MinReplyDelay
	}
	return u.config.MinReplyDelay + time.Duration(u.state.Float64()*float64(spread))
}

func (u *DeliberationUseCase) record(discussion *models.Discussion, persona models.Persona, round int, text, ts string) {
	discussion.Transcript = append(discussion.Transcript, models.DiscussionMessage{
		PersonaID:   persona.ID,
		PersonaName: persona.Name,
		Round:       round,
		Text:        text,
		TS:          ts,
		PostedAt:    u.state.Now(),
	})
	u.state.MarkPersonaReply(discussion.Trigger.ChannelID, discussion.ThreadTS, persona.ID)
	u.state.RecordThreadMessage(discussion.Trigger.ChannelID, discussion.ThreadTS, persona.Name, text)
}

// ReplyAsPersona generates and posts a single in-character reply to message in a thread.
// history holds recent thread lines, oldest first, and may be empty.
func (u *DeliberationUseCase) ReplyAsPersona(
	ctx context.Context,
	persona models.Persona,
	channelID, threadTS, message string,
	history []string,
) (string, error) {
	log.Info("📋 Starting to reply as %s in channel %s", persona.Name, channelID)

	raw, err := u.aiClient.Complete(ctx, clients.CompletionRequest{
		System:    PersonaSystemPrompt(persona),
		Prompt:    BuildReplyPrompt(persona, message, history),
		MaxTokens: replyMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate reply for %s: %w", persona.Name, err)
	}

	text := stripSpeakerLabel(strings.TrimSpace(raw), persona)
	if text == "" || skipReplyRegex.MatchString(text) {
		log.Info("📋 Completed successfully - %s had nothing to say", persona.Name)
		return "", nil
	}

	ts, err := u.chat.PostAsPersona(ctx, channelID, threadTS, persona, utils.Truncate(text, maxReplyChars))
	if err != nil {
		return "", err
	}
	replyThread := threadTS
	if replyThread == "" {
		replyThread = ts
	}
	u.state.MarkPersonaReply(channelID, replyThread, persona.ID)
	u.state.RecordThreadMessage(channelID, replyThread, persona.Name, text)

	log.Info("📋 Completed successfully - replied as %s (%s)", persona.Name, ts)
	return ts, nil
}
