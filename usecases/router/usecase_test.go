package router

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jonit-dev/night-watch-cli-sub005/clients"
	"github.com/jonit-dev/night-watch-cli-sub005/clients/anthropic"
	"github.com/jonit-dev/night-watch-cli-sub005/clients/process"
	slackclient "github.com/jonit-dev/night-watch-cli-sub005/clients/slack"
	"github.com/jonit-dev/night-watch-cli-sub005/core"
	"github.com/jonit-dev/night-watch-cli-sub005/metrics"
	"github.com/jonit-dev/night-watch-cli-sub005/models"
	"github.com/jonit-dev/night-watch-cli-sub005/services/chat"
	"github.com/jonit-dev/night-watch-cli-sub005/services/jobs"
	"github.com/jonit-dev/night-watch-cli-sub005/services/projects"
	"github.com/jonit-dev/night-watch-cli-sub005/services/threadstate"
	"github.com/jonit-dev/night-watch-cli-sub005/usecases/cascade"
	"github.com/jonit-dev/night-watch-cli-sub005/usecases/deliberation"
)

const botUserID = "UBOT"

var (
	maya   = models.Persona{ID: "maya", Name: "Maya Chen", Role: "Tech Lead", Expertise: []string{"architecture"}, IsActive: true}
	carlos = models.Persona{ID: "carlos", Name: "Carlos Ruiz", Role: "Security Engineer", Expertise: []string{"auth", "tokens"}, IsActive: true}
	priya  = models.Persona{ID: "priya", Name: "Priya Nair", Role: "Frontend Engineer", Expertise: []string{"react", "css"}, IsActive: true}

	testProjects = []models.Project{
		{Name: "night-watch-cli", Path: "/work/night-watch-cli"},
		{Name: "web", Path: "/work/web", Channels: []string{"CWEB"}},
	}
)

type fakePersonaSource struct {
	personas []models.Persona
	err      error
}

func (f *fakePersonaSource) ListActivePersonas(ctx context.Context) ([]models.Persona, error) {
	return f.personas, f.err
}

// skewedClock runs at wall-clock speed, shifted forward by whatever Advance added
type skewedClock struct {
	mu     sync.Mutex
	offset time.Duration
}

func (c *skewedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Now().Add(c.offset)
}

func (c *skewedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset += d
}

type routerFixture struct {
	router *RouterUseCase
	clock  *skewedClock
	ai     *anthropic.MockAIClient
	slack  *slackclient.MockSlackClient
	runner *process.MockProcessRunner
	state  *threadstate.ThreadStateManager
	jobs   *jobs.JobsService
	reg    *prometheus.Registry
}

func newRouterFixture(t *testing.T, personas ...models.Persona) *routerFixture {
	t.Helper()
	f := &routerFixture{
		clock:  &skewedClock{},
		ai:     anthropic.NewMockAIClient(),
		slack:  slackclient.NewMockSlackClient(),
		runner: process.NewMockProcessRunner(),
		reg:    prometheus.NewRegistry(),
	}
	f.state = threadstate.NewThreadStateManager(threadstate.Config{
		Now:  f.clock.Now,
		Rand: rand.New(rand.NewPCG(3, 4)),
	})
	recorder := metrics.NewRecorder(f.reg)
	source := &fakePersonaSource{personas: personas}
	chatService := chat.NewChatService(f.slack)

	f.jobs = jobs.NewJobsService(f.runner, jobs.Config{LockDir: t.TempDir()}, recorder)
	engine := deliberation.NewDeliberationUseCase(source, chatService, f.ai, f.state, nil, recorder, deliberation.Config{
		Sleep: func(ctx context.Context, d time.Duration) bool { return true },
	})
	timing := cascade.NewCascadeUseCase(f.state, cascade.Config{
		MinDelay:     time.Millisecond,
		MaxDelay:     time.Millisecond,
		PollInterval: time.Millisecond,
	})

	f.router = NewRouterUseCase(
		source,
		chatService,
		f.state,
		projects.NewProjectsService(testProjects, nil),
		f.jobs,
		timing,
		engine,
		recorder,
		Config{BotUserID: botUserID},
	)
	return f
}

// settle waits for every goroutine the router and the spawner started
func (f *routerFixture) settle() {
	f.router.Wait()
	f.jobs.WaitAll()
}

func (f *routerFixture) postedTexts() []string {
	var texts []string
	for _, p := range f.slack.Posted() {
		texts = append(texts, p.Message.Text)
	}
	return texts
}

func mention(channel, ts, text string) models.InboundEvent {
	return models.InboundEvent{Type: models.InboundEventTypeAppMention, UserID: "U1", ChannelID: channel, TS: ts, Text: text}
}

func message(channel, ts, text string) models.InboundEvent {
	return models.InboundEvent{Type: models.InboundEventTypeMessage, UserID: "U1", ChannelID: channel, TS: ts, Text: text}
}

func TestTryRouteJobRequests(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()

	t.Run("Addressed run request spawns the CLI", func(t *testing.T) {
		f := newRouterFixture(t, maya, carlos, priya)

		handled := f.router.TryRoute(ctx, mention("C1", "100.1", "<@UBOT> please run night-watch-cli now"))
		require.True(t, handled)
		f.settle()

		specs := f.runner.Specs()
		require.Len(t, specs, 1)
		assert.Equal(t, "night-watch", specs[0].Name)
		assert.Equal(t, []string{"run"}, specs[0].Args)
		assert.Equal(t, "/work/night-watch-cli", specs[0].Dir)
		assert.Contains(t, specs[0].Env, "NW_PROJECT_HINT=night-watch-cli")

		posted := f.slack.Posted()
		require.Len(t, posted, 2)
		assert.Equal(t, "On it, starting `run` on night-watch-cli.", posted[0].Message.Text)
		assert.Equal(t, "✅ `run` finished for night-watch-cli.", posted[1].Message.Text)
		for _, p := range posted {
			assert.Equal(t, "100.1", p.Message.ThreadTS)
			assert.Equal(t, "Carlos Ruiz", p.Message.Username)
		}

		assert.Equal(t, "carlos", f.state.AdHocOwner("C1", "100.1").MustGet())
		count, err := testutil.GatherAndCount(f.reg, "nightwatch_jobs_total")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("Conflict fix on a PR link without addressing the bot", func(t *testing.T) {
		f := newRouterFixture(t, maya, carlos, priya)

		handled := f.router.TryRoute(ctx, message("C1", "100.2",
			"Can someone fix these merge issues? https://github.com/jonit-dev/night-watch-cli/pull/25"))
		require.True(t, handled)
		f.settle()

		specs := f.runner.Specs()
		require.Len(t, specs, 1)
		assert.Equal(t, []string{"review", "--pr", "25"}, specs[0].Args)
		assert.Contains(t, specs[0].Env, "NW_FIX_CONFLICTS=1")
		assert.Contains(t, specs[0].Env, "NW_PR_NUMBER=25")

		posted := f.slack.Posted()
		require.NotEmpty(t, posted)
		assert.Equal(t, "On it, starting `review` on night-watch-cli for PR #25 and fixing the conflicts.", posted[0].Message.Text)
		assert.Equal(t, "Maya Chen", posted[0].Message.Username)
	})

	t.Run("Mentioned persona owns the job", func(t *testing.T) {
		f := newRouterFixture(t, maya, carlos, priya)

		require.True(t, f.router.TryRoute(ctx, mention("C1", "100.3", "<@UBOT> @priya run qa on web")))
		f.settle()

		posted := f.slack.Posted()
		require.NotEmpty(t, posted)
		assert.Equal(t, "Priya Nair", posted[0].Message.Username)
		assert.Equal(t, []string{"qa"}, f.runner.Specs()[0].Args)
		assert.Equal(t, "/work/web", f.runner.Specs()[0].Dir)
	})

	t.Run("Channel binding resolves the project", func(t *testing.T) {
		f := newRouterFixture(t, maya)

		require.True(t, f.router.TryRoute(ctx, message("CWEB", "100.4", "review please")))
		f.settle()

		require.Len(t, f.runner.Specs(), 1)
		assert.Equal(t, "/work/web", f.runner.Specs()[0].Dir)
	})

	t.Run("Unknown project asks a clarifying question", func(t *testing.T) {
		f := newRouterFixture(t, maya, carlos)

		require.True(t, f.router.TryRoute(ctx, message("C9", "100.5", "hey can you review?")))
		f.settle()

		assert.Empty(t, f.runner.Specs())
		texts := f.postedTexts()
		require.Len(t, texts, 1)
		assert.Contains(t, texts[0], "`night-watch-cli`")
		assert.Contains(t, texts[0], "`web`")
	})

	t.Run("Failing job is reported, not returned", func(t *testing.T) {
		f := newRouterFixture(t, maya)
		f.runner.MockRun = func(ctx context.Context, spec clients.CommandSpec) (*clients.ProcessResult, error) {
			return &clients.ProcessResult{ExitCode: 2, Output: "boom"}, &clients.ErrCommandFailed{ExitCode: 2, Output: "boom"}
		}

		require.True(t, f.router.TryRoute(ctx, mention("C1", "100.6", "<@UBOT> run web")))
		f.settle()

		texts := f.postedTexts()
		require.Len(t, texts, 2)
		assert.True(t, strings.HasPrefix(texts[1], "❌ `run` failed for web (exit 2)."))
	})

	t.Run("No personas falls back to the built-in identity", func(t *testing.T) {
		f := newRouterFixture(t)

		require.True(t, f.router.TryRoute(ctx, mention("C1", "100.7", "<@UBOT> run web")))
		f.settle()

		posted := f.slack.Posted()
		require.NotEmpty(t, posted)
		assert.Equal(t, "Night Watch", posted[0].Message.Username)
	})
}

func TestTryRouteProviderAndIssues(t *testing.T) {
	ctx := context.Background()

	t.Run("Provider invocation", func(t *testing.T) {
		f := newRouterFixture(t, maya, carlos)

		require.True(t, f.router.TryRoute(ctx, mention("C1", "200.1", "<@UBOT> claude on web: fix the flaky test")))
		f.settle()

		specs := f.runner.Specs()
		require.Len(t, specs, 1)
		assert.Equal(t, "claude", specs[0].Name)
		assert.Equal(t, []string{"-p", "fix the flaky test"}, specs[0].Args)
		assert.Equal(t, "On it, handing this to `claude` in web.", f.postedTexts()[0])
	})

	t.Run("Bare provider name is not a request", func(t *testing.T) {
		f := newRouterFixture(t, maya)

		assert.False(t, f.router.TryRoute(ctx, message("C1", "200.2", "claude")))
		f.settle()
		assert.Empty(t, f.runner.Specs())
	})

	t.Run("Issue pickup", func(t *testing.T) {
		f := newRouterFixture(t, maya, carlos)

		require.True(t, f.router.TryRoute(ctx, message("C1", "200.3", "please pick up https://github.com/acme/web/issues/42")))
		f.settle()

		specs := f.runner.Specs()
		require.Len(t, specs, 1)
		assert.Equal(t, "/work/web", specs[0].Dir)
		assert.Contains(t, specs[0].Env, "NW_ISSUE_NUMBER=42")
		assert.Equal(t, "Picking up issue #42 on web.", f.postedTexts()[0])
	})

	t.Run("Bare issue link opens a discussion once per cooldown", func(t *testing.T) {
		f := newRouterFixture(t, maya, carlos)
		f.ai.WithResponse("SKIP")

		require.True(t, f.router.TryRoute(ctx, message("C1", "200.4", "https://github.com/acme/web/issues/7")))
		f.settle()

		posted := f.slack.Posted()
		require.Len(t, posted, 1)
		assert.Equal(t, "200.4", posted[0].Message.ThreadTS)
		assert.Equal(t, "Maya Chen", posted[0].Message.Username)
		assert.Contains(t, posted[0].Message.Text, "https://github.com/acme/web/issues/7")
		assert.Empty(t, f.runner.Specs())

		require.True(t, f.router.TryRoute(ctx, message("C1", "200.5", "https://github.com/acme/web/issues/7")))
		f.settle()
		assert.Len(t, f.slack.Posted(), 1)

		f.clock.Advance(threadstate.DefaultReviewCooldown)
		require.True(t, f.router.TryRoute(ctx, message("C1", "200.6", "https://github.com/acme/web/issues/7")))
		f.settle()

		posted = f.slack.Posted()
		require.Len(t, posted, 2)
		assert.Equal(t, "200.6", posted[1].Message.ThreadTS)
		assert.Equal(t, "Maya Chen", posted[1].Message.Username)
		assert.Contains(t, posted[1].Message.Text, "https://github.com/acme/web/issues/7")
	})

	t.Run("Issue link in a thread is not a review trigger", func(t *testing.T) {
		f := newRouterFixture(t, maya)
		event := message("C1", "200.7", "https://github.com/acme/web/issues/8")
		event.ThreadTS = "200.6"

		assert.False(t, f.router.TryRoute(ctx, event))
		f.settle()
		assert.Empty(t, f.slack.Posted())
	})
}

func TestTryRouteFollowUpsAndGreetings(t *testing.T) {
	ctx := context.Background()

	t.Run("Thread reply goes to the persona holding the thread", func(t *testing.T) {
		f := newRouterFixture(t, maya, carlos, priya)
		f.ai.WithResponse("Yes, on every login.")
		f.state.MarkPersonaReply("C1", "300.1", "carlos")

		event := message("C1", "300.2", "is it rotated?")
		event.ThreadTS = "300.1"
		require.True(t, f.router.TryRoute(ctx, event))
		f.settle()

		posted := f.slack.Posted()
		require.Len(t, posted, 1)
		assert.Equal(t, "Carlos Ruiz", posted[0].Message.Username)
		assert.Equal(t, "300.1", posted[0].Message.ThreadTS)
		assert.Equal(t, "Yes, on every login.", posted[0].Message.Text)
	})

	t.Run("Better matching persona takes over the thread", func(t *testing.T) {
		f := newRouterFixture(t, maya, carlos, priya)
		f.ai.WithResponse("Use a grid there.")
		f.state.MarkPersonaReply("C1", "300.3", "carlos")

		event := message("C1", "300.4", "the react layout and css look off")
		event.ThreadTS = "300.3"
		require.True(t, f.router.TryRoute(ctx, event))
		f.settle()

		posted := f.slack.Posted()
		require.Len(t, posted, 1)
		assert.Equal(t, "Priya Nair", posted[0].Message.Username)
	})

	t.Run("Mentioned persona answers a root message", func(t *testing.T) {
		f := newRouterFixture(t, maya, carlos, priya)
		f.ai.WithResponse("Looking now.")

		require.True(t, f.router.TryRoute(ctx, message("C1", "300.5", "@priya can you check the css?")))
		f.settle()

		posted := f.slack.Posted()
		require.Len(t, posted, 1)
		assert.Equal(t, "Priya Nair", posted[0].Message.Username)
		assert.Equal(t, "300.5", posted[0].Message.ThreadTS)
	})

	t.Run("Thread without persona continuity is left alone", func(t *testing.T) {
		f := newRouterFixture(t, maya)
		event := message("C1", "300.7", "what do you think?")
		event.ThreadTS = "300.6"

		assert.False(t, f.router.TryRoute(ctx, event))
	})

	t.Run("Greeting in an idle channel gets one answer", func(t *testing.T) {
		f := newRouterFixture(t, maya, carlos)
		f.ai.WithResponse("Morning!")

		require.True(t, f.router.TryRoute(ctx, message("C2", "300.8", "hey guys")))
		assert.False(t, f.router.TryRoute(ctx, message("C2", "300.9", "hey")))
		f.settle()

		posted := f.slack.Posted()
		require.Len(t, posted, 1)
		assert.Equal(t, "", posted[0].Message.ThreadTS)
		assert.Equal(t, "Morning!", posted[0].Message.Text)
	})

	t.Run("Greeting in a busy channel is ignored", func(t *testing.T) {
		f := newRouterFixture(t, maya)
		f.state.MarkChannelActivity("C3")

		assert.False(t, f.router.TryRoute(ctx, message("C3", "301.0", "hello")))
	})
}

func TestTryRouteFiltering(t *testing.T) {
	ctx := context.Background()

	t.Run("Redelivered event is a no-op", func(t *testing.T) {
		f := newRouterFixture(t, maya)
		event := mention("C1", "400.1", "<@UBOT> run web")

		assert.True(t, f.router.TryRoute(ctx, event))
		assert.False(t, f.router.TryRoute(ctx, event))
		f.settle()
		assert.Len(t, f.runner.Specs(), 1)
	})

	t.Run("Message addressing the bot defers to the app mention", func(t *testing.T) {
		f := newRouterFixture(t, maya)

		assert.False(t, f.router.TryRoute(ctx, message("C1", "400.2", "<@UBOT> run web")))
		assert.True(t, f.router.TryRoute(ctx, mention("C1", "400.2", "<@UBOT> run web")))
		f.settle()
		assert.Len(t, f.runner.Specs(), 1)
	})

	t.Run("Own and bot messages are ignored", func(t *testing.T) {
		f := newRouterFixture(t, maya)

		own := message("C1", "400.3", "run web please")
		own.UserID = botUserID
		assert.False(t, f.router.TryRoute(ctx, own))

		bot := message("C1", "400.4", "run web please")
		bot.BotID = "B1"
		assert.False(t, f.router.TryRoute(ctx, bot))

		edited := message("C1", "400.5", "run web please")
		edited.SubType = "message_changed"
		assert.False(t, f.router.TryRoute(ctx, edited))

		f.settle()
		assert.Empty(t, f.runner.Specs())
	})

	t.Run("Unrelated chatter is not handled", func(t *testing.T) {
		f := newRouterFixture(t, maya)

		assert.False(t, f.router.TryRoute(ctx, message("C1", "400.6", "lunch anyone?")))
		assert.True(t, f.state.LastChannelActivity("C1").IsPresent())

		expected := `
# HELP nightwatch_events_routed_total Inbound chat events by the handler that took them (or none)
# TYPE nightwatch_events_routed_total counter
nightwatch_events_routed_total{handler="none"} 1
`
		assert.NoError(t, testutil.GatherAndCompare(f.reg, strings.NewReader(expected), "nightwatch_events_routed_total"))
	})
}

func TestSelectJobPersona(t *testing.T) {
	ctx := context.Background()

	t.Run("Configured default wins over role keywords", func(t *testing.T) {
		f := newRouterFixture(t, maya, carlos, priya)
		f.router.config.DefaultPersonas = map[models.JobKind]string{models.JobKindReview: "Priya"}

		persona := f.router.selectJobPersona(ctx, message("C1", "500.1", "review web"), models.JobKindReview)
		assert.Equal(t, "priya", persona.ID)
	})

	t.Run("Ad hoc owner beats the role default", func(t *testing.T) {
		f := newRouterFixture(t, maya, carlos, priya)
		f.state.RememberAdHocOwner("C1", "500.2", "priya")

		event := message("C1", "500.3", "review web")
		event.ThreadTS = "500.2"
		assert.Equal(t, "priya", f.router.selectJobPersona(ctx, event, models.JobKindReview).ID)
	})

	t.Run("Random active persona when no role fits", func(t *testing.T) {
		f := newRouterFixture(t, maya)

		assert.Equal(t, "maya", f.router.selectJobPersona(ctx, message("C1", "500.4", "qa web"), models.JobKindQA).ID)
	})

	t.Run("Persona listing failure uses the fallback identity", func(t *testing.T) {
		f := newRouterFixture(t, maya)
		f.router.personas = &fakePersonaSource{err: core.ErrNoPersonas}

		assert.Equal(t, fallbackPersona.ID, f.router.selectJobPersona(ctx, message("C1", "500.5", "qa web"), models.JobKindQA).ID)
	})
}

func TestDescribeJob(t *testing.T) {
	web := models.Project{Name: "web"}

	tests := []struct {
		name   string
		kind   models.JobKind
		params models.JobParams
		want   string
	}{
		{name: "Plain run", kind: models.JobKindRun, want: "On it, starting `run` on web."},
		{name: "Review with PR", kind: models.JobKindReview, params: models.JobParams{PRNumber: "3"}, want: "On it, starting `review` on web for PR #3."},
		{name: "Issue pickup", kind: models.JobKindRun, params: models.JobParams{IssueNumber: "9"}, want: "Picking up issue #9 on web."},
		{name: "Provider", kind: models.JobKindProvider, params: models.JobParams{Provider: "codex"}, want: "On it, handing this to `codex` in web."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, describeJob(tt.kind, web, tt.params))
		})
	}
}
