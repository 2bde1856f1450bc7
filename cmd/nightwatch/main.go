package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/gorilla/mux"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jonit-dev/night-watch-cli-sub005/clients"
	anthropicclient "github.com/jonit-dev/night-watch-cli-sub005/clients/anthropic"
	githubclient "github.com/jonit-dev/night-watch-cli-sub005/clients/github"
	openaiclient "github.com/jonit-dev/night-watch-cli-sub005/clients/openai"
	"github.com/jonit-dev/night-watch-cli-sub005/clients/process"
	slackclient "github.com/jonit-dev/night-watch-cli-sub005/clients/slack"
	"github.com/jonit-dev/night-watch-cli-sub005/config"
	"github.com/jonit-dev/night-watch-cli-sub005/core/log"
	"github.com/jonit-dev/night-watch-cli-sub005/db"
	"github.com/jonit-dev/night-watch-cli-sub005/handlers"
	"github.com/jonit-dev/night-watch-cli-sub005/metrics"
	"github.com/jonit-dev/night-watch-cli-sub005/services/chat"
	"github.com/jonit-dev/night-watch-cli-sub005/services/contextfetch"
	"github.com/jonit-dev/night-watch-cli-sub005/services/jobs"
	"github.com/jonit-dev/night-watch-cli-sub005/services/personas"
	"github.com/jonit-dev/night-watch-cli-sub005/services/projects"
	"github.com/jonit-dev/night-watch-cli-sub005/services/threadstate"
	"github.com/jonit-dev/night-watch-cli-sub005/usecases/cascade"
	"github.com/jonit-dev/night-watch-cli-sub005/usecases/deliberation"
	"github.com/jonit-dev/night-watch-cli-sub005/usecases/router"
)

type Options struct {
	Config   string `short:"c" long:"config" description:"Path to the TOML config file (default: ./night-watch.toml, then ~/.night-watch.toml)"`
	LogLevel string `long:"log-level" description:"Override the configured log level (debug, info, warn, error)"`
	Port     int    `short:"p" long:"port" description:"Override the configured HTTP port"`
	LogFile  string `long:"log-file" description:"Also append logs to this file"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := run(opts); err != nil {
		log.Error("❌ night-watch exited: %v", err)
		os.Exit(1)
	}
}

func run(opts Options) error {
	cfg, err := config.LoadConfig(opts.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if opts.Port != 0 {
		cfg.Server.Port = opts.Port
	}
	log.SetLevel(log.ParseLevel(cfg.LogLevel))
	if opts.LogFile != "" {
		logFile, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer logFile.Close()
		log.SetOutput(io.MultiWriter(os.Stdout, logFile))
		log.Info("📝 Logging to %s", opts.LogFile)
	}

	ctx := context.Background()

	dbConn, err := db.NewConnection(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		return err
	}
	defer dbConn.Close()
	if err := db.Migrate(ctx, dbConn); err != nil {
		return err
	}
	log.Info("📋 Database ready (%s)", cfg.DB.Driver)

	personasService := personas.NewPersonasService(db.NewSQLPersonasRepository(dbConn))
	if err := personasService.SeedPersonas(ctx, cfg.ToPersonas()); err != nil {
		return fmt.Errorf("failed to seed personas: %w", err)
	}

	slackClient := slackclient.NewSlackClient(cfg.Slack.BotToken)
	botUserID := cfg.Slack.BotUserID
	if botUserID == "" {
		identity, err := slackClient.AuthTest(ctx)
		if err != nil {
			return fmt.Errorf("failed to verify slack bot token: %w", err)
		}
		botUserID = identity.UserID
	}
	log.Info("🤖 Running as Slack user %s", botUserID)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewRecorder(reg)

	aiClient := newAIClient(cfg.AI)
	chatService := chat.NewChatService(slackClient)
	fetcher := contextfetch.NewContextFetcherService(githubclient.NewGitHubClient(cfg.GitHub.APIURL, cfg.GitHub.Token))

	state := threadstate.NewThreadStateManager(threadstate.Config{
		ReviewCooldown: cfg.Timing.ReviewCooldown,
		InboundTTL:     cfg.Timing.InboundTTL,
	})
	projectsService := projects.NewProjectsService(cfg.ToProjects(), aiClient)
	for _, p := range projectsService.Projects() {
		log.Info("📁 Project %s at %s (channels %v)", p.Name, p.Path, p.Channels)
	}
	jobsService := jobs.NewJobsService(process.NewExecRunner(), jobs.Config{
		CLIBinary:        cfg.CLI.Binary,
		ProviderBinaries: cfg.CLI.ProviderBinaries(),
		LockDir:          cfg.CLI.LockDir,
	}, recorder)
	cascadeUseCase := cascade.NewCascadeUseCase(state, cascade.Config{
		MinDelay: cfg.Timing.HumanMinDelay,
		MaxDelay: cfg.Timing.HumanMaxDelay,
	})
	deliberationUseCase := deliberation.NewDeliberationUseCase(
		personasService,
		chatService,
		aiClient,
		state,
		fetcher,
		recorder,
		deliberation.Config{
			MaxRounds:       cfg.Deliberation.MaxRounds,
			MaxContributors: cfg.Deliberation.MaxContributors,
			MinReplyDelay:   cfg.Timing.MinReplyDelay,
			MaxReplyDelay:   cfg.Timing.MaxReplyDelay,
		},
	)
	routerUseCase := router.NewRouterUseCase(
		personasService,
		chatService,
		state,
		projectsService,
		jobsService,
		cascadeUseCase,
		deliberationUseCase,
		recorder,
		router.Config{
			BotUserID:       botUserID,
			AmbientIdle:     cfg.Timing.AmbientIdle,
			DefaultPersonas: cfg.DefaultPersonas(),
		},
	)

	pool := workerpool.New(cfg.Server.Workers)

	httpRouter := mux.NewRouter()
	handlers.NewSlackEventsHandler(cfg.Slack.SigningSecret, routerUseCase, pool).SetupEndpoints(httpRouter)
	handlers.SetupOpsEndpoints(httpRouter, reg)

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           handlers.WithRecovery(handlers.WithRequestID(httpRouter)),
		ReadHeaderTimeout: 30 * time.Second,
	}

	return handleGracefulShutdown(server, cfg.Server.ShutdownTimeout, func() {
		pool.StopWait()
		routerUseCase.Wait()
		jobsService.WaitAll()
	})
}

func newAIClient(cfg config.AIConfig) clients.AIClient {
	if cfg.Provider == "openai" {
		return openaiclient.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.Model)
	}
	return anthropicclient.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.Model)
}

// handleGracefulShutdown serves until SIGINT/SIGTERM, then stops accepting requests and waits
// for in-flight work (drain) up to timeout.
func handleGracefulShutdown(server *http.Server, timeout time.Duration, drain func()) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		log.Info("✅ Listening on http://localhost%s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}
	log.Info("🛑 Shutdown signal received, cleaning up...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("❌ Server shutdown error: %v", err)
		return err
	}

	drained := make(chan struct{})
	go func() {
		drain()
		close(drained)
	}()
	select {
	case <-drained:
		log.Info("✅ Server stopped gracefully")
	case <-ctx.Done():
		log.Warn("⚠️ Shutdown timed out with work still in flight")
	}
	return nil
}
