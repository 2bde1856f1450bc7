package jobs

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonit-dev/night-watch-cli-sub005/clients"
	"github.com/jonit-dev/night-watch-cli-sub005/core"
	"github.com/jonit-dev/night-watch-cli-sub005/core/log"
	"github.com/jonit-dev/night-watch-cli-sub005/metrics"
	"github.com/jonit-dev/night-watch-cli-sub005/models"
	"github.com/jonit-dev/night-watch-cli-sub005/utils"
)

const (
	DefaultCLIBinary = "night-watch"
	maxOutputTail    = 1500
)

// Config controls which binaries jobs run and where their locks live
type Config struct {
	CLIBinary string
	// ProviderBinaries maps a provider name ("claude", "codex") to its executable
	ProviderBinaries map[string]string
	LockDir          string
}

// JobSpec is a resolved request ready to be launched
type JobSpec struct {
	Kind     models.JobKind
	Project  models.Project
	Channel  string
	ThreadTS string
	Persona  models.Persona
	Params   models.JobParams
}

// JobCallbacks let the owning persona narrate job progress without polling
type JobCallbacks struct {
	MarkChannelActivity func(channelID string)
	MarkPersonaReply    func(channelID, threadTS, personaID string)
	PostStatus          func(ctx context.Context, job models.Job, text string)
}

type JobsService struct {
	runner  clients.ProcessRunner
	config  Config
	metrics *metrics.Recorder

	wg sync.WaitGroup
}

func NewJobsService(runner clients.ProcessRunner, config Config, recorder *metrics.Recorder) *JobsService {
	if config.CLIBinary == "" {
		config.CLIBinary = DefaultCLIBinary
	}
	return &JobsService{runner: runner, config: config, metrics: recorder}
}

// SpawnJob launches a job in the background and returns a snapshot of it in the running state.
// Only an invalid spec is returned as an error; lock conflicts, spawn failures and non-zero
// exits are reported through callbacks.PostStatus.
func (s *JobsService) SpawnJob(ctx context.Context, spec JobSpec, callbacks JobCallbacks) (*models.Job, error) {
	log.Info("📋 Starting to spawn %s job for project %s (persona %s)", spec.Kind, spec.Project.Name, spec.Persona.ID)

	command, err := s.buildCommand(spec)
	if err != nil {
		return nil, err
	}

	job := models.Job{
		ID:          core.NewID("job"),
		Kind:        spec.Kind,
		ProjectName: spec.Project.Name,
		ProjectPath: spec.Project.Path,
		ChannelID:   spec.Channel,
		ThreadTS:    spec.ThreadTS,
		PersonaID:   spec.Persona.ID,
		Params:      spec.Params,
		Status:      models.JobStatusRunning,
	}

	lock, err := utils.NewJobLock(s.config.LockDir, lockKey(spec))
	if err != nil {
		job.Status = models.JobStatusFailed
		s.finish(ctx, job, callbacks, fmt.Sprintf("❌ Couldn't start `%s` for %s: %v", spec.Kind, spec.Project.Name, err), 0)
		return &job, nil
	}

	locked, err := lock.TryLock()
	if err != nil || !locked {
		job.Status = models.JobStatusSkipped
		if err == nil {
			err = core.ErrJobLocked
		}
		log.Warn("⚠️ Not spawning %s for %s: %v", spec.Kind, spec.Project.Name, err)
		s.finish(ctx, job, callbacks, fmt.Sprintf("⏳ A `%s` job for %s%s is already running, letting that one finish.",
			spec.Kind, spec.Project.Name, describeTarget(spec.Params)), 0)
		return &job, nil
	}

	if callbacks.MarkChannelActivity != nil {
		callbacks.MarkChannelActivity(spec.Channel)
	}

	snapshot := job
	detached := context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if err := lock.Unlock(); err != nil {
				log.Warn("⚠️ Failed to release job lock %s: %v", lock.Path(), err)
			}
		}()
		s.run(detached, job, command, callbacks)
	}()

	log.Info("📋 Completed successfully - spawned job %s", job.ID)
	return &snapshot, nil
}

// WaitAll blocks until every spawned job has finished
func (s *JobsService) WaitAll() {
	s.wg.Wait()
}

func (s *JobsService) run(ctx context.Context, job models.Job, command clients.CommandSpec, callbacks JobCallbacks) {
	started := time.Now()
	result, err := s.runner.Run(ctx, command)
	duration := time.Since(started)

	if cmdErr, ok := clients.IsCommandFailed(err); ok {
		job.Status = models.JobStatusFailed
		job.ExitCode = cmdErr.ExitCode
		s.finish(ctx, job, callbacks, fmt.Sprintf("❌ `%s` failed for %s%s (exit %d).%s",
			job.Kind, job.ProjectName, describeTarget(job.Params), cmdErr.ExitCode, outputTail(cmdErr.Output)), duration)
		return
	}
	if err != nil {
		job.Status = models.JobStatusFailed
		job.ExitCode = -1
		s.finish(ctx, job, callbacks, fmt.Sprintf("❌ Couldn't start `%s` for %s: %v", job.Kind, job.ProjectName, err), duration)
		return
	}

	job.Status = models.JobStatusSucceeded
	if result != nil {
		job.ExitCode = result.ExitCode
	}
	s.finish(ctx, job, callbacks, fmt.Sprintf("✅ `%s` finished for %s%s.", job.Kind, job.ProjectName, describeTarget(job.Params)), duration)
}

func (s *JobsService) finish(ctx context.Context, job models.Job, callbacks JobCallbacks, text string, duration time.Duration) {
	s.metrics.JobFinished(string(job.Kind), string(job.Status), duration)
	log.Info("📋 Job %s (%s, %s) ended with status %s", job.ID, job.Kind, job.ProjectName, job.Status)

	if callbacks.PostStatus != nil {
		callbacks.PostStatus(ctx, job, text)
	}
	if callbacks.MarkPersonaReply != nil {
		callbacks.MarkPersonaReply(job.ChannelID, job.ThreadTS, job.PersonaID)
	}
}

func (s *JobsService) buildCommand(spec JobSpec) (clients.CommandSpec, error) {
	if spec.Project.Path == "" {
		return clients.CommandSpec{}, fmt.Errorf("project path cannot be empty")
	}
	if spec.Persona.ID == "" {
		return clients.CommandSpec{}, fmt.Errorf("job must be attributed to a persona")
	}
	if spec.Channel == "" {
		return clients.CommandSpec{}, fmt.Errorf("channel cannot be empty")
	}

	params := spec.Params
	env := []string{}
	if params.ProjectHint != "" {
		env = append(env, "NW_PROJECT_HINT="+params.ProjectHint)
	}
	if params.PRNumber != "" {
		env = append(env, "NW_PR_NUMBER="+params.PRNumber)
	}
	if params.IssueNumber != "" {
		env = append(env, "NW_ISSUE_NUMBER="+params.IssueNumber)
	}
	if params.FixConflicts {
		env = append(env, "NW_FIX_CONFLICTS=1")
	}

	switch spec.Kind {
	case models.JobKindRun, models.JobKindReview, models.JobKindQA:
		args := []string{string(spec.Kind)}
		if params.PRNumber != "" {
			args = append(args, "--pr", params.PRNumber)
		}
		return clients.CommandSpec{Name: s.config.CLIBinary, Args: args, Dir: spec.Project.Path, Env: env}, nil

	case models.JobKindProvider:
		if strings.TrimSpace(params.Prompt) == "" {
			return clients.CommandSpec{}, fmt.Errorf("provider job needs a prompt")
		}
		binary := s.config.ProviderBinaries[params.Provider]
		if binary == "" {
			binary = params.Provider
		}
		switch params.Provider {
		case "claude":
			return clients.CommandSpec{Name: binary, Args: []string{"-p", params.Prompt}, Dir: spec.Project.Path, Env: env}, nil
		case "codex":
			return clients.CommandSpec{Name: binary, Args: []string{"exec", params.Prompt}, Dir: spec.Project.Path, Env: env}, nil
		}
		return clients.CommandSpec{}, fmt.Errorf("unknown provider %q", params.Provider)
	}

	return clients.CommandSpec{}, fmt.Errorf("unknown job kind %q", spec.Kind)
}

// lockKey scopes a lock to project, job kind and target so jobs on different PRs run in parallel
func lockKey(spec JobSpec) string {
	target := "all"
	switch {
	case spec.Params.PRNumber != "":
		target = "pr-" + spec.Params.PRNumber
	case spec.Params.IssueNumber != "":
		target = "issue-" + spec.Params.IssueNumber
	case spec.Kind == models.JobKindProvider:
		target = spec.Params.Provider
	}
	return fmt.Sprintf("%s:%s:%s", spec.Project.Path, spec.Kind, target)
}

func describeTarget(params models.JobParams) string {
	switch {
	case params.PRNumber != "":
		return " (PR #" + params.PRNumber + ")"
	case params.IssueNumber != "":
		return " (issue #" + params.IssueNumber + ")"
	}
	return ""
}

func outputTail(output string) string {
	output = strings.TrimSpace(output)
	if output == "" {
		return ""
	}
	runes := []rune(output)
	if len(runes) > maxOutputTail {
		output = "…" + string(runes[len(runes)-maxOutputTail:])
	}
	return "\n```\n" + output + "\n```"
}
