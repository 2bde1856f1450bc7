package projects

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/samber/mo"

	"github.com/jonit-dev/night-watch-cli-sub005/clients"
	"github.com/jonit-dev/night-watch-cli-sub005/core/log"
	"github.com/jonit-dev/night-watch-cli-sub005/models"
)

const aiMatchSystemPrompt = "You route chat messages to software projects. " +
	"Reply with exactly one project name from the list, or NONE if the message does not clearly refer to one."

// ProjectsService resolves which registered project a chat request targets
type ProjectsService struct {
	projects []models.Project
	aiClient clients.AIClient
}

// NewProjectsService creates a resolver. aiClient may be nil, which disables AI-assisted matching.
func NewProjectsService(projects []models.Project, aiClient clients.AIClient) *ProjectsService {
	return &ProjectsService{projects: projects, aiClient: aiClient}
}

func (s *ProjectsService) Projects() []models.Project {
	return s.projects
}

// ResolveProject picks the target project in order: explicit hint, channel binding,
// the only registered project, then an AI match against the message text.
func (s *ProjectsService) ResolveProject(ctx context.Context, hint, channelID, text string) mo.Option[models.Project] {
	if project, ok := s.MatchHint(hint).Get(); ok {
		log.Debug("📋 Resolved project %s from hint %q", project.Name, hint)
		return mo.Some(project)
	}

	if project, ok := s.ProjectForChannel(channelID).Get(); ok {
		log.Debug("📋 Resolved project %s from channel %s", project.Name, channelID)
		return mo.Some(project)
	}

	if len(s.projects) == 1 {
		return mo.Some(s.projects[0])
	}

	return s.matchWithAI(ctx, text)
}

// MatchHint matches a hint by exact name, then path basename, then substring in either direction
func (s *ProjectsService) MatchHint(hint string) mo.Option[models.Project] {
	hint = strings.ToLower(strings.TrimSpace(hint))
	if hint == "" {
		return mo.None[models.Project]()
	}

	for _, p := range s.projects {
		if strings.ToLower(p.Name) == hint {
			return mo.Some(p)
		}
	}
	for _, p := range s.projects {
		if p.Path != "" && strings.ToLower(filepath.Base(p.Path)) == hint {
			return mo.Some(p)
		}
	}
	for _, p := range s.projects {
		name := strings.ToLower(p.Name)
		if strings.Contains(name, hint) || strings.Contains(hint, name) {
			return mo.Some(p)
		}
	}

	return mo.None[models.Project]()
}

func (s *ProjectsService) ProjectForChannel(channelID string) mo.Option[models.Project] {
	if channelID == "" {
		return mo.None[models.Project]()
	}
	for _, p := range s.projects {
		if slices.Contains(p.Channels, channelID) {
			return mo.Some(p)
		}
	}
	return mo.None[models.Project]()
}

// matchWithAI asks the model to pick a project. Any failure resolves to None.
func (s *ProjectsService) matchWithAI(ctx context.Context, text string) mo.Option[models.Project] {
	if s.aiClient == nil || len(s.projects) == 0 || strings.TrimSpace(text) == "" {
		return mo.None[models.Project]()
	}

	var prompt strings.Builder
	prompt.WriteString("Projects:\n")
	for _, p := range s.projects {
		fmt.Fprintf(&prompt, "- %s (%s)\n", p.Name, p.Path)
	}
	fmt.Fprintf(&prompt, "\nMessage:\n%s\n\nWhich project is this message about?", text)

	answer, err := s.aiClient.Complete(ctx, clients.CompletionRequest{
		System:    aiMatchSystemPrompt,
		Prompt:    prompt.String(),
		MaxTokens: 32,
	})
	if err != nil {
		log.Warn("⚠️ AI project match failed: %v", err)
		return mo.None[models.Project]()
	}

	answer = strings.Trim(strings.TrimSpace(answer), "`\"'. ")
	if answer == "" || strings.EqualFold(answer, "none") {
		return mo.None[models.Project]()
	}

	for _, p := range s.projects {
		if strings.EqualFold(p.Name, answer) {
			log.Debug("📋 Resolved project %s via AI match", p.Name)
			return mo.Some(p)
		}
	}
	return mo.None[models.Project]()
}

// ClarifyingQuestion is posted when no project could be resolved
func (s *ProjectsService) ClarifyingQuestion() string {
	if len(s.projects) == 0 {
		return "I don't have any projects registered yet, so I can't start that. Add one to the config and ask again."
	}

	names := make([]string, 0, len(s.projects))
	for _, p := range s.projects {
		names = append(names, "`"+p.Name+"`")
	}
	return fmt.Sprintf("Which project should I use? Registered projects: %s. Reply with e.g. \"run on %s\".",
		strings.Join(names, ", "), s.projects[0].Name)
}
