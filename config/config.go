package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/jonit-dev/night-watch-cli-sub005/core/log"
	"github.com/jonit-dev/night-watch-cli-sub005/models"
)

// EnvPrefix prefixes every environment override, e.g. NW_SLACK_BOT_TOKEN -> slack.bot_token
const EnvPrefix = "NW_"

// DefaultConfigPaths are tried in order when no config path is given
var DefaultConfigPaths = []string{"./night-watch.toml", "$HOME/.night-watch.toml"}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	Workers         int           `koanf:"workers"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type SlackConfig struct {
	BotToken      string `koanf:"bot_token"`
	SigningSecret string `koanf:"signing_secret"`
	// BotUserID is normally discovered with auth.test and only needs setting to skip that call
	BotUserID string `koanf:"bot_user_id"`
}

// IsConfigured returns true if all required Slack configuration is present
func (c SlackConfig) IsConfigured() bool {
	return c.BotToken != "" && c.SigningSecret != ""
}

type AIConfig struct {
	Provider        string `koanf:"provider"`
	AnthropicAPIKey string `koanf:"anthropic_api_key"`
	OpenAIAPIKey    string `koanf:"openai_api_key"`
	Model           string `koanf:"model"`
}

// APIKey returns the key of the selected provider
func (c AIConfig) APIKey() string {
	if c.Provider == "openai" {
		return c.OpenAIAPIKey
	}
	return c.AnthropicAPIKey
}

type GitHubConfig struct {
	Token  string `koanf:"token"`
	APIURL string `koanf:"api_url"`
}

type CLIConfig struct {
	Binary       string `koanf:"binary"`
	ClaudeBinary string `koanf:"claude_binary"`
	CodexBinary  string `koanf:"codex_binary"`
	LockDir      string `koanf:"lock_dir"`
}

// ProviderBinaries maps provider names to their executables
func (c CLIConfig) ProviderBinaries() map[string]string {
	return map[string]string{
		"claude": c.ClaudeBinary,
		"codex":  c.CodexBinary,
	}
}

type DBConfig struct {
	Driver string `koanf:"driver"`
	DSN    string `koanf:"dsn"`
}

type TimingConfig struct {
	ReviewCooldown time.Duration `koanf:"review_cooldown"`
	InboundTTL     time.Duration `koanf:"inbound_ttl"`
	MinReplyDelay  time.Duration `koanf:"min_reply_delay"`
	MaxReplyDelay  time.Duration `koanf:"max_reply_delay"`
	HumanMinDelay  time.Duration `koanf:"human_min_delay"`
	HumanMaxDelay  time.Duration `koanf:"human_max_delay"`
	AmbientIdle    time.Duration `koanf:"ambient_idle"`
}

type DeliberationConfig struct {
	MaxRounds       int `koanf:"max_rounds"`
	MaxContributors int `koanf:"max_contributors"`
}

type RoutingConfig struct {
	// DefaultPersonas maps a job kind (run, review, qa, provider) to a persona name
	DefaultPersonas map[string]string `koanf:"default_personas"`
}

type ProjectConfig struct {
	Name     string   `koanf:"name"`
	Path     string   `koanf:"path"`
	Channels []string `koanf:"channels"`
}

type PersonaConfig struct {
	ID        string   `koanf:"id"`
	Name      string   `koanf:"name"`
	Role      string   `koanf:"role"`
	Expertise []string `koanf:"expertise"`
	AvatarURL string   `koanf:"avatar_url"`
	Inactive  bool     `koanf:"inactive"`
}

type AppConfig struct {
	LogLevel     string             `koanf:"log_level"`
	Server       ServerConfig       `koanf:"server"`
	Slack        SlackConfig        `koanf:"slack"`
	AI           AIConfig           `koanf:"ai"`
	GitHub       GitHubConfig       `koanf:"github"`
	CLI          CLIConfig          `koanf:"cli"`
	DB           DBConfig           `koanf:"db"`
	Timing       TimingConfig       `koanf:"timing"`
	Deliberation DeliberationConfig `koanf:"deliberation"`
	Routing      RoutingConfig      `koanf:"routing"`
	Projects     []ProjectConfig    `koanf:"projects"`
	Personas     []PersonaConfig    `koanf:"personas"`
}

func defaults() map[string]any {
	return map[string]any{
		"log_level":                     "info",
		"server.port":                   8080,
		"server.workers":                8,
		"server.shutdown_timeout":       "30s",
		"ai.provider":                   "anthropic",
		"github.api_url":                "https://api.github.com",
		"cli.binary":                    "night-watch",
		"cli.claude_binary":             "claude",
		"cli.codex_binary":              "codex",
		"db.driver":                     "sqlite",
		"db.dsn":                        "night-watch.db",
		"timing.review_cooldown":        "30m",
		"timing.inbound_ttl":            "10m",
		"timing.min_reply_delay":        "20s",
		"timing.max_reply_delay":        "60s",
		"timing.human_min_delay":        "3s",
		"timing.human_max_delay":        "20s",
		"timing.ambient_idle":           "30m",
		"deliberation.max_rounds":       models.DefaultMaxRounds,
		"deliberation.max_contributors": 3,
	}
}

// envKey maps NW_SLACK_BOT_TOKEN to slack.bot_token. Only the first underscore separates the section.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, rest, found := strings.Cut(key, "_")
	if !found || section == "log" {
		return key
	}
	return section + "." + rest
}

// LoadConfig layers defaults, the TOML file at configPath (or the first default path that
// exists) and NW_ environment variables, in that order of precedence.
func LoadConfig(configPath string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("⚠️ Could not load .env file, continuing with system env vars")
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load config defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		log.Info("📋 Loaded config from %s", configPath)
	} else {
		for _, path := range DefaultConfigPaths {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
			log.Info("📋 Loaded config from %s", path)
			break
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	var config AppConfig
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the settings that have no sensible default
func (c *AppConfig) Validate() error {
	if !c.Slack.IsConfigured() {
		return fmt.Errorf("slack bot_token and signing_secret are required")
	}

	switch c.AI.Provider {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("unknown ai provider %q (want anthropic or openai)", c.AI.Provider)
	}
	if c.AI.APIKey() == "" {
		log.Warn("⚠️ No API key for %s, persona replies will fail", c.AI.Provider)
	}

	switch c.DB.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown db driver %q (want sqlite or postgres)", c.DB.Driver)
	}

	if c.Timing.MaxReplyDelay < c.Timing.MinReplyDelay {
		return fmt.Errorf("timing.max_reply_delay (%s) is below timing.min_reply_delay (%s)",
			c.Timing.MaxReplyDelay, c.Timing.MinReplyDelay)
	}
	if c.Timing.HumanMaxDelay < c.Timing.HumanMinDelay {
		return fmt.Errorf("timing.human_max_delay (%s) is below timing.human_min_delay (%s)",
			c.Timing.HumanMaxDelay, c.Timing.HumanMinDelay)
	}

	seen := make(map[string]bool, len(c.Projects))
	for i, p := range c.Projects {
		if p.Name == "" || p.Path == "" {
			return fmt.Errorf("projects[%d] needs both name and path", i)
		}
		if seen[strings.ToLower(p.Name)] {
			return fmt.Errorf("duplicate project %q", p.Name)
		}
		seen[strings.ToLower(p.Name)] = true
	}

	if len(c.Projects) == 0 {
		log.Warn("⚠️ No projects registered - job requests will only get a clarifying question")
	}
	return nil
}

// ToProjects converts the registry entries to domain projects
func (c *AppConfig) ToProjects() []models.Project {
	projects := make([]models.Project, 0, len(c.Projects))
	for _, p := range c.Projects {
		projects = append(projects, models.Project{Name: p.Name, Path: p.Path, Channels: p.Channels})
	}
	return projects
}

// ToPersonas converts the persona seed entries to domain personas. A missing id is derived from the name.
func (c *AppConfig) ToPersonas() []models.Persona {
	personas := make([]models.Persona, 0, len(c.Personas))
	for _, p := range c.Personas {
		id := p.ID
		if id == "" {
			id = strings.ToLower(strings.Join(strings.Fields(p.Name), "-"))
		}
		personas = append(personas, models.Persona{
			ID:        id,
			Name:      p.Name,
			Role:      p.Role,
			Expertise: p.Expertise,
			AvatarURL: p.AvatarURL,
			IsActive:  !p.Inactive,
		})
	}
	return personas
}

// DefaultPersonas returns the per job kind persona defaults
func (c *AppConfig) DefaultPersonas() map[models.JobKind]string {
	defaults := make(map[models.JobKind]string, len(c.Routing.DefaultPersonas))
	for kind, name := range c.Routing.DefaultPersonas {
		defaults[models.JobKind(strings.ToLower(kind))] = name
	}
	return defaults
}
