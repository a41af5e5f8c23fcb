package main

import (
	_ "embed"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultConfigDir = ".tube-letter"

//go:embed config/settings.yaml
var defaultSettings string

//go:embed config/summary-system-prompt.md
var defaultSystemPrompt string

//go:embed config/summary-prompt.md
var defaultSummaryPrompt string

//go:embed config/email-template.txt
var defaultEmailTemplate string

// ConfigOverrides allows overriding embedded defaults with file paths
type ConfigOverrides struct {
	SettingsPath      *string
	PromptPath        *string
	EmailTemplatePath *string
}

// SummarizerSettings are pass-through generation parameters
type SummarizerSettings struct {
	Model            string  `yaml:"model"`
	MaxTokens        int     `yaml:"max_tokens"`
	Temperature      float64 `yaml:"temperature"`
	TopP             float64 `yaml:"top_p"`
	TopK             int     `yaml:"top_k"`
	ContentMaxTokens int     `yaml:"content_max_tokens"`
}

// TranscriptSettings configure the transcript API. The key only comes from the environment.
type TranscriptSettings struct {
	APIURL   string        `yaml:"api_url"`
	APIKey   string        `yaml:"-"`
	Retries  int           `yaml:"retries"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheDir string        `yaml:"cache_dir"`
}

// EmailSettings configure SMTP delivery
type EmailSettings struct {
	SMTPHost      string `yaml:"smtp_host"`
	SMTPPort      int    `yaml:"smtp_port"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// Settings represents the YAML configuration structure
type Settings struct {
	HoursToCheck int                `yaml:"hours_to_check"`
	FeedsFile    string             `yaml:"feeds_file"`
	CacheFile    string             `yaml:"cache_file"`
	FeedTimeout  time.Duration      `yaml:"feed_timeout"`
	MaxEntries   int                `yaml:"max_entries"`
	Summarizer   SummarizerSettings `yaml:"summarizer"`
	Transcript   TranscriptSettings `yaml:"transcript"`
	Email        EmailSettings      `yaml:"email"`
}

// Credentials come from the environment (or a .env file)
type Credentials struct {
	APIKey        string
	EmailSender   string
	EmailPassword string
	Recipients    []string
}

// Config holds everything a run needs, built once at startup
type Config struct {
	Settings    *Settings
	Credentials Credentials
	Overrides   *ConfigOverrides
}

// MissingConfigError lists required configuration that is absent
type MissingConfigError struct {
	Items []string
}

func (e *MissingConfigError) Error() string {
	return "missing required configuration: " + strings.Join(e.Items, ", ")
}

// LoadEnvFile loads .env into the environment if it exists
func LoadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// credentialsFromEnv reads credentials from the environment
func credentialsFromEnv() Credentials {
	return Credentials{
		APIKey:        os.Getenv("ANTHROPIC_API_KEY"),
		EmailSender:   os.Getenv("EMAIL_SENDER"),
		EmailPassword: os.Getenv("EMAIL_PASSWORD"),
		Recipients:    ParseRecipients(os.Getenv("EMAIL_RECIPIENTS")),
	}
}

// NewConfig loads settings and credentials
func NewConfig(overrides *ConfigOverrides) (*Config, error) {
	settings, err := loadConfiguredSettings(overrides)
	if err != nil {
		return nil, err
	}

	if url := os.Getenv("YOUTUBE_TRANSCRIPT_API_URL"); url != "" {
		settings.Transcript.APIURL = url
	}
	settings.Transcript.APIKey = os.Getenv("YOUTUBE_TRANSCRIPT_API_KEY")

	return &Config{
		Settings:    settings,
		Credentials: credentialsFromEnv(),
		Overrides:   overrides,
	}, nil
}

// Validate reports every missing required item at once
func (c *Config) Validate(emailEnabled bool) error {
	var missing []string
	if c.Credentials.APIKey == "" {
		missing = append(missing, "ANTHROPIC_API_KEY")
	}
	if emailEnabled {
		if c.Credentials.EmailSender == "" {
			missing = append(missing, "EMAIL_SENDER")
		}
		if c.Credentials.EmailPassword == "" {
			missing = append(missing, "EMAIL_PASSWORD")
		}
		if len(c.Credentials.Recipients) == 0 {
			missing = append(missing, "EMAIL_RECIPIENTS")
		}
	}
	if len(missing) > 0 {
		return &MissingConfigError{Items: missing}
	}
	return nil
}

// GetSummaryPrompt returns the summary prompt (from override file or embedded)
func (c *Config) GetSummaryPrompt() string {
	if c.Overrides != nil && c.Overrides.PromptPath != nil {
		if content, err := os.ReadFile(*c.Overrides.PromptPath); err == nil {
			return string(content)
		}
		log.Printf("⚠ Cannot read prompt %s, using default", *c.Overrides.PromptPath)
	}
	return defaultSummaryPrompt
}

// GetSystemPrompt returns the embedded system prompt
func (c *Config) GetSystemPrompt() string {
	return defaultSystemPrompt
}

// GetEmailTemplate returns the email body template (from override file or embedded)
func (c *Config) GetEmailTemplate() string {
	if c.Overrides != nil && c.Overrides.EmailTemplatePath != nil {
		if content, err := os.ReadFile(*c.Overrides.EmailTemplatePath); err == nil {
			return string(content)
		}
		log.Printf("⚠ Cannot read email template %s, using default", *c.Overrides.EmailTemplatePath)
	}
	return defaultEmailTemplate
}

func loadConfiguredSettings(overrides *ConfigOverrides) (*Settings, error) {
	if overrides != nil && overrides.SettingsPath != nil {
		// Explicit settings file must exist
		settings, err := loadSettingsFile(*overrides.SettingsPath)
		if err != nil {
			return nil, fmt.Errorf("loading settings %s: %w", *overrides.SettingsPath, err)
		}
		return settings, nil
	}

	if err := ensureConfigExists(); err != nil {
		return nil, fmt.Errorf("ensuring config files exist: %w", err)
	}
	settingsPath := getConfigPath("settings.yaml")
	settings, err := loadSettingsFile(settingsPath)
	if errors.Is(err, os.ErrNotExist) {
		return parseSettings([]byte(defaultSettings))
	}
	if err != nil {
		return nil, fmt.Errorf("loading settings %s: %w", settingsPath, err)
	}
	return settings, nil
}

func loadSettingsFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseSettings(data)
}

// parseSettings layers data over the embedded defaults
func parseSettings(data []byte) (*Settings, error) {
	var settings Settings
	if err := yaml.Unmarshal([]byte(defaultSettings), &settings); err != nil {
		return nil, fmt.Errorf("parsing default settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings YAML: %w", err)
	}

	if settings.Summarizer.MaxTokens <= 0 {
		log.Printf("Warning: summarizer.max_tokens is %d, defaulting to 4096", settings.Summarizer.MaxTokens)
		settings.Summarizer.MaxTokens = 4096
	}
	if settings.HoursToCheck < 0 {
		return nil, fmt.Errorf("hours_to_check must not be negative, got %d", settings.HoursToCheck)
	}
	return &settings, nil
}

// getConfigPath returns the path to a config file in the config directory
func getConfigPath(filename string) string {
	return filepath.Join(defaultConfigDir, filename)
}

// ensureConfigExists creates the config directory and writes settings.yaml if needed
func ensureConfigExists() error {
	if err := os.MkdirAll(defaultConfigDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	settingsFile := getConfigPath("settings.yaml")
	if _, err := os.Stat(settingsFile); os.IsNotExist(err) {
		if err := os.WriteFile(settingsFile, []byte(defaultSettings), 0644); err != nil {
			return fmt.Errorf("writing settings.yaml: %w", err)
		}
	}
	return nil
}
