package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSettingsDefaults(t *testing.T) {
	settings, err := parseSettings([]byte(defaultSettings))
	require.NoError(t, err)

	assert.Equal(t, 24, settings.HoursToCheck)
	assert.Equal(t, "rss_feeds.txt", settings.FeedsFile)
	assert.Equal(t, "processed_videos.json", settings.CacheFile)
	assert.Equal(t, 30*time.Second, settings.FeedTimeout)
	assert.Equal(t, 4096, settings.Summarizer.MaxTokens)
	assert.Equal(t, 5, settings.Transcript.Retries)
	assert.Equal(t, 587, settings.Email.SMTPPort)
}

func TestParseSettingsLayersOverDefaults(t *testing.T) {
	settings, err := parseSettings([]byte(`
hours_to_check: 6
summarizer:
  model: claude-test
transcript:
  timeout: 2m
`))
	require.NoError(t, err)

	assert.Equal(t, 6, settings.HoursToCheck)
	assert.Equal(t, "claude-test", settings.Summarizer.Model)
	assert.Equal(t, 2*time.Minute, settings.Transcript.Timeout)
	// untouched keys keep their defaults
	assert.Equal(t, 4096, settings.Summarizer.MaxTokens)
	assert.Equal(t, "processed_videos.json", settings.CacheFile)
}

func TestParseSettingsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"negative hours", "hours_to_check: -1"},
		{"bad yaml", "hours_to_check: [1"},
		{"bad duration", "feed_timeout: soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseSettings([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestParseSettingsMaxTokensFallback(t *testing.T) {
	settings, err := parseSettings([]byte("summarizer:\n  max_tokens: 0\n"))
	require.NoError(t, err)
	assert.Equal(t, 4096, settings.Summarizer.MaxTokens)
}

func TestNewConfigFromSettingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hours_to_check: 12\n"), 0644))

	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("EMAIL_SENDER", "bot@example.com")
	t.Setenv("EMAIL_PASSWORD", "secret")
	t.Setenv("EMAIL_RECIPIENTS", "a@example.com, b@example.com")
	t.Setenv("YOUTUBE_TRANSCRIPT_API_URL", "https://transcripts.example.com")
	t.Setenv("YOUTUBE_TRANSCRIPT_API_KEY", "yt-key")

	config, err := NewConfig(&ConfigOverrides{SettingsPath: &path})
	require.NoError(t, err)

	assert.Equal(t, 12, config.Settings.HoursToCheck)
	assert.Equal(t, "https://transcripts.example.com", config.Settings.Transcript.APIURL)
	assert.Equal(t, "yt-key", config.Settings.Transcript.APIKey)
	assert.Equal(t, "sk-test", config.Credentials.APIKey)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, config.Credentials.Recipients)
	assert.NoError(t, config.Validate(true))
}

func TestNewConfigMissingSettingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")
	_, err := NewConfig(&ConfigOverrides{SettingsPath: &path})
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	config := &Config{Settings: &Settings{}}

	err := config.Validate(true)
	var missing *MissingConfigError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"ANTHROPIC_API_KEY", "EMAIL_SENDER", "EMAIL_PASSWORD", "EMAIL_RECIPIENTS"}, missing.Items)

	err = config.Validate(false)
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"ANTHROPIC_API_KEY"}, missing.Items)

	config.Credentials.APIKey = "sk-test"
	assert.NoError(t, config.Validate(false))
}

func TestConfigPromptOverrides(t *testing.T) {
	dir := t.TempDir()
	promptPath := filepath.Join(dir, "prompt.md")
	require.NoError(t, os.WriteFile(promptPath, []byte("custom {{.Content}}"), 0644))
	missingPath := filepath.Join(dir, "missing.txt")

	config := &Config{Overrides: &ConfigOverrides{PromptPath: &promptPath, EmailTemplatePath: &missingPath}}
	assert.Equal(t, "custom {{.Content}}", config.GetSummaryPrompt())
	assert.Equal(t, defaultEmailTemplate, config.GetEmailTemplate())

	config = &Config{}
	assert.Equal(t, defaultSummaryPrompt, config.GetSummaryPrompt())
	assert.Equal(t, defaultSystemPrompt, config.GetSystemPrompt())
}

func TestLoadEnvFile(t *testing.T) {
	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TUBE_LETTER_TEST_VALUE=from-env-file\n"), 0644))
	t.Setenv("TUBE_LETTER_TEST_VALUE", "")
	os.Unsetenv("TUBE_LETTER_TEST_VALUE")

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "from-env-file", os.Getenv("TUBE_LETTER_TEST_VALUE"))
}
