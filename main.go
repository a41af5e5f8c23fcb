package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var (
	apiKey            string
	feedsFile         string
	cacheFile         string
	settingsPath      string
	promptPath        string
	emailTemplatePath string
	hoursToCheck      int
	maxEntries        int
	dryRun            bool
	confirmMode       bool
	debugMode         bool
)

var rootCmd = &cobra.Command{
	Use:   "tube-letter",
	Short: "Summarize new YouTube videos and email the summaries",
	Long: `Polls YouTube channel feeds, summarizes new videos with an LLM and emails
the summaries. Processed videos are remembered in a JSON cache file.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if debugMode {
			SetDebugMode(true)
		}

		if err := LoadEnvFile(".env"); err != nil {
			log.Printf("⚠ %v", err)
		}

		overrides := &ConfigOverrides{}
		if settingsPath != "" {
			overrides.SettingsPath = &settingsPath
		}
		if promptPath != "" {
			overrides.PromptPath = &promptPath
		}
		if emailTemplatePath != "" {
			overrides.EmailTemplatePath = &emailTemplatePath
		}

		config, err := NewConfig(overrides)
		if err != nil {
			return err
		}
		applyFlags(cmd, config)

		if err := config.Validate(!dryRun); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		return run(ctx, config)
	},
}

// applyFlags lets explicitly set flags win over settings
func applyFlags(cmd *cobra.Command, config *Config) {
	flags := cmd.Flags()
	if apiKey != "" {
		config.Credentials.APIKey = apiKey
	}
	if flags.Changed("feeds") {
		config.Settings.FeedsFile = feedsFile
	}
	if flags.Changed("cache") {
		config.Settings.CacheFile = cacheFile
	}
	if flags.Changed("hours") {
		config.Settings.HoursToCheck = hoursToCheck
	}
	if flags.Changed("max-entries") {
		config.Settings.MaxEntries = maxEntries
	}
}

func run(ctx context.Context, config *Config) error {
	settings := config.Settings

	feeds, err := LoadChannelFeeds(settings.FeedsFile)
	if err != nil {
		return err
	}
	if len(feeds) == 0 {
		return fmt.Errorf("no valid channel IDs in %s", settings.FeedsFile)
	}
	log.Printf("Loaded %d feeds from %s", len(feeds), settings.FeedsFile)
	for _, feed := range feeds {
		debugLog("Feed: %s %s", feed.ChannelID, feed.Label)
	}

	cache, err := LoadDedupCache(settings.CacheFile)
	if err != nil {
		return err
	}

	summarizer, err := NewClaudeSummarizer(config.Credentials.APIKey, settings.Summarizer, config.GetSystemPrompt(), config.GetSummaryPrompt())
	if err != nil {
		return fmt.Errorf("creating summarizer: %w", err)
	}

	composer, err := NewMessageComposer(settings.Email.SubjectPrefix, config.GetEmailTemplate())
	if err != nil {
		return err
	}

	deps := PipelineDeps{
		Reader:     NewGoFeedReader(settings.FeedTimeout),
		Cache:      cache,
		Summarizer: summarizer,
		Composer:   composer,
	}

	if transcripts := NewTranscriptAPI(settings.Transcript); transcripts != nil {
		deps.Transcripts = transcripts
	} else {
		log.Printf("⚠ Transcript API not configured, summarizing from titles and descriptions")
	}

	if dryRun {
		deps.Notifier = LogNotifier{}
	} else {
		creds := config.Credentials
		sender := NewSMTPSender(settings.Email, creds.EmailSender, creds.EmailPassword)
		notifier, err := NewEmailNotifier(creds.EmailSender, creds.Recipients, sender)
		if err != nil {
			return fmt.Errorf("creating email notifier: %w", err)
		}
		deps.Notifier = notifier
		debugLog("Sender: %s, recipients: %d", creds.EmailSender, len(creds.Recipients))
	}

	if confirmMode {
		deps.Approval = NewPromptApproval(os.Stdin, os.Stdout)
	}

	pipeline, err := NewIngestionPipeline(deps, PipelineOptions{
		HoursToCheck: settings.HoursToCheck,
		MaxEntries:   settings.MaxEntries,
	})
	if err != nil {
		return err
	}

	stats, err := pipeline.Run(ctx, feeds)
	stats.Report()

	if errors.Is(err, ErrProviderRateLimited) {
		log.Printf("✗ The summarization provider reported a rate limit or exhausted quota.")
		log.Printf("  Unprocessed videos will be picked up on the next run. Wait for the quota to reset or use another API key.")
		return nil
	}
	if errors.Is(err, ErrStopRequested) {
		log.Printf("Run stopped at your request. Remaining videos will be picked up on the next run.")
		return nil
	}
	return err
}

func init() {
	rootCmd.Flags().StringVar(&apiKey, "api-key", "", "Anthropic API key (default $ANTHROPIC_API_KEY)")
	rootCmd.Flags().StringVar(&feedsFile, "feeds", "rss_feeds.txt", "File with one channel ID per line")
	rootCmd.Flags().StringVar(&cacheFile, "cache", "processed_videos.json", "Processed video cache file")
	rootCmd.Flags().StringVar(&settingsPath, "settings", "", "Path to settings file")
	rootCmd.Flags().StringVar(&promptPath, "prompt", "", "Path to custom summary prompt template")
	rootCmd.Flags().StringVar(&emailTemplatePath, "email-template", "", "Path to custom email body template")
	rootCmd.Flags().IntVar(&hoursToCheck, "hours", 24, "Only process videos published within this many hours (0 = no limit)")
	rootCmd.Flags().IntVar(&maxEntries, "max-entries", 0, "Maximum videos to summarize per run (0 = unlimited)")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Summarize but log messages instead of sending email")
	rootCmd.Flags().BoolVar(&confirmMode, "confirm", false, "Ask before sending each email")
	rootCmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var missing *MissingConfigError
		if errors.As(err, &missing) {
			fmt.Fprintln(os.Stderr, "Error: the following settings are required (environment or .env):")
			for _, item := range missing.Items {
				fmt.Fprintf(os.Stderr, "  - %s\n", item)
			}
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var debugEnabled bool

// SetDebugMode enables or disables debug logging
func SetDebugMode(enabled bool) {
	debugEnabled = enabled
}

func debugLog(format string, args ...interface{}) {
	if debugEnabled {
		log.Printf("[DEBUG] "+format, args...)
	}
}
