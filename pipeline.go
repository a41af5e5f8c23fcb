package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PipelineDeps holds the collaborators of an IngestionPipeline
type PipelineDeps struct {
	Reader      FeedReader
	Cache       *DedupCache
	Transcripts TranscriptSource // optional
	Summarizer  Summarizer
	Composer    *MessageComposer
	Notifier    Notifier     // optional; nil disables delivery
	Approval    ApprovalGate // optional; nil approves everything
	Now         func() time.Time
}

// PipelineOptions tunes a pipeline run
type PipelineOptions struct {
	HoursToCheck int
	// MaxEntries caps summarized entries per run; 0 means unlimited
	MaxEntries int
}

// IngestionPipeline drives feeds through dedup, time filtering,
// summarization and delivery, one entry at a time.
type IngestionPipeline struct {
	deps PipelineDeps
	opts PipelineOptions
}

// NewIngestionPipeline validates deps and creates a pipeline
func NewIngestionPipeline(deps PipelineDeps, opts PipelineOptions) (*IngestionPipeline, error) {
	if deps.Reader == nil {
		return nil, errors.New("feed reader is required")
	}
	if deps.Cache == nil {
		return nil, errors.New("dedup cache is required")
	}
	if deps.Summarizer == nil {
		return nil, errors.New("summarizer is required")
	}
	if deps.Notifier != nil && deps.Composer == nil {
		return nil, errors.New("message composer is required when a notifier is set")
	}
	if deps.Approval == nil {
		deps.Approval = AutoApprove{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &IngestionPipeline{deps: deps, opts: opts}, nil
}

// Run processes every feed. It stops early, returning the partial stats,
// when the summarizer is rate limited, the operator stops it at the
// approval prompt, or ctx is cancelled.
func (p *IngestionPipeline) Run(ctx context.Context, feeds []ChannelFeed) (*RunStats, error) {
	now := p.deps.Now()
	window := NewTimeWindow(now, p.opts.HoursToCheck)

	stats := &RunStats{
		RunID:      uuid.NewString(),
		StartedAt:  now,
		Threshold:  window.Threshold(),
		FeedsTotal: len(feeds),
	}

	log.Printf("Run %s: processing %d feeds...", stats.RunID, len(feeds))
	if !stats.Threshold.IsZero() {
		log.Printf("⏰ Time filter: last %dh (after %s)", p.opts.HoursToCheck, stats.Threshold.Format("2006-01-02 15:04:05"))
	}

	summarized := 0
	for i, feed := range feeds {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		log.Printf("[%d/%d] Fetching feed: %s", i+1, len(feeds), feedName(feed))
		fetched, err := p.deps.Reader.Fetch(ctx, feed)
		if err != nil {
			stats.FeedsFailed++
			log.Printf("✗ Feed unavailable %s: %v", feed.URL, err)
			continue
		}
		debugLog("Feed %q has %d entries", fetched.Title, len(fetched.Entries))

		for _, entry := range fetched.Entries {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			if p.opts.MaxEntries > 0 && summarized >= p.opts.MaxEntries {
				log.Printf("Reached limit of %d entries for this run", p.opts.MaxEntries)
				return stats, nil
			}

			if entry.Channel == "" {
				entry.Channel = fetched.Title
			}
			result, err := p.processEntry(ctx, window, feed, entry)
			stats.Results = append(stats.Results, result)
			if err != nil {
				log.Printf("Stopping run after %s: %v", entry.ID, err)
				return stats, err
			}

			if result.Outcome == OutcomeProcessed || result.Outcome == OutcomeFailed {
				summarized++
			}
			if result.Outcome == OutcomeFailed && result.Failure == FailureRateLimited {
				stats.Aborted = true
				return stats, fmt.Errorf("aborting run at %s: %w", entry.ID, result.Err)
			}
		}
	}

	return stats, nil
}

// processEntry runs the per-entry decision sequence. A non-nil error means
// the operator asked to stop the run.
func (p *IngestionPipeline) processEntry(ctx context.Context, window TimeWindow, feed ChannelFeed, entry FeedEntry) (ProcessingResult, error) {
	result := ProcessingResult{Feed: feed.URL, EntryID: entry.ID, Title: entry.Title}

	if p.deps.Cache.Contains(entry.ID) {
		debugLog("⏭ Skipping (cached): %s", entry.Title)
		result.Outcome = OutcomeSkippedCached
		return result, nil
	}

	if ok, reason := window.Check(entry); !ok {
		debugLog("⏭ Skipping (too old, %s): %s", reason, entry.Title)
		result.Outcome = OutcomeSkippedTooOld
		return result, nil
	}

	log.Printf("🎥 New video: %s (%s)", entry.Title, entry.ID)
	content := p.contentFor(ctx, entry)
	if content == "" {
		log.Printf("⚠ No transcript or description for %s, skipping", entry.ID)
		result.Outcome = OutcomeSkippedEmptyContent
		return result, nil
	}

	summary, err := p.deps.Summarizer.Summarize(ctx, SummaryRequest{
		Title:   entry.Title,
		Link:    entry.Link,
		Content: content,
	})
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Failure = FailureKindOf(err)
		result.Err = err
		if result.Failure == FailureRateLimited {
			log.Printf("✗ Summarization rate limited on %s: %v", entry.ID, err)
		} else {
			log.Printf("✗ Summarization failed for %s, will retry next run: %v", entry.ID, err)
		}
		return result, nil
	}
	log.Printf("✓ Summary generated (%d chars)", len(summary))

	result.Outcome = OutcomeProcessed
	if err := p.deps.Cache.Add(entry.ID); err != nil {
		log.Printf("⚠ Failed to persist cache: %v", err)
	}

	delivered, err := p.deliver(ctx, entry, summary)
	result.Delivered = delivered
	return result, err
}

// contentFor prefers a transcript and falls back to title and description
func (p *IngestionPipeline) contentFor(ctx context.Context, entry FeedEntry) string {
	if p.deps.Transcripts != nil {
		log.Printf("  → Fetching transcript...")
		transcript, err := p.deps.Transcripts.Transcript(ctx, entry.ID)
		switch {
		case err != nil:
			log.Printf("  ⚠ Transcript unavailable for %s: %v", entry.ID, err)
		case strings.TrimSpace(transcript) != "":
			log.Printf("  ✓ Transcript fetched (%d chars)", len(transcript))
			return transcript
		default:
			log.Printf("  ⚠ Empty transcript for %s", entry.ID)
		}
	}

	title := strings.TrimSpace(entry.Title)
	summary := strings.TrimSpace(entry.SummaryText)
	if title == "" && summary == "" {
		return ""
	}
	return fmt.Sprintf("Title: %s\nDescription: %s", title, summary)
}

// deliver sends the summary; failures never undo the dedup mark.
// Only ErrStopRequested is returned.
func (p *IngestionPipeline) deliver(ctx context.Context, entry FeedEntry, summary string) (bool, error) {
	if p.deps.Notifier == nil {
		return false, nil
	}

	approved, err := p.deps.Approval.Approve(entry, summary)
	if errors.Is(err, ErrStopRequested) {
		return false, err
	}
	if err != nil {
		log.Printf("⚠ Approval failed for %s: %v", entry.ID, err)
		return false, nil
	}
	if !approved {
		log.Printf("  ⏭ Delivery skipped for %s", entry.ID)
		return false, nil
	}

	msg, err := p.deps.Composer.Compose(entry, summary)
	if err != nil {
		log.Printf("✗ Composing message for %s failed: %v", entry.ID, err)
		return false, nil
	}

	log.Printf("  → Sending: %s", msg.Subject)
	if err := p.deps.Notifier.Notify(ctx, msg); err != nil {
		log.Printf("✗ Delivery failed for %s: %v", entry.ID, err)
		return false, nil
	}
	log.Printf("  ✓ Sent")
	return true, nil
}

// Report logs the run statistics
func (s *RunStats) Report() {
	log.Printf("%s", strings.Repeat("=", 60))
	log.Printf("Run %s statistics", s.RunID)
	log.Printf("  Summarized:          %d", s.Count(OutcomeProcessed))
	log.Printf("  Skipped (cached):    %d", s.Count(OutcomeSkippedCached))
	log.Printf("  Skipped (too old):   %d", s.Count(OutcomeSkippedTooOld))
	log.Printf("  Skipped (no content): %d", s.Count(OutcomeSkippedEmptyContent))
	log.Printf("  Failed:              %d (rate limited: %d)", s.Count(OutcomeFailed), s.CountFailures(FailureRateLimited))
	log.Printf("  Feeds failed:        %d/%d", s.FeedsFailed, s.FeedsTotal)
	if s.Aborted {
		log.Printf("  Run aborted early")
	}
	log.Printf("%s", strings.Repeat("=", 60))
}

func feedName(feed ChannelFeed) string {
	if feed.Label != "" {
		return fmt.Sprintf("%s (%s)", feed.Label, feed.ChannelID)
	}
	return feed.URL
}
