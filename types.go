package main

import (
	"fmt"
	"time"
)

// ChannelFeed is a validated channel identifier and the feed endpoint built from it
type ChannelFeed struct {
	ChannelID string
	Label     string
	URL       string
}

// FeedEntry is one video discovered in a feed. Only ID is ever persisted.
type FeedEntry struct {
	ID           string
	Title        string
	Link         string
	Channel      string
	PublishedAt  *time.Time
	PublishedRaw string
	SummaryText  string
}

// Outcome is the result of attempting one entry
type Outcome int

const (
	OutcomeProcessed Outcome = iota
	OutcomeSkippedCached
	OutcomeSkippedTooOld
	OutcomeSkippedEmptyContent
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeProcessed:
		return "processed"
	case OutcomeSkippedCached:
		return "skipped-cached"
	case OutcomeSkippedTooOld:
		return "skipped-too-old"
	case OutcomeSkippedEmptyContent:
		return "skipped-empty-content"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// FailureKind classifies a summarizer failure
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureRateLimited
	FailureOther
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureRateLimited:
		return "rate-limited"
	case FailureOther:
		return "other"
	default:
		return fmt.Sprintf("failure(%d)", int(k))
	}
}

// ProcessingResult tracks the outcome of processing each entry
type ProcessingResult struct {
	Feed      string
	EntryID   string
	Title     string
	Outcome   Outcome
	Failure   FailureKind
	Err       error
	Delivered bool
}

// RunStats aggregates the results of one pipeline run across all feeds
type RunStats struct {
	RunID       string
	StartedAt   time.Time
	Threshold   time.Time
	FeedsTotal  int
	FeedsFailed int
	Aborted     bool
	Results     []ProcessingResult
}

// Count returns the number of results with the given outcome
func (s *RunStats) Count(outcome Outcome) int {
	n := 0
	for _, r := range s.Results {
		if r.Outcome == outcome {
			n++
		}
	}
	return n
}

// CountFailures returns the number of failed results of the given kind
func (s *RunStats) CountFailures(kind FailureKind) int {
	n := 0
	for _, r := range s.Results {
		if r.Outcome == OutcomeFailed && r.Failure == kind {
			n++
		}
	}
	return n
}

// Outcomes returns the outcomes in processing order
func (s *RunStats) Outcomes() []Outcome {
	outcomes := make([]Outcome, len(s.Results))
	for i, r := range s.Results {
		outcomes[i] = r.Outcome
	}
	return outcomes
}
