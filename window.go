package main

import (
	"fmt"
	"time"

	"github.com/araddon/dateparse"
)

// TimeWindow admits entries published after a fixed threshold. It is
// computed once per run so every entry is judged against the same instant.
type TimeWindow struct {
	now       time.Time
	threshold time.Time
	disabled  bool
}

// NewTimeWindow returns a window of the given hours ending at now.
// hours <= 0 disables filtering.
func NewTimeWindow(now time.Time, hours int) TimeWindow {
	if hours <= 0 {
		return TimeWindow{now: now, disabled: true}
	}
	return TimeWindow{
		now:       now,
		threshold: now.Add(-time.Duration(hours) * time.Hour),
	}
}

// Threshold returns the cutoff instant (zero when disabled)
func (w TimeWindow) Threshold() time.Time {
	return w.threshold
}

// Check reports whether entry falls inside the window. Entries without a
// usable timestamp are admitted.
func (w TimeWindow) Check(entry FeedEntry) (bool, string) {
	if w.disabled {
		return true, ""
	}

	published, err := w.publishedAt(entry)
	if err != nil {
		debugLog("Cannot parse publish time %q of %s, treating as current: %v", entry.PublishedRaw, entry.ID, err)
		return true, ""
	}
	if published == nil {
		return true, ""
	}

	if published.Before(w.threshold) {
		age := w.now.Sub(*published).Hours()
		return false, fmt.Sprintf("published %.1fh ago", age)
	}
	return true, ""
}

// publishedAt normalizes the entry timestamp to the window's zone.
// Raw timestamps without an explicit zone are read in now's location.
func (w TimeWindow) publishedAt(entry FeedEntry) (*time.Time, error) {
	loc := w.now.Location()

	// feed parsers read zone-less timestamps as UTC, so the raw form wins then
	if entry.PublishedAt != nil && !zoneless(entry.PublishedRaw) {
		t := entry.PublishedAt.In(loc)
		return &t, nil
	}
	if entry.PublishedRaw == "" {
		return nil, nil
	}

	t, err := dateparse.ParseIn(entry.PublishedRaw, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

var zoneProbe = time.FixedZone("UTC+5", 5*60*60)

// zoneless reports whether raw names no offset of its own, so the instant it
// denotes depends on the location it is read in.
func zoneless(raw string) bool {
	if raw == "" {
		return false
	}
	inUTC, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return false
	}
	inProbe, err := dateparse.ParseIn(raw, zoneProbe)
	if err != nil {
		return false
	}
	return !inUTC.Equal(inProbe)
}
