package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeWindowCheck(t *testing.T) {
	seoul := time.FixedZone("KST", 9*60*60)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, seoul)
	window := NewTimeWindow(now, 24)

	at := func(t time.Time) *time.Time { return &t }

	tests := []struct {
		name  string
		entry FeedEntry
		admit bool
	}{
		{"recent", FeedEntry{PublishedAt: at(now.Add(-time.Hour))}, true},
		{"exactly at threshold", FeedEntry{PublishedAt: at(now.Add(-24 * time.Hour))}, true},
		{"too old", FeedEntry{PublishedAt: at(now.Add(-48 * time.Hour))}, false},
		{"recent in UTC", FeedEntry{PublishedAt: at(now.Add(-2 * time.Hour).UTC())}, true},
		{"no timestamp", FeedEntry{}, true},
		{"unparseable raw", FeedEntry{PublishedRaw: "sometime last week"}, true},
		{"raw with zone too old", FeedEntry{PublishedRaw: "2025-03-08T10:00:00+09:00"}, false},
		{"raw with zone recent", FeedEntry{PublishedRaw: "2025-03-10T01:00:00+00:00"}, true},
		// 2025-03-09 13:00 read in KST is 23h before now
		{"raw without zone uses now's zone", FeedEntry{PublishedRaw: "2025-03-09 13:00:00"}, true},
		{"raw without zone too old", FeedEntry{PublishedRaw: "2025-03-09 11:00:00"}, false},
		// parsed as UTC upstream it would be 16h old; read in KST it is 25h old
		{"zone-less raw wins over UTC parse", FeedEntry{
			PublishedAt:  at(time.Date(2025, 3, 9, 11, 0, 0, 0, time.UTC)),
			PublishedRaw: "2025-03-09T11:00:00",
		}, false},
		{"raw with zone keeps parsed time", FeedEntry{
			PublishedAt:  at(time.Date(2025, 3, 9, 11, 0, 0, 0, time.UTC)),
			PublishedRaw: "2025-03-09T11:00:00Z",
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			admit, reason := window.Check(tt.entry)
			assert.Equal(t, tt.admit, admit)
			if !admit {
				assert.NotEmpty(t, reason)
			}
		})
	}
}

func TestTimeWindowDisabled(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	window := NewTimeWindow(now, 0)

	old := now.AddDate(-1, 0, 0)
	admit, _ := window.Check(FeedEntry{PublishedAt: &old})
	assert.True(t, admit)
	assert.True(t, window.Threshold().IsZero())
}

func TestTimeWindowThreshold(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	window := NewTimeWindow(now, 6)
	assert.Equal(t, time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC), window.Threshold())
}

func TestZoneless(t *testing.T) {
	tests := []struct {
		raw      string
		expected bool
	}{
		{"2025-03-09T16:00:00", true},
		{"2025-03-09 16:00:00", true},
		{"2025-03-09T16:00:00Z", false},
		{"2025-03-09T16:00:00+09:00", false},
		{"2025-03-09T16:00:00-0500", false},
		{"", false},
		{"not a date", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.expected, zoneless(tt.raw))
		})
	}
}
