package main

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

const defaultFeedTimeout = 30 * time.Second

// Feed is a fetched channel feed
type Feed struct {
	Title   string
	Entries []FeedEntry
}

// FeedReader fetches and parses a channel feed into ordered entries
type FeedReader interface {
	Fetch(ctx context.Context, feed ChannelFeed) (*Feed, error)
}

// GoFeedReader reads YouTube Atom feeds over HTTP
type GoFeedReader struct {
	client    *http.Client
	parser    *gofeed.Parser
	converter *md.Converter
}

// NewGoFeedReader creates a reader with the given per-request timeout
func NewGoFeedReader(timeout time.Duration) *GoFeedReader {
	if timeout <= 0 {
		timeout = defaultFeedTimeout
	}
	return &GoFeedReader{
		client:    &http.Client{Timeout: timeout},
		parser:    gofeed.NewParser(),
		converter: md.NewConverter("", true, nil),
	}
}

// Fetch downloads and parses the feed
func (r *GoFeedReader) Fetch(ctx context.Context, feed ChannelFeed) (*Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", feed.URL, err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", feed.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: feed.URL}
	}

	parsed, err := r.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing feed %s: %w", feed.URL, err)
	}

	result := &Feed{Title: parsed.Title, Entries: make([]FeedEntry, 0, len(parsed.Items))}
	if result.Title == "" {
		result.Title = feed.Label
	}

	for _, item := range parsed.Items {
		entry := r.toEntry(item, result.Title)
		if entry.ID == "" {
			debugLog("Feed %s: item %q has no ID, skipping", feed.URL, item.Title)
			continue
		}
		result.Entries = append(result.Entries, entry)
	}

	return result, nil
}

func (r *GoFeedReader) toEntry(item *gofeed.Item, channel string) FeedEntry {
	entry := FeedEntry{
		ID:          itemVideoID(item),
		Title:       strings.TrimSpace(item.Title),
		Link:        item.Link,
		Channel:     channel,
		SummaryText: r.itemSummary(item),
	}

	switch {
	case item.PublishedParsed != nil:
		entry.PublishedAt = item.PublishedParsed
		entry.PublishedRaw = item.Published
	case item.UpdatedParsed != nil:
		entry.PublishedAt = item.UpdatedParsed
		entry.PublishedRaw = item.Updated
	case item.Published != "":
		entry.PublishedRaw = item.Published
	default:
		entry.PublishedRaw = item.Updated
	}

	return entry
}

// itemVideoID prefers yt:videoId, then the Atom id, then the link
func itemVideoID(item *gofeed.Item) string {
	if v := extensionValue(item.Extensions, "yt", "videoId"); v != "" {
		return v
	}
	if item.GUID != "" {
		return strings.TrimPrefix(item.GUID, "yt:video:")
	}
	return item.Link
}

// itemSummary returns media:description, falling back to the item
// description or content. HTML is converted to markdown.
func (r *GoFeedReader) itemSummary(item *gofeed.Item) string {
	summary := ""
	if groups := item.Extensions["media"]["group"]; len(groups) > 0 {
		if desc := groups[0].Children["description"]; len(desc) > 0 {
			summary = desc[0].Value
		}
	}
	if summary == "" {
		summary = item.Description
	}
	if summary == "" {
		summary = item.Content
	}

	summary = strings.TrimSpace(summary)
	if htmlTagPattern.MatchString(summary) {
		if converted, err := r.converter.ConvertString(summary); err == nil {
			summary = strings.TrimSpace(converted)
		} else {
			debugLog("Converting description of %q to markdown failed: %v", item.Title, err)
		}
	}
	return summary
}

var htmlTagPattern = regexp.MustCompile(`<(?:[a-zA-Z][a-zA-Z0-9]*|/[a-zA-Z][a-zA-Z0-9]*)[^>]*>`)

func extensionValue(exts ext.Extensions, namespace, name string) string {
	if values := exts[namespace][name]; len(values) > 0 {
		return strings.TrimSpace(values[0].Value)
	}
	return ""
}
