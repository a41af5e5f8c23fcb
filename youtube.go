// youtube.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const transcriptCacheDir = ".cache/youtube"

// HTTPError represents an HTTP error with status code
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// TranscriptSource provides the rich content for a video
type TranscriptSource interface {
	Transcript(ctx context.Context, videoID string) (string, error)
}

// TranscriptAPI fetches transcripts from a transcript HTTP API and caches
// them on disk by video ID.
type TranscriptAPI struct {
	settings TranscriptSettings
	client   *http.Client
	sleep    func(time.Duration)
}

// NewTranscriptAPI returns nil when the API is not configured
func NewTranscriptAPI(settings TranscriptSettings) *TranscriptAPI {
	if settings.APIURL == "" || settings.APIKey == "" {
		return nil
	}
	if settings.Retries < 1 {
		settings.Retries = 1
	}
	if settings.CacheDir == "" {
		settings.CacheDir = transcriptCacheDir
	}
	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TranscriptAPI{
		settings: settings,
		client:   &http.Client{Timeout: timeout},
		sleep:    time.Sleep,
	}
}

// Transcript returns the transcript of a video, using the local cache if available
func (t *TranscriptAPI) Transcript(ctx context.Context, videoID string) (string, error) {
	if videoID == "" {
		return "", errors.New("video ID is required")
	}

	cachePath := filepath.Join(t.settings.CacheDir, videoID)
	if content, err := os.ReadFile(cachePath); err == nil {
		debugLog("Transcript cache hit for %s", videoID)
		return string(content), nil
	}

	transcript, err := t.fetchWithRetries(ctx, videoID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch transcript: %w", err)
	}

	if strings.TrimSpace(transcript) == "" {
		return "", nil
	}

	if err := os.MkdirAll(t.settings.CacheDir, 0755); err != nil {
		debugLog("Creating transcript cache directory failed: %v", err)
		return transcript, nil
	}
	if err := os.WriteFile(cachePath, []byte(transcript), 0644); err != nil {
		debugLog("Caching transcript for %s failed: %v", videoID, err)
	}

	return transcript, nil
}

func (t *TranscriptAPI) fetchWithRetries(ctx context.Context, videoID string) (string, error) {
	var lastErr error
	for i := 0; i < t.settings.Retries; i++ {
		transcript, err := t.fetch(ctx, videoID)
		if err == nil {
			return transcript, nil
		}
		lastErr = err

		var httpErr *HTTPError
		if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusTooManyRequests {
			return "", err
		}
		if i < t.settings.Retries-1 {
			backoff := time.Duration(1<<uint(i)) * time.Second
			debugLog("Transcript API rate limited for %s, retrying in %s", videoID, backoff)
			t.sleep(backoff)
		}
	}
	return "", fmt.Errorf("exceeded max retries after %d attempts: %w", t.settings.Retries, lastErr)
}

func (t *TranscriptAPI) fetch(ctx context.Context, videoID string) (string, error) {
	videoURL := fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.settings.APIURL, nil)
	if err != nil {
		return "", err
	}

	q := req.URL.Query()
	q.Add("url", videoURL)
	q.Add("api_key", t.settings.APIKey)
	q.Add("text", "true")
	req.URL.RawQuery = q.Encode()

	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	debugLog("YouTube transcript API response: status=%d", resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		return "", &HTTPError{StatusCode: resp.StatusCode, URL: videoURL}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	return string(body), nil
}
