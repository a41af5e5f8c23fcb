package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"
	"text/template"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"
)

// ErrProviderRateLimited aborts a run when the summarization provider
// reports quota or resource exhaustion
var ErrProviderRateLimited = errors.New("summarization provider rate limited")

// SummaryRequest is the input to a summarizer
type SummaryRequest struct {
	Title   string
	Link    string
	Content string
}

// Summarizer turns content into a summary. Failures are *SummaryError.
type Summarizer interface {
	Summarize(ctx context.Context, req SummaryRequest) (string, error)
}

// SummaryError is a classified summarizer failure
type SummaryError struct {
	Kind FailureKind
	Err  error
}

func (e *SummaryError) Error() string {
	return fmt.Sprintf("summarization failed (%s): %v", e.Kind, e.Err)
}

func (e *SummaryError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrProviderRateLimited) match rate-limit failures
func (e *SummaryError) Is(target error) bool {
	return target == ErrProviderRateLimited && e.Kind == FailureRateLimited
}

// FailureKindOf returns the classification carried by err
func FailureKindOf(err error) FailureKind {
	if err == nil {
		return FailureNone
	}
	var summaryErr *SummaryError
	if errors.As(err, &summaryErr) {
		return summaryErr.Kind
	}
	return FailureOther
}

// promptFunc sends one prompt to the provider and returns the response text
type promptFunc func(systemPrompt, userPrompt string, settings types.RequestSettings) (string, error)

// ClaudeSummarizer summarizes content with an Anthropic model
type ClaudeSummarizer struct {
	settings     SummarizerSettings
	systemPrompt string
	userPrompt   *template.Template
	prompt       promptFunc
}

// NewClaudeSummarizer creates a summarizer from settings and prompt templates
func NewClaudeSummarizer(apiKey string, settings SummarizerSettings, systemPrompt, userPromptTemplate string) (*ClaudeSummarizer, error) {
	if apiKey == "" {
		return nil, errors.New("API key is required")
	}
	if !strings.Contains(userPromptTemplate, "{{.Content}}") {
		return nil, fmt.Errorf("summary prompt template must contain {{.Content}} variable")
	}

	tmpl, err := template.New("summary-prompt").Parse(userPromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing summary prompt template: %w", err)
	}

	return &ClaudeSummarizer{
		settings:     settings,
		systemPrompt: strings.TrimSpace(systemPrompt),
		userPrompt:   tmpl,
		prompt:       anthropicPrompt(apiKey),
	}, nil
}

func anthropicPrompt(apiKey string) promptFunc {
	return func(systemPrompt, userPrompt string, settings types.RequestSettings) (string, error) {
		response, err := anthropic.PromptWithSettings(systemPrompt, userPrompt, "", apiKey, settings)
		if err != nil {
			return "", err
		}
		if len(response.Content) == 0 {
			return "", nil
		}
		return response.Content[0].Text, nil
	}
}

// Summarize renders the prompt and calls the model
func (s *ClaudeSummarizer) Summarize(ctx context.Context, req SummaryRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &SummaryError{Kind: FailureOther, Err: err}
	}

	var buf bytes.Buffer
	err := s.userPrompt.Execute(&buf, SummaryRequest{
		Title:   req.Title,
		Link:    req.Link,
		Content: limitContentTokens(req.Content, s.settings.ContentMaxTokens),
	})
	if err != nil {
		return "", &SummaryError{Kind: FailureOther, Err: fmt.Errorf("rendering prompt: %w", err)}
	}

	log.Printf("  → Summarizing with %s...", s.settings.Model)
	text, err := s.prompt(s.systemPrompt, buf.String(), types.RequestSettings{
		Model:       s.settings.Model,
		MaxTokens:   s.settings.MaxTokens,
		Temperature: s.settings.Temperature,
		TopK:        s.settings.TopK,
		TopP:        s.settings.TopP,
	})
	if err != nil {
		return "", &SummaryError{Kind: classifyProviderError(err), Err: err}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", &SummaryError{Kind: FailureOther, Err: errors.New("no content in response")}
	}
	return text, nil
}

// rateLimitMarkers identify quota or resource exhaustion in provider errors.
// llmkit surfaces API failures as plain errors carrying the response body,
// so this is the single place the text is inspected.
var rateLimitMarkers = []string{
	"rate_limit",
	"rate limit",
	"quota",
	"resource_exhausted",
	"resourceexhausted",
}

// rateLimitStatus matches 429 only where it is a status code
var rateLimitStatus = regexp.MustCompile(`(?i)\b(?:api error|status(?: code)?|http|code)[\s:=]*429\b`)

func classifyProviderError(err error) FailureKind {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode == http.StatusTooManyRequests {
			return FailureRateLimited
		}
		return FailureOther
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return FailureOther
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "invalid_request_error") {
		return FailureOther
	}
	if rateLimitStatus.MatchString(msg) {
		return FailureRateLimited
	}
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return FailureRateLimited
		}
	}
	return FailureOther
}

// limitContentTokens limits content to approximately N tokens (using 4 chars ≈ 1 token)
func limitContentTokens(content string, maxTokens int) string {
	if maxTokens <= 0 {
		return content
	}
	maxChars := maxTokens * 4
	runes := []rune(content)
	if len(runes) <= maxChars {
		return content
	}
	return string(runes[:maxChars]) + "..."
}
