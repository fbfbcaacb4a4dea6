// Package search wraps the Perplexity event search provider with retry,
// prompt construction, and structured parsing of the response.
package search

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"

	"github.com/cityscout-ai/event-discovery-platform/internal/model"
	"github.com/cityscout-ai/event-discovery-platform/pkg/metrics"
)

// ErrUnavailable means the search provider could not produce a result:
// transient failures exhausted the retry budget, or a permanent error
// occurred. The orchestrator translates this into a user-visible apology.
var ErrUnavailable = errors.New("search: event search unavailable")

const (
	defaultBaseURL = "https://api.perplexity.ai"
	defaultModel   = "sonar"

	// Retry budget for transient failures: 1s, 2s, 4s delays, three
	// attempts total, 90s cumulative ceiling.
	retryInitialInterval = time.Second
	retryMaxElapsed      = 90 * time.Second
	retryMaxAttempts     = 3
)

const systemPrompt = `You are an expert event curator and local culture specialist.
You have access to real-time information about events, festivals, and cultural activities.
Provide accurate, up-to-date, and well-sourced information.
Be concise but informative.`

// Client searches for events via the Perplexity chat-completions API.
type Client struct {
	api           *openai.Client
	model         string
	retryInterval time.Duration
}

// Option configures the client.
type Option func(*Client, *openai.ClientConfig)

// WithBaseURL overrides the provider base URL.
func WithBaseURL(u string) Option {
	return func(_ *Client, cfg *openai.ClientConfig) { cfg.BaseURL = u }
}

// WithHTTPClient overrides the HTTP client. Used in tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(_ *Client, cfg *openai.ClientConfig) { cfg.HTTPClient = hc }
}

// WithRetryInterval overrides the initial backoff delay. Used in tests.
func WithRetryInterval(d time.Duration) Option {
	return func(c *Client, _ *openai.ClientConfig) { c.retryInterval = d }
}

// New creates an event search client.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("search: API key is required")
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = defaultBaseURL

	c := &Client{
		model:         defaultModel,
		retryInterval: retryInitialInterval,
	}
	for _, opt := range opts {
		opt(c, &cfg)
	}
	c.api = openai.NewClientWithConfig(cfg)
	return c, nil
}

// SearchEvents queries popular events in city, country for the given month
// and returns them in the provider's relevance order. An empty list is not
// an error. Transient failures (timeouts, connection failures) are retried
// with exponential backoff; everything else fails immediately. Either way
// the final error is ErrUnavailable.
func (c *Client) SearchEvents(ctx context.Context, city, country, month string, year int) ([]model.Event, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(city, country, month, year)},
		},
		MaxTokens:   2000,
		Temperature: 0.3,
	}

	attempts := 0
	op := func() (string, error) {
		attempts++
		if attempts > 1 {
			metrics.SearchRetriesTotal.Inc()
		}

		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err != nil {
			if isTransient(err) {
				return "", err
			}
			return "", backoff.Permanent(err)
		}
		if len(resp.Choices) == 0 {
			return "", backoff.Permanent(errors.New("empty completion"))
		}
		return resp.Choices[0].Message.Content, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = retryMaxElapsed

	content, err := backoff.RetryWithData(op,
		backoff.WithContext(backoff.WithMaxRetries(b, retryMaxAttempts-1), ctx))
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	metrics.SearchRequestsTotal.WithLabelValues("ok").Inc()
	return ParseEvents(content), nil
}

// isTransient reports whether an error is worth retrying: timeouts and
// connection failures only. HTTP-level errors (auth, rate limit, malformed
// request) are permanent.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Timeout() || ue.Temporary()
	}
	return false
}

func buildPrompt(city, country, month string, year int) string {
	return fmt.Sprintf(`Search for the most attractive and popular events happening in %s, %s during %s %d.

For each event, provide:
1. Event Name
2. Date(s) - specific dates in %s %d
3. Venue/Location
4. Brief Description (1-2 sentences)

Requirements:
- Only include CONFIRMED events with reliable sources
- Prioritize events with high cultural/entertainment value
- List 8-12 top events
- Sort by attractiveness/popularity
- Verify dates are specifically in %s %d

Format as a numbered list with Name, Date, Venue and Description lines for each event.`,
		city, country, month, year, month, year, month, year)
}
