// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm sends chat-completion requests to an LLM provider with a
// bounded, fixed-delay retry policy.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-engine/internal/httputil"
	"github.com/pdiddy/paper-engine/pkg/types"
)

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single chat-completion request as handed to a Backend.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Backend performs one chat-completion attempt. Implementations return a
// *httputil.StatusError for non-2xx responses, a *ResponseParseError for
// malformed bodies and ErrNoCompletion when the completion text is absent.
type Backend interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Client wraps a Backend with the retry policy.
type Client struct {
	backend    Backend
	model      string
	maxRetries int
	retryDelay time.Duration
	log        *zap.Logger
}

// NewClient returns a Client over backend using the model and retry settings
// from cfg. Unset retry settings fall back to the package defaults.
func NewClient(backend Backend, cfg types.LLMConfig, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = types.DefaultMaxRetries
	}
	return &Client{
		backend:    backend,
		model:      cfg.Model,
		maxRetries: maxRetries,
		retryDelay: cfg.RetryDelay,
		log:        log,
	}
}

// New builds a Client for the provider named in cfg.
func New(cfg types.LLMConfig, log *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm api key missing; set llm.api_key or provide .secrets/%s-api-key", providerOrDefault(cfg.Provider))
	}
	if cfg.Model == "" {
		return nil, errors.New("llm model is required")
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}

	var backend Backend
	switch providerOrDefault(cfg.Provider) {
	case types.ProviderOpenRouter:
		backend = &OpenRouterBackend{
			APIKey:   cfg.APIKey,
			BaseURL:  cfg.BaseURL,
			Referer:  cfg.Referer,
			AppTitle: cfg.AppTitle,
			Client:   httpClient,
		}
	case types.ProviderOpenAI:
		backend = NewOpenAIBackend(cfg, httpClient)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}

	return NewClient(backend, cfg, log), nil
}

func providerOrDefault(p types.Provider) types.Provider {
	if p == "" {
		return types.DefaultProvider
	}
	return p
}

// Call sends messages to the model and returns the first completion's text.
// Transport and HTTP-status failures are retried up to the configured number
// of attempts with a fixed delay between them. A malformed response body or a
// missing completion fails at once.
func (c *Client) Call(ctx context.Context, messages []Message, temperature float64, maxTokens int) (string, error) {
	req := Request{
		Model:       c.model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if attempt > 1 {
			if err := httputil.Wait(ctx, c.retryDelay); err != nil {
				return "", &UpstreamError{Attempts: attempt - 1, Err: err}
			}
		}

		c.log.Debug("sending chat request",
			zap.String("model", req.Model),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.maxRetries),
			zap.Float64("temperature", req.Temperature),
			zap.Int("max_tokens", req.MaxTokens),
			zap.Any("messages", req.Messages),
		)

		text, err := c.backend.Complete(ctx, req)
		if err == nil {
			return text, nil
		}

		var parseErr *ResponseParseError
		if errors.As(err, &parseErr) {
			c.log.Warn("malformed API response",
				zap.Int("attempt", attempt),
				zap.Error(err),
				zap.String("body", parseErr.Body),
			)
			return "", err
		}
		if errors.Is(err, ErrNoCompletion) {
			c.log.Warn("API response missing completion", zap.Int("attempt", attempt))
			return "", &UpstreamError{Attempts: attempt, Err: err}
		}

		lastErr = err
		fields := []zap.Field{
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.maxRetries),
			zap.Error(err),
		}
		var statusErr *httputil.StatusError
		if errors.As(err, &statusErr) {
			fields = append(fields, zap.Int("status", statusErr.StatusCode), zap.String("body", statusErr.Body))
		}
		c.log.Warn("API call failed", fields...)

		if ctx.Err() != nil {
			return "", &UpstreamError{Attempts: attempt, Err: err}
		}
	}

	ue := &UpstreamError{Attempts: c.maxRetries, Err: lastErr}
	var statusErr *httputil.StatusError
	if errors.As(lastErr, &statusErr) {
		ue.StatusCode = statusErr.StatusCode
		ue.Body = statusErr.Body
	}
	return "", ue
}
