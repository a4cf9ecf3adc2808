// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/paper-engine/internal/httputil"
	"github.com/pdiddy/paper-engine/pkg/types"
)

// chatCompletionsPath is appended to BaseURL.
const chatCompletionsPath = "/chat/completions"

// OpenRouterBackend posts OpenAI-compatible chat-completion requests over
// plain HTTP. It works against OpenRouter and any compatible endpoint.
type OpenRouterBackend struct {
	APIKey   string
	BaseURL  string
	Referer  string
	AppTitle string
	Client   *http.Client
}

// chatRequest is the request body for the chat-completions endpoint.
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// chatResponse is the subset of the chat-completions response we read.
// Pointers distinguish an absent field from an empty one.
type chatResponse struct {
	Choices []struct {
		Message *struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends one chat-completion request.
func (b *OpenRouterBackend) Complete(ctx context.Context, req Request) (string, error) {
	bodyBytes, err := json.Marshal(chatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	baseURL := b.BaseURL
	if baseURL == "" {
		baseURL = types.DefaultBaseURL
	}
	endpoint := strings.TrimRight(baseURL, "/") + chatCompletionsPath

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+b.APIKey)
	if b.Referer != "" {
		httpReq.Header.Set("HTTP-Referer", b.Referer)
	}
	if b.AppTitle != "" {
		httpReq.Header.Set("X-Title", b.AppTitle)
	}

	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("calling chat completions: %w", err)
	}
	defer resp.Body.Close()

	if err := httputil.CheckStatus(resp); err != nil {
		return "", err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var cResp chatResponse
	if err := json.Unmarshal(data, &cResp); err != nil {
		return "", &ResponseParseError{Body: string(data), Err: err}
	}

	if len(cResp.Choices) == 0 || cResp.Choices[0].Message == nil || cResp.Choices[0].Message.Content == nil {
		return "", ErrNoCompletion
	}
	return *cResp.Choices[0].Message.Content, nil
}
