// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdiddy/paper-engine/internal/httputil"
	"github.com/pdiddy/paper-engine/pkg/types"
)

// --- fake backends ---

// failNTimesBackend fails the first N calls with err, then returns text.
type failNTimesBackend struct {
	failures int
	err      error
	text     string
	calls    int
	last     Request
}

func (f *failNTimesBackend) Complete(_ context.Context, req Request) (string, error) {
	f.calls++
	f.last = req
	if f.calls <= f.failures {
		if f.err != nil {
			return "", f.err
		}
		return "", fmt.Errorf("transient error (call %d)", f.calls)
	}
	return f.text, nil
}

func testConfig() types.LLMConfig {
	return types.LLMConfig{
		Model:      "test-model",
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	}
}

var testMessages = []Message{
	{Role: RoleSystem, Content: "You are a helpful research assistant."},
	{Role: RoleUser, Content: "Plan a paper."},
}

func TestCall_ImmediateSuccess(t *testing.T) {
	b := &failNTimesBackend{text: "hello"}
	c := NewClient(b, testConfig(), nil)

	got, err := c.Call(context.Background(), testMessages, 0.7, 4000)
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
	assert.Equal(t, 1, b.calls)

	assert.Equal(t, "test-model", b.last.Model)
	assert.Equal(t, testMessages, b.last.Messages)
	assert.InDelta(t, 0.7, b.last.Temperature, 1e-9)
	assert.Equal(t, 4000, b.last.MaxTokens)
}

func TestCall_RetriesThenSucceeds(t *testing.T) {
	b := &failNTimesBackend{failures: 2, text: "recovered"}
	c := NewClient(b, testConfig(), nil)

	got, err := c.Call(context.Background(), testMessages, 0.7, 4000)
	require.NoError(t, err)
	assert.Equal(t, "recovered", got)
	assert.Equal(t, 3, b.calls)
}

func TestCall_ExhaustsRetries(t *testing.T) {
	b := &failNTimesBackend{
		failures: 10,
		err:      &httputil.StatusError{StatusCode: 503, Body: "overloaded"},
	}
	c := NewClient(b, testConfig(), nil)

	_, err := c.Call(context.Background(), testMessages, 0.7, 4000)
	require.Error(t, err)
	assert.Equal(t, 3, b.calls)

	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, 3, ue.Attempts)
	assert.Equal(t, 503, ue.StatusCode)
	assert.Equal(t, "overloaded", ue.Body)
	assert.Contains(t, err.Error(), "HTTP 503")
}

func TestCall_TransportErrorExhaustion(t *testing.T) {
	b := &failNTimesBackend{failures: 10, err: errors.New("connection refused")}
	c := NewClient(b, testConfig(), nil)

	_, err := c.Call(context.Background(), testMessages, 0.7, 4000)

	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Zero(t, ue.StatusCode)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestCall_ParseErrorNotRetried(t *testing.T) {
	b := &failNTimesBackend{
		failures: 10,
		err:      &ResponseParseError{Body: "<html>", Err: errors.New("invalid character '<'")},
	}
	c := NewClient(b, testConfig(), nil)

	_, err := c.Call(context.Background(), testMessages, 0.7, 4000)

	var pe *ResponseParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "<html>", pe.Body)
	assert.Equal(t, 1, b.calls)
}

func TestCall_NoCompletionNotRetried(t *testing.T) {
	b := &failNTimesBackend{failures: 10, err: ErrNoCompletion}
	c := NewClient(b, testConfig(), nil)

	_, err := c.Call(context.Background(), testMessages, 0.7, 4000)

	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.ErrorIs(t, err, ErrNoCompletion)
	assert.Equal(t, 1, b.calls)
}

func TestCall_DefaultMaxRetries(t *testing.T) {
	b := &failNTimesBackend{failures: 10}
	cfg := testConfig()
	cfg.MaxRetries = 0
	c := NewClient(b, cfg, nil)

	_, err := c.Call(context.Background(), testMessages, 0.7, 4000)
	require.Error(t, err)
	assert.Equal(t, types.DefaultMaxRetries, b.calls)
}

func TestCall_ContextCancelledDuringWait(t *testing.T) {
	b := &failNTimesBackend{failures: 10}
	cfg := testConfig()
	cfg.RetryDelay = time.Minute
	c := NewClient(b, cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Call(ctx, testMessages, 0.7, 4000)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, b.calls)
}

func TestCall_LogsEachFailedAttempt(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	b := &failNTimesBackend{
		failures: 2,
		err:      &httputil.StatusError{StatusCode: 500, Body: "boom"},
		text:     "ok",
	}
	c := NewClient(b, testConfig(), zap.New(core))

	_, err := c.Call(context.Background(), testMessages, 0.7, 4000)
	require.NoError(t, err)

	assert.Equal(t, 3, logs.FilterMessage("sending chat request").Len())
	failed := logs.FilterMessage("API call failed").All()
	require.Len(t, failed, 2)
	assert.Equal(t, int64(500), failed[0].ContextMap()["status"])
	assert.Equal(t, "boom", failed[0].ContextMap()["body"])
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     types.LLMConfig
		want    any
		wantErr string
	}{
		{
			name:    "missing key",
			cfg:     types.LLMConfig{Model: "m"},
			wantErr: "api key missing",
		},
		{
			name:    "missing model",
			cfg:     types.LLMConfig{APIKey: "k"},
			wantErr: "model is required",
		},
		{
			name:    "unknown provider",
			cfg:     types.LLMConfig{APIKey: "k", Model: "m", Provider: "carrier-pigeon"},
			wantErr: "unknown llm provider",
		},
		{
			name: "default provider is openrouter",
			cfg:  types.LLMConfig{APIKey: "k", Model: "m"},
			want: &OpenRouterBackend{},
		},
		{
			name: "openai provider",
			cfg:  types.LLMConfig{APIKey: "k", Model: "m", Provider: types.ProviderOpenAI},
			want: &OpenAIBackend{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.cfg, nil)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, c.backend)
		})
	}
}
