package types

import (
	"fmt"
	"time"
)

// Provider identifies the chat-completion backend.
type Provider string

const (
	ProviderOpenRouter Provider = "openrouter"
	ProviderOpenAI     Provider = "openai"
)

// Defaults applied when a config value is left unset.
const (
	DefaultProvider    = ProviderOpenRouter
	DefaultModel       = "google/gemini-2.0-pro-exp-02-05:free"
	DefaultBaseURL     = "https://openrouter.ai/api/v1"
	DefaultReferer     = "http://localhost:5000"
	DefaultAppTitle    = "Research Paper Generator"
	DefaultTemperature = 0.7
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 2 * time.Second
	DefaultTimeout     = 5 * time.Minute
	DefaultCacheDir    = "paper_cache"
	DefaultLogLevel    = "info"
)

// HTTPConfig holds shared HTTP settings for outbound API calls.
type HTTPConfig struct {
	// Timeout bounds a single HTTP round trip. Zero means no client timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// Referer is sent as HTTP-Referer to identify the caller to the provider.
	Referer string `json:"referer" yaml:"referer"`

	// AppTitle is sent as X-Title to identify the caller to the provider.
	AppTitle string `json:"app_title" yaml:"app_title"`
}

// LLMConfig holds settings for the chat-completion client.
type LLMConfig struct {
	HTTPConfig `yaml:",inline"`

	// Provider selects the backend: openrouter or openai.
	Provider Provider `json:"provider" yaml:"provider"`

	// Model is the model identifier sent with every request.
	Model string `json:"model" yaml:"model"`

	// APIKey is the credential for the provider.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL is the API root; the chat-completions path is appended to it.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Temperature is the sampling temperature used by every stage. Nil means
	// unset; an explicit 0 is kept.
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`

	// MaxRetries is the total number of attempts per call (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// RetryDelay is the fixed wait between attempts (default 2s).
	RetryDelay time.Duration `json:"retry_delay" yaml:"retry_delay"`
}

// CacheConfig holds settings for the topic cache.
type CacheConfig struct {
	// Enabled turns caching on. When false lookups always miss and saves are no-ops.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Dir is the directory holding one JSON record per cached topic.
	Dir string `json:"dir" yaml:"dir"`
}

// Config is the full runtime configuration, built once at startup.
type Config struct {
	LLM   LLMConfig   `json:"llm" yaml:"llm"`
	Cache CacheConfig `json:"cache" yaml:"cache"`

	// LogLevel is a zap level name: debug, info, warn, error.
	LogLevel string `json:"log_level" yaml:"log_level"`
}

// WithDefaults returns a copy of c with unset fields filled in.
func (c Config) WithDefaults() Config {
	if c.LLM.Provider == "" {
		c.LLM.Provider = DefaultProvider
	}
	if c.LLM.Model == "" {
		c.LLM.Model = DefaultModel
	}
	if c.LLM.BaseURL == "" && c.LLM.Provider == ProviderOpenRouter {
		c.LLM.BaseURL = DefaultBaseURL
	}
	if c.LLM.Referer == "" {
		c.LLM.Referer = DefaultReferer
	}
	if c.LLM.AppTitle == "" {
		c.LLM.AppTitle = DefaultAppTitle
	}
	if c.LLM.Temperature == nil {
		t := DefaultTemperature
		c.LLM.Temperature = &t
	}
	if c.LLM.MaxRetries <= 0 {
		c.LLM.MaxRetries = DefaultMaxRetries
	}
	if c.LLM.RetryDelay <= 0 {
		c.LLM.RetryDelay = DefaultRetryDelay
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = DefaultCacheDir
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	return c
}

// Temperature bounds accepted by the providers.
const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
)

// SamplingTemperature returns the configured temperature, or the default
// when it is unset.
func (c LLMConfig) SamplingTemperature() float64 {
	if c.Temperature == nil {
		return DefaultTemperature
	}
	return *c.Temperature
}

// Validate reports settings that would be rejected by the provider.
func (c Config) Validate() error {
	if t := c.LLM.SamplingTemperature(); t < MinTemperature || t > MaxTemperature {
		return fmt.Errorf("llm.temperature %g out of range [%g, %g]", t, MinTemperature, MaxTemperature)
	}
	return nil
}

// Redacted returns a copy of c safe to print.
func (c Config) Redacted() Config {
	if c.LLM.APIKey != "" {
		c.LLM.APIKey = "********"
	}
	return c
}
