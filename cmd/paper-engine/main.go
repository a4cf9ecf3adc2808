// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-engine CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pdiddy/paper-engine/internal/secrets"
	"github.com/pdiddy/paper-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets secrets.Secrets

// logger is built in PersistentPreRunE from --log-level / --verbose.
var logger = zap.NewNop()

// secretsDir is a variable so tests can point it at a temp directory.
var secretsDir = secrets.DefaultDir

var rootCmd = &cobra.Command{
	Use:   "paper-engine",
	Short: "Generate LaTeX research papers with a multi-stage LLM pipeline",
	Long: `paper-engine turns a research topic into a LaTeX paper. Each topic runs
through six stages: outline, template, content, citations, diagrams, and
polish. Finished documents are cached on disk by topic so repeated requests
return without calling the model.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(viper.GetString("log_level"))
		if err != nil {
			return err
		}
		logger = l

		s, err := secrets.Load(secretsDir, logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			logger.Debug("loaded secrets", zap.Strings("names", s.Names()))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./paper-engine.yaml or ~/.config/paper-engine/paper-engine.yaml)")
	rootCmd.PersistentFlags().String("log-level", types.DefaultLogLevel, "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "shorthand for --log-level=debug")

	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paper-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paper-engine"))
		}
	}

	viper.SetEnvPrefix("PAPER_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults()

	if verbose, _ := rootCmd.PersistentFlags().GetBool("verbose"); verbose {
		viper.Set("log_level", "debug")
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func setDefaults() {
	viper.SetDefault("llm.provider", string(types.DefaultProvider))
	viper.SetDefault("llm.model", types.DefaultModel)
	viper.SetDefault("llm.api_key", "")
	viper.SetDefault("llm.base_url", "")
	viper.SetDefault("llm.referer", types.DefaultReferer)
	viper.SetDefault("llm.app_title", types.DefaultAppTitle)
	viper.SetDefault("llm.temperature", types.DefaultTemperature)
	viper.SetDefault("llm.max_retries", types.DefaultMaxRetries)
	viper.SetDefault("llm.retry_delay", types.DefaultRetryDelay)
	viper.SetDefault("llm.timeout", types.DefaultTimeout)
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.dir", types.DefaultCacheDir)
	viper.SetDefault("log_level", types.DefaultLogLevel)
}

// loadConfig assembles the effective configuration from viper. When no API
// key is configured the provider's key from .secrets/ is used.
func loadConfig() types.Config {
	temperature := viper.GetFloat64("llm.temperature")
	cfg := types.Config{
		LLM: types.LLMConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:  viper.GetDuration("llm.timeout"),
				Referer:  viper.GetString("llm.referer"),
				AppTitle: viper.GetString("llm.app_title"),
			},
			Provider:    types.Provider(viper.GetString("llm.provider")),
			Model:       viper.GetString("llm.model"),
			APIKey:      viper.GetString("llm.api_key"),
			BaseURL:     viper.GetString("llm.base_url"),
			Temperature: &temperature,
			MaxRetries:  viper.GetInt("llm.max_retries"),
			RetryDelay:  viper.GetDuration("llm.retry_delay"),
		},
		Cache: types.CacheConfig{
			Enabled: viper.GetBool("cache.enabled"),
			Dir:     viper.GetString("cache.dir"),
		},
		LogLevel: viper.GetString("log_level"),
	}
	cfg = cfg.WithDefaults()

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = loadedSecrets.APIKey(string(cfg.LLM.Provider))
	}
	return cfg
}

// newLogger returns a console logger on stderr at the named level. Stdout is
// reserved for command output.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.Lock(os.Stderr),
		zap.NewAtomicLevelAt(lvl),
	)
	return zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
