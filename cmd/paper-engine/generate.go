package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-engine/internal/paper"
	"github.com/pdiddy/paper-engine/internal/pipeline"
)

// Artifact file names written by --artifacts-dir.
const (
	outlineArtifact  = "outline.yaml"
	templateArtifact = "template.yaml"
	paperArtifact    = "paper.tex"
)

var generateCmd = &cobra.Command{
	Use:   "generate <topic>",
	Short: "Generate a LaTeX paper for a research topic",
	Long: `Generate runs the six-stage pipeline for the topic and prints the LaTeX
document. Outline, template, and content must succeed; citations, diagrams,
and polish are best-effort and the last good document is returned when one of
them fails. Results are cached by topic unless --no-cache is set.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringP("output", "o", "", "write the document to this file instead of stdout")
	generateCmd.Flags().Bool("json", false, `print {"document": ..., "cached": ...} instead of the raw document`)
	generateCmd.Flags().String("artifacts-dir", "", "also write outline.yaml, template.yaml and paper.tex here")
	generateCmd.Flags().Bool("no-cache", false, "bypass the document cache for this run")
	generateCmd.Flags().String("model", "", "model identifier (overrides llm.model)")
	generateCmd.Flags().String("provider", "", "LLM provider: openrouter or openai (overrides llm.provider)")

	_ = viper.BindPFlag("llm.model", generateCmd.Flags().Lookup("model"))
	_ = viper.BindPFlag("llm.provider", generateCmd.Flags().Lookup("provider"))

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	output, _ := cmd.Flags().GetString("output")
	artifactsDir, _ := cmd.Flags().GetString("artifacts-dir")
	noCache, _ := cmd.Flags().GetBool("no-cache")

	cfg := loadConfig()
	if noCache {
		cfg.Cache.Enabled = false
	}

	svc, err := paper.Build(cfg, logger)
	if err != nil {
		return reportError(cmd.OutOrStdout(), asJSON, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resp, err := svc.Generate(ctx, args[0])
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("generation interrupted")
		}
		return reportError(cmd.OutOrStdout(), asJSON, err)
	}

	if artifactsDir != "" && resp.Run != nil {
		if err := writeArtifacts(artifactsDir, resp.Run); err != nil {
			logger.Warn("writing artifacts", zap.String("dir", artifactsDir), zap.Error(err))
		} else {
			logger.Info("artifacts written", zap.String("dir", artifactsDir))
		}
	}

	if output != "" {
		if err := os.WriteFile(output, []byte(resp.Document), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", output, err)
		}
		logger.Info("document written", zap.String("path", output), zap.Bool("cached", resp.Cached))
		if !asJSON {
			return nil
		}
	}

	return writeResponse(cmd.OutOrStdout(), asJSON, resp)
}

func writeResponse(w io.Writer, asJSON bool, resp paper.Response) error {
	if !asJSON {
		_, err := fmt.Fprintln(w, resp.Document)
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// reportError prints err as {"error": ...} in JSON mode and returns it so
// the process exits non-zero.
func reportError(w io.Writer, asJSON bool, err error) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(map[string]string{"error": err.Error()})
	}
	return err
}

// writeArtifacts dumps the intermediate outline and template as YAML next to
// the final document.
func writeArtifacts(dir string, run *pipeline.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating artifacts directory: %w", err)
	}

	records := []struct {
		name string
		v    any
	}{
		{outlineArtifact, run.Outline},
		{templateArtifact, run.Template},
	}
	for _, r := range records {
		data, err := yaml.Marshal(r.v)
		if err != nil {
			return fmt.Errorf("marshaling %s: %w", r.name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, r.name), data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", r.name, err)
		}
	}

	if err := os.WriteFile(filepath.Join(dir, paperArtifact), []byte(run.Document), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", paperArtifact, err)
	}
	return nil
}
