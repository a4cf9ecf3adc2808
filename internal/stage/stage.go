// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package stage holds the six generation stages. Each stage renders a prompt
// from earlier output, calls the model, and parses the reply.
package stage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-engine/internal/fence"
	"github.com/pdiddy/paper-engine/internal/llm"
	"github.com/pdiddy/paper-engine/pkg/types"
)

// Stage names, in pipeline order.
const (
	Outline   = "outline"
	Template  = "template"
	Content   = "content"
	Citations = "citations"
	Diagrams  = "diagrams"
	Polish    = "polish"
)

// Token budgets.
const (
	planTokens     = 4000
	documentTokens = 8000
)

// ErrEmptyReply is returned by the document stages when the model produced
// no usable text.
var ErrEmptyReply = errors.New("model returned an empty document")

// Error reports a failed stage. Err is the underlying API or reply error.
type Error struct {
	Stage string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Caller sends one chat request. *llm.Client satisfies it.
type Caller interface {
	Call(ctx context.Context, messages []llm.Message, temperature float64, maxTokens int) (string, error)
}

// Generator runs individual stages against a Caller.
type Generator struct {
	caller      Caller
	temperature float64
	log         *zap.Logger
}

// NewGenerator returns a Generator that sends every request at temperature.
func NewGenerator(caller Caller, temperature float64, log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{caller: caller, temperature: temperature, log: log}
}

// Outline asks for a structured research plan for topic.
func (g *Generator) Outline(ctx context.Context, topic string) (types.Outline, error) {
	raw, err := g.ask(ctx, Outline, promptData{Topic: topic}, planTokens)
	if err != nil {
		return nil, err
	}
	return g.parseRecord(Outline, raw, types.RawOutlineKey), nil
}

// Template asks for LaTeX formatting directives suited to outline.
func (g *Generator) Template(ctx context.Context, outline types.Outline) (types.Template, error) {
	outlineJSON, err := renderRecord(outline)
	if err != nil {
		return nil, &Error{Stage: Template, Err: err}
	}
	raw, err := g.ask(ctx, Template, promptData{Outline: outlineJSON}, planTokens)
	if err != nil {
		return nil, err
	}
	return g.parseRecord(Template, raw, types.RawTemplateKey), nil
}

// Content asks for the complete LaTeX paper from outline and template.
func (g *Generator) Content(ctx context.Context, outline types.Outline, tmpl types.Template) (string, error) {
	outlineJSON, err := renderRecord(outline)
	if err != nil {
		return "", &Error{Stage: Content, Err: err}
	}
	templateJSON, err := renderRecord(tmpl)
	if err != nil {
		return "", &Error{Stage: Content, Err: err}
	}
	return g.document(ctx, Content, promptData{Outline: outlineJSON, Template: templateJSON})
}

// Cite asks for the document back with stronger citations and references.
func (g *Generator) Cite(ctx context.Context, doc string) (string, error) {
	return g.document(ctx, Citations, promptData{Document: doc})
}

// Diagram asks for the document back with improved diagrams and visualizations.
func (g *Generator) Diagram(ctx context.Context, doc string) (string, error) {
	return g.document(ctx, Diagrams, promptData{Document: doc})
}

// Polish asks for a final edited version of the document.
func (g *Generator) Polish(ctx context.Context, doc string) (string, error) {
	return g.document(ctx, Polish, promptData{Document: doc})
}

// ask renders the stage prompt and calls the model.
func (g *Generator) ask(ctx context.Context, name string, data promptData, maxTokens int) (string, error) {
	userPrompt, err := renderPrompt(name, data)
	if err != nil {
		return "", &Error{Stage: name, Err: fmt.Errorf("rendering prompt: %w", err)}
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: prompts[name].persona},
		{Role: llm.RoleUser, Content: userPrompt},
	}

	raw, err := g.caller.Call(ctx, messages, g.temperature, maxTokens)
	if err != nil {
		return "", &Error{Stage: name, Err: err}
	}
	g.log.Debug("stage reply received", zap.String("stage", name), zap.Int("reply_bytes", len(raw)))
	return raw, nil
}

// document runs a LaTeX-producing stage.
func (g *Generator) document(ctx context.Context, name string, data promptData) (string, error) {
	raw, err := g.ask(ctx, name, data, documentTokens)
	if err != nil {
		return "", err
	}
	doc, err := extractDocument(raw)
	if err != nil {
		return "", &Error{Stage: name, Err: err}
	}
	return doc, nil
}

// parseRecord decodes a JSON object from the fenced block or the raw reply,
// falling back to a single-field record holding the raw text.
func (g *Generator) parseRecord(name, raw, fallbackKey string) types.Record {
	if block, ok := fence.Extract(raw, fence.JSON); ok {
		if rec, ok := decodeObject(block); ok {
			return rec
		}
	}
	if rec, ok := decodeObject(strings.TrimSpace(raw)); ok {
		return rec
	}
	g.log.Info("reply is not a JSON object; keeping raw text",
		zap.String("stage", name),
		zap.String("fallback_key", fallbackKey),
	)
	return types.Record{fallbackKey: raw}
}

func decodeObject(s string) (types.Record, bool) {
	var rec types.Record
	if err := json.Unmarshal([]byte(s), &rec); err != nil || rec == nil {
		return nil, false
	}
	return rec, true
}

// extractDocument prefers a fenced LaTeX block and otherwise keeps the raw
// reply unchanged.
func extractDocument(raw string) (string, error) {
	doc := raw
	if block, ok := fence.Extract(raw, fence.LaTeX); ok {
		doc = block
	}
	if strings.TrimSpace(doc) == "" {
		return "", ErrEmptyReply
	}
	return doc, nil
}

// renderRecord serializes a record as indented JSON for embedding in a prompt.
func renderRecord(rec types.Record) (string, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serializing record: %w", err)
	}
	return string(data), nil
}
