// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline sequences the generation stages. The first three stages
// are fatal on failure; the last three are optional enhancements and the
// pipeline returns the best document reached when one of them fails.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-engine/internal/stage"
	"github.com/pdiddy/paper-engine/pkg/types"
)

// Severity decides how the pipeline reacts to a failed step.
type Severity int

const (
	// Fatal aborts the run with a GenerationError.
	Fatal Severity = iota
	// Recoverable ends the run early with the last document produced.
	Recoverable
)

func (s Severity) String() string {
	switch s {
	case Fatal:
		return "fatal"
	case Recoverable:
		return "recoverable"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// GenerationError reports that a fatal stage failed.
type GenerationError struct {
	Stage string
	Err   error
}

func (e *GenerationError) Error() string {
	var se *stage.Error
	if errors.As(e.Err, &se) && se.Stage == e.Stage {
		return fmt.Sprintf("paper generation failed: %v", e.Err)
	}
	return fmt.Sprintf("paper generation failed at %s stage: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// State is threaded through the steps. Outline and Template are set once by
// their stages and only read afterwards.
type State struct {
	Topic    string
	Outline  types.Outline
	Template types.Template
	Document string
}

// Step is one typed stage in the pipeline.
type Step struct {
	Name     string
	Severity Severity
	Run      func(ctx context.Context, s *State) error
}

// Result is the outcome of a run.
type Result struct {
	Document  string
	Outline   types.Outline
	Template  types.Template
	Completed []string

	// Skipped names the recoverable stage that failed, if any. Stages after
	// it are not attempted.
	Skipped string
}

// Degraded reports whether a recoverable stage failed.
func (r Result) Degraded() bool { return r.Skipped != "" }

// Stages is the subset of stage.Generator the default steps need.
type Stages interface {
	Outline(ctx context.Context, topic string) (types.Outline, error)
	Template(ctx context.Context, outline types.Outline) (types.Template, error)
	Content(ctx context.Context, outline types.Outline, tmpl types.Template) (string, error)
	Cite(ctx context.Context, doc string) (string, error)
	Diagram(ctx context.Context, doc string) (string, error)
	Polish(ctx context.Context, doc string) (string, error)
}

// Steps returns the six-stage sequence: outline, template, content,
// citations, diagrams, polish.
func Steps(g Stages) []Step {
	enhance := func(fn func(context.Context, string) (string, error)) func(context.Context, *State) error {
		return func(ctx context.Context, s *State) error {
			doc, err := fn(ctx, s.Document)
			if err != nil {
				return err
			}
			s.Document = doc
			return nil
		}
	}

	return []Step{
		{Name: stage.Outline, Severity: Fatal, Run: func(ctx context.Context, s *State) error {
			o, err := g.Outline(ctx, s.Topic)
			if err != nil {
				return err
			}
			s.Outline = o
			return nil
		}},
		{Name: stage.Template, Severity: Fatal, Run: func(ctx context.Context, s *State) error {
			t, err := g.Template(ctx, s.Outline)
			if err != nil {
				return err
			}
			s.Template = t
			return nil
		}},
		{Name: stage.Content, Severity: Fatal, Run: func(ctx context.Context, s *State) error {
			doc, err := g.Content(ctx, s.Outline, s.Template)
			if err != nil {
				return err
			}
			s.Document = doc
			return nil
		}},
		{Name: stage.Citations, Severity: Recoverable, Run: enhance(g.Cite)},
		{Name: stage.Diagrams, Severity: Recoverable, Run: enhance(g.Diagram)},
		{Name: stage.Polish, Severity: Recoverable, Run: enhance(g.Polish)},
	}
}

// Pipeline runs a fixed list of steps in order.
type Pipeline struct {
	steps []Step
	log   *zap.Logger
}

// New returns a Pipeline over steps.
func New(steps []Step, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{steps: steps, log: log}
}

// Run executes the steps for topic. A fatal failure returns a
// *GenerationError. A recoverable failure stops the run and returns the
// document from the last successful step, unless ctx was cancelled: an
// interrupted run is never reported as a degraded success.
func (p *Pipeline) Run(ctx context.Context, topic string) (Result, error) {
	state := &State{Topic: topic}
	var res Result

	for _, step := range p.steps {
		start := time.Now()
		err := step.Run(ctx, state)
		elapsed := time.Since(start)

		if err != nil {
			if step.Severity == Fatal || ctx.Err() != nil {
				p.log.Error("stage failed; aborting",
					zap.String("stage", step.Name),
					zap.String("topic", topic),
					zap.Duration("elapsed", elapsed),
					zap.Bool("cancelled", ctx.Err() != nil),
					zap.Error(err),
				)
				return Result{}, &GenerationError{Stage: step.Name, Err: err}
			}
			p.log.Warn("optional stage failed; returning best document so far",
				zap.String("stage", step.Name),
				zap.String("topic", topic),
				zap.Duration("elapsed", elapsed),
				zap.Error(err),
			)
			res.Skipped = step.Name
			break
		}

		p.log.Info("stage complete",
			zap.String("stage", step.Name),
			zap.Duration("elapsed", elapsed),
		)
		res.Completed = append(res.Completed, step.Name)
	}

	res.Document = state.Document
	res.Outline = state.Outline
	res.Template = state.Template
	return res, nil
}
