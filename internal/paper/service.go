// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package paper is the entry point for document generation. It checks the
// cache, runs the stage pipeline on a miss, and stores the result.
package paper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/paper-engine/internal/cache"
	"github.com/pdiddy/paper-engine/internal/llm"
	"github.com/pdiddy/paper-engine/internal/pipeline"
	"github.com/pdiddy/paper-engine/internal/stage"
	"github.com/pdiddy/paper-engine/pkg/types"
)

// ValidationError reports a request that was rejected before any work ran.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Response is returned to callers of Generate.
type Response struct {
	Document string `json:"document"`
	Cached   bool   `json:"cached"`

	// Run holds the pipeline result when the document was generated in this
	// call. It is nil on a cache hit.
	Run *pipeline.Result `json:"-"`
}

// Runner runs the stage pipeline for a topic.
type Runner interface {
	Run(ctx context.Context, topic string) (pipeline.Result, error)
}

// Cache is the part of cache.Store the service uses.
type Cache interface {
	Lookup(topic string) cache.Result
	Save(topic, document string) error
}

// Service generates documents. It holds no per-request state.
type Service struct {
	runner Runner
	cache  Cache
	log    *zap.Logger
}

// NewService returns a Service over runner and c.
func NewService(runner Runner, c Cache, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{runner: runner, cache: c, log: log}
}

// Build wires a Service from configuration: an LLM client for the configured
// provider, the six-stage pipeline, and the file cache.
func Build(cfg types.Config, log *zap.Logger) (*Service, error) {
	if log == nil {
		log = zap.NewNop()
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := llm.New(cfg.LLM, log.Named("llm"))
	if err != nil {
		return nil, err
	}
	gen := stage.NewGenerator(client, cfg.LLM.SamplingTemperature(), log.Named("stage"))
	p := pipeline.New(pipeline.Steps(gen), log.Named("pipeline"))
	store := cache.New(cfg.Cache, log.Named("cache"))

	return NewService(p, store, log), nil
}

// Generate returns the document for topic. A blank topic is rejected with a
// *ValidationError before the cache or the pipeline is consulted. A failed
// required stage returns the pipeline's *pipeline.GenerationError and nothing
// is cached.
func (s *Service) Generate(ctx context.Context, topic string) (Response, error) {
	if strings.TrimSpace(topic) == "" {
		return Response{}, &ValidationError{Field: "topic", Reason: "must not be empty"}
	}
	log := s.log.With(zap.String("run_id", uuid.NewString()), zap.String("topic", topic))

	switch res := s.cache.Lookup(topic); res.Status {
	case cache.Hit:
		log.Info("serving cached document", zap.Time("cached_at", res.Entry.Timestamp))
		return Response{Document: res.Entry.Document, Cached: true}, nil
	case cache.Error:
		log.Warn("cache lookup failed; regenerating", zap.Error(res.Err))
	}

	start := time.Now()
	run, err := s.runner.Run(ctx, topic)
	if err != nil {
		var ge *pipeline.GenerationError
		if errors.As(err, &ge) {
			return Response{}, err
		}
		return Response{}, &pipeline.GenerationError{Stage: "pipeline", Err: err}
	}

	fields := []zap.Field{
		zap.String("title", run.Outline.Title()),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("stages_completed", len(run.Completed)),
	}
	if _, ok := run.Outline.Raw(types.RawOutlineKey); ok {
		fields = append(fields, zap.Bool("outline_unstructured", true))
	}
	if run.Degraded() {
		fields = append(fields, zap.String("skipped", run.Skipped))
	}
	log.Info("document generated", fields...)

	if err := s.cache.Save(topic, run.Document); err != nil {
		log.Warn("cache write failed", zap.Error(err))
	}

	return Response{Document: run.Document, Cached: false, Run: &run}, nil
}
