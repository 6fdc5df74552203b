// Package generation builds the configured generator backend and guards it
// with a concurrency limit and a final length clamp.
package generation

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/semaphore"

	"ragbot/internal/config"
	"ragbot/internal/domain"
	"ragbot/internal/generation/decode"
	"ragbot/internal/generation/huggingface"
	"ragbot/internal/generation/ngram"
	"ragbot/internal/generation/openai"
	"ragbot/internal/tokenizer"
)

var _ domain.Generator = (*Guarded)(nil)

// Guarded serialises access to a backend through a weighted semaphore and
// never returns more than maxLength tokens. Backend failures come back as
// *domain.GenerationError.
type Guarded struct {
	inner     domain.Generator
	sem       *semaphore.Weighted
	maxLength int
}

// NewGuarded allows concurrency simultaneous calls into inner. maxLength <= 0
// disables the clamp.
func NewGuarded(inner domain.Generator, concurrency, maxLength int) *Guarded {
	return &Guarded{
		inner:     inner,
		sem:       semaphore.NewWeighted(int64(max(concurrency, 1))),
		maxLength: maxLength,
	}
}

func (g *Guarded) Name() string { return g.inner.Name() }

func (g *Guarded) Generate(ctx context.Context, prompt string) (string, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return "", &domain.GenerationError{Generator: g.Name(), Err: err}
	}
	defer g.sem.Release(1)

	out, err := g.inner.Generate(ctx, prompt)
	if err != nil {
		var ge *domain.GenerationError
		if errors.As(err, &ge) {
			return "", err
		}
		return "", &domain.GenerationError{Generator: g.Name(), Err: err}
	}
	if g.maxLength > 0 {
		out = tokenizer.Truncate(out, g.maxLength)
	}
	return out, nil
}

// New loads the configured backend. For the ngram backend this reads the
// weights file, so a missing file fails here rather than on the first request.
func New(cfg config.GeneratorConfig) (*Guarded, error) {
	params := decode.Params{
		MaxLength:     cfg.MaxLength,
		NumSequences:  cfg.NumSequences,
		NoRepeatNGram: cfg.NoRepeatNGram,
	}
	var backend domain.Generator
	switch cfg.Type {
	case "ngram":
		if cfg.NGram == nil {
			return nil, fmt.Errorf("ngram generator config missing")
		}
		model, err := ngram.Load(cfg.NGram.ModelPath)
		if err != nil {
			return nil, fmt.Errorf("load ngram weights: %w", err)
		}
		backend = ngram.NewGenerator(model, params, cfg.EchoPrompt)
	case "huggingface":
		if cfg.HuggingFace == nil {
			return nil, fmt.Errorf("huggingface generator config missing")
		}
		hf := cfg.HuggingFace
		backend = huggingface.New(huggingface.Config{
			BaseURL:    hf.BaseURL,
			Model:      hf.Model,
			APIKeyEnv:  hf.APIKeyEnv,
			Timeout:    config.Duration(hf.TimeoutSecs),
			MaxRetries: hf.MaxRetries,
			Params:     params,
			Echo:       cfg.EchoPrompt,
		})
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai generator config missing")
		}
		oc := cfg.OpenAI
		client, err := openai.NewClient(openai.Config{
			BaseURL:   oc.BaseURL,
			APIKeyEnv: oc.APIKeyEnv,
			Model:     oc.Model,
			Timeout:   config.Duration(oc.TimeoutSecs),
			Params:    params,
			Echo:      cfg.EchoPrompt,
		})
		if err != nil {
			return nil, fmt.Errorf("openai generator init failed: %w", err)
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown generator: %s", cfg.Type)
	}
	return NewGuarded(backend, cfg.Concurrency, cfg.MaxLength), nil
}
