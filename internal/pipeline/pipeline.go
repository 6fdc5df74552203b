// Package pipeline answers a query by retrieving documents, assembling them
// into a bounded context and generating a response from it.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"ragbot/internal/config"
	"ragbot/internal/domain"
	"ragbot/internal/metrics"
)

// Stages, in the order every invocation passes through them.
const (
	StageReceived  = "received"
	StageRetrieved = "retrieved"
	StageAssembled = "assembled"
	StageGenerated = "generated"
	StageReturned  = "returned"
)

// Request outcomes recorded in metrics.
const (
	OutcomeOK              = "ok"
	OutcomeDegraded        = "degraded"
	OutcomeInvalidInput    = "invalid_input"
	OutcomeRetrievalError  = "retrieval_error"
	OutcomeGenerationError = "generation_error"
)

// Assembler builds the generator input from a query and its documents.
type Assembler interface {
	Assemble(query string, docs []domain.Document) domain.Context
}

// Result is the outcome of one invocation. Degraded is set when retrieval
// failed and the response was generated from the query alone.
type Result struct {
	RequestID string
	Response  string
	Context   domain.Context
	Degraded  bool
}

type Options struct {
	// OnRetrievalFailure is config.OnFailureEmpty (default) or config.OnFailureFail.
	OnRetrievalFailure string
	Logger             log.FieldLogger
	Metrics            *metrics.Metrics
}

type Pipeline struct {
	retriever domain.Retriever
	assembler Assembler
	generator domain.Generator
	failFast  bool
	log       log.FieldLogger
	metrics   *metrics.Metrics
}

func New(r domain.Retriever, a Assembler, g domain.Generator, opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Pipeline{
		retriever: r,
		assembler: a,
		generator: g,
		failFast:  opts.OnRetrievalFailure == config.OnFailureFail,
		log:       logger,
		metrics:   opts.Metrics,
	}
}

// Answer runs the stages strictly in sequence. A blank query fails with
// domain.ErrInvalidInput before anything is retrieved.
func (p *Pipeline) Answer(ctx context.Context, query string) (*Result, error) {
	res := &Result{RequestID: RequestIDFrom(ctx)}
	entry := p.log.WithField("request_id", res.RequestID)
	entry.WithField("stage", StageReceived).Debug("query received")

	if strings.TrimSpace(query) == "" {
		p.metrics.ObserveRequest(OutcomeInvalidInput)
		return nil, domain.ErrInvalidInput
	}

	start := time.Now()
	docs, err := p.retriever.Retrieve(ctx, query)
	p.metrics.ObserveStage(StageRetrieved, time.Since(start))
	if err != nil {
		if p.failFast {
			entry.WithError(err).WithField("stage", StageRetrieved).Error("retrieval failed")
			p.metrics.ObserveRequest(OutcomeRetrievalError)
			return nil, asRetrievalError(p.retriever.Name(), err)
		}
		entry.WithError(err).WithField("stage", StageRetrieved).Warn("retrieval failed, continuing without documents")
		p.metrics.ObserveFallback()
		docs = nil
		res.Degraded = true
	}
	p.metrics.ObserveDocuments(len(docs))
	entry.WithFields(log.Fields{
		"stage":     StageRetrieved,
		"documents": len(docs),
		"duration":  time.Since(start),
	}).Debug("documents retrieved")

	start = time.Now()
	res.Context = p.assembler.Assemble(query, docs)
	p.metrics.ObserveStage(StageAssembled, time.Since(start))
	if res.Context.Truncated {
		p.metrics.ObserveTruncation()
	}
	entry.WithFields(log.Fields{
		"stage":     StageAssembled,
		"documents": len(res.Context.Documents),
		"truncated": res.Context.Truncated,
		"length":    res.Context.Length,
	}).Debug("context assembled")

	start = time.Now()
	res.Response, err = p.generator.Generate(ctx, res.Context.Text)
	p.metrics.ObserveStage(StageGenerated, time.Since(start))
	if err != nil {
		entry.WithError(err).WithField("stage", StageGenerated).Error("generation failed")
		p.metrics.ObserveRequest(OutcomeGenerationError)
		return nil, asGenerationError(p.generator.Name(), err)
	}
	entry.WithFields(log.Fields{
		"stage":    StageGenerated,
		"duration": time.Since(start),
	}).Debug("response generated")

	outcome := OutcomeOK
	if res.Degraded {
		outcome = OutcomeDegraded
	}
	p.metrics.ObserveRequest(outcome)
	entry.WithFields(log.Fields{
		"stage":     StageReturned,
		"documents": len(res.Context.Documents),
		"truncated": res.Context.Truncated,
		"degraded":  res.Degraded,
	}).Info("query answered")
	return res, nil
}

func asRetrievalError(name string, err error) error {
	var re *domain.RetrievalError
	if errors.As(err, &re) {
		return err
	}
	return &domain.RetrievalError{Retriever: name, Err: err}
}

func asGenerationError(name string, err error) error {
	var ge *domain.GenerationError
	if errors.As(err, &ge) {
		return err
	}
	return &domain.GenerationError{Generator: name, Err: err}
}
