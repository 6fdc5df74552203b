// Package app assembles the components named in the configuration.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"ragbot/internal/assembler"
	"ragbot/internal/chunker"
	"ragbot/internal/config"
	"ragbot/internal/domain"
	"ragbot/internal/embedding"
	"ragbot/internal/generation"
	"ragbot/internal/indexer"
	"ragbot/internal/metrics"
	"ragbot/internal/pipeline"
	"ragbot/internal/retriever"
	"ragbot/internal/server"
	"ragbot/internal/summarizer"
	"ragbot/internal/vectorstore"
)

// App holds the long-lived handles built at startup. The generator is shared
// read-only by every request.
type App struct {
	Retriever domain.Retriever
	Generator domain.Generator
	Pipeline  *pipeline.Pipeline
	Metrics   *metrics.Metrics
}

// Build loads the generator and retriever and wires the pipeline. Any error
// here is a startup failure.
func Build(ctx context.Context, cfg *config.AppConfig, reg prometheus.Registerer, logger log.FieldLogger) (*App, error) {
	m := metrics.New(reg)

	gen, err := generation.New(cfg.Generator)
	if err != nil {
		return nil, err
	}
	ret, err := retriever.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	asm := assembler.New(assembler.Config{
		Separator: cfg.Assembler.Separator,
		MaxLength: cfg.Assembler.MaxLength,
		Unit:      cfg.Assembler.Unit,
	})
	p := pipeline.New(ret, asm, gen, pipeline.Options{
		OnRetrievalFailure: cfg.Pipeline.OnRetrievalFailure,
		Logger:             logger,
		Metrics:            m,
	})
	logger.WithFields(log.Fields{
		"retriever":            ret.Name(),
		"generator":            gen.Name(),
		"on_retrieval_failure": cfg.Pipeline.OnRetrievalFailure,
	}).Info("pipeline ready")
	return &App{Retriever: ret, Generator: gen, Pipeline: p, Metrics: m}, nil
}

// ServerOptions maps the server section of cfg onto server.Options.
func ServerOptions(cfg config.ServerConfig, gatherer prometheus.Gatherer, logger log.FieldLogger) server.Options {
	return server.Options{
		Address:         cfg.Address,
		ReadTimeout:     config.Duration(cfg.ReadTimeoutSecs),
		WriteTimeout:    config.Duration(cfg.WriteTimeoutSecs),
		IdleTimeout:     config.Duration(cfg.IdleTimeoutSecs),
		ShutdownTimeout: config.Duration(cfg.ShutdownTimeoutSecs),
		RequestTimeout:  config.Duration(cfg.RequestTimeoutSecs),
		RateLimit:       cfg.RateLimit,
		CORSOrigins:     cfg.CORSOrigins,
		Gatherer:        gatherer,
		Logger:          logger,
	}
}

// BuildIndexer assembles the offline index service.
func BuildIndexer(cfg config.IndexConfig) (*indexer.Service, error) {
	emb, err := embedding.New(cfg.Embedder)
	if err != nil {
		return nil, err
	}

	var ch domain.Chunker
	switch cfg.Chunker.Type {
	case "sentence", "":
		ch = chunker.NewSentenceChunker(cfg.Chunker.SentencesPerChunk, cfg.Chunker.OverlapSentences)
	default:
		return nil, fmt.Errorf("unknown chunker: %s", cfg.Chunker.Type)
	}

	st, err := vectorstore.New(cfg.VectorStore)
	if err != nil {
		return nil, err
	}
	info := indexer.StoreInfo{Type: cfg.VectorStore.Type}
	if cfg.VectorStore.Qdrant != nil {
		info.Collection = cfg.VectorStore.Qdrant.Collection
	}

	var sum domain.Summarizer
	switch cfg.Summarizer.Type {
	case "frequency", "":
		sum = summarizer.NewFrequencySummarizer()
	default:
		return nil, fmt.Errorf("unknown summarizer: %s", cfg.Summarizer.Type)
	}

	return indexer.New(ch, emb, st, info, sum, cfg.Summarizer.MaxSentences), nil
}
