// Package retriever selects the retriever named by configuration.
package retriever

import (
	"context"
	"fmt"

	"ragbot/internal/config"
	"ragbot/internal/domain"
	"ragbot/internal/retriever/duckduckgo"
	"ragbot/internal/retriever/index"
)

// None retrieves nothing; every answer is generated from the query alone.
type None struct{}

func (None) Name() string { return "none" }

func (None) Retrieve(context.Context, string) ([]domain.Document, error) { return nil, nil }

// New builds the configured retriever. The index retriever loads its file here.
func New(ctx context.Context, cfg *config.AppConfig) (domain.Retriever, error) {
	rc := cfg.Retriever
	switch rc.Type {
	case "duckduckgo":
		if rc.DuckDuckGo == nil {
			return nil, fmt.Errorf("duckduckgo retriever config missing")
		}
		return duckduckgo.New(duckduckgo.Config{
			Endpoint:   rc.DuckDuckGo.Endpoint,
			Timeout:    config.Duration(rc.DuckDuckGo.TimeoutSecs),
			MaxRetries: rc.DuckDuckGo.MaxRetries,
			MaxResults: rc.DuckDuckGo.MaxResults,
			UserAgent:  rc.DuckDuckGo.UserAgent,
		}), nil
	case "index":
		if rc.Index == nil {
			return nil, fmt.Errorf("index retriever config missing")
		}
		r, err := index.Open(ctx, rc.Index.Path, cfg.Index, rc.Index.TopK)
		if err != nil {
			return nil, fmt.Errorf("index retriever init failed: %w", err)
		}
		return r, nil
	case "none":
		return None{}, nil
	default:
		return nil, fmt.Errorf("unknown retriever: %s", rc.Type)
	}
}
