// Package embedding selects the text embedder named by configuration.
package embedding

import (
	"fmt"

	"ragbot/internal/config"
	"ragbot/internal/domain"
	"ragbot/internal/embedding/openai"
	"ragbot/internal/embedding/tfidf"
)

// New builds an unprepared embedder of the configured type.
func New(cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "tfidf", "":
		return tfidf.NewEmbedder(), nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKeyEnv: cfg.OpenAI.APIKeyEnv,
			Model:     cfg.OpenAI.Model,
			Timeout:   config.Duration(cfg.OpenAI.TimeoutSecs),
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}
