// Package vectorstore selects the vector store named by configuration.
package vectorstore

import (
	"fmt"

	"ragbot/internal/config"
	"ragbot/internal/domain"
	"ragbot/internal/vectorstore/memory"
	"ragbot/internal/vectorstore/qdrant"
)

// New builds the configured vector store.
func New(cfg config.VectorStoreConfig) (domain.VectorStore, error) {
	switch cfg.Type {
	case "memory", "":
		return memory.NewStorage(), nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
			Timeout:    config.Duration(cfg.Qdrant.TimeoutSecs),
		}), nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}
