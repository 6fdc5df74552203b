package indexer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FormatVersion is the only index file version this build reads and writes.
const FormatVersion = 1

// File is the on-disk index written by ragindex and read by the index retriever.
type File struct {
	Version   int          `json:"version"`
	CreatedAt time.Time    `json:"created_at"`
	Embedder  EmbedderInfo `json:"embedder"`
	Store     StoreInfo    `json:"store"`
	Entries   []Entry      `json:"entries"`
}

// EmbedderInfo records how entry vectors were produced. Vocabulary and IDF
// are only set for the tfidf embedder.
type EmbedderInfo struct {
	Type       string    `json:"type"`
	Model      string    `json:"model,omitempty"`
	Dimension  int       `json:"dimension"`
	Vocabulary []string  `json:"vocabulary,omitempty"`
	IDF        []float64 `json:"idf,omitempty"`
}

// StoreInfo names the vector store the entries were upserted into.
type StoreInfo struct {
	Type       string `json:"type"`
	Collection string `json:"collection,omitempty"`
}

type Entry struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Source     string    `json:"source"`
	Text       string    `json:"text"`
	Vector     []float64 `json:"vector"`
}

// Save writes f as indented JSON, creating parent directories.
func Save(path string, f *File) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads and validates an index file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("index %s: %w", path, err)
	}
	if f.Version != FormatVersion {
		return nil, fmt.Errorf("index %s: unsupported version %d", path, f.Version)
	}
	for i, e := range f.Entries {
		if len(e.Vector) != f.Embedder.Dimension {
			return nil, fmt.Errorf("index %s: entry %d has dimension %d, want %d", path, i, len(e.Vector), f.Embedder.Dimension)
		}
	}
	return &f, nil
}
