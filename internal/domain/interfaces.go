package domain

import "context"

// Document is a text snippet returned by a retriever for one request.
// Documents are never persisted or deduplicated.
type Document struct {
	Text   string
	Source string
	Score  float64
}

// Context is the assembled generator input for a single pipeline invocation.
type Context struct {
	Text      string
	Documents []Document
	Truncated bool
	Length    int
}

// SourceDocument is a corpus file loaded by the offline jobs.
type SourceDocument struct {
	ID      string
	Path    string
	Content string
}

// Chunk is a semantically meaningful part of a document used for indexing.
type Chunk struct {
	DocumentID string
	ChunkID    string
	Source     string
	Text       string
	Index      int
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Retriever fetches documents related to a query, ordered most relevant first.
type Retriever interface {
	Name() string
	Retrieve(ctx context.Context, query string) ([]Document, error)
}

// Generator produces a completion for an assembled context.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document SourceDocument) ([]Chunk, error)
}

// VectorStore persists vectors and supports similarity search.
type VectorStore interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, chunks []Chunk, vectors [][]float64) error
	Search(ctx context.Context, vector []float64, topK int) ([]SearchResult, error)
	Clear(ctx context.Context) error
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
