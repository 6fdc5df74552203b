// Package indexer builds the offline retrieval index consumed by the index retriever.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"ragbot/internal/domain"
	"ragbot/internal/embedding/openai"
	"ragbot/internal/embedding/tfidf"
)

// Service chunks, embeds and stores a corpus, then summarises it.
type Service struct {
	chunker             domain.Chunker
	embedder            domain.Embedder
	store               domain.VectorStore
	storeInfo           StoreInfo
	summarizer          domain.Summarizer
	summaryMaxSentences int
}

func New(chunker domain.Chunker, embedder domain.Embedder, store domain.VectorStore, storeInfo StoreInfo, summarizer domain.Summarizer, summaryMaxSentences int) *Service {
	return &Service{
		chunker:             chunker,
		embedder:            embedder,
		store:               store,
		storeInfo:           storeInfo,
		summarizer:          summarizer,
		summaryMaxSentences: summaryMaxSentences,
	}
}

// Build indexes documents and returns the index file contents with a short
// summary of the corpus.
func (s *Service) Build(ctx context.Context, documents []domain.SourceDocument) (*File, string, error) {
	if len(documents) == 0 {
		return nil, "", errors.New("no documents to index")
	}
	var allChunks []domain.Chunk
	var allTexts []string
	var allTextConcat strings.Builder
	for _, d := range documents {
		chunks, err := s.chunker.Chunk(d)
		if err != nil {
			return nil, "", fmt.Errorf("chunk %s: %w", d.Path, err)
		}
		for _, ch := range chunks {
			allChunks = append(allChunks, ch)
			allTexts = append(allTexts, ch.Text)
		}
		allTextConcat.WriteString("\n")
		allTextConcat.WriteString(d.Content)
	}
	if len(allChunks) == 0 {
		return nil, "", errors.New("documents produced no chunks")
	}
	log.WithFields(log.Fields{"documents": len(documents), "chunks": len(allChunks)}).Info("chunked corpus")

	if err := s.embedder.Prepare(allTexts); err != nil {
		return nil, "", fmt.Errorf("prepare %s embedder: %w", s.embedder.Name(), err)
	}
	vectors := make([][]float64, len(allChunks))
	for i := range allChunks {
		vec, err := s.embedder.Embed(ctx, allChunks[i].Text)
		if err != nil {
			return nil, "", fmt.Errorf("embed %s: %w", allChunks[i].ChunkID, err)
		}
		vectors[i] = vec
	}
	// remote embedders only learn their dimension from the first response
	dimension := len(vectors[0])

	// Qdrant drops the whole collection on Clear, so Init must follow it
	if err := s.store.Clear(ctx); err != nil {
		return nil, "", fmt.Errorf("clear %s store: %w", s.storeInfo.Type, err)
	}
	if err := s.store.Init(ctx, dimension); err != nil {
		return nil, "", fmt.Errorf("init %s store: %w", s.storeInfo.Type, err)
	}
	if err := s.store.Upsert(ctx, allChunks, vectors); err != nil {
		return nil, "", fmt.Errorf("upsert %s store: %w", s.storeInfo.Type, err)
	}

	summary, err := s.summarizer.Summarize(allTextConcat.String(), s.summaryMaxSentences)
	if err != nil {
		return nil, "", err
	}

	f := &File{
		Version:   FormatVersion,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Embedder:  describe(s.embedder, dimension),
		Store:     s.storeInfo,
		Entries:   make([]Entry, len(allChunks)),
	}
	for i, ch := range allChunks {
		f.Entries[i] = Entry{
			ID:         ch.ChunkID,
			DocumentID: ch.DocumentID,
			Source:     ch.Source,
			Text:       ch.Text,
			Vector:     vectors[i],
		}
	}
	return f, summary, nil
}

func describe(e domain.Embedder, dimension int) EmbedderInfo {
	info := EmbedderInfo{Type: e.Name(), Dimension: dimension}
	switch emb := e.(type) {
	case *tfidf.Embedder:
		st := emb.State()
		info.Vocabulary = st.Vocabulary
		info.IDF = st.IDF
	case *openai.Client:
		info.Model = emb.Model()
	}
	return info
}
