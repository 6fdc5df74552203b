// Package index retrieves documents from an index file built by ragindex.
package index

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"

	"ragbot/internal/config"
	"ragbot/internal/domain"
	"ragbot/internal/embedding/openai"
	"ragbot/internal/embedding/tfidf"
	"ragbot/internal/indexer"
	"ragbot/internal/vectorstore"
	"ragbot/internal/vectorstore/memory"
)

var _ domain.Retriever = (*Retriever)(nil)

var unicodeWordRe = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)

// Retriever embeds the query with the index's embedder and searches the
// vector store the index was written to. Queries the embedder cannot place
// fall back to lexical overlap ranking over the indexed texts.
type Retriever struct {
	embedder domain.Embedder
	store    domain.VectorStore
	chunks   []domain.Chunk
	topK     int
}

func New(embedder domain.Embedder, store domain.VectorStore, chunks []domain.Chunk, topK int) *Retriever {
	if topK <= 0 {
		topK = 5
	}
	return &Retriever{embedder: embedder, store: store, chunks: chunks, topK: topK}
}

// Open loads the index file at path and rebuilds the embedder and store it
// describes. In-memory stores are repopulated from the file; remote stores are
// expected to still hold the upserted entries.
func Open(ctx context.Context, path string, cfg config.IndexConfig, topK int) (*Retriever, error) {
	f, err := indexer.Load(path)
	if err != nil {
		return nil, err
	}
	if len(f.Entries) == 0 {
		return nil, fmt.Errorf("index %s has no entries", path)
	}
	chunks := make([]domain.Chunk, len(f.Entries))
	vectors := make([][]float64, len(f.Entries))
	for i, e := range f.Entries {
		chunks[i] = domain.Chunk{DocumentID: e.DocumentID, ChunkID: e.ID, Source: e.Source, Text: e.Text, Index: i}
		vectors[i] = e.Vector
	}

	embedder, err := restoreEmbedder(f.Embedder, cfg.Embedder)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", path, err)
	}

	var store domain.VectorStore
	switch f.Store.Type {
	case "memory", "":
		mem := memory.NewStorage()
		if err := mem.Init(ctx, f.Embedder.Dimension); err != nil {
			return nil, err
		}
		if err := mem.Upsert(ctx, chunks, vectors); err != nil {
			return nil, err
		}
		store = mem
	default:
		storeCfg := cfg.VectorStore
		storeCfg.Type = f.Store.Type
		if storeCfg.Qdrant != nil && f.Store.Collection != "" {
			q := *storeCfg.Qdrant
			q.Collection = f.Store.Collection
			storeCfg.Qdrant = &q
		}
		store, err = vectorstore.New(storeCfg)
		if err != nil {
			return nil, fmt.Errorf("index %s: %w", path, err)
		}
	}
	log.WithFields(log.Fields{
		"path":     path,
		"entries":  len(chunks),
		"embedder": f.Embedder.Type,
		"store":    f.Store.Type,
	}).Info("loaded index")
	return New(embedder, store, chunks, topK), nil
}

func restoreEmbedder(info indexer.EmbedderInfo, cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch info.Type {
	case "tfidf":
		return tfidf.Restore(tfidf.State{Vocabulary: info.Vocabulary, IDF: info.IDF})
	case "openai":
		oc := openai.Config{Model: info.Model}
		if cfg.OpenAI != nil {
			oc.BaseURL = cfg.OpenAI.BaseURL
			oc.APIKeyEnv = cfg.OpenAI.APIKeyEnv
			oc.Timeout = config.Duration(cfg.OpenAI.TimeoutSecs)
		}
		if oc.APIKeyEnv == "" {
			oc.APIKeyEnv = "OPENAI_API_KEY"
		}
		return openai.NewClient(oc)
	default:
		return nil, fmt.Errorf("unknown embedder %q", info.Type)
	}
}

func (r *Retriever) Name() string { return "index" }

// Retrieve returns up to topK documents ordered by descending score.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]domain.Document, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &domain.RetrievalError{Retriever: r.Name(), Err: err}
	}
	if isZero(vec) {
		return r.lexical(query), nil
	}
	results, err := r.store.Search(ctx, vec, r.topK)
	if err != nil {
		return nil, &domain.RetrievalError{Retriever: r.Name(), Err: err}
	}
	// hits sharing no term with the query carry no context
	matched := results[:0]
	for _, res := range results {
		if res.Score > 1e-9 {
			matched = append(matched, res)
		}
	}
	if len(matched) == 0 {
		return r.lexical(query), nil
	}
	return toDocuments(matched), nil
}

func (r *Retriever) lexical(query string) []domain.Document {
	log.WithField("query", query).Debug("index: no vector match, ranking by word overlap")
	qset := toTokenSet(query)
	scores := make([]domain.SearchResult, 0, len(r.chunks))
	for _, ch := range r.chunks {
		if s := overlapOchiai(qset, ch.Text); s > 0 {
			scores = append(scores, domain.SearchResult{Chunk: ch, Score: s})
		}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	if len(scores) > r.topK {
		scores = scores[:r.topK]
	}
	return toDocuments(scores)
}

func toDocuments(results []domain.SearchResult) []domain.Document {
	docs := make([]domain.Document, len(results))
	for i, res := range results {
		docs[i] = domain.Document{Text: res.Chunk.Text, Source: res.Chunk.Source, Score: res.Score}
	}
	return docs
}

func isZero(vec []float64) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

// overlapOchiai returns |A∩B| / sqrt(|A||B|) over the distinct words of both texts.
func overlapOchiai(qset map[string]struct{}, text string) float64 {
	stoks := unicodeWordRe.FindAllString(strings.ToLower(text), -1)
	seen := make(map[string]struct{}, len(stoks))
	inter := 0
	for _, t := range stoks {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := qset[t]; ok {
			inter++
		}
	}
	if len(qset) == 0 || len(seen) == 0 {
		return 0
	}
	return float64(inter) / math.Sqrt(float64(len(qset))*float64(len(seen)))
}
