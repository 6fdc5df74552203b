package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragbot/internal/domain"
)

func TestSplitSentences(t *testing.T) {
	assert.Equal(t, []string{"One.", "Two!", "Three?"}, SplitSentences("One. Two!\nThree?"))
	assert.Equal(t, []string{"no terminal punctuation"}, SplitSentences("  no terminal punctuation "))
	assert.Nil(t, SplitSentences("   "))
}

func TestChunkWithOverlap(t *testing.T) {
	doc := domain.SourceDocument{ID: "d", Path: "d.txt", Content: "A. B. C. D. E."}
	chunks, err := NewSentenceChunker(2, 1).Chunk(doc)
	require.NoError(t, err)

	var texts []string
	for _, c := range chunks {
		texts = append(texts, c.Text)
		assert.Equal(t, "d.txt", c.Source)
	}
	assert.Equal(t, []string{"A. B.", "B. C.", "C. D.", "D. E."}, texts)
	assert.Equal(t, "d:3", chunks[3].ChunkID)
}

func TestChunkOneSentencePerChunk(t *testing.T) {
	doc := domain.SourceDocument{ID: "q", Content: "The early bird catches the worm."}
	chunks, err := NewSentenceChunker(1, 0).Chunk(doc)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "The early bird catches the worm.", chunks[0].Text)
}

func TestChunkEmptyDocument(t *testing.T) {
	chunks, err := NewSentenceChunker(3, 5).Chunk(domain.SourceDocument{ID: "e"})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}
