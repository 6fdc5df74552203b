package tfidf

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var corpus = []string{
	"The quick brown fox jumps over the lazy dog.",
	"The early bird catches the worm.",
	"All that glitters is not gold.",
}

func TestEmbedIsNormalised(t *testing.T) {
	e := NewEmbedder()
	require.NoError(t, e.Prepare(corpus))

	vec, err := e.Embed(context.Background(), "quick fox")
	require.NoError(t, err)
	require.Len(t, vec, e.Dimension())

	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)
}

func TestEmbedUnknownTermsIsZero(t *testing.T) {
	e := NewEmbedder()
	require.NoError(t, e.Prepare(corpus))

	vec, err := e.Embed(context.Background(), "the of and")
	require.NoError(t, err)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestEmbedRequiresPrepare(t *testing.T) {
	_, err := NewEmbedder().Embed(context.Background(), "fox")
	assert.Error(t, err)
	assert.Error(t, NewEmbedder().Prepare(nil))
}

func TestStateRestore(t *testing.T) {
	e := NewEmbedder()
	require.NoError(t, e.Prepare(corpus))

	restored, err := Restore(e.State())
	require.NoError(t, err)

	want, _ := e.Embed(context.Background(), "early worm")
	got, err := restored.Embed(context.Background(), "early worm")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = Restore(State{Vocabulary: []string{"a"}})
	assert.Error(t, err)
}
