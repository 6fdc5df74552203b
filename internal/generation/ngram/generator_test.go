package ngram

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragbot/internal/corpus"
	"ragbot/internal/generation/decode"
	"ragbot/internal/tokenizer"
)

func builtinModel(t *testing.T) *Model {
	t.Helper()
	m, err := Train(corpus.Sentences, 3)
	require.NoError(t, err)
	return m
}

func TestGenerateHello(t *testing.T) {
	g := NewGenerator(builtinModel(t), decode.Params{MaxLength: 150, NumSequences: 1, NoRepeatNGram: 2}, false)

	out, err := g.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
	assert.False(t, strings.HasPrefix(out, "hello"))
	assert.LessOrEqual(t, tokenizer.Count(out)+1, 150)
}

func TestGenerateRespectsMaxLength(t *testing.T) {
	g := NewGenerator(builtinModel(t), decode.Params{MaxLength: 4, NoRepeatNGram: -1}, true)

	out, err := g.Generate(context.Background(), "the early")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "the early"))
	assert.LessOrEqual(t, tokenizer.Count(out), 4)
}

func TestGenerateContinuesKnownContext(t *testing.T) {
	g := NewGenerator(builtinModel(t), decode.Params{MaxLength: 150, NoRepeatNGram: 2}, false)

	out, err := g.Generate(context.Background(), "The early bird")
	require.NoError(t, err)
	assert.Equal(t, "catches the worm.", out)
}

func TestGenerateAllAlternatives(t *testing.T) {
	g := NewGenerator(builtinModel(t), decode.Params{MaxLength: 40, NumSequences: 2, NoRepeatNGram: 2}, false)

	outs, err := g.GenerateAll(context.Background(), "a thousand")
	require.NoError(t, err)
	require.Len(t, outs, 2)
	assert.NotEqual(t, outs[0], outs[1])
}

func TestGenerateAfterFinishedSentence(t *testing.T) {
	const maxLength = 40
	g := NewGenerator(builtinModel(t), decode.Params{MaxLength: maxLength, NumSequences: 1, NoRepeatNGram: 2}, false)

	prompts := []string{
		"hello.",
		"Tell me about the fox.",
		"Which bird catches the worm?",
		"what is go\nGo is a programming language designed at Google.",
		"All that glitters is not gold.",
	}
	for _, prompt := range prompts {
		t.Run(prompt, func(t *testing.T) {
			out, err := g.Generate(context.Background(), prompt)
			require.NoError(t, err)
			assert.NotEmpty(t, out)
			assert.LessOrEqual(t, tokenizer.Count(prompt)+tokenizer.Count(out), maxLength)
		})
	}
}

func TestGenerateAfterFinishedSentenceAllSequences(t *testing.T) {
	g := NewGenerator(builtinModel(t), decode.Params{MaxLength: 60, NumSequences: 3, NoRepeatNGram: 2}, false)

	outs, err := g.GenerateAll(context.Background(), "The early bird catches the worm.")
	require.NoError(t, err)
	require.NotEmpty(t, outs)
	for _, out := range outs {
		assert.NotEmpty(t, out)
	}
}
