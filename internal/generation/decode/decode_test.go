package decode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tableModel ranks candidates by the last history token only.
type tableModel map[string][]string

func (m tableModel) Next(history []string) []Candidate {
	last := ""
	if len(history) > 0 {
		last = history[len(history)-1]
	}
	var out []Candidate
	for i, tok := range m[last] {
		out = append(out, Candidate{Token: tok, Score: float64(len(m[last]) - i)})
	}
	return out
}

func TestGreedyStopsAtEndOfSentence(t *testing.T) {
	m := tableModel{"hello": {"world"}, "world": {"."}, ".": {EndOfSentence}}

	seqs, err := Greedy(context.Background(), m, []string{"hello"}, Params{MaxLength: 150, NumSequences: 1})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"world", "."}}, seqs)
}

func TestGreedyNeverStartsWithEndOfSentence(t *testing.T) {
	m := tableModel{".": {EndOfSentence, "then"}, "then": {"more"}, "more": {EndOfSentence}}

	seqs, err := Greedy(context.Background(), m, []string{"done", "."}, Params{MaxLength: 20, NumSequences: 2, NoRepeatNGram: 2})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"then", "more"}}, seqs)

	seqs, err = Greedy(context.Background(), tableModel{".": {EndOfSentence}}, []string{"."}, Params{MaxLength: 20})
	require.NoError(t, err)
	assert.Equal(t, [][]string{nil}, seqs)
}

func TestGreedyMaxLengthIncludesPrompt(t *testing.T) {
	m := tableModel{"a": {"b"}, "b": {"a"}}

	seqs, err := Greedy(context.Background(), m, []string{"a", "b"}, Params{MaxLength: 5})
	require.NoError(t, err)
	require.Len(t, seqs, 1)
	assert.Equal(t, []string{"a", "b", "a"}, seqs[0])

	seqs, err = Greedy(context.Background(), m, []string{"a", "b", "a"}, Params{MaxLength: 2})
	require.NoError(t, err)
	require.Len(t, seqs, 1)
	assert.Empty(t, seqs[0])
}

func TestGreedyNoRepeatNGram(t *testing.T) {
	// without the constraint this loops "a b a b ..."
	m := tableModel{"a": {"b", "c"}, "b": {"a", EndOfSentence}, "c": {EndOfSentence}}

	seqs, err := Greedy(context.Background(), m, []string{"a"}, Params{MaxLength: 20, NoRepeatNGram: 2})
	require.NoError(t, err)
	// "a b" exists after step one, so the second "a" may not be followed by "b"
	assert.Equal(t, []string{"b", "a", "c"}, seqs[0])
}

func TestGreedyAlternativeSequences(t *testing.T) {
	m := tableModel{"q": {"x", "y"}, "x": {EndOfSentence}, "y": {"z"}, "z": {EndOfSentence}}

	seqs, err := Greedy(context.Background(), m, []string{"q"}, Params{MaxLength: 10, NumSequences: 3})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"x"}, {"y", "z"}}, seqs)
}

func TestGreedyHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Greedy(ctx, tableModel{"a": {"a"}}, []string{"a"}, Params{MaxLength: 10})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBanned(t *testing.T) {
	h := []string{"the", "cat", "sat", "the"}
	assert.Equal(t, map[string]struct{}{"cat": {}}, Banned(h, 2))
	assert.Equal(t, map[string]struct{}{"the": {}, "cat": {}, "sat": {}}, Banned(h, 1))
	assert.Nil(t, Banned(h, 0))
	assert.Empty(t, Banned(h, 3))
}

func TestTrimRepeated(t *testing.T) {
	prompt := []string{"the", "cat"}
	assert.Equal(t, []string{"sat", "on", "the"}, TrimRepeated(prompt, []string{"sat", "on", "the", "cat", "again"}, 2))
	assert.Equal(t, []string{"sat"}, TrimRepeated(prompt, []string{"sat"}, 2))
	assert.Equal(t, []string{"the", "cat"}, TrimRepeated(prompt, []string{"the", "cat"}, -1))
}
