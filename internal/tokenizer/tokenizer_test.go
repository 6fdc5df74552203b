package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	got := Tokenize("Don't panic, it's 42.5% done!")
	assert.Equal(t, []string{"Don't", "panic", ",", "it's", "42.5", "%", "done", "!"}, got)
}

func TestCountIgnoresWhitespace(t *testing.T) {
	assert.Equal(t, 0, Count("  \n\t "))
	assert.Equal(t, 3, Count("hello\nworld ."))
}

func TestTruncatePreservesSpacing(t *testing.T) {
	text := "hello\nthe quick  brown fox"

	assert.Equal(t, "hello\nthe quick", Truncate(text, 3))
	assert.Equal(t, text, Truncate(text, 5))
	assert.Equal(t, text, Truncate(text, 50))
	assert.Equal(t, "", Truncate(text, 0))
}

func TestJoinAttachesPunctuation(t *testing.T) {
	got := Join([]string{"All", "that", "glitters", "(", "mostly", ")", "is", "not", "gold", "."})
	assert.Equal(t, "All that glitters (mostly) is not gold.", got)
}
