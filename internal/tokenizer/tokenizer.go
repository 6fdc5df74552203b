// Package tokenizer defines the token unit shared by the context assembler and
// the generators: words (with inner apostrophes), numbers, and single
// punctuation marks. Whitespace never forms a token.
package tokenizer

import (
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+(?:[.,]\p{N}+)*|[^\s\p{L}\p{N}]`)

// Tokenize splits text into tokens in order of appearance.
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(text, -1)
}

// Count returns the number of tokens in text.
func Count(text string) int {
	return len(tokenPattern.FindAllStringIndex(text, -1))
}

// Truncate keeps the first n tokens of text, preserving the original spacing
// between them. Text with n tokens or fewer is returned unchanged.
func Truncate(text string, n int) string {
	if n <= 0 {
		return ""
	}
	locs := tokenPattern.FindAllStringIndex(text, n+1)
	if len(locs) <= n {
		return text
	}
	return text[:locs[n-1][1]]
}

// Join renders tokens back into text, attaching closing punctuation to the
// preceding token and opening brackets to the following one.
func Join(tokens []string) string {
	var sb strings.Builder
	for i, tok := range tokens {
		if i > 0 && !isClosing(tok) && !isOpening(tokens[i-1]) {
			sb.WriteByte(' ')
		}
		sb.WriteString(tok)
	}
	return sb.String()
}

func isClosing(tok string) bool {
	switch tok {
	case ".", ",", "!", "?", ";", ":", "%", ")", "]", "}":
		return true
	}
	return false
}

func isOpening(tok string) bool {
	switch tok {
	case "(", "[", "{", "$":
		return true
	}
	return false
}
