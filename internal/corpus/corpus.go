// Package corpus loads the text the offline jobs learn from.
package corpus

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"ragbot/internal/domain"
)

// Sentences is the built-in corpus used when no input files are given.
var Sentences = []string{
	"The quick brown fox jumps over the lazy dog.",
	"A journey of a thousand miles begins with a single step.",
	"To be or not to be, that is the question.",
	"All that glitters is not gold.",
	"The early bird catches the worm.",
	"A picture is worth a thousand words.",
	"You miss 100% of the shots you don't take.",
	"In the middle of difficulty lies opportunity.",
	"Success is not final, failure is not fatal: It is the courage to continue that counts.",
	"Life is 10% what happens to us and 90% how we react to it.",
}

// Builtin returns the built-in sentences as one document each.
func Builtin() []domain.SourceDocument {
	docs := make([]domain.SourceDocument, len(Sentences))
	for i, s := range Sentences {
		docs[i] = domain.SourceDocument{
			ID:      "builtin-" + strconv.Itoa(i),
			Path:    "builtin",
			Content: s,
		}
	}
	return docs
}

// Load reads every .txt file matched by the given paths or glob patterns.
func Load(paths []string) ([]domain.SourceDocument, error) {
	var documents []domain.SourceDocument
	for _, p := range paths {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("corpus: bad pattern %q: %w", p, err)
		}
		if matches == nil {
			matches = []string{p}
		}
		for _, m := range matches {
			if !strings.HasSuffix(strings.ToLower(m), ".txt") {
				continue
			}
			data, err := os.ReadFile(m)
			if err != nil {
				return nil, err
			}
			documents = append(documents, domain.SourceDocument{ID: hashString(m), Path: m, Content: string(data)})
		}
	}
	if len(documents) == 0 {
		return nil, fmt.Errorf("no .txt documents found")
	}
	return documents, nil
}

// LoadOrBuiltin loads paths, or returns the built-in corpus when paths is empty.
func LoadOrBuiltin(paths []string) ([]domain.SourceDocument, error) {
	if len(paths) == 0 {
		return Builtin(), nil
	}
	return Load(paths)
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8])
}
