// Package ngram is a count-based n-gram language model with stupid-backoff
// scoring, trained by ragtrain and used as the default generator.
package ngram

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ragbot/internal/chunker"
	"ragbot/internal/generation/decode"
	"ragbot/internal/tokenizer"
)

const (
	// FormatVersion is the weights file version this build reads and writes.
	FormatVersion = 1
	// BeginOfSentence is the context every training sentence starts from.
	BeginOfSentence = "<s>"
	backoffFactor   = 0.4
)

var _ decode.Model = (*Model)(nil)

// Model holds n-gram counts. Contexts maps a space-joined history of 1 to
// Order-1 tokens onto the counts of the tokens that followed it.
type Model struct {
	Version  int                       `json:"version"`
	Order    int                       `json:"order"`
	Unigrams map[string]int            `json:"unigrams"`
	Contexts map[string]map[string]int `json:"contexts"`
}

// Train counts n-grams of up to order tokens over every sentence of corpus.
// Tokens are lower-cased; each sentence ends with the end-of-sentence token.
func Train(corpus []string, order int) (*Model, error) {
	if order < 1 {
		return nil, fmt.Errorf("ngram: order must be at least 1, got %d", order)
	}
	m := &Model{
		Version:  FormatVersion,
		Order:    order,
		Unigrams: make(map[string]int),
		Contexts: make(map[string]map[string]int),
	}
	for _, text := range corpus {
		for _, sentence := range chunker.SplitSentences(text) {
			toks := Normalize(tokenizer.Tokenize(sentence))
			if len(toks) == 0 {
				continue
			}
			seq := append([]string{BeginOfSentence}, toks...)
			seq = append(seq, decode.EndOfSentence)
			for j := 1; j < len(seq); j++ {
				m.Unigrams[seq[j]]++
				for k := 1; k < order && j-k >= 0; k++ {
					m.count(strings.Join(seq[j-k:j], " "), seq[j])
				}
			}
		}
	}
	if len(m.Unigrams) == 0 {
		return nil, fmt.Errorf("ngram: corpus has no tokens")
	}
	return m, nil
}

func (m *Model) count(context, next string) {
	c, ok := m.Contexts[context]
	if !ok {
		c = make(map[string]int)
		m.Contexts[context] = c
	}
	c[next]++
}

// Next ranks every token seen after the longest matching history suffix,
// backing off to shorter suffixes, then the sentence-start context, then
// unigrams. Each backoff step scales relative frequencies by 0.4.
func (m *Model) Next(history []string) []decode.Candidate {
	scores := make(map[string]float64)
	weight := 1.0
	add := func(counts map[string]int) {
		total := 0
		for _, c := range counts {
			total += c
		}
		if total == 0 {
			return
		}
		matched := false
		for tok, c := range counts {
			if _, ok := scores[tok]; ok {
				continue
			}
			scores[tok] = weight * float64(c) / float64(total)
			matched = true
		}
		if matched {
			weight *= backoffFactor
		}
	}

	for k := min(m.Order-1, len(history)); k >= 1; k-- {
		if counts, ok := m.Contexts[strings.Join(history[len(history)-k:], " ")]; ok {
			add(counts)
		}
	}
	add(m.Contexts[BeginOfSentence])
	add(m.Unigrams)

	out := make([]decode.Candidate, 0, len(scores))
	for tok, s := range scores {
		out = append(out, decode.Candidate{Token: tok, Score: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if math.Abs(out[i].Score-out[j].Score) > 1e-12 {
			return out[i].Score > out[j].Score
		}
		return out[i].Token < out[j].Token
	})
	return out
}

// Normalize lower-cases tokens in place and returns them.
func Normalize(tokens []string) []string {
	for i, t := range tokens {
		tokens[i] = strings.ToLower(t)
	}
	return tokens
}

// Save writes the model as JSON.
func (m *Model) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads a weights file written by Save.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("ngram weights %s: %w", path, err)
	}
	if m.Version != FormatVersion {
		return nil, fmt.Errorf("ngram weights %s: unsupported version %d", path, m.Version)
	}
	if m.Order < 1 || len(m.Unigrams) == 0 {
		return nil, fmt.Errorf("ngram weights %s: empty model", path)
	}
	if m.Contexts == nil {
		m.Contexts = make(map[string]map[string]int)
	}
	return &m, nil
}
