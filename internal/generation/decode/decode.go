// Package decode implements greedy decoding over a next-token model with the
// no-repeat-n-gram constraint.
package decode

import (
	"context"
	"slices"
	"strings"
)

// EndOfSentence stops a sequence when chosen. It is never emitted.
const EndOfSentence = "</s>"

// Candidate is a possible next token. Higher scores rank first.
type Candidate struct {
	Token string
	Score float64
}

// Model proposes next tokens for a history, ranked best first.
type Model interface {
	Next(history []string) []Candidate
}

// Params bound decoding. MaxLength counts the prompt tokens too, so a prompt
// of MaxLength tokens or more leaves no room for a continuation.
// NoRepeatNGram <= 0 disables the repetition constraint.
type Params struct {
	MaxLength     int
	NumSequences  int
	NoRepeatNGram int
}

// Greedy returns up to NumSequences continuations of prompt. Sequence i takes
// the i-th ranked allowed first token and then always the best allowed token.
// The end-of-sentence token is never a first token, so a prompt that already
// ends a sentence is continued rather than answered with nothing.
// Sequences whose seed does not exist are omitted.
func Greedy(ctx context.Context, m Model, prompt []string, p Params) ([][]string, error) {
	n := max(p.NumSequences, 1)
	budget := p.MaxLength - len(prompt)
	out := make([][]string, 0, n)
	for seq := 0; seq < n; seq++ {
		cont, ok, err := greedyOne(ctx, m, prompt, budget, p.NoRepeatNGram, seq)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		out = append(out, cont)
	}
	return out, nil
}

func greedyOne(ctx context.Context, m Model, prompt []string, budget, ngram, seed int) ([]string, bool, error) {
	history := append(make([]string, 0, len(prompt)+max(budget, 0)), prompt...)
	var cont []string
	for step := 0; len(cont) < budget; step++ {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		banned := Banned(history, ngram)
		rank := 0
		if step == 0 {
			rank = seed
			if banned == nil {
				banned = make(map[string]struct{}, 1)
			}
			banned[EndOfSentence] = struct{}{}
		}
		allowed := filter(m.Next(history), banned)
		if rank >= len(allowed) {
			if step == 0 && seed > 0 {
				return nil, false, nil
			}
			break
		}
		tok := allowed[rank].Token
		if tok == EndOfSentence {
			break
		}
		history = append(history, tok)
		cont = append(cont, tok)
	}
	return cont, true, nil
}

func filter(cands []Candidate, banned map[string]struct{}) []Candidate {
	if len(banned) == 0 {
		return cands
	}
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if _, ok := banned[c.Token]; !ok {
			out = append(out, c)
		}
	}
	return out
}

// Banned returns the tokens that would complete an n-gram already present in
// history. The end-of-sentence token is never banned.
func Banned(history []string, n int) map[string]struct{} {
	if n <= 0 || len(history) < n-1 {
		return nil
	}
	suffix := history[len(history)-(n-1):]
	out := make(map[string]struct{})
	for i := 0; i+n <= len(history); i++ {
		if slices.Equal(history[i:i+n-1], suffix) {
			out[history[i+n-1]] = struct{}{}
		}
	}
	delete(out, EndOfSentence)
	return out
}

// TrimRepeated cuts completion just before the first token that repeats an
// n-gram of prompt followed by completion.
func TrimRepeated(prompt, completion []string, n int) []string {
	if n <= 0 {
		return completion
	}
	all := append(append(make([]string, 0, len(prompt)+len(completion)), prompt...), completion...)
	seen := make(map[string]struct{})
	for end := n; end <= len(all); end++ {
		key := strings.Join(all[end-n:end], "\x00")
		if _, dup := seen[key]; dup && end > len(prompt) {
			return completion[:end-1-len(prompt)]
		}
		seen[key] = struct{}{}
	}
	return completion
}
