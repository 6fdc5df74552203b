package ngram

import (
	"context"
	"strings"

	"ragbot/internal/domain"
	"ragbot/internal/generation/decode"
	"ragbot/internal/tokenizer"
)

var _ domain.Generator = (*Generator)(nil)

// Generator decodes greedily from a loaded model. The model is read-only, so a
// Generator is safe for concurrent use.
type Generator struct {
	model  *Model
	params decode.Params
	echo   bool
}

// NewGenerator wraps model. With echo set, responses start with the prompt.
func NewGenerator(model *Model, params decode.Params, echo bool) *Generator {
	return &Generator{model: model, params: params, echo: echo}
}

func (g *Generator) Name() string { return "ngram" }

// Generate returns the first decoded sequence.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	seqs, err := g.GenerateAll(ctx, prompt)
	if err != nil {
		return "", err
	}
	if len(seqs) == 0 {
		return "", nil
	}
	return seqs[0], nil
}

// GenerateAll returns up to NumSequences alternative responses.
func (g *Generator) GenerateAll(ctx context.Context, prompt string) ([]string, error) {
	history := Normalize(tokenizer.Tokenize(prompt))
	seqs, err := decode.Greedy(ctx, g.model, history, g.params)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(seqs))
	for i, toks := range seqs {
		text := tokenizer.Join(toks)
		if g.echo {
			text = strings.TrimSpace(prompt + " " + text)
		}
		out[i] = text
	}
	return out, nil
}
