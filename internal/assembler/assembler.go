// Package assembler joins a query and its retrieved documents into the
// generator input, bounded by a length budget.
package assembler

import (
	"strings"
	"unicode/utf8"

	"ragbot/internal/domain"
	"ragbot/internal/tokenizer"
)

// Length units.
const (
	UnitTokens = "tokens"
	UnitChars  = "chars"
)

// Config bounds the assembled context. MaxLength 0 disables truncation.
type Config struct {
	Separator string
	MaxLength int
	Unit      string
}

type Assembler struct {
	sep   string
	max   int
	chars bool
}

func New(cfg Config) *Assembler {
	sep := cfg.Separator
	if sep == "" {
		sep = "\n"
	}
	return &Assembler{sep: sep, max: cfg.MaxLength, chars: cfg.Unit == UnitChars}
}

// Assemble returns the query followed by every non-blank document text, in
// retrieval order. Over budget, documents are dropped from the end; a query
// that alone exceeds the budget is cut and sent without documents.
func (a *Assembler) Assemble(query string, docs []domain.Document) domain.Context {
	var b strings.Builder
	b.WriteString(query)
	used := make([]domain.Document, 0, len(docs))
	truncated := false

	for _, d := range docs {
		if strings.TrimSpace(d.Text) == "" {
			continue
		}
		candidate := b.String() + a.sep + d.Text
		if a.max > 0 && a.measure(candidate) > a.max {
			truncated = true
			break
		}
		b.WriteString(a.sep)
		b.WriteString(d.Text)
		used = append(used, d)
	}

	text := b.String()
	if len(used) == 0 && a.max > 0 && a.measure(text) > a.max {
		text = a.cut(text)
		truncated = true
	}
	return domain.Context{
		Text:      text,
		Documents: used,
		Truncated: truncated,
		Length:    a.measure(text),
	}
}

func (a *Assembler) measure(s string) int {
	if a.chars {
		return utf8.RuneCountInString(s)
	}
	return tokenizer.Count(s)
}

func (a *Assembler) cut(s string) string {
	if !a.chars {
		return tokenizer.Truncate(s, a.max)
	}
	n := 0
	for i := range s {
		if n == a.max {
			return s[:i]
		}
		n++
	}
	return s
}
