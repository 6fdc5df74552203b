package chunker

import (
	"regexp"
	"strconv"
	"strings"

	"ragbot/internal/domain"
)

var _ domain.Chunker = (*SentenceChunker)(nil)

var sentencePattern = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)

// SplitSentences returns the trimmed sentences of text. Text without
// terminal punctuation is returned as a single sentence.
func SplitSentences(text string) []string {
	raw := sentencePattern.FindAllString(text, -1)
	if len(raw) == 0 {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SentenceChunker splits text into sentence-based chunks with overlap.
type SentenceChunker struct {
	sentencesPerChunk int
	overlapSentences  int
}

func NewSentenceChunker(sentencesPerChunk, overlapSentences int) *SentenceChunker {
	if sentencesPerChunk <= 0 {
		sentencesPerChunk = 5
	}
	if overlapSentences < 0 {
		overlapSentences = 0
	}
	// overlap must leave the window moving forward
	if overlapSentences >= sentencesPerChunk {
		overlapSentences = sentencesPerChunk - 1
	}
	return &SentenceChunker{
		sentencesPerChunk: sentencesPerChunk,
		overlapSentences:  overlapSentences,
	}
}

func (c *SentenceChunker) Chunk(document domain.SourceDocument) ([]domain.Chunk, error) {
	sentences := SplitSentences(document.Content)
	var chunks []domain.Chunk
	for start, idx := 0, 0; start < len(sentences); idx++ {
		end := min(start+c.sentencesPerChunk, len(sentences))
		chunks = append(chunks, domain.Chunk{
			DocumentID: document.ID,
			ChunkID:    document.ID + ":" + strconv.Itoa(idx),
			Source:     document.Path,
			Text:       strings.Join(sentences[start:end], " "),
			Index:      idx,
		})
		if end == len(sentences) {
			break
		}
		start = end - c.overlapSentences
	}
	return chunks, nil
}
