package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"ragbot/internal/chunker"
	"ragbot/internal/domain"
)

var _ domain.Summarizer = (*FrequencySummarizer)(nil)

// FrequencySummarizer ranks sentences by word frequency (stopwords filtered).
type FrequencySummarizer struct {
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// NewFrequencySummarizer creates a frequency-based sentence ranker summarizer.
func NewFrequencySummarizer() *FrequencySummarizer {
	words := strings.Fields("a an the and or but if then else for to of in on at by with as is are was were be been being it this that these those from up down over under again further than so such into about between through during before after above below out off own same too very can will just don should now you we us our")
	stop := make(map[string]struct{}, len(words))
	for _, w := range words {
		stop[w] = struct{}{}
	}
	return &FrequencySummarizer{
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		stopwords:    stop,
	}
}

// Summarize returns up to maxSentences sentences with the highest normalised
// term frequency, in their original order.
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = 5
	}
	sentences := chunker.SplitSentences(text)
	if len(sentences) == 0 {
		return "", nil
	}

	tokens := make([][]string, len(sentences))
	freq := map[string]float64{}
	maxF := 0.0
	for i, sent := range sentences {
		tokens[i] = s.tokens(sent)
		for _, tok := range tokens[i] {
			freq[tok]++
			maxF = math.Max(maxF, freq[tok])
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(sentences))
	for i := range sentences {
		sum := 0.0
		for _, tok := range tokens[i] {
			sum += freq[tok] / maxF
		}
		// sqrt length normalisation avoids favouring long sentences
		if n := len(tokens[i]); n > 0 {
			sum /= math.Sqrt(float64(n))
		}
		scores[i] = scored{i, sum}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	keep := min(maxSentences, len(scores))
	selected := make([]int, keep)
	for i := range selected {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)

	out := make([]string, 0, keep)
	for _, idx := range selected {
		out = append(out, sentences[idx])
	}
	return strings.Join(out, " "), nil
}

func (s *FrequencySummarizer) tokens(text string) []string {
	raw := s.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, stop := s.stopwords[t]; !stop {
			out = append(out, t)
		}
	}
	return out
}
