package news

import (
	"strings"
	"unicode"
)

// Scorer rates financial headlines in [-1, 1] from word polarity counts
type Scorer struct {
	positive map[string]struct{}
	negative map[string]struct{}
	negators map[string]struct{}
}

var positiveWords = []string{
	"beat", "beats", "bullish", "gain", "gains", "growth", "high", "higher", "jump",
	"jumps", "outperform", "profit", "profits", "rally", "rallies", "record", "rebound",
	"rise", "rises", "soar", "soars", "strong", "surge", "surges", "upgrade",
	"upgraded", "win", "wins", "boost", "boosts", "approval", "expands", "tops",
}

var negativeWords = []string{
	"bearish", "crash", "crashes", "cut", "cuts", "decline", "declines", "downgrade",
	"downgraded", "drop", "drops", "fall", "falls", "fear", "fears", "fraud", "lawsuit",
	"loss", "losses", "low", "lower", "miss", "misses", "plunge", "plunges", "probe",
	"recall", "recalls", "risk", "slump", "slumps", "sink", "sinks", "weak", "warning",
}

var negatorWords = []string{"not", "no", "never", "without", "fails"}

// NewScorer builds the default lexicon
func NewScorer() *Scorer {
	return &Scorer{
		positive: toSet(positiveWords),
		negative: toSet(negativeWords),
		negators: toSet(negatorWords),
	}
}

// Score returns (pos - neg) / (pos + neg), or 0 when no polar word occurs.
// A negator directly before a polar word flips it.
func (s *Scorer) Score(text string) float64 {
	var pos, neg int
	tokens := tokenize(strings.ToLower(text))
	for i, tok := range tokens {
		polarity := 0
		if _, ok := s.positive[tok]; ok {
			polarity = 1
		} else if _, ok := s.negative[tok]; ok {
			polarity = -1
		}
		if polarity == 0 {
			continue
		}
		if i > 0 {
			if _, ok := s.negators[tokens[i-1]]; ok {
				polarity = -polarity
			}
		}
		if polarity > 0 {
			pos++
		} else {
			neg++
		}
	}
	if pos+neg == 0 {
		return 0
	}
	return float64(pos-neg) / float64(pos+neg)
}

func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
