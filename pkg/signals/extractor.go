package signals

import (
	"sort"
	"strings"
)

// Signals is the full scoring bundle for one utterance.
type Signals struct {
	Intent    Intent   `json:"intent"`
	Sentiment float64  `json:"sentiment"`
	Urgency   Urgency  `json:"urgency"`
	Keywords  []string `json:"keywords"`
}

// Extractor scores utterances against a vocabulary.
type Extractor struct {
	vocab *Vocabulary
}

// NewExtractor creates an extractor. A nil vocabulary uses the defaults.
func NewExtractor(vocab *Vocabulary) *Extractor {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	return &Extractor{vocab: vocab}
}

// Vocabulary exposes the active pattern table.
func (e *Extractor) Vocabulary() *Vocabulary {
	return e.vocab
}

// ClassifyIntent scores the utterance against each intent's pattern list
// (matched patterns over total patterns) and picks a winner on strict
// comparisons checked in order: sales, then billing, then support. An
// utterance that ties every list, including the all-zero case, lands on
// support, the safe default destination for an unclassifiable caller.
func (e *Extractor) ClassifyIntent(text string) Intent {
	lower := strings.ToLower(text)
	sales := matchRatio(lower, e.vocab.IntentPatterns[IntentSales])
	billing := matchRatio(lower, e.vocab.IntentPatterns[IntentBilling])
	support := matchRatio(lower, e.vocab.IntentPatterns[IntentSupport])

	switch {
	case sales > billing && sales > support:
		return IntentSales
	case billing > support:
		return IntentBilling
	default:
		return IntentSupport
	}
}

// ScoreSentiment compares positive against negative word hits and emits
// one of three levels: 0.7 (positive), 0.3 (negative), 0.5 (neutral or
// tied). Callers treat the value as a scalar but only these three
// levels ever occur.
func (e *Extractor) ScoreSentiment(text string) float64 {
	lower := strings.ToLower(text)
	positive := matchCount(lower, e.vocab.PositiveWords)
	negative := matchCount(lower, e.vocab.NegativeWords)

	switch {
	case positive > negative:
		return 0.7
	case negative > positive:
		return 0.3
	default:
		return 0.5
	}
}

// ScoreUrgency combines the urgent-word match ratio with the caller's
// tier multiplier and an after-hours bump, then buckets the score:
//
//	score >= 0.7  critical
//	score >= 0.5  high
//	score >= 0.3  medium
//	otherwise     low
func (e *Extractor) ScoreUrgency(text string, tierMultiplier float64, afterHours bool) Urgency {
	if tierMultiplier <= 0 {
		tierMultiplier = 1.0
	}

	score := matchRatio(strings.ToLower(text), e.vocab.UrgentWords) * tierMultiplier
	if afterHours {
		score += 0.3
	}

	switch {
	case score >= 0.7:
		return UrgencyCritical
	case score >= 0.5:
		return UrgencyHigh
	case score >= 0.3:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

// ExtractKeywords returns the sorted union of terms from every keyword
// vocabulary that appear in the utterance.
func (e *Extractor) ExtractKeywords(text string) []string {
	lower := strings.ToLower(text)
	seen := make(map[string]struct{})
	for _, terms := range e.vocab.KeywordVocabularies {
		for _, term := range terms {
			if strings.Contains(lower, term) {
				seen[term] = struct{}{}
			}
		}
	}

	keywords := make([]string, 0, len(seen))
	for term := range seen {
		keywords = append(keywords, term)
	}
	sort.Strings(keywords)
	return keywords
}

// Extract runs the full scoring pass over one utterance.
func (e *Extractor) Extract(text string, tierMultiplier float64, afterHours bool) Signals {
	return Signals{
		Intent:    e.ClassifyIntent(text),
		Sentiment: e.ScoreSentiment(text),
		Urgency:   e.ScoreUrgency(text, tierMultiplier, afterHours),
		Keywords:  e.ExtractKeywords(text),
	}
}

func matchCount(lower string, patterns []string) int {
	count := 0
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			count++
		}
	}
	return count
}

func matchRatio(lower string, patterns []string) float64 {
	if len(patterns) == 0 {
		return 0
	}
	return float64(matchCount(lower, patterns)) / float64(len(patterns))
}
