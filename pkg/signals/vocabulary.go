// Package signals scores raw caller utterances for intent, sentiment,
// urgency and keywords. Everything here is pure: no I/O, no clocks, no
// store access, so the extractor is safe to share across goroutines.
//
// The vocabularies are one data-driven table shared by every entry point
// that needs intent classification, so the IVR path and the generic
// routing path cannot drift apart.
package signals

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Intent is the coarse purpose of a caller utterance.
type Intent string

const (
	IntentSales   Intent = "sales"
	IntentSupport Intent = "support"
	IntentBilling Intent = "billing"
)

// Urgency buckets an utterance by how quickly it needs a response.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// Vocabulary is the pattern table the extractor scores against. All
// entries are matched as lowercase substrings.
type Vocabulary struct {
	// IntentPatterns maps each intent to the phrases that indicate it.
	IntentPatterns map[Intent][]string `yaml:"intent_patterns"`

	// PositiveWords and NegativeWords drive the three-level sentiment.
	PositiveWords []string `yaml:"positive_words"`
	NegativeWords []string `yaml:"negative_words"`

	// UrgentWords raise the urgency score proportionally to how many
	// of them appear.
	UrgentWords []string `yaml:"urgent_words"`

	// KeywordVocabularies are the fixed term sets whose union forms the
	// extracted keyword set. The map key names the vocabulary
	// (service, problem, billing).
	KeywordVocabularies map[string][]string `yaml:"keyword_vocabularies"`
}

// DefaultVocabulary returns the built-in pattern table.
func DefaultVocabulary() *Vocabulary {
	return &Vocabulary{
		IntentPatterns: map[Intent][]string{
			IntentSales: {
				"buy", "purchase", "price", "pricing", "quote",
				"upgrade", "new plan", "demo", "trial", "sign up",
			},
			IntentSupport: {
				"help", "broken", "not working", "issue", "problem",
				"error", "fix", "trouble", "stopped", "crash",
			},
			// Deliberately shorter than the other lists: a single hit
			// scores higher, so money language outranks an incidental
			// support word in the same utterance.
			IntentBilling: {
				"bill", "invoice", "charge", "payment",
				"refund", "overcharged", "receipt", "statement",
			},
		},
		PositiveWords: []string{
			"great", "good", "thanks", "thank you", "happy",
			"love", "excellent", "perfect", "wonderful", "appreciate",
		},
		NegativeWords: []string{
			"angry", "terrible", "awful", "frustrated", "upset",
			"horrible", "worst", "hate", "unacceptable", "disappointed",
		},
		UrgentWords: []string{
			"urgent", "emergency", "immediately", "asap", "broken", "down",
		},
		KeywordVocabularies: map[string][]string{
			"service": {
				"account", "plan", "upgrade", "demo", "pricing",
				"quote", "trial", "subscription",
			},
			"problem": {
				"broken", "error", "issue", "outage", "crash",
				"down", "slow", "failed",
			},
			"billing": {
				"bill", "invoice", "charge", "refund", "payment",
				"overcharged", "statement", "credit",
			},
		},
	}
}

// LoadVocabulary parses a YAML vocabulary override. Sections left empty
// in the document fall back to the defaults, so tenants can replace just
// the intent patterns without restating the sentiment lists.
func LoadVocabulary(data []byte) (*Vocabulary, error) {
	var override Vocabulary
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("signals: failed to parse vocabulary: %w", err)
	}

	vocab := DefaultVocabulary()
	if len(override.IntentPatterns) > 0 {
		vocab.IntentPatterns = override.IntentPatterns
	}
	if len(override.PositiveWords) > 0 {
		vocab.PositiveWords = override.PositiveWords
	}
	if len(override.NegativeWords) > 0 {
		vocab.NegativeWords = override.NegativeWords
	}
	if len(override.UrgentWords) > 0 {
		vocab.UrgentWords = override.UrgentWords
	}
	if len(override.KeywordVocabularies) > 0 {
		vocab.KeywordVocabularies = override.KeywordVocabularies
	}
	return vocab, nil
}

// RelevantKeywords returns the keyword vocabulary associated with an
// intent, used by the routing engine to judge how on-topic the matched
// keywords are.
func (v *Vocabulary) RelevantKeywords(intent Intent) []string {
	switch intent {
	case IntentSales:
		return v.KeywordVocabularies["service"]
	case IntentBilling:
		return v.KeywordVocabularies["billing"]
	default:
		return v.KeywordVocabularies["problem"]
	}
}
