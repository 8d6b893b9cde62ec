package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyIntent(t *testing.T) {
	e := NewExtractor(nil)

	tests := []struct {
		text string
		want Intent
	}{
		{"I want to buy the premium plan", IntentSales},
		{"can I get a quote for an upgrade", IntentSales},
		{"I need help with my bill", IntentBilling},
		{"I was overcharged on my last invoice", IntentBilling},
		{"the app is broken and keeps crashing", IntentSupport},
		{"something went wrong with my error logs", IntentSupport},
		{"hello there", IntentSupport}, // no matches, default
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, e.ClassifyIntent(tt.text), "text: %s", tt.text)
	}
}

func TestClassifyIntentTieDefaultsToSupport(t *testing.T) {
	vocab := DefaultVocabulary()
	vocab.IntentPatterns = map[Intent][]string{
		IntentSales:   {"alpha", "beta"},
		IntentSupport: {"alpha", "beta"},
		IntentBilling: {"alpha", "beta"},
	}
	e := NewExtractor(vocab)

	// All three lists match identically, so no strict comparison fires.
	assert.Equal(t, IntentSupport, e.ClassifyIntent("alpha beta"))
}

func TestScoreSentimentThreeLevels(t *testing.T) {
	e := NewExtractor(nil)

	assert.Equal(t, 0.7, e.ScoreSentiment("thanks, this is great"))
	assert.Equal(t, 0.3, e.ScoreSentiment("this is terrible and I am angry"))
	assert.Equal(t, 0.5, e.ScoreSentiment("I am calling about my account"))
	// One positive and one negative hit cancel out.
	assert.Equal(t, 0.5, e.ScoreSentiment("great service but terrible wait times"))
}

func TestScoreUrgency(t *testing.T) {
	e := NewExtractor(nil)

	tests := []struct {
		name       string
		text       string
		multiplier float64
		afterHours bool
		want       Urgency
	}{
		{"calm basic caller", "question about my plan", 1.0, false, UrgencyLow},
		{"after hours bump alone is medium", "question about my plan", 1.0, true, UrgencyMedium},
		{"enterprise after hours outage", "this is broken and urgent", 1.5, true, UrgencyCritical},
		{"enterprise outage in hours", "this is broken and urgent", 1.5, false, UrgencyHigh},
		{"basic urgent word", "please fix this urgent problem", 1.0, true, UrgencyMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.ScoreUrgency(tt.text, tt.multiplier, tt.afterHours))
		})
	}
}

func TestExtractKeywords(t *testing.T) {
	e := NewExtractor(nil)

	kw := e.ExtractKeywords("my account is broken and I want a refund")
	assert.Equal(t, []string{"account", "broken", "refund"}, kw)

	assert.Empty(t, e.ExtractKeywords("hello"))
}

func TestExtractBundle(t *testing.T) {
	e := NewExtractor(nil)

	sig := e.Extract("I need help with my bill", 1.0, false)
	assert.Equal(t, IntentBilling, sig.Intent)
	assert.Equal(t, 0.5, sig.Sentiment)
	assert.Equal(t, UrgencyLow, sig.Urgency)
	assert.Contains(t, sig.Keywords, "bill")
}

func TestLoadVocabularyPartialOverride(t *testing.T) {
	doc := []byte(`
intent_patterns:
  sales: ["comprar"]
  support: ["ayuda"]
  billing: ["factura"]
`)
	vocab, err := LoadVocabulary(doc)
	require.NoError(t, err)

	e := NewExtractor(vocab)
	assert.Equal(t, IntentBilling, e.ClassifyIntent("necesito mi factura"))
	// Untouched sections keep the defaults.
	assert.Equal(t, 0.7, e.ScoreSentiment("thank you"))
}

func TestLoadVocabularyBadYAML(t *testing.T) {
	_, err := LoadVocabulary([]byte("{not yaml"))
	assert.Error(t, err)
}
