package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connectline-io/switchboard/pkg/escalation"
	"github.com/connectline-io/switchboard/pkg/routing"
)

// The provider doubles as the metrics sink for both decision paths.
var (
	_ routing.DecisionRecorder      = (*Provider)(nil)
	_ escalation.EscalationRecorder = (*Provider)(nil)
)

func TestDisabledProviderIsInert(t *testing.T) {
	p, err := New(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)

	// No counters are registered; recording must not panic.
	p.RecordDecision(context.Background(), "support", false)
	p.RecordEscalation(context.Background(), "on_call", "completed")
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "switchboard", cfg.ServiceName)
	assert.Equal(t, 1.0, cfg.SampleRate)
	assert.True(t, cfg.Enabled)
}
