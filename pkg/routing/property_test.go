// Property-based tests over the routing invariants: confidence stays in
// [0,1] and priority is a total, deterministic function of its inputs.
package routing

import (
	"context"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/connectline-io/switchboard/pkg/config"
	"github.com/connectline-io/switchboard/pkg/signals"
	"github.com/connectline-io/switchboard/pkg/tenants"
)

func genTier() gopter.Gen {
	return gen.OneConstOf(tenants.TierBasic, tenants.TierPremium, tenants.TierEnterprise)
}

func genUrgency() gopter.Gen {
	return gen.OneConstOf(signals.UrgencyLow, signals.UrgencyMedium, signals.UrgencyHigh, signals.UrgencyCritical)
}

func TestConfidenceAlwaysInRange(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	engine := NewEngine(nil, DefaultDirectory(config.Load()), nil, nil, nil, 24*time.Hour)

	properties.Property("confidence is within [0,1] for any input", prop.ForAll(
		func(input string, tier tenants.CustomerTier, afterHours bool) bool {
			out := engine.RouteCall(context.Background(), "prop-call", input, CallerContext{
				Tier:       tier,
				AfterHours: afterHours,
			})
			c := out.Decision.Confidence
			return c >= 0.0 && c <= 1.0
		},
		gen.AnyString(),
		genTier(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestPriorityDomainAndDeterminism(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("priority is total and deterministic", prop.ForAll(
		func(urgency signals.Urgency, sentiment float64, tier tenants.CustomerTier) bool {
			first := determinePriority(urgency, sentiment, tier)
			second := determinePriority(urgency, sentiment, tier)
			return valid(first) && first == second
		},
		genUrgency(),
		gen.Float64Range(0, 1),
		genTier(),
	))

	properties.TestingRun(t)
}

func TestRouteCallNeverPanicsOrFails(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	engine := NewEngine(nil, DefaultDirectory(config.Load()), nil, nil, nil, 24*time.Hour)

	properties.Property("every outcome carries a usable decision", prop.ForAll(
		func(input string) bool {
			out := engine.RouteCall(context.Background(), "prop-call", input, CallerContext{})
			return out.Decision.AgentType != "" && out.Decision.Department != "" && valid(out.Decision.Priority)
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func valid(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}
