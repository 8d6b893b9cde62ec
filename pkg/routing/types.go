// Package routing turns extracted call signals into a routing decision:
// which agent type takes the call, at what priority, and with how much
// confidence. Decisions are ephemeral; only the per-day audit trail is
// persisted.
package routing

import (
	"github.com/connectline-io/switchboard/pkg/config"
	"github.com/connectline-io/switchboard/pkg/signals"
	"github.com/connectline-io/switchboard/pkg/tenants"
)

// AgentType is the destination class for a routed call.
type AgentType string

const (
	AgentSales   AgentType = "sales"
	AgentSupport AgentType = "support"
	AgentBilling AgentType = "billing"
)

// Priority orders calls in the destination queue.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Decision is the routed outcome for one utterance. Confidence is always
// in [0, 1].
type Decision struct {
	AgentType  AgentType `json:"agent_type"`
	Confidence float64   `json:"confidence"`
	Reason     string    `json:"reason"`
	Department string    `json:"department"`
	Priority   Priority  `json:"priority"`
}

// Outcome distinguishes a genuinely computed decision from the fixed
// fallback used when the pipeline fails: a fallback carries the same
// usable Decision but is marked so consumers and audits can tell them
// apart.
type Outcome struct {
	Decision       Decision `json:"decision"`
	Fallback       bool     `json:"fallback"`
	FallbackReason string   `json:"fallback_reason,omitempty"`
}

// Resolved wraps a computed decision.
func Resolved(d Decision) Outcome {
	return Outcome{Decision: d}
}

// FallbackOutcome returns the fixed safe decision with the reason the
// pipeline gave up. Routing must never block a live call on an internal
// bug, so this is always usable.
func FallbackOutcome(reason string) Outcome {
	return Outcome{
		Decision: Decision{
			AgentType:  AgentSupport,
			Confidence: 0.5,
			Reason:     "error_fallback",
			Department: "Customer Support",
			Priority:   PriorityMedium,
		},
		Fallback:       true,
		FallbackReason: reason,
	}
}

// CallerContext carries what the engine knows about the caller beyond
// the utterance itself.
type CallerContext struct {
	Tier       tenants.CustomerTier `json:"tier,omitempty"`
	AfterHours bool                 `json:"after_hours"`
}

// DepartmentInfo is one entry in the fixed destination directory.
type DepartmentInfo struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Directory maps agent types to their destination departments.
type Directory map[AgentType]DepartmentInfo

// DefaultDirectory builds the three-entry table with contact points
// taken from configuration.
func DefaultDirectory(cfg *config.Config) Directory {
	return Directory{
		AgentSales:   {Name: "Sales Team", Phone: cfg.SalesPhone, Email: cfg.SalesEmail},
		AgentSupport: {Name: "Customer Support", Phone: cfg.SupportPhone, Email: cfg.SupportEmail},
		AgentBilling: {Name: "Billing Department", Phone: cfg.BillingPhone, Email: cfg.BillingEmail},
	}
}

// agentTypeForIntent is the direct intent-to-agent mapping used when no
// special case applies.
func agentTypeForIntent(intent signals.Intent) AgentType {
	switch intent {
	case signals.IntentSales:
		return AgentSales
	case signals.IntentBilling:
		return AgentBilling
	default:
		return AgentSupport
	}
}
