// Package escalation hands AI-handled calls to humans. A per-user HITL
// configuration picks one of four target strategies; each escalation
// then runs through a small state machine with bounded attempts.
package escalation

import (
	"errors"
	"time"

	"github.com/connectline-io/switchboard/pkg/schedule"
	"github.com/connectline-io/switchboard/pkg/signals"
	"github.com/connectline-io/switchboard/pkg/tenants"
)

var (
	// ErrNoConfig is returned when a user has no escalation
	// configuration. Administrative misconfiguration is surfaced, not
	// silently papered over.
	ErrNoConfig = errors.New("escalation: no configuration for user")

	// ErrMaxAttempts is returned when an escalation has exhausted its
	// attempt budget.
	ErrMaxAttempts = errors.New("escalation: max attempts reached")
)

// Strategy picks how a target number is resolved.
type Strategy string

const (
	StrategyOnCall        Strategy = "on_call"
	StrategyRingGroup     Strategy = "ring_group"
	StrategyBusinessHours Strategy = "business_hours"
	StrategyAgentPool     Strategy = "agent_pool"
)

// Availability is an agent's current state.
type Availability string

const (
	AgentAvailable Availability = "available"
	AgentBusy      Availability = "busy"
	AgentOffline   Availability = "offline"
)

// Agent is a human agent in a pool. CurrentCalls mirrors the store-side
// counter; the counter, not this field, is authoritative when claims
// race.
type Agent struct {
	ID                 string       `json:"id"`
	Name               string       `json:"name,omitempty"`
	PhoneNumber        string       `json:"phone_number"`
	Skills             []string     `json:"skills,omitempty"`
	Availability       Availability `json:"availability"`
	CurrentCalls       int          `json:"current_calls"`
	MaxConcurrentCalls int          `json:"max_concurrent_calls"`
}

// HasSkill reports whether the agent covers any of the required skills.
// An empty requirement matches every agent.
func (a Agent) HasSkill(required []string) bool {
	if len(required) == 0 {
		return true
	}
	for _, need := range required {
		for _, have := range a.Skills {
			if need == have {
				return true
			}
		}
	}
	return false
}

// EscalationRule is a tenant-authored trigger kept on the config.
type EscalationRule struct {
	Condition string `json:"condition"`
	Value     string `json:"value"`
	Action    string `json:"action"`
	Target    string `json:"target,omitempty"`
	Priority  int    `json:"priority"`
}

// HITLConfig is the per-user escalation configuration. It is TTL-backed
// in the store and re-created when expired.
type HITLConfig struct {
	UserID        string                  `json:"user_id"`
	Strategy      Strategy                `json:"strategy"`
	PrimaryNumber string                  `json:"primary_number"`
	RingGroup     []string                `json:"ring_group,omitempty"`
	BusinessHours *schedule.BusinessHours `json:"business_hours,omitempty"`
	Agents        []Agent                 `json:"agents,omitempty"`
	Rules         []EscalationRule        `json:"rules,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
}

// Status is the escalation lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// DefaultMaxAttempts bounds how often a single escalation may be
// executed. Retries themselves are driven by the telephony layer.
const DefaultMaxAttempts = 3

// CallEscalation tracks one handoff attempt chain. Terminal states are
// not retried automatically.
type CallEscalation struct {
	ID          string    `json:"id"`
	CallID      string    `json:"call_id"`
	UserID      string    `json:"user_id"`
	Reason      string    `json:"reason"`
	Strategy    Strategy  `json:"strategy"`
	Target      string    `json:"target"`
	Status      Status    `json:"status"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"max_attempts"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Context carries call signals into target resolution.
type Context struct {
	Intent    signals.Intent       `json:"intent,omitempty"`
	Sentiment float64              `json:"sentiment"`
	Tier      tenants.CustomerTier `json:"tier,omitempty"`
	Message   string               `json:"message,omitempty"`
}

// RequiredSkills maps the call context to the skills an agent needs.
// Callers near the negative sentiment floor additionally need someone
// trained in conflict resolution.
func RequiredSkills(c Context) []string {
	var skills []string
	switch c.Intent {
	case signals.IntentBilling:
		skills = append(skills, "billing")
	case signals.IntentSupport:
		skills = append(skills, "technical")
	case signals.IntentSales:
		skills = append(skills, "sales")
	default:
		skills = append(skills, "general")
	}
	if c.Sentiment > 0 && c.Sentiment < 0.4 {
		skills = append(skills, "conflict_resolution")
	}
	return skills
}

// NewOnCallConfig builds a config that always targets one number.
func NewOnCallConfig(userID, primaryNumber string) *HITLConfig {
	return newConfig(userID, StrategyOnCall, primaryNumber)
}

// NewRingGroupConfig builds a config targeting the first ring-group
// entry, falling back to the primary number.
func NewRingGroupConfig(userID, primaryNumber string, ringGroup []string) *HITLConfig {
	cfg := newConfig(userID, StrategyRingGroup, primaryNumber)
	cfg.RingGroup = ringGroup
	return cfg
}

// NewBusinessHoursConfig builds a config that resolves targets through
// a business-hours calendar.
func NewBusinessHoursConfig(userID, primaryNumber string, hours schedule.BusinessHours) *HITLConfig {
	cfg := newConfig(userID, StrategyBusinessHours, primaryNumber)
	cfg.BusinessHours = &hours
	return cfg
}

// NewAgentPoolConfig builds a config that matches calls to a skill-based
// agent pool.
func NewAgentPoolConfig(userID, primaryNumber string, agents []Agent) *HITLConfig {
	cfg := newConfig(userID, StrategyAgentPool, primaryNumber)
	cfg.Agents = agents
	return cfg
}

func newConfig(userID string, strategy Strategy, primaryNumber string) *HITLConfig {
	now := time.Now().UTC()
	return &HITLConfig{
		UserID:        userID,
		Strategy:      strategy,
		PrimaryNumber: primaryNumber,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
