package routing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/connectline-io/switchboard/pkg/audit"
	"github.com/connectline-io/switchboard/pkg/signals"
	"github.com/connectline-io/switchboard/pkg/tenants"
)

const tracerName = "switchboard/routing"

// LogEntry is one audit record in the per-day routing log list.
type LogEntry struct {
	CallID    string    `json:"call_id"`
	Input     string    `json:"input"`
	Tier      string    `json:"tier,omitempty"`
	Outcome   Outcome   `json:"outcome"`
	Timestamp time.Time `json:"timestamp"`
}

// LogStore is the slice of the state store the engine writes its per-day
// routing log to.
type LogStore interface {
	ListAppend(ctx context.Context, key string, value any) error
	ListRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// DecisionRecorder counts routed decisions, satisfied by the
// observability provider.
type DecisionRecorder interface {
	RecordDecision(ctx context.Context, agentType string, fallback bool)
}

// Engine computes routing decisions. Safe for concurrent use: all state
// is read-only after construction.
type Engine struct {
	extractor *signals.Extractor
	directory Directory
	logs      LogStore
	auditor   audit.Logger
	logger    *slog.Logger
	tracer    trace.Tracer
	metrics   DecisionRecorder
	logTTL    time.Duration
	clock     func() time.Time
}

// NewEngine wires a routing engine. A nil extractor uses the default
// vocabulary; a nil logger discards.
func NewEngine(extractor *signals.Extractor, directory Directory, logs LogStore, auditor audit.Logger, logger *slog.Logger, logTTL time.Duration) *Engine {
	if extractor == nil {
		extractor = signals.NewExtractor(nil)
	}
	if auditor == nil {
		auditor = audit.Nop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		extractor: extractor,
		directory: directory,
		logs:      logs,
		auditor:   auditor,
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
		logTTL:    logTTL,
		clock:     time.Now,
	}
}

// WithClock overrides the clock for deterministic testing.
func (e *Engine) WithClock(clock func() time.Time) *Engine {
	e.clock = clock
	return e
}

// WithMetrics installs a decision counter. A nil engine metrics field
// disables counting.
func (e *Engine) WithMetrics(metrics DecisionRecorder) *Engine {
	e.metrics = metrics
	return e
}

// RouteCall scores the utterance and produces a decision. It never
// returns an error: any internal failure, including a panic in the
// scoring path, degrades to the fixed fallback outcome so the live call
// keeps moving.
func (e *Engine) RouteCall(ctx context.Context, callID, userInput string, caller CallerContext) (outcome Outcome) {
	ctx, span := e.tracer.Start(ctx, "routing.RouteCall",
		trace.WithAttributes(attribute.String("call.id", callID)))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("routing pipeline panicked, using fallback",
				"call_id", callID, "panic", fmt.Sprint(r))
			outcome = FallbackOutcome(fmt.Sprintf("panic: %v", r))
			e.appendLog(ctx, callID, userInput, caller, outcome)
		}
		span.SetAttributes(
			attribute.String("routing.agent_type", string(outcome.Decision.AgentType)),
			attribute.String("routing.priority", string(outcome.Decision.Priority)),
			attribute.Bool("routing.fallback", outcome.Fallback),
		)
		if e.metrics != nil {
			e.metrics.RecordDecision(ctx, string(outcome.Decision.AgentType), outcome.Fallback)
		}
	}()

	tier := caller.Tier
	if tier == "" {
		tier = tenants.TierBasic
	}

	sig := e.extractor.Extract(userInput, tier.UrgencyMultiplier(), caller.AfterHours)

	agentType := determineAgentType(sig, tier)
	dept, ok := e.directory[agentType]
	if !ok {
		outcome = FallbackOutcome(fmt.Sprintf("no directory entry for %s", agentType))
		e.appendLog(ctx, callID, userInput, caller, outcome)
		return outcome
	}

	decision := Decision{
		AgentType:  agentType,
		Confidence: e.calculateConfidence(sig, tier),
		Reason:     reasonFor(sig),
		Department: dept.Name,
		Priority:   determinePriority(sig.Urgency, sig.Sentiment, tier),
	}
	outcome = Resolved(decision)

	e.logger.Debug("routed call",
		"call_id", callID,
		"intent", string(sig.Intent),
		"agent_type", string(agentType),
		"priority", string(decision.Priority),
		"confidence", decision.Confidence)

	e.appendLog(ctx, callID, userInput, caller, outcome)
	return outcome
}

// Directory exposes the destination table, used by the IVR router's
// generic fallback path.
func (e *Engine) Directory() Directory {
	return e.directory
}

// DecisionsForDay returns the audit entries logged on the given day.
func (e *Engine) DecisionsForDay(ctx context.Context, day time.Time) ([][]byte, error) {
	if e.logs == nil {
		return nil, nil
	}
	return e.logs.ListRange(ctx, logKey(day), 0, -1)
}

// determineAgentType applies the special cases before the direct
// intent mapping: money emergencies go to billing, happy sales callers
// stay in sales, enterprise support stays in support.
func determineAgentType(sig signals.Signals, tier tenants.CustomerTier) AgentType {
	switch {
	case sig.Intent == signals.IntentBilling && sig.Urgency == signals.UrgencyCritical:
		return AgentBilling
	case sig.Intent == signals.IntentSales && sig.Sentiment > 0.6:
		return AgentSales
	case tier == tenants.TierEnterprise && sig.Intent == signals.IntentSupport:
		return AgentSupport
	default:
		return agentTypeForIntent(sig.Intent)
	}
}

// calculateConfidence is a weighted sum over the extracted signals. The
// weights can push the raw sum past 1.0, which is clipped; the floor is
// the 0.5 base since every term is non-negative.
func (e *Engine) calculateConfidence(sig signals.Signals, tier tenants.CustomerTier) float64 {
	confidence := 0.5

	relevant := e.extractor.Vocabulary().RelevantKeywords(sig.Intent)
	if len(relevant) > 0 {
		matched := 0
		for _, keyword := range sig.Keywords {
			for _, r := range relevant {
				if keyword == r {
					matched++
					break
				}
			}
		}
		confidence += 0.4 * float64(matched) / float64(len(relevant))
	}

	// Distance from neutral sentiment, normalized to [0,1].
	confidence += 0.2 * (abs(sig.Sentiment-0.5) * 2)

	confidence += 0.2 * urgencyWeight(sig.Urgency)
	confidence += 0.2 * tierWeight(tier)

	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

// determinePriority is the fixed decision table over urgency, sentiment
// and tier.
func determinePriority(urgency signals.Urgency, sentiment float64, tier tenants.CustomerTier) Priority {
	enterprise := tier == tenants.TierEnterprise
	premium := tier == tenants.TierPremium

	switch {
	case urgency == signals.UrgencyCritical,
		enterprise && sentiment < 0.3,
		urgency == signals.UrgencyHigh && sentiment < 0.3:
		return PriorityCritical
	case urgency == signals.UrgencyHigh,
		premium && sentiment < 0.4,
		enterprise:
		return PriorityHigh
	case urgency == signals.UrgencyMedium,
		premium,
		sentiment < 0.5:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

func urgencyWeight(u signals.Urgency) float64 {
	switch u {
	case signals.UrgencyCritical:
		return 0.9
	case signals.UrgencyHigh:
		return 0.7
	case signals.UrgencyMedium:
		return 0.5
	default:
		return 0.3
	}
}

func tierWeight(t tenants.CustomerTier) float64 {
	switch t {
	case tenants.TierEnterprise:
		return 0.9
	case tenants.TierPremium:
		return 0.7
	default:
		return 0.5
	}
}

func reasonFor(sig signals.Signals) string {
	return fmt.Sprintf("intent=%s sentiment=%.1f urgency=%s keywords=%d",
		sig.Intent, sig.Sentiment, sig.Urgency, len(sig.Keywords))
}

func (e *Engine) appendLog(ctx context.Context, callID, input string, caller CallerContext, outcome Outcome) {
	if e.logs == nil {
		return
	}

	now := e.clock().UTC()
	key := logKey(now)
	entry := LogEntry{
		CallID:    callID,
		Input:     input,
		Tier:      string(caller.Tier),
		Outcome:   outcome,
		Timestamp: now,
	}
	if err := e.logs.ListAppend(ctx, key, entry); err != nil {
		e.logger.Warn("failed to append routing log", "call_id", callID, "error", err)
		return
	}
	if err := e.logs.Expire(ctx, key, e.logTTL); err != nil {
		e.logger.Warn("failed to expire routing log", "key", key, "error", err)
	}

	_ = e.auditor.Record(ctx, audit.EventRouting, "route_call", audit.Event{
		CallID: callID,
		Metadata: map[string]any{
			"agent_type": string(outcome.Decision.AgentType),
			"priority":   string(outcome.Decision.Priority),
			"department": outcome.Decision.Department,
			"fallback":   outcome.Fallback,
		},
	})
}

func logKey(day time.Time) string {
	return "routing_logs:" + day.UTC().Format("2006-01-02")
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
