package escalation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/connectline-io/switchboard/pkg/audit"
	"github.com/connectline-io/switchboard/pkg/store"
)

const (
	tracerName       = "switchboard/escalation"
	configKeyPrefix  = "hitl_config:"
	recordKeyPrefix  = "escalation:"
	agentCallsPrefix = "agent_calls:"

	recordTTL = 24 * time.Hour
)

// Transferrer is the telephony collaborator that actually moves the
// call. It lives outside this core.
type Transferrer interface {
	Transfer(ctx context.Context, callID, target string) error
}

// EscalationRecorder counts escalation outcomes, satisfied by the
// observability provider.
type EscalationRecorder interface {
	RecordEscalation(ctx context.Context, strategy, status string)
}

// Coordinator resolves escalation targets and drives the escalation
// state machine.
type Coordinator struct {
	store     store.StateStore
	transfer  Transferrer
	selector  Selector
	auditor   audit.Logger
	logger    *slog.Logger
	tracer    trace.Tracer
	metrics   EscalationRecorder
	configTTL time.Duration
	clock     func() time.Time
}

// NewCoordinator wires a coordinator. A nil selector gets the uniform
// random default; configTTL bounds stored HITL configurations.
func NewCoordinator(st store.StateStore, transfer Transferrer, selector Selector, auditor audit.Logger, logger *slog.Logger, configTTL time.Duration) *Coordinator {
	if selector == nil {
		selector = NewRandomSelector(time.Now().UnixNano())
	}
	if auditor == nil {
		auditor = audit.Nop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:     st,
		transfer:  transfer,
		selector:  selector,
		auditor:   auditor,
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
		configTTL: configTTL,
		clock:     time.Now,
	}
}

// WithClock overrides the clock for deterministic testing.
func (c *Coordinator) WithClock(clock func() time.Time) *Coordinator {
	c.clock = clock
	return c
}

// WithMetrics installs an escalation counter. A nil metrics field
// disables counting.
func (c *Coordinator) WithMetrics(metrics EscalationRecorder) *Coordinator {
	c.metrics = metrics
	return c
}

// SaveConfig persists a user's HITL configuration with the config TTL.
// An expired config is simply re-created by the admin surface.
func (c *Coordinator) SaveConfig(ctx context.Context, cfg *HITLConfig) error {
	cfg.UpdatedAt = c.clock().UTC()
	if err := c.store.SetWithExpiry(ctx, configKeyPrefix+cfg.UserID, cfg, c.configTTL); err != nil {
		return fmt.Errorf("escalation: failed to save config for %s: %w", cfg.UserID, err)
	}
	return nil
}

// LoadConfig fetches a user's HITL configuration.
func (c *Coordinator) LoadConfig(ctx context.Context, userID string) (*HITLConfig, error) {
	var cfg HITLConfig
	err := c.store.Get(ctx, configKeyPrefix+userID, &cfg)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoConfig
	}
	if err != nil {
		return nil, fmt.Errorf("escalation: failed to load config for %s: %w", userID, err)
	}
	return &cfg, nil
}

// GetEscalation fetches an escalation record by id.
func (c *Coordinator) GetEscalation(ctx context.Context, id string) (*CallEscalation, error) {
	var esc CallEscalation
	if err := c.store.Get(ctx, recordKeyPrefix+id, &esc); err != nil {
		return nil, fmt.Errorf("escalation: failed to load %s: %w", id, err)
	}
	return &esc, nil
}

// ProcessEscalation resolves a target for the call and executes the
// handoff. Configuration problems and transfer failures propagate to the
// caller; the escalation record always reflects the final state.
func (c *Coordinator) ProcessEscalation(ctx context.Context, callID, userID, reason string, callCtx Context) (*CallEscalation, error) {
	ctx, span := c.tracer.Start(ctx, "escalation.ProcessEscalation",
		trace.WithAttributes(
			attribute.String("call.id", callID),
			attribute.String("user.id", userID),
		))
	defer span.End()

	cfg, err := c.LoadConfig(ctx, userID)
	if err != nil {
		return nil, err
	}

	target, err := c.determineTarget(ctx, cfg, callCtx)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("escalation.strategy", string(cfg.Strategy)))

	now := c.clock().UTC()
	esc := &CallEscalation{
		ID:          uuid.New().String(),
		CallID:      callID,
		UserID:      userID,
		Reason:      reason,
		Strategy:    cfg.Strategy,
		Target:      target,
		Status:      StatusPending,
		MaxAttempts: DefaultMaxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := c.saveEscalation(ctx, esc); err != nil {
		return nil, err
	}

	_ = c.auditor.Record(ctx, audit.EventEscalation, "escalation_created", audit.Event{
		CallID: callID,
		Metadata: map[string]any{
			"escalation_id": esc.ID,
			"strategy":      string(cfg.Strategy),
			"target":        target,
			"reason":        reason,
		},
	})

	if err := c.ExecuteEscalation(ctx, esc); err != nil {
		return esc, err
	}
	return esc, nil
}

// ExecuteEscalation drives one attempt of the state machine:
// pending/failed -> in_progress -> completed, or failed with the error
// propagated. The telephony layer may re-invoke this on a failed record
// until the attempt budget runs out.
func (c *Coordinator) ExecuteEscalation(ctx context.Context, esc *CallEscalation) error {
	if esc.Status == StatusCompleted {
		return nil
	}
	if esc.Attempts >= esc.MaxAttempts {
		return fmt.Errorf("%w: %d of %d", ErrMaxAttempts, esc.Attempts, esc.MaxAttempts)
	}

	esc.Status = StatusInProgress
	esc.Attempts++
	esc.UpdatedAt = c.clock().UTC()
	if err := c.saveEscalation(ctx, esc); err != nil {
		return err
	}

	if err := c.transfer.Transfer(ctx, esc.CallID, esc.Target); err != nil {
		esc.Status = StatusFailed
		esc.UpdatedAt = c.clock().UTC()
		if saveErr := c.saveEscalation(ctx, esc); saveErr != nil {
			c.logger.Error("failed to persist failed escalation", "id", esc.ID, "error", saveErr)
		}
		_ = c.auditor.Record(ctx, audit.EventEscalation, "escalation_failed", audit.Event{
			CallID:   esc.CallID,
			Metadata: map[string]any{"escalation_id": esc.ID, "attempt": esc.Attempts},
		})
		if c.metrics != nil {
			c.metrics.RecordEscalation(ctx, string(esc.Strategy), string(esc.Status))
		}
		return fmt.Errorf("escalation: transfer of call %s failed: %w", esc.CallID, err)
	}

	esc.Status = StatusCompleted
	esc.UpdatedAt = c.clock().UTC()
	if err := c.saveEscalation(ctx, esc); err != nil {
		return err
	}

	c.logger.Info("escalation completed",
		"escalation_id", esc.ID, "call_id", esc.CallID, "target", esc.Target, "attempts", esc.Attempts)
	_ = c.auditor.Record(ctx, audit.EventEscalation, "escalation_completed", audit.Event{
		CallID:   esc.CallID,
		Metadata: map[string]any{"escalation_id": esc.ID, "target": esc.Target},
	})
	if c.metrics != nil {
		c.metrics.RecordEscalation(ctx, string(esc.Strategy), string(esc.Status))
	}
	return nil
}

// ReleaseAgent frees one call slot for the agent, typically invoked by
// the telephony layer when the human hangs up.
func (c *Coordinator) ReleaseAgent(ctx context.Context, agentID string) error {
	return c.store.ReleaseSlot(ctx, agentCallsPrefix+agentID)
}

// determineTarget dispatches on the configured strategy.
func (c *Coordinator) determineTarget(ctx context.Context, cfg *HITLConfig, callCtx Context) (string, error) {
	switch cfg.Strategy {
	case StrategyOnCall:
		return cfg.PrimaryNumber, nil

	case StrategyRingGroup:
		if len(cfg.RingGroup) > 0 {
			return cfg.RingGroup[0], nil
		}
		return cfg.PrimaryNumber, nil

	case StrategyBusinessHours:
		if cfg.BusinessHours == nil {
			return cfg.PrimaryNumber, nil
		}
		return cfg.BusinessHours.ResolveTarget(c.clock(), cfg.PrimaryNumber), nil

	case StrategyAgentPool:
		return c.agentPoolTarget(ctx, cfg, callCtx)

	default:
		return "", fmt.Errorf("escalation: unknown strategy %q", cfg.Strategy)
	}
}

// agentPoolTarget filters the pool by availability, capacity and skills,
// then claims agents in selector order. The store-side slot claim is the
// authoritative capacity check, so two concurrent escalations cannot
// both land on an agent's last free slot. With no claimable agent the
// escalation falls back to the primary number.
func (c *Coordinator) agentPoolTarget(ctx context.Context, cfg *HITLConfig, callCtx Context) (string, error) {
	required := RequiredSkills(callCtx)

	var candidates []Agent
	for _, agent := range cfg.Agents {
		if agent.Availability != AgentAvailable {
			continue
		}
		if agent.CurrentCalls >= agent.MaxConcurrentCalls {
			continue
		}
		if !agent.HasSkill(required) {
			continue
		}
		candidates = append(candidates, agent)
	}

	for _, agent := range c.selector.Order(candidates) {
		claimed, current, err := c.store.ClaimSlot(ctx, agentCallsPrefix+agent.ID, agent.MaxConcurrentCalls)
		if err != nil {
			return "", fmt.Errorf("escalation: failed to claim agent %s: %w", agent.ID, err)
		}
		if !claimed {
			continue
		}

		// Mirror the authoritative counter into the stored config so
		// admin reads see the new load.
		for i := range cfg.Agents {
			if cfg.Agents[i].ID == agent.ID {
				cfg.Agents[i].CurrentCalls = current
				break
			}
		}
		if err := c.SaveConfig(ctx, cfg); err != nil {
			c.logger.Warn("failed to persist agent load", "agent_id", agent.ID, "error", err)
		}
		return agent.PhoneNumber, nil
	}

	c.logger.Info("agent pool exhausted, falling back to primary number",
		"user_id", cfg.UserID, "required_skills", required)
	return cfg.PrimaryNumber, nil
}

func (c *Coordinator) saveEscalation(ctx context.Context, esc *CallEscalation) error {
	if err := c.store.SetWithExpiry(ctx, recordKeyPrefix+esc.ID, esc, recordTTL); err != nil {
		return fmt.Errorf("escalation: failed to save %s: %w", esc.ID, err)
	}
	return nil
}
