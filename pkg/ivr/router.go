// Package ivr is the multi-tenant entry point for inbound calls: it
// resolves the tenant from the dialed toll-free number, evaluates tenant
// routing rules, and falls back to the generic routing engine when no
// rule matches. Caller-facing paths always return a usable result.
package ivr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/connectline-io/switchboard/pkg/audit"
	"github.com/connectline-io/switchboard/pkg/routing"
	"github.com/connectline-io/switchboard/pkg/signals"
	"github.com/connectline-io/switchboard/pkg/tenants"
)

// ErrNoDepartments is logged and surfaced as an error result when a
// tenant has no active department to take the call.
var ErrNoDepartments = errors.New("ivr: no available departments")

// Action tells the telephony layer what to do next.
type Action string

const (
	ActionSpeakAndGather Action = "speak_and_gather"
	ActionRouteToNumber  Action = "route_to_number"
	ActionError          Action = "error"
)

// CallResult is the caller-facing instruction for one IVR turn.
type CallResult struct {
	Action      Action               `json:"action"`
	Message     string               `json:"message"`
	Departments []tenants.Department `json:"departments,omitempty"`
	TransferTo  string               `json:"transfer_to,omitempty"`
}

// Router drives tenant IVR interactions.
type Router struct {
	prov      *tenants.Provisioner
	engine    *routing.Engine
	extractor *signals.Extractor
	rules     *RuleEvaluator
	auditor   audit.Logger
	logger    *slog.Logger
	clock     func() time.Time
}

// NewRouter wires the IVR entry point. The extractor should share its
// vocabulary with the engine so both paths classify intent identically.
func NewRouter(prov *tenants.Provisioner, engine *routing.Engine, extractor *signals.Extractor, rules *RuleEvaluator, auditor audit.Logger, logger *slog.Logger) *Router {
	if extractor == nil {
		extractor = signals.NewExtractor(nil)
	}
	if auditor == nil {
		auditor = audit.Nop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		prov:      prov,
		engine:    engine,
		extractor: extractor,
		rules:     rules,
		auditor:   auditor,
		logger:    logger,
		clock:     time.Now,
	}
}

// WithClock overrides the clock for deterministic testing.
func (r *Router) WithClock(clock func() time.Time) *Router {
	r.clock = clock
	return r
}

// ProcessTenantCall handles one IVR turn. With no user input yet it
// returns a greeting and the department menu; with input it routes the
// call. It never returns an error: failures become error-action results
// so the telephony layer can play a message and hang up cleanly.
func (r *Router) ProcessTenantCall(ctx context.Context, tollFreeNumber, callerID, userInput string) CallResult {
	tenant, err := r.prov.GetTenantByTollFreeNumber(ctx, tollFreeNumber)
	if err != nil {
		r.logger.Warn("inbound call for unknown number", "number", tollFreeNumber)
		return CallResult{
			Action:  ActionError,
			Message: "We're sorry, this number is not in service.",
		}
	}

	if !tenant.IsActive() {
		r.logger.Info("refusing call for suspended tenant", "tenant_id", tenant.ID)
		return CallResult{
			Action:  ActionError,
			Message: "We're sorry, this business is currently unavailable.",
		}
	}

	cust, err := r.prov.GetOrCreateCustomerContext(ctx, tenant.ID, callerID)
	if err != nil {
		r.logger.Warn("failed to load customer context, using defaults",
			"tenant_id", tenant.ID, "error", err)
		cust = &tenants.CustomerContext{TenantID: tenant.ID, PhoneNumber: callerID, Tier: tenants.TierBasic}
	}

	now := r.clock()
	open := tenant.Settings.BusinessHours.WithinHours(now)

	if userInput == "" {
		return r.greet(tenant, now, open)
	}
	return r.routeToDepartment(ctx, tenant, cust, userInput, callerID, now, open)
}

// greet builds the opening prompt with the tenant's greeting and active
// department menu.
func (r *Router) greet(tenant *tenants.Tenant, now time.Time, open bool) CallResult {
	message := tenant.Settings.BusinessHours.Greeting(now, open)
	if message == "" {
		if open {
			message = fmt.Sprintf("Thank you for calling %s. How can we help you today?", tenant.CompanyName)
		} else {
			message = fmt.Sprintf("Thank you for calling %s. We are currently closed.", tenant.CompanyName)
		}
	}
	return CallResult{
		Action:      ActionSpeakAndGather,
		Message:     message,
		Departments: tenant.ActiveDepartments(),
	}
}

// routeToDepartment walks tenant rules in department-then-rule order;
// the first match wins. With no match it asks the generic routing
// engine, maps the decided agent type onto the tenant's roster, and as
// a last resort takes the first active department.
func (r *Router) routeToDepartment(ctx context.Context, tenant *tenants.Tenant, cust *tenants.CustomerContext, userInput, callerID string, now time.Time, open bool) CallResult {
	active := tenant.ActiveDepartments()
	if len(active) == 0 {
		r.logger.Error("tenant has no active departments", "tenant_id", tenant.ID, "error", ErrNoDepartments)
		return CallResult{
			Action:  ActionError,
			Message: "We're sorry, no one is available to take your call.",
		}
	}

	in := RuleInput{
		Intent:    r.extractor.ClassifyIntent(userInput),
		Sentiment: r.extractor.ScoreSentiment(userInput),
		Tier:      cust.Tier,
		Hour:      now.Hour(),
		Input:     userInput,
	}

	for _, dept := range active {
		for _, rule := range dept.Rules {
			matched, err := r.rules.Evaluate(rule, in)
			if err != nil {
				r.logger.Warn("skipping unevaluable routing rule",
					"tenant_id", tenant.ID, "department", dept.Name, "error", err)
				continue
			}
			if matched {
				return r.transferResult(ctx, tenant, dept, callerID, "rule")
			}
		}
	}

	// No tenant rule fired; let the generic engine decide and map its
	// agent type onto the tenant's roster.
	outcome := r.engine.RouteCall(ctx, callerID, userInput, routing.CallerContext{
		Tier:       cust.Tier,
		AfterHours: !open,
	})
	if dept, ok := findByType(active, departmentTypeFor(outcome.Decision.AgentType)); ok {
		return r.transferResult(ctx, tenant, dept, callerID, "engine")
	}

	// Last resort: the first active department takes the call.
	return r.transferResult(ctx, tenant, active[0], callerID, "first_active")
}

func (r *Router) transferResult(ctx context.Context, tenant *tenants.Tenant, dept tenants.Department, callerID, via string) CallResult {
	message := dept.Greeting
	if message == "" {
		message = fmt.Sprintf("Connecting you to %s.", dept.Name)
	}

	_ = r.prov.RecordInteraction(ctx, tenant.ID, callerID, tenants.Interaction{
		Kind:    "call_routed",
		Summary: dept.Name,
	})
	_ = r.auditor.Record(ctx, audit.EventRouting, "tenant_call_routed", audit.Event{
		TenantID: tenant.ID,
		CallID:   callerID,
		Metadata: map[string]any{"department": dept.Name, "via": via},
	})

	return CallResult{
		Action:     ActionRouteToNumber,
		Message:    message,
		TransferTo: dept.PhoneNumber,
	}
}

func findByType(depts []tenants.Department, t tenants.DepartmentType) (tenants.Department, bool) {
	for _, d := range depts {
		if d.Type == t {
			return d, true
		}
	}
	return tenants.Department{}, false
}

func departmentTypeFor(agent routing.AgentType) tenants.DepartmentType {
	switch agent {
	case routing.AgentSales:
		return tenants.DeptSales
	case routing.AgentBilling:
		return tenants.DeptBilling
	default:
		return tenants.DeptSupport
	}
}
