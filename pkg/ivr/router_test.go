package ivr

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connectline-io/switchboard/pkg/config"
	"github.com/connectline-io/switchboard/pkg/routing"
	"github.com/connectline-io/switchboard/pkg/store"
	"github.com/connectline-io/switchboard/pkg/tenants"
)

type fixture struct {
	router *Router
	prov   *tenants.Provisioner
	tenant *tenants.Tenant
}

// Monday 10:00 UTC, inside the default 9-to-5 window.
var openClock = func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) }

// Monday 22:00 UTC.
var closedClock = func() time.Time { return time.Date(2026, 3, 2, 22, 0, 0, 0, time.UTC) }

func newFixture(t *testing.T, clock func() time.Time) *fixture {
	t.Helper()

	st := store.NewMemoryStore()
	prov := tenants.NewProvisioner(st, time.Hour)
	engine := routing.NewEngine(nil, routing.DefaultDirectory(config.Load()), st, nil, nil, 24*time.Hour)
	rules, err := NewRuleEvaluator()
	require.NoError(t, err)

	tenant, err := prov.CreateTenant(context.Background(), "user-1", "Acme Plumbing", "+18005550100", nil)
	require.NoError(t, err)

	router := NewRouter(prov, engine, nil, rules, nil, nil).WithClock(clock)
	return &fixture{router: router, prov: prov, tenant: tenant}
}

func (f *fixture) addDepartment(t *testing.T, dept tenants.Department) tenants.Department {
	t.Helper()
	created, err := f.prov.AddDepartment(context.Background(), f.tenant.ID, dept)
	require.NoError(t, err)
	return *created
}

func TestProcessTenantCallUnknownNumber(t *testing.T) {
	f := newFixture(t, openClock)

	res := f.router.ProcessTenantCall(context.Background(), "+18005559999", "+12125550000", "")
	assert.Equal(t, ActionError, res.Action)
}

func TestProcessTenantCallSuspendedTenant(t *testing.T) {
	f := newFixture(t, openClock)
	require.NoError(t, f.prov.SuspendTenant(context.Background(), f.tenant.ID))

	res := f.router.ProcessTenantCall(context.Background(), "+18005550100", "+12125550000", "")
	assert.Equal(t, ActionError, res.Action)
}

func TestProcessTenantCallGreetingDuringHours(t *testing.T) {
	f := newFixture(t, openClock)
	f.addDepartment(t, tenants.Department{Name: "Support", Type: tenants.DeptSupport, PhoneNumber: "+15551110000", Active: true})

	res := f.router.ProcessTenantCall(context.Background(), "+18005550100", "+12125550000", "")
	assert.Equal(t, ActionSpeakAndGather, res.Action)
	assert.Contains(t, res.Message, "Acme Plumbing")
	assert.NotContains(t, res.Message, "closed")
	require.Len(t, res.Departments, 1)
}

func TestProcessTenantCallGreetingAfterHours(t *testing.T) {
	f := newFixture(t, closedClock)

	res := f.router.ProcessTenantCall(context.Background(), "+18005550100", "+12125550000", "")
	assert.Equal(t, ActionSpeakAndGather, res.Action)
	assert.Contains(t, res.Message, "closed")
}

func TestProcessTenantCallCustomGreeting(t *testing.T) {
	f := newFixture(t, openClock)

	settings := f.tenant.Settings
	settings.BusinessHours.Weekday.Greeting = "Welcome to Acme, your plumbing partner."
	_, err := f.prov.UpdateSettings(context.Background(), f.tenant.ID, settings)
	require.NoError(t, err)

	res := f.router.ProcessTenantCall(context.Background(), "+18005550100", "+12125550000", "")
	assert.Equal(t, "Welcome to Acme, your plumbing partner.", res.Message)
}

func TestProcessTenantCallRuleMatchWins(t *testing.T) {
	f := newFixture(t, openClock)
	f.addDepartment(t, tenants.Department{
		Name: "Retention", Type: tenants.DeptSupport, PhoneNumber: "+15551110001", Active: true,
		Rules: []tenants.RoutingRule{
			{Condition: tenants.CondKeyword, Operator: tenants.OpContains, Value: "cancel"},
		},
	})
	f.addDepartment(t, tenants.Department{Name: "Billing", Type: tenants.DeptBilling, PhoneNumber: "+15551110002", Active: true})

	// "bill" would classify as billing, but the retention rule fires
	// first in department order.
	res := f.router.ProcessTenantCall(context.Background(), "+18005550100", "+12125550000", "cancel my bill")
	assert.Equal(t, ActionRouteToNumber, res.Action)
	assert.Equal(t, "+15551110001", res.TransferTo)
}

func TestProcessTenantCallExpressionRule(t *testing.T) {
	f := newFixture(t, closedClock)
	f.addDepartment(t, tenants.Department{
		Name: "Night Desk", Type: tenants.DeptSupport, PhoneNumber: "+15551110003", Active: true,
		Rules: []tenants.RoutingRule{
			{Condition: tenants.CondExpression, Value: `hour >= 17 || hour < 9`},
		},
	})

	res := f.router.ProcessTenantCall(context.Background(), "+18005550100", "+12125550000", "anyone there?")
	assert.Equal(t, ActionRouteToNumber, res.Action)
	assert.Equal(t, "+15551110003", res.TransferTo)
}

func TestProcessTenantCallEngineFallback(t *testing.T) {
	f := newFixture(t, openClock)
	f.addDepartment(t, tenants.Department{Name: "Support", Type: tenants.DeptSupport, PhoneNumber: "+15551110000", Active: true})
	f.addDepartment(t, tenants.Department{Name: "Billing", Type: tenants.DeptBilling, PhoneNumber: "+15551110002", Active: true})

	// No rules anywhere: the generic engine classifies billing and the
	// matching department type takes the call.
	res := f.router.ProcessTenantCall(context.Background(), "+18005550100", "+12125550000", "I need help with my bill")
	assert.Equal(t, ActionRouteToNumber, res.Action)
	assert.Equal(t, "+15551110002", res.TransferTo)
}

func TestProcessTenantCallFallsBackToFirstActive(t *testing.T) {
	f := newFixture(t, openClock)
	f.addDepartment(t, tenants.Department{Name: "Closed Desk", Type: tenants.DeptSales, PhoneNumber: "+15551110009", Active: false})
	support := f.addDepartment(t, tenants.Department{Name: "Support", Type: tenants.DeptSupport, PhoneNumber: "+15551110000", Active: true})

	// Billing input, but the only active department is support.
	res := f.router.ProcessTenantCall(context.Background(), "+18005550100", "+12125550000", "question about my invoice")
	assert.Equal(t, ActionRouteToNumber, res.Action)
	assert.Equal(t, support.PhoneNumber, res.TransferTo)
}

func TestProcessTenantCallNoActiveDepartments(t *testing.T) {
	f := newFixture(t, openClock)
	f.addDepartment(t, tenants.Department{Name: "Sales", Type: tenants.DeptSales, PhoneNumber: "+15551110009", Active: false})

	res := f.router.ProcessTenantCall(context.Background(), "+18005550100", "+12125550000", "hello")
	assert.Equal(t, ActionError, res.Action)
}

func TestProcessTenantCallRecordsInteraction(t *testing.T) {
	f := newFixture(t, openClock)
	f.addDepartment(t, tenants.Department{Name: "Support", Type: tenants.DeptSupport, PhoneNumber: "+15551110000", Active: true})
	ctx := context.Background()

	f.router.ProcessTenantCall(ctx, "+18005550100", "+12125550000", "it is broken")

	cust, err := f.prov.GetOrCreateCustomerContext(ctx, f.tenant.ID, "+12125550000")
	require.NoError(t, err)
	require.Len(t, cust.History, 1)
	assert.Equal(t, "call_routed", cust.History[0].Kind)
}

func TestProcessTenantCallDepartmentGreetingUsed(t *testing.T) {
	f := newFixture(t, openClock)
	f.addDepartment(t, tenants.Department{
		Name: "Support", Type: tenants.DeptSupport, PhoneNumber: "+15551110000",
		Greeting: "You have reached support.", Active: true,
	})

	res := f.router.ProcessTenantCall(context.Background(), "+18005550100", "+12125550000", "help me")
	assert.Equal(t, "You have reached support.", res.Message)
}
