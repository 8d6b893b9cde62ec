// Package tenants provides tenant lifecycle management: provisioning,
// department rosters, settings, suspension, and the cached per-caller
// customer context.
package tenants

import (
	"time"

	"github.com/connectline-io/switchboard/pkg/schedule"
)

// Status represents the current status of a tenant.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

// DepartmentType classifies what a department handles.
type DepartmentType string

const (
	DeptSales     DepartmentType = "sales"
	DeptSupport   DepartmentType = "support"
	DeptBilling   DepartmentType = "billing"
	DeptTechnical DepartmentType = "technical"
)

// CustomerTier is the service tier of a caller.
type CustomerTier string

const (
	TierBasic      CustomerTier = "basic"
	TierPremium    CustomerTier = "premium"
	TierEnterprise CustomerTier = "enterprise"
)

// UrgencyMultiplier is the tier's weight in urgency scoring.
func (t CustomerTier) UrgencyMultiplier() float64 {
	switch t {
	case TierEnterprise:
		return 1.5
	case TierPremium:
		return 1.2
	default:
		return 1.0
	}
}

// ConditionKind names what a routing rule inspects.
type ConditionKind string

const (
	CondIntent     ConditionKind = "intent"
	CondSentiment  ConditionKind = "sentiment"
	CondTier       ConditionKind = "customer_tier"
	CondTimeOfDay  ConditionKind = "time_of_day"
	CondKeyword    ConditionKind = "keyword"
	CondExpression ConditionKind = "expression"
)

// Operator compares a signal against a rule's value.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpContains    Operator = "contains"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpBetween     Operator = "between"
)

// RoutingRule steers a call to its department when the condition holds.
// Value is a string, a number, or a [min, max] pair for between; for
// expression rules it is a CEL source string and Operator is ignored.
type RoutingRule struct {
	Condition ConditionKind `json:"condition"`
	Operator  Operator      `json:"operator,omitempty"`
	Value     any           `json:"value"`
	Priority  int           `json:"priority"`
}

// Department belongs to exactly one tenant.
type Department struct {
	ID          string         `json:"id"`
	TenantID    string         `json:"tenant_id"`
	Name        string         `json:"name"`
	Type        DepartmentType `json:"type"`
	Greeting    string         `json:"greeting,omitempty"`
	PhoneNumber string         `json:"phone_number"`
	Active      bool           `json:"active"`
	Rules       []RoutingRule  `json:"rules,omitempty"`
}

// Settings holds per-tenant behavior configuration.
type Settings struct {
	Timezone      string                 `json:"timezone"`
	Language      string                 `json:"language"`
	BusinessHours schedule.BusinessHours `json:"business_hours"`
	Branding      map[string]string      `json:"branding,omitempty"`
	Notifications map[string]bool        `json:"notifications,omitempty"`
}

// Tenant is a business customer identified by its toll-free number.
// Tenants are never hard-deleted; suspension flips Status only.
type Tenant struct {
	ID             string       `json:"id"`
	UserID         string       `json:"user_id"`
	CompanyName    string       `json:"company_name"`
	TollFreeNumber string       `json:"toll_free_number"`
	Status         Status       `json:"status"`
	Settings       Settings     `json:"settings"`
	Departments    []Department `json:"departments"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// IsActive returns true if the tenant is active.
func (t *Tenant) IsActive() bool {
	return t.Status == StatusActive
}

// ActiveDepartments returns the departments currently taking calls, in
// definition order.
func (t *Tenant) ActiveDepartments() []Department {
	var active []Department
	for _, d := range t.Departments {
		if d.Active {
			active = append(active, d)
		}
	}
	return active
}

// Interaction is one entry in a customer's history.
type Interaction struct {
	Kind       string    `json:"kind"`
	Summary    string    `json:"summary,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// CustomerContext is the cached per-caller profile, created with
// defaults on first lookup and refreshed on every touch.
type CustomerContext struct {
	TenantID    string            `json:"tenant_id"`
	PhoneNumber string            `json:"phone_number"`
	Tier        CustomerTier      `json:"tier"`
	History     []Interaction     `json:"history,omitempty"`
	Preferences map[string]string `json:"preferences,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	FirstSeenAt time.Time         `json:"first_seen_at"`
}
