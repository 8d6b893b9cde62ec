package tenants

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/connectline-io/switchboard/pkg/schedule"
	"github.com/connectline-io/switchboard/pkg/store"
)

var (
	// ErrTenantNotFound is returned when no tenant matches the lookup.
	ErrTenantNotFound = errors.New("tenants: tenant not found")

	// ErrNumberTaken is returned when a toll-free number already maps
	// to another tenant.
	ErrNumberTaken = errors.New("tenants: toll-free number already assigned")
)

const (
	tenantKeyPrefix   = "tenant:"
	tollFreeKeyPrefix = "tollfree:"
	customerKeyPrefix = "customer:"
)

// Provisioner handles tenant lifecycle operations against the store.
type Provisioner struct {
	store      store.StateStore
	contextTTL time.Duration
	clock      func() time.Time
}

// NewProvisioner creates a store-backed provisioner. contextTTL bounds
// the customer-context cache entries.
func NewProvisioner(st store.StateStore, contextTTL time.Duration) *Provisioner {
	return &Provisioner{
		store:      st,
		contextTTL: contextTTL,
		clock:      time.Now,
	}
}

// WithClock overrides the clock for deterministic testing.
func (p *Provisioner) WithClock(clock func() time.Time) *Provisioner {
	p.clock = clock
	return p
}

// CreateTenant provisions a tenant and claims its toll-free number in
// the reverse index. The claim is atomic: of two concurrent calls for
// the same number exactly one wins, the other gets ErrNumberTaken. The
// index is claimed before the tenant record is written so a losing call
// never leaves an orphaned tenant behind.
func (p *Provisioner) CreateTenant(ctx context.Context, userID, companyName, tollFreeNumber string, overrides *Settings) (*Tenant, error) {
	if tollFreeNumber == "" {
		return nil, fmt.Errorf("tenants: toll-free number is required")
	}

	now := p.clock().UTC()
	tenant := &Tenant{
		ID:             uuid.New().String(),
		UserID:         userID,
		CompanyName:    companyName,
		TollFreeNumber: tollFreeNumber,
		Status:         StatusActive,
		Settings:       defaultSettings(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if overrides != nil {
		tenant.Settings = mergeSettings(tenant.Settings, *overrides)
	}

	claimed, err := p.store.ReverseIndexSetNX(ctx, tollFreeKeyPrefix+tollFreeNumber, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("tenants: failed to claim toll-free number: %w", err)
	}
	if !claimed {
		return nil, ErrNumberTaken
	}

	if err := p.saveTenant(ctx, tenant); err != nil {
		return nil, err
	}
	return tenant, nil
}

// GetTenant retrieves a tenant by ID.
func (p *Provisioner) GetTenant(ctx context.Context, tenantID string) (*Tenant, error) {
	var tenant Tenant
	err := p.store.Get(ctx, tenantKeyPrefix+tenantID, &tenant)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("tenants: failed to load tenant %s: %w", tenantID, err)
	}
	return &tenant, nil
}

// GetTenantByTollFreeNumber resolves an inbound number to its tenant via
// the reverse index.
func (p *Provisioner) GetTenantByTollFreeNumber(ctx context.Context, number string) (*Tenant, error) {
	id, err := p.store.ReverseIndexGet(ctx, tollFreeKeyPrefix+number)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("tenants: failed to resolve number %s: %w", number, err)
	}
	return p.GetTenant(ctx, id)
}

// AddDepartment appends a department to the tenant's roster.
func (p *Provisioner) AddDepartment(ctx context.Context, tenantID string, dept Department) (*Department, error) {
	tenant, err := p.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	dept.ID = uuid.New().String()
	dept.TenantID = tenant.ID
	if dept.Type == "" {
		dept.Type = DeptSupport
	}
	tenant.Departments = append(tenant.Departments, dept)
	tenant.UpdatedAt = p.clock().UTC()

	if err := p.saveTenant(ctx, tenant); err != nil {
		return nil, err
	}
	return &dept, nil
}

// UpdateSettings replaces the tenant's settings.
func (p *Provisioner) UpdateSettings(ctx context.Context, tenantID string, settings Settings) (*Tenant, error) {
	tenant, err := p.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	tenant.Settings = settings
	tenant.UpdatedAt = p.clock().UTC()
	if err := p.saveTenant(ctx, tenant); err != nil {
		return nil, err
	}
	return tenant, nil
}

// SuspendTenant flips the tenant to suspended. The record and its
// toll-free mapping stay in place; there is no hard delete.
func (p *Provisioner) SuspendTenant(ctx context.Context, tenantID string) error {
	tenant, err := p.GetTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	tenant.Status = StatusSuspended
	tenant.UpdatedAt = p.clock().UTC()
	return p.saveTenant(ctx, tenant)
}

// GetOrCreateCustomerContext reads the cached context for a caller,
// creating a basic-tier default on first contact. Every read refreshes
// the cache TTL.
func (p *Provisioner) GetOrCreateCustomerContext(ctx context.Context, tenantID, phoneNumber string) (*CustomerContext, error) {
	key := customerKey(tenantID, phoneNumber)

	var cust CustomerContext
	err := p.store.Get(ctx, key, &cust)
	if err == nil {
		_ = p.store.Expire(ctx, key, p.contextTTL)
		return &cust, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("tenants: failed to load customer context: %w", err)
	}

	cust = CustomerContext{
		TenantID:    tenantID,
		PhoneNumber: phoneNumber,
		Tier:        TierBasic,
		FirstSeenAt: p.clock().UTC(),
	}
	if err := p.store.SetWithExpiry(ctx, key, &cust, p.contextTTL); err != nil {
		return nil, fmt.Errorf("tenants: failed to cache customer context: %w", err)
	}
	return &cust, nil
}

// RecordInteraction appends an entry to the customer's history.
func (p *Provisioner) RecordInteraction(ctx context.Context, tenantID, phoneNumber string, interaction Interaction) error {
	cust, err := p.GetOrCreateCustomerContext(ctx, tenantID, phoneNumber)
	if err != nil {
		return err
	}
	if interaction.OccurredAt.IsZero() {
		interaction.OccurredAt = p.clock().UTC()
	}
	cust.History = append(cust.History, interaction)
	return p.saveCustomer(ctx, cust)
}

// TagCustomer adds a tag to the customer, ignoring duplicates.
func (p *Provisioner) TagCustomer(ctx context.Context, tenantID, phoneNumber, tag string) error {
	cust, err := p.GetOrCreateCustomerContext(ctx, tenantID, phoneNumber)
	if err != nil {
		return err
	}
	for _, existing := range cust.Tags {
		if existing == tag {
			return nil
		}
	}
	cust.Tags = append(cust.Tags, tag)
	return p.saveCustomer(ctx, cust)
}

// SetCustomerTier pins a caller's tier, e.g. after a CRM sync.
func (p *Provisioner) SetCustomerTier(ctx context.Context, tenantID, phoneNumber string, tier CustomerTier) error {
	cust, err := p.GetOrCreateCustomerContext(ctx, tenantID, phoneNumber)
	if err != nil {
		return err
	}
	cust.Tier = tier
	return p.saveCustomer(ctx, cust)
}

func (p *Provisioner) saveTenant(ctx context.Context, tenant *Tenant) error {
	// Tenants are durable records: no expiry.
	if err := p.store.SetWithExpiry(ctx, tenantKeyPrefix+tenant.ID, tenant, 0); err != nil {
		return fmt.Errorf("tenants: failed to save tenant %s: %w", tenant.ID, err)
	}
	return nil
}

func (p *Provisioner) saveCustomer(ctx context.Context, cust *CustomerContext) error {
	key := customerKey(cust.TenantID, cust.PhoneNumber)
	if err := p.store.SetWithExpiry(ctx, key, cust, p.contextTTL); err != nil {
		return fmt.Errorf("tenants: failed to save customer context: %w", err)
	}
	return nil
}

func customerKey(tenantID, phoneNumber string) string {
	return customerKeyPrefix + tenantID + ":" + phoneNumber
}

func defaultSettings() Settings {
	return Settings{
		Timezone:      "UTC",
		Language:      "en",
		BusinessHours: schedule.Default(),
	}
}

// mergeSettings overlays non-zero override fields on the defaults. The
// hours calendar is replaced whenever any part of it is set, including a
// weekend-only or holiday-only override; the timezone overlay runs after
// so it applies to the replacement calendar too.
func mergeSettings(base, override Settings) Settings {
	if override.BusinessHours.Weekday != (schedule.DaySchedule{}) ||
		override.BusinessHours.Weekend != (schedule.DaySchedule{}) ||
		len(override.BusinessHours.Holidays) > 0 {
		base.BusinessHours = override.BusinessHours
	}
	if override.Timezone != "" {
		base.Timezone = override.Timezone
		base.BusinessHours.Timezone = override.Timezone
	}
	if override.Language != "" {
		base.Language = override.Language
	}
	if len(override.Branding) > 0 {
		base.Branding = override.Branding
	}
	if len(override.Notifications) > 0 {
		base.Notifications = override.Notifications
	}
	return base
}
