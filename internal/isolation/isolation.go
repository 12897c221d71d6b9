// Package isolation enforces tenant scoping on every data operation.
//
// An Accessor is constructed from a resolved Context and exposes one
// repository per entity family. Each repository supplies the scoped tenant
// id to the store on every call, so no code path through this package can
// read or write another tenant's rows. The elevated escape hatch requires
// an explicit flag on the context and is audited.
package isolation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sitegrove/sitegrove/internal/domain"
	"github.com/sitegrove/sitegrove/internal/domain/menu"
	"github.com/sitegrove/sitegrove/internal/domain/schedule"
	"github.com/sitegrove/sitegrove/internal/domain/tenant"
	"github.com/sitegrove/sitegrove/internal/port/database"
)

// Context is the request-scoped resolution context: the tenant every
// operation is scoped to, the optional acting user, and the elevated flag
// for administrative code. Never persisted.
type Context struct {
	TenantID string
	ActorID  string
	Elevated bool
}

// Accessor is the only gateway to tenant data. Zero value is unusable;
// construct with New.
type Accessor struct {
	scope Context
	store database.Store
	admin database.Admin
}

// New builds an Accessor for the given context. Fails with ErrIsolation
// when the context carries no tenant id.
func New(scope Context, store database.Store, admin database.Admin) (*Accessor, error) {
	if scope.TenantID == "" {
		return nil, fmt.Errorf("accessor requires a tenant id: %w", domain.ErrIsolation)
	}
	return &Accessor{scope: scope, store: store, admin: admin}, nil
}

// TenantID returns the tenant this accessor is scoped to.
func (a *Accessor) TenantID() string {
	return a.scope.TenantID
}

// Tenant loads the scoped tenant record.
func (a *Accessor) Tenant(ctx context.Context) (*tenant.Tenant, error) {
	t, err := a.store.GetTenant(ctx, a.scope.TenantID)
	if err != nil {
		return nil, fmt.Errorf("tenant: %w", err)
	}
	return t, nil
}

// Settings returns the business-settings repository.
func (a *Accessor) Settings() SettingsRepo {
	return SettingsRepo{a}
}

// SpecialDates returns the calendar-exception repository.
func (a *Accessor) SpecialDates() SpecialDateRepo {
	return SpecialDateRepo{a}
}

// Hours returns the operating-hours repository.
func (a *Accessor) Hours() HoursRepo {
	return HoursRepo{a}
}

// Menu returns the menu-item repository.
func (a *Accessor) Menu() MenuRepo {
	return MenuRepo{a}
}

// Elevated returns the cross-tenant administrative surface. Rejected with
// ErrIsolation unless the context carries the elevated flag; every grant
// is logged for audit.
func (a *Accessor) Elevated() (AdminRepo, error) {
	if !a.scope.Elevated {
		return AdminRepo{}, fmt.Errorf("elevated access requires the elevated flag: %w", domain.ErrIsolation)
	}
	slog.Info("elevated access granted",
		"tenant_id", a.scope.TenantID,
		"actor_id", a.scope.ActorID,
	)
	return AdminRepo{a}, nil
}

// SettingsRepo reads and writes the per-tenant settings singleton.
type SettingsRepo struct{ a *Accessor }

// Get returns the settings singleton, or ErrNotFound if never written.
func (r SettingsRepo) Get(ctx context.Context) (*schedule.BusinessSettings, error) {
	bs, err := r.a.store.GetBusinessSettings(ctx, r.a.scope.TenantID)
	if err != nil {
		return nil, fmt.Errorf("business settings: %w", err)
	}
	return bs, nil
}

// Upsert writes the settings singleton. The tenant id is stamped from the
// scope; any id on the value is ignored.
func (r SettingsRepo) Upsert(ctx context.Context, bs schedule.BusinessSettings) error {
	if err := r.a.store.UpsertBusinessSettings(ctx, r.a.scope.TenantID, bs); err != nil {
		return fmt.Errorf("business settings: %w", err)
	}
	return nil
}

// SpecialDateRepo reads and writes calendar exceptions.
type SpecialDateRepo struct{ a *Accessor }

// Find returns the exception for an ISO date, or ErrNotFound.
func (r SpecialDateRepo) Find(ctx context.Context, isoDate string) (*schedule.SpecialDate, error) {
	sd, err := r.a.store.FindSpecialDate(ctx, r.a.scope.TenantID, isoDate)
	if err != nil {
		return nil, fmt.Errorf("special dates: %w", err)
	}
	return sd, nil
}

// Upsert writes a calendar exception, stamping the scoped tenant id.
func (r SpecialDateRepo) Upsert(ctx context.Context, sd schedule.SpecialDate) error {
	if err := r.a.store.UpsertSpecialDate(ctx, r.a.scope.TenantID, sd); err != nil {
		return fmt.Errorf("special dates: %w", err)
	}
	return nil
}

// Delete removes the exception for an ISO date.
func (r SpecialDateRepo) Delete(ctx context.Context, isoDate string) error {
	if err := r.a.store.DeleteSpecialDate(ctx, r.a.scope.TenantID, isoDate); err != nil {
		return fmt.Errorf("special dates: %w", err)
	}
	return nil
}

// HoursRepo reads and writes recurring weekly hour blocks.
type HoursRepo struct{ a *Accessor }

// ListForDay returns the blocks for one day of week (0 = Sunday).
func (r HoursRepo) ListForDay(ctx context.Context, dayOfWeek int) ([]schedule.HoursBlock, error) {
	blocks, err := r.a.store.ListHoursForDay(ctx, r.a.scope.TenantID, dayOfWeek)
	if err != nil {
		return nil, fmt.Errorf("operating hours: %w", err)
	}
	return blocks, nil
}

// ReplaceDay swaps all blocks for one day of week after validating that
// the new blocks do not overlap.
func (r HoursRepo) ReplaceDay(ctx context.Context, dayOfWeek int, blocks []schedule.HoursBlock) error {
	if dayOfWeek < 0 || dayOfWeek > 6 {
		return fmt.Errorf("operating hours: day of week %d out of range", dayOfWeek)
	}
	if err := schedule.ValidateDay(blocks); err != nil {
		return fmt.Errorf("operating hours: %w", err)
	}
	if err := r.a.store.ReplaceHoursForDay(ctx, r.a.scope.TenantID, dayOfWeek, blocks); err != nil {
		return fmt.Errorf("operating hours: %w", err)
	}
	return nil
}

// MenuRepo reads and writes menu items. Soft-deleted items are invisible
// to reads and cannot be deleted twice.
type MenuRepo struct{ a *Accessor }

// List returns the tenant's live menu items.
func (r MenuRepo) List(ctx context.Context) ([]menu.Item, error) {
	items, err := r.a.store.ListMenuItems(ctx, r.a.scope.TenantID)
	if err != nil {
		return nil, fmt.Errorf("menu items: %w", err)
	}
	return items, nil
}

// Create inserts a menu item stamped with the scoped tenant id.
func (r MenuRepo) Create(ctx context.Context, req menu.CreateRequest) (*menu.Item, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("menu items: name is required")
	}
	item, err := r.a.store.CreateMenuItem(ctx, r.a.scope.TenantID, req)
	if err != nil {
		return nil, fmt.Errorf("menu items: %w", err)
	}
	return item, nil
}

// SoftDelete marks a menu item deleted.
func (r MenuRepo) SoftDelete(ctx context.Context, itemID string) error {
	if err := r.a.store.SoftDeleteMenuItem(ctx, r.a.scope.TenantID, itemID); err != nil {
		return fmt.Errorf("menu items: %w", err)
	}
	return nil
}

// AdminRepo is the audited cross-tenant surface. Obtainable only through
// Accessor.Elevated.
type AdminRepo struct{ a *Accessor }

// ListTenants returns all tenants on the platform.
func (r AdminRepo) ListTenants(ctx context.Context) ([]tenant.Tenant, error) {
	tenants, err := r.a.admin.ListTenants(ctx)
	if err != nil {
		return nil, fmt.Errorf("tenants: %w", err)
	}
	return tenants, nil
}

// ListHostAliases returns every host alias registered for a tenant.
func (r AdminRepo) ListHostAliases(ctx context.Context, tenantID string) ([]tenant.HostAlias, error) {
	aliases, err := r.a.admin.ListHostAliases(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("host aliases: %w", err)
	}
	return aliases, nil
}
