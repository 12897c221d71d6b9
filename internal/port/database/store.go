// Package database defines the port interfaces over the authoritative store.
//
// The surface is split three ways so tenant isolation is checkable by type:
// Directory is the only pre-tenant lookup path, Store methods all require an
// explicit tenant id (supplied solely by the isolation layer), and Admin is
// the elevated surface reachable only through an elevated context.
package database

import (
	"context"

	"github.com/sitegrove/sitegrove/internal/domain/menu"
	"github.com/sitegrove/sitegrove/internal/domain/schedule"
	"github.com/sitegrove/sitegrove/internal/domain/tenant"
)

// Directory resolves hostnames to tenants. Used only by the hostname
// resolver, before any tenant context exists.
type Directory interface {
	FindTenantByCustomDomain(ctx context.Context, host string) (*tenant.Tenant, error)
	FindTenantBySlug(ctx context.Context, slug string) (*tenant.Tenant, error)
}

// Store is the tenant-scoped authoritative surface. Every query conjoins
// the given tenant id (and a not-soft-deleted filter where the entity
// supports soft deletion); every insert stamps it. Callers outside the
// isolation layer must not use Store directly.
type Store interface {
	GetTenant(ctx context.Context, tenantID string) (*tenant.Tenant, error)

	GetBusinessSettings(ctx context.Context, tenantID string) (*schedule.BusinessSettings, error)
	UpsertBusinessSettings(ctx context.Context, tenantID string, s schedule.BusinessSettings) error

	FindSpecialDate(ctx context.Context, tenantID, isoDate string) (*schedule.SpecialDate, error)
	UpsertSpecialDate(ctx context.Context, tenantID string, sd schedule.SpecialDate) error
	DeleteSpecialDate(ctx context.Context, tenantID, isoDate string) error

	ListHoursForDay(ctx context.Context, tenantID string, dayOfWeek int) ([]schedule.HoursBlock, error)
	ReplaceHoursForDay(ctx context.Context, tenantID string, dayOfWeek int, blocks []schedule.HoursBlock) error

	ListMenuItems(ctx context.Context, tenantID string) ([]menu.Item, error)
	CreateMenuItem(ctx context.Context, tenantID string, req menu.CreateRequest) (*menu.Item, error)
	SoftDeleteMenuItem(ctx context.Context, tenantID, itemID string) error
}

// Admin is the elevated surface that bypasses tenant scoping. Reserved for
// administrative and migration code; every use is audited by the isolation
// layer.
type Admin interface {
	ListTenants(ctx context.Context) ([]tenant.Tenant, error)
	ListHostAliases(ctx context.Context, tenantID string) ([]tenant.HostAlias, error)
}
