package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitegrove/sitegrove/internal/domain/tenant"
)

// Store implements database.Directory, database.Store, and database.Admin
// using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const tenantColumns = `id, name, slug, status, deleted_at, created_at, updated_at`

func scanTenant(row scannable) (tenant.Tenant, error) {
	var t tenant.Tenant
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Status, &t.DeletedAt, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// --- Directory (pre-tenant hostname resolution) ---

// FindTenantByCustomDomain looks up a tenant by a custom-domain host alias.
// Soft-deleted tenants never resolve.
func (s *Store) FindTenantByCustomDomain(ctx context.Context, host string) (*tenant.Tenant, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT t.id, t.name, t.slug, t.status, t.deleted_at, t.created_at, t.updated_at
		 FROM tenants t
		 JOIN host_aliases h ON h.tenant_id = t.id
		 WHERE h.hostname = $1 AND h.is_custom AND t.deleted_at IS NULL`, host)

	t, err := scanTenant(row)
	if err != nil {
		return nil, notFoundWrap(err, "find tenant by custom domain %s", host)
	}
	return &t, nil
}

// FindTenantBySlug looks up a tenant by its slug (default-subdomain label).
func (s *Store) FindTenantBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE slug = $1 AND deleted_at IS NULL`, slug)

	t, err := scanTenant(row)
	if err != nil {
		return nil, notFoundWrap(err, "find tenant by slug %s", slug)
	}
	return &t, nil
}

// --- Tenant-scoped ---

// GetTenant returns the tenant row for the scoped tenant id.
func (s *Store) GetTenant(ctx context.Context, tenantID string) (*tenant.Tenant, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1 AND deleted_at IS NULL`, tenantID)

	t, err := scanTenant(row)
	if err != nil {
		return nil, notFoundWrap(err, "get tenant %s", tenantID)
	}
	return &t, nil
}

// --- Admin (elevated, bypasses tenant scoping) ---

// ListTenants returns every tenant, including suspended and archived ones.
// Soft-deleted tenants are excluded.
func (s *Store) ListTenants(ctx context.Context) ([]tenant.Tenant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE deleted_at IS NULL ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []tenant.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("list tenants: %w", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// ListHostAliases returns all host aliases registered for a tenant.
func (s *Store) ListHostAliases(ctx context.Context, tenantID string) ([]tenant.HostAlias, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT hostname, tenant_id, is_custom, created_at
		 FROM host_aliases WHERE tenant_id = $1 ORDER BY hostname`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list host aliases for %s: %w", tenantID, err)
	}
	defer rows.Close()

	var aliases []tenant.HostAlias
	for rows.Next() {
		var a tenant.HostAlias
		if err := rows.Scan(&a.Hostname, &a.TenantID, &a.IsCustom, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("list host aliases for %s: %w", tenantID, err)
		}
		aliases = append(aliases, a)
	}
	return aliases, rows.Err()
}
