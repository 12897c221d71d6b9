// Package tenant defines the tenant domain model for multi-tenancy.
package tenant

import "time"

// Status is the lifecycle state of a tenant.
type Status string

// Tenant lifecycle states. Tenants are archived or soft-deleted,
// never hard-deleted by this core.
const (
	StatusBuilding  Status = "building"
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusArchived  Status = "archived"
)

// Tenant represents one independently operated business on the platform.
type Tenant struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Slug      string     `json:"slug"`
	Status    Status     `json:"status"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Deleted reports whether the tenant carries a soft-delete marker.
func (t *Tenant) Deleted() bool {
	return t.DeletedAt != nil
}

// HostAlias maps one DNS hostname to exactly one tenant. A tenant may own
// several aliases (custom domain plus the default platform subdomain).
type HostAlias struct {
	Hostname  string    `json:"hostname"`
	TenantID  string    `json:"tenant_id"`
	IsCustom  bool      `json:"is_custom"`
	CreatedAt time.Time `json:"created_at"`
}
