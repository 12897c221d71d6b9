package service

import (
	"github.com/sitegrove/sitegrove/internal/isolation"
	"github.com/sitegrove/sitegrove/internal/port/database"
)

// Accessors builds tenant-scoped accessors over the authoritative store.
// It is the only place the raw store handles are held after wiring.
type Accessors struct {
	store database.Store
	admin database.Admin
}

// NewAccessors creates the accessor factory.
func NewAccessors(store database.Store, admin database.Admin) *Accessors {
	return &Accessors{store: store, admin: admin}
}

// WithTenant constructs an isolated accessor bound to the given tenant.
// actorID is optional; elevated unlocks the audited cross-tenant surface.
// Fails with ErrIsolation when tenantID is empty.
func (f *Accessors) WithTenant(tenantID, actorID string, elevated bool) (*isolation.Accessor, error) {
	return isolation.New(isolation.Context{
		TenantID: tenantID,
		ActorID:  actorID,
		Elevated: elevated,
	}, f.store, f.admin)
}
