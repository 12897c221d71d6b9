// Package menu defines per-tenant menu records. Menu items are
// soft-deleted, never removed.
package menu

import "time"

// Item is one menu entry owned by a tenant.
type Item struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenant_id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	PriceCents  int        `json:"price_cents"`
	Available   bool       `json:"available"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Deleted reports whether the item has been soft-deleted.
func (i Item) Deleted() bool {
	return i.DeletedAt != nil
}

// CreateRequest holds the fields required to create a menu item.
type CreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	PriceCents  int    `json:"price_cents"`
	Available   bool   `json:"available"`
}
