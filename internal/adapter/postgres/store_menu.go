package postgres

import (
	"context"
	"fmt"

	"github.com/sitegrove/sitegrove/internal/domain/menu"
)

const menuColumns = `id, tenant_id, name, description, price_cents, available, deleted_at, created_at, updated_at`

func scanMenuItem(row scannable) (menu.Item, error) {
	var m menu.Item
	err := row.Scan(&m.ID, &m.TenantID, &m.Name, &m.Description, &m.PriceCents,
		&m.Available, &m.DeletedAt, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

// ListMenuItems returns the tenant's menu items, excluding soft-deleted rows.
func (s *Store) ListMenuItems(ctx context.Context, tenantID string) ([]menu.Item, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+menuColumns+`
		 FROM menu_items WHERE tenant_id = $1 AND deleted_at IS NULL ORDER BY created_at`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list menu items %s: %w", tenantID, err)
	}
	defer rows.Close()

	var items []menu.Item
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, fmt.Errorf("list menu items %s: %w", tenantID, err)
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

// CreateMenuItem inserts a menu item stamped with the scoped tenant id.
func (s *Store) CreateMenuItem(ctx context.Context, tenantID string, req menu.CreateRequest) (*menu.Item, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO menu_items (tenant_id, name, description, price_cents, available)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+menuColumns,
		tenantID, req.Name, req.Description, req.PriceCents, req.Available)

	m, err := scanMenuItem(row)
	if err != nil {
		return nil, fmt.Errorf("create menu item: %w", err)
	}
	return &m, nil
}

// SoftDeleteMenuItem marks a menu item deleted. Already-deleted rows are
// not matched again, keeping the operation a single transition.
func (s *Store) SoftDeleteMenuItem(ctx context.Context, tenantID, itemID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE menu_items SET deleted_at = now(), updated_at = now()
		 WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL`, itemID, tenantID)
	return execExpectOne(tag, err, "soft delete menu item %s", itemID)
}
