package postgres

import (
	"context"
	"fmt"

	"github.com/sitegrove/sitegrove/internal/domain/schedule"
)

// --- Business settings ---

// GetBusinessSettings returns the per-tenant settings singleton.
func (s *Store) GetBusinessSettings(ctx context.Context, tenantID string) (*schedule.BusinessSettings, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT tenant_id, timezone, emergency_close_reason, emergency_reopen_at, updated_at
		 FROM business_settings WHERE tenant_id = $1`, tenantID)

	var bs schedule.BusinessSettings
	err := row.Scan(&bs.TenantID, &bs.Timezone, &bs.EmergencyCloseReason, &bs.EmergencyReopenAt, &bs.UpdatedAt)
	if err != nil {
		return nil, notFoundWrap(err, "get business settings %s", tenantID)
	}
	return &bs, nil
}

// UpsertBusinessSettings writes the settings singleton, stamping the scoped
// tenant id regardless of what the value carries.
func (s *Store) UpsertBusinessSettings(ctx context.Context, tenantID string, bs schedule.BusinessSettings) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO business_settings (tenant_id, timezone, emergency_close_reason, emergency_reopen_at, updated_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (tenant_id) DO UPDATE
		 SET timezone = $2, emergency_close_reason = $3, emergency_reopen_at = $4, updated_at = now()`,
		tenantID, bs.Timezone, bs.EmergencyCloseReason, nullTime(bs.EmergencyReopenAt))
	if err != nil {
		return fmt.Errorf("upsert business settings %s: %w", tenantID, err)
	}
	return nil
}

// --- Special dates ---

// FindSpecialDate returns the calendar exception for an ISO date, if any.
func (s *Store) FindSpecialDate(ctx context.Context, tenantID, isoDate string) (*schedule.SpecialDate, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT tenant_id, to_char(date, 'YYYY-MM-DD'), status, opens_at, closes_at, reason
		 FROM special_dates WHERE tenant_id = $1 AND date = $2::date`, tenantID, isoDate)

	var sd schedule.SpecialDate
	err := row.Scan(&sd.TenantID, &sd.Date, &sd.Status, &sd.OpensAt, &sd.ClosesAt, &sd.Reason)
	if err != nil {
		return nil, notFoundWrap(err, "find special date %s/%s", tenantID, isoDate)
	}
	return &sd, nil
}

// UpsertSpecialDate writes a calendar exception. At most one row exists per
// (tenant, date); the tenant id is stamped from the scope.
func (s *Store) UpsertSpecialDate(ctx context.Context, tenantID string, sd schedule.SpecialDate) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO special_dates (tenant_id, date, status, opens_at, closes_at, reason)
		 VALUES ($1, $2::date, $3, $4, $5, $6)
		 ON CONFLICT (tenant_id, date) DO UPDATE
		 SET status = $3, opens_at = $4, closes_at = $5, reason = $6`,
		tenantID, sd.Date, sd.Status, sd.OpensAt, sd.ClosesAt, sd.Reason)
	if err != nil {
		return fmt.Errorf("upsert special date %s/%s: %w", tenantID, sd.Date, err)
	}
	return nil
}

// DeleteSpecialDate removes the calendar exception for an ISO date.
func (s *Store) DeleteSpecialDate(ctx context.Context, tenantID, isoDate string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM special_dates WHERE tenant_id = $1 AND date = $2::date`, tenantID, isoDate)
	return execExpectOne(tag, err, "delete special date %s/%s", tenantID, isoDate)
}

// --- Operating hours ---

// ListHoursForDay returns all hour blocks for one day of week, ordered by
// opening time.
func (s *Store) ListHoursForDay(ctx context.Context, tenantID string, dayOfWeek int) ([]schedule.HoursBlock, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, tenant_id, day_of_week, opens_at, closes_at
		 FROM operating_hours WHERE tenant_id = $1 AND day_of_week = $2 ORDER BY opens_at`,
		tenantID, dayOfWeek)
	if err != nil {
		return nil, fmt.Errorf("list hours %s day %d: %w", tenantID, dayOfWeek, err)
	}
	defer rows.Close()

	var blocks []schedule.HoursBlock
	for rows.Next() {
		var b schedule.HoursBlock
		if err := rows.Scan(&b.ID, &b.TenantID, &b.DayOfWeek, &b.OpensAt, &b.ClosesAt); err != nil {
			return nil, fmt.Errorf("list hours %s day %d: %w", tenantID, dayOfWeek, err)
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

// ReplaceHoursForDay atomically swaps the blocks of one day of week.
// Tenant ids on the incoming blocks are ignored; the scope is stamped.
func (s *Store) ReplaceHoursForDay(ctx context.Context, tenantID string, dayOfWeek int, blocks []schedule.HoursBlock) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("replace hours %s day %d: %w", tenantID, dayOfWeek, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`DELETE FROM operating_hours WHERE tenant_id = $1 AND day_of_week = $2`,
		tenantID, dayOfWeek); err != nil {
		return fmt.Errorf("replace hours %s day %d: %w", tenantID, dayOfWeek, err)
	}

	for _, b := range blocks {
		if _, err := tx.Exec(ctx,
			`INSERT INTO operating_hours (tenant_id, day_of_week, opens_at, closes_at)
			 VALUES ($1, $2, $3, $4)`,
			tenantID, dayOfWeek, b.OpensAt, b.ClosesAt); err != nil {
			return fmt.Errorf("replace hours %s day %d: %w", tenantID, dayOfWeek, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("replace hours %s day %d: %w", tenantID, dayOfWeek, err)
	}
	return nil
}
