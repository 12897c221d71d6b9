// Package schedule defines the records feeding open/closed status:
// per-tenant settings, calendar exceptions, and recurring weekly hours.
package schedule

import (
	"fmt"
	"sort"
	"time"
)

// minutesPerDay is the wall-clock wraparound point for time-of-day math.
const minutesPerDay = 24 * 60

// BusinessSettings is the per-tenant singleton holding the timezone and the
// optional emergency-close override. A non-empty EmergencyCloseReason means
// "closed" regardless of any other record, unless EmergencyReopenAt has
// already passed (stale override, ignored by the status engine).
type BusinessSettings struct {
	TenantID             string     `json:"tenant_id"`
	Timezone             string     `json:"timezone"`
	EmergencyCloseReason string     `json:"emergency_close_reason,omitempty"`
	EmergencyReopenAt    *time.Time `json:"emergency_reopen_at,omitempty"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// ExceptionStatus is the kind of a calendar exception.
type ExceptionStatus string

// Calendar exception kinds.
const (
	ExceptionClosed  ExceptionStatus = "closed"
	ExceptionOpen    ExceptionStatus = "open"
	ExceptionLimited ExceptionStatus = "limited"
)

// SpecialDate is a per-tenant calendar exception keyed by ISO date
// (at most one per tenant and date). OpensAt/ClosesAt are "HH:MM" strings
// and are consulted only when Status is limited.
type SpecialDate struct {
	TenantID string          `json:"tenant_id"`
	Date     string          `json:"date"`
	Status   ExceptionStatus `json:"status"`
	OpensAt  string          `json:"opens_at,omitempty"`
	ClosesAt string          `json:"closes_at,omitempty"`
	Reason   string          `json:"reason,omitempty"`
}

// HoursBlock is one recurring open interval on a day of week (0 = Sunday).
// ClosesAt earlier than OpensAt marks an overnight shift that wraps past
// midnight. Multiple blocks per day form split shifts and must not overlap.
type HoursBlock struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenant_id"`
	DayOfWeek int    `json:"day_of_week"`
	OpensAt   string `json:"opens_at"`
	ClosesAt  string `json:"closes_at"`
}

// MinuteOfDay parses an "HH:MM" wall-clock string into minutes since
// midnight (0..1439).
func MinuteOfDay(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time of day %q out of range", s)
	}
	return h*60 + m, nil
}

// Contains reports whether the wall-clock minute now falls inside the
// block's [OpensAt, ClosesAt) range, handling overnight wraparound.
// Malformed times never match.
func (b HoursBlock) Contains(now int) bool {
	open, err := MinuteOfDay(b.OpensAt)
	if err != nil {
		return false
	}
	closeAt, err := MinuteOfDay(b.ClosesAt)
	if err != nil {
		return false
	}
	if closeAt < open {
		// Overnight shift, e.g. 22:00-02:00.
		return now >= open || now < closeAt
	}
	return now >= open && now < closeAt
}

// InRange tests a single [opensAt, closesAt) "HH:MM" range against the
// wall-clock minute now, with the same overnight semantics as Contains.
func InRange(opensAt, closesAt string, now int) bool {
	return HoursBlock{OpensAt: opensAt, ClosesAt: closesAt}.Contains(now)
}

// ValidateDay checks that the blocks (all assumed to share one day of week)
// are well-formed and pairwise non-overlapping. Overnight blocks are split
// at midnight for the check, so a 22:00-02:00 shift conflicts with an
// 01:00-05:00 one.
func ValidateDay(blocks []HoursBlock) error {
	type span struct{ from, to int }
	var spans []span

	for _, b := range blocks {
		open, err := MinuteOfDay(b.OpensAt)
		if err != nil {
			return err
		}
		closeAt, err := MinuteOfDay(b.ClosesAt)
		if err != nil {
			return err
		}
		if open == closeAt {
			return fmt.Errorf("block %s-%s is empty", b.OpensAt, b.ClosesAt)
		}
		if closeAt < open {
			spans = append(spans, span{open, minutesPerDay}, span{0, closeAt})
		} else {
			spans = append(spans, span{open, closeAt})
		}
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].from < spans[j].from })
	for i := 1; i < len(spans); i++ {
		if spans[i].from < spans[i-1].to {
			return fmt.Errorf("operating hours blocks overlap")
		}
	}
	return nil
}
