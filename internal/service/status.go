// Package service implements the use-cases of the core: hostname
// resolution, open/closed status evaluation, and cache invalidation.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sgotel "github.com/sitegrove/sitegrove/internal/adapter/otel"
	"github.com/sitegrove/sitegrove/internal/domain"
	"github.com/sitegrove/sitegrove/internal/domain/schedule"
	"github.com/sitegrove/sitegrove/internal/domain/status"
	"github.com/sitegrove/sitegrove/internal/isolation"
)

// StatusService computes live open/closed status from the truth hierarchy:
// emergency override, then calendar exception, then recurring weekly hours.
// It reads exclusively through the tenant isolation layer and never writes;
// a stale emergency override is ignored, not cleared.
type StatusService struct {
	now func() time.Time
}

// NewStatusService creates a StatusService using the system clock.
func NewStatusService() *StatusService {
	return &StatusService{now: time.Now}
}

// Evaluate returns the tenant's current status. timezone overrides the
// tenant's configured one when non-empty; an unknown timezone falls back
// to the unconverted instant. Read failures degrade to a safe closed
// default instead of failing the caller; the failure is logged here.
func (s *StatusService) Evaluate(ctx context.Context, acc *isolation.Accessor, timezone string) status.Result {
	ctx, span := sgotel.StartStatusSpan(ctx, acc.TenantID())
	defer span.End()

	settings, err := acc.Settings().Get(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		settings = &schedule.BusinessSettings{}
		err = nil
	}
	if err != nil {
		return s.unableToDetermine(acc.TenantID(), s.localNow(timezone), err)
	}

	if timezone == "" {
		timezone = settings.Timezone
	}
	now := s.localNow(timezone)

	res, err := s.evaluate(ctx, acc, settings, now)
	if err != nil {
		return s.unableToDetermine(acc.TenantID(), now, err)
	}
	res.CurrentLocalTime = now.Format("15:04")
	return res
}

// localNow converts the current instant into the given IANA timezone.
// Invalid timezones leave the instant unconverted rather than failing.
func (s *StatusService) localNow(timezone string) time.Time {
	now := s.now()
	if timezone == "" {
		return now
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		slog.Warn("unknown timezone, using unconverted time", "timezone", timezone, "error", err)
		return now
	}
	return now.In(loc)
}

func (s *StatusService) evaluate(ctx context.Context, acc *isolation.Accessor, settings *schedule.BusinessSettings, now time.Time) (status.Result, error) {
	// Rule 1: emergency override.
	if settings.EmergencyCloseReason != "" {
		reopen := settings.EmergencyReopenAt
		if reopen != nil && !reopen.After(now) {
			// Reopen time has passed but the override was never cleared by
			// an administrative write. Treat it as expired and fall through.
			slog.Info("stale emergency override ignored",
				"tenant_id", acc.TenantID(), "reopen_at", reopen)
		} else {
			return status.Result{
				IsOpen:      false,
				Kind:        status.KindEmergencyClosed,
				Reason:      settings.EmergencyCloseReason,
				AppliedRule: status.RuleEmergency,
			}, nil
		}
	}

	nowMin := now.Hour()*60 + now.Minute()

	// Rule 2: calendar exception for today's tenant-local date.
	sd, err := acc.SpecialDates().Find(ctx, now.Format("2006-01-02"))
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return status.Result{}, err
	}
	if sd != nil {
		if res, ok := s.applySpecialDate(sd, nowMin); ok {
			return res, nil
		}
	}

	// Rule 3: recurring weekly hours for the tenant-local day of week.
	blocks, err := acc.Hours().ListForDay(ctx, int(now.Weekday()))
	if err != nil {
		return status.Result{}, err
	}
	return s.applyWeeklyHours(blocks, nowMin), nil
}

// applySpecialDate maps a calendar exception onto a result. Returns false
// when the exception does not decide the day (limited without custom
// times), letting weekly hours take over.
func (s *StatusService) applySpecialDate(sd *schedule.SpecialDate, nowMin int) (status.Result, bool) {
	switch sd.Status {
	case schedule.ExceptionClosed:
		return status.Result{
			IsOpen:      false,
			Kind:        status.KindClosed,
			Reason:      sd.Reason,
			AppliedRule: status.RuleSpecialDate,
		}, true

	case schedule.ExceptionOpen:
		return status.Result{
			IsOpen:      true,
			Kind:        status.KindOpen,
			Reason:      sd.Reason,
			AppliedRule: status.RuleSpecialDate,
		}, true

	case schedule.ExceptionLimited:
		if sd.OpensAt == "" || sd.ClosesAt == "" {
			return status.Result{}, false
		}
		if schedule.InRange(sd.OpensAt, sd.ClosesAt, nowMin) {
			return status.Result{
				IsOpen:      true,
				Kind:        status.KindOpen,
				Reason:      sd.Reason,
				NextClose:   sd.ClosesAt,
				AppliedRule: status.RuleSpecialDate,
			}, true
		}
		res := status.Result{
			IsOpen:      false,
			Kind:        status.KindClosed,
			Reason:      sd.Reason,
			AppliedRule: status.RuleSpecialDate,
		}
		if open, err := schedule.MinuteOfDay(sd.OpensAt); err == nil && open > nowMin {
			res.NextOpen = &status.NextOpen{Day: "today", Time: sd.OpensAt}
		}
		return res, true
	}
	return status.Result{}, false
}

// applyWeeklyHours tests now against each block of the day, first match
// wins. Blocks arrive ordered by opening time.
func (s *StatusService) applyWeeklyHours(blocks []schedule.HoursBlock, nowMin int) status.Result {
	if len(blocks) == 0 {
		return status.Result{
			IsOpen:      false,
			Kind:        status.KindClosed,
			Reason:      "no operating hours defined for this day",
			AppliedRule: status.RuleWeeklyHours,
		}
	}

	for _, b := range blocks {
		if b.Contains(nowMin) {
			return status.Result{
				IsOpen:      true,
				Kind:        status.KindOpen,
				NextClose:   b.ClosesAt,
				AppliedRule: status.RuleWeeklyHours,
			}
		}
	}

	res := status.Result{
		IsOpen:      false,
		Kind:        status.KindClosed,
		Reason:      "outside operating hours",
		AppliedRule: status.RuleWeeklyHours,
	}
	for _, b := range blocks {
		if open, err := schedule.MinuteOfDay(b.OpensAt); err == nil && open > nowMin {
			res.NextOpen = &status.NextOpen{Day: "today", Time: b.OpensAt}
			return res
		}
	}
	// Nothing left today: next opening is the day's first block, tomorrow.
	res.NextOpen = &status.NextOpen{Day: "tomorrow", Time: blocks[0].OpensAt}
	return res
}

// unableToDetermine is the availability-over-correctness default: a false
// "closed" is commercially safer than a false "open". now is the best
// local time known at the point of failure.
func (s *StatusService) unableToDetermine(tenantID string, now time.Time, err error) status.Result {
	slog.Warn("status evaluation failed, defaulting to closed",
		"tenant_id", tenantID, "error", fmt.Sprintf("%v", err))
	return status.Result{
		IsOpen:           false,
		Kind:             status.KindClosed,
		Reason:           "unable to determine status",
		CurrentLocalTime: now.Format("15:04"),
	}
}
