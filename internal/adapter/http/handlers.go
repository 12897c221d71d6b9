package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	sgotel "github.com/sitegrove/sitegrove/internal/adapter/otel"
	"github.com/sitegrove/sitegrove/internal/domain"
	"github.com/sitegrove/sitegrove/internal/domain/menu"
	"github.com/sitegrove/sitegrove/internal/domain/schedule"
	"github.com/sitegrove/sitegrove/internal/isolation"
	"github.com/sitegrove/sitegrove/internal/middleware"
	"github.com/sitegrove/sitegrove/internal/service"
)

// Handlers bundles the services exposed over HTTP. Metrics may be nil
// when telemetry is disabled.
type Handlers struct {
	Accessors    *service.Accessors
	Status       *service.StatusService
	Resolver     *service.Resolver
	Invalidation *service.InvalidationCoordinator
	Metrics      *sgotel.Metrics
}

// --- Public surface (reached through host-based tenant resolution) ---

// GetStatus returns the tenant's live open/closed status. An optional
// ?tz= query overrides the tenant's configured timezone.
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := middleware.TenantIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusNotFound, "no such tenant")
		return
	}

	acc, err := h.Accessors.WithTenant(tenantID, "", false)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if h.Metrics != nil {
		h.Metrics.StatusEvaluations.Add(r.Context(), 1)
	}
	writeJSON(w, http.StatusOK, h.Status.Evaluate(r.Context(), acc, r.URL.Query().Get("tz")))
}

// GetResolve echoes the resolved tenant id; used by edge rules and
// debugging.
func (h *Handlers) GetResolve(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := middleware.TenantIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusNotFound, "no such tenant")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"tenant_id": tenantID})
}

// ListMenu returns the tenant's live menu items.
func (h *Handlers) ListMenu(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := middleware.TenantIDFromContext(r.Context())
	acc, err := h.Accessors.WithTenant(tenantID, "", false)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items, err := acc.Menu().List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if items == nil {
		items = []menu.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

// --- Administrative surface (tenant id in path, actor id in header) ---

func (h *Handlers) adminAccessor(w http.ResponseWriter, r *http.Request, elevated bool) (acc adminScope, ok bool) {
	tenantID := urlParam(r, "tenantID")
	if tenantID == "" {
		tenantID = r.Header.Get("X-Tenant-ID")
	}
	a, err := h.Accessors.WithTenant(tenantID, r.Header.Get("X-Actor-ID"), elevated)
	if err != nil {
		writeDomainError(w, err)
		return adminScope{}, false
	}
	return adminScope{a, tenantID}, true
}

type adminScope struct {
	acc      *isolation.Accessor
	tenantID string
}

// ListTenants is the elevated cross-tenant directory listing.
func (h *Handlers) ListTenants(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.adminAccessor(w, r, true)
	if !ok {
		return
	}
	admin, err := scope.acc.Elevated()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	tenants, err := admin.ListTenants(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tenants)
}

type emergencyCloseRequest struct {
	Reason   string     `json:"reason"`
	ReopenAt *time.Time `json:"reopen_at,omitempty"`
}

// SetEmergencyClose flips the tenant's emergency-closed switch.
func (h *Handlers) SetEmergencyClose(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.adminAccessor(w, r, false)
	if !ok {
		return
	}
	req, ok := readJSON[emergencyCloseRequest](w, r)
	if !ok {
		return
	}
	if req.Reason == "" {
		writeError(w, http.StatusBadRequest, "reason is required")
		return
	}

	if err := h.updateSettings(r, scope, func(bs *schedule.BusinessSettings) {
		bs.EmergencyCloseReason = req.Reason
		bs.EmergencyReopenAt = req.ReopenAt
	}); err != nil {
		writeDomainError(w, err)
		return
	}
	h.Invalidation.OnScheduleMutated(r.Context(), scope.tenantID)
	w.WriteHeader(http.StatusNoContent)
}

// ClearEmergencyClose removes the emergency override. This is the
// administrative write that retires a stale override; the status engine
// never clears it on read.
func (h *Handlers) ClearEmergencyClose(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.adminAccessor(w, r, false)
	if !ok {
		return
	}

	if err := h.updateSettings(r, scope, func(bs *schedule.BusinessSettings) {
		bs.EmergencyCloseReason = ""
		bs.EmergencyReopenAt = nil
	}); err != nil {
		writeDomainError(w, err)
		return
	}
	h.Invalidation.OnScheduleMutated(r.Context(), scope.tenantID)
	w.WriteHeader(http.StatusNoContent)
}

// UpsertSpecialDate writes a calendar exception for one date.
func (h *Handlers) UpsertSpecialDate(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.adminAccessor(w, r, false)
	if !ok {
		return
	}
	sd, ok := readJSON[schedule.SpecialDate](w, r)
	if !ok {
		return
	}
	if _, err := time.Parse("2006-01-02", sd.Date); err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	switch sd.Status {
	case schedule.ExceptionClosed, schedule.ExceptionOpen, schedule.ExceptionLimited:
	default:
		writeError(w, http.StatusBadRequest, "status must be closed, open, or limited")
		return
	}
	for _, at := range []string{sd.OpensAt, sd.ClosesAt} {
		if at == "" {
			continue
		}
		if _, err := schedule.MinuteOfDay(at); err != nil {
			writeError(w, http.StatusBadRequest, "opens_at and closes_at must be HH:MM")
			return
		}
	}

	if err := scope.acc.SpecialDates().Upsert(r.Context(), sd); err != nil {
		writeDomainError(w, err)
		return
	}
	h.Invalidation.OnScheduleMutated(r.Context(), scope.tenantID)
	w.WriteHeader(http.StatusNoContent)
}

// DeleteSpecialDate removes a calendar exception.
func (h *Handlers) DeleteSpecialDate(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.adminAccessor(w, r, false)
	if !ok {
		return
	}

	if err := scope.acc.SpecialDates().Delete(r.Context(), urlParam(r, "date")); err != nil {
		writeDomainError(w, err)
		return
	}
	h.Invalidation.OnScheduleMutated(r.Context(), scope.tenantID)
	w.WriteHeader(http.StatusNoContent)
}

type replaceHoursRequest struct {
	Blocks []schedule.HoursBlock `json:"blocks"`
}

// ReplaceHours swaps all hour blocks for one day of week.
func (h *Handlers) ReplaceHours(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.adminAccessor(w, r, false)
	if !ok {
		return
	}
	day, err := strconv.Atoi(urlParam(r, "day"))
	if err != nil || day < 0 || day > 6 {
		writeError(w, http.StatusBadRequest, "day must be 0 (Sunday) through 6")
		return
	}
	req, ok := readJSON[replaceHoursRequest](w, r)
	if !ok {
		return
	}

	if err := scope.acc.Hours().ReplaceDay(r.Context(), day, req.Blocks); err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrUpstream) || errors.Is(err, domain.ErrIsolation) {
			writeDomainError(w, err)
		} else {
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	h.Invalidation.OnScheduleMutated(r.Context(), scope.tenantID)
	w.WriteHeader(http.StatusNoContent)
}

// CreateMenuItem adds a menu item for the tenant.
func (h *Handlers) CreateMenuItem(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.adminAccessor(w, r, false)
	if !ok {
		return
	}
	req, ok := readJSON[menu.CreateRequest](w, r)
	if !ok {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	item, err := scope.acc.Menu().Create(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// DeleteMenuItem soft-deletes a menu item.
func (h *Handlers) DeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.adminAccessor(w, r, false)
	if !ok {
		return
	}

	if err := scope.acc.Menu().SoftDelete(r.Context(), urlParam(r, "itemID")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// InvalidateTenant purges every cached hostname of a tenant.
func (h *Handlers) InvalidateTenant(w http.ResponseWriter, r *http.Request) {
	if h.Metrics != nil {
		h.Metrics.Invalidations.Add(r.Context(), 1)
	}
	h.Invalidation.OnTenantMutated(r.Context(), urlParam(r, "tenantID"))
	w.WriteHeader(http.StatusAccepted)
}

type invalidateHostRequest struct {
	TenantID string `json:"tenant_id,omitempty"`
	Removed  bool   `json:"removed,omitempty"`
}

// InvalidateHost purges one hostname's cache entries after an alias
// mutation.
func (h *Handlers) InvalidateHost(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[invalidateHostRequest](w, r)
	if !ok {
		return
	}
	if h.Metrics != nil {
		h.Metrics.Invalidations.Add(r.Context(), 1)
	}
	h.Invalidation.OnHostAliasMutated(r.Context(), urlParam(r, "hostname"), req.TenantID, req.Removed)
	w.WriteHeader(http.StatusAccepted)
}

// updateSettings applies a read-modify-write on the settings singleton,
// starting from defaults when the tenant has never written one.
func (h *Handlers) updateSettings(r *http.Request, scope adminScope, apply func(*schedule.BusinessSettings)) error {
	bs, err := scope.acc.Settings().Get(r.Context())
	if errors.Is(err, domain.ErrNotFound) {
		bs = &schedule.BusinessSettings{Timezone: "UTC"}
	} else if err != nil {
		return err
	}
	apply(bs)
	return scope.acc.Settings().Upsert(r.Context(), *bs)
}
