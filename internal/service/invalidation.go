package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sitegrove/sitegrove/internal/adapter/ws"
	"github.com/sitegrove/sitegrove/internal/port/messagequeue"
)

// Bus subjects for invalidation fan-out between processes.
const (
	SubjectInvalidateHost   = "cache.invalidate.host"
	SubjectInvalidateTenant = "cache.invalidate.tenant"
	subjectInvalidateAll    = "cache.invalidate.>"
)

// InvalidationEvent is the payload carried on the invalidation bus.
// Origin identifies the publishing process so it can skip its own events.
type InvalidationEvent struct {
	EventID  string `json:"event_id"`
	Origin   string `json:"origin"`
	Hostname string `json:"hostname,omitempty"`
	TenantID string `json:"tenant_id,omitempty"`
}

// LocalPurger drops the in-process copy of a cache entry. The shared tier
// was already purged by the node that published the event.
type LocalPurger interface {
	DeleteLocal(ctx context.Context, key string) error
}

// InvalidationCoordinator purges resolver caches on mutations and fans the
// purge out to other processes over the bus. All operations are
// best-effort and non-transactional: partial failures are logged, not
// retried, and self-heal once the affected tier's TTL expires.
type InvalidationCoordinator struct {
	resolver *Resolver
	bus      messagequeue.Bus
	hub      *ws.Hub
	local    LocalPurger
	origin   string
}

// NewInvalidationCoordinator creates a coordinator. bus, hub, and local
// may be nil; the corresponding fan-out is skipped.
func NewInvalidationCoordinator(resolver *Resolver, bus messagequeue.Bus, hub *ws.Hub, local LocalPurger) *InvalidationCoordinator {
	return &InvalidationCoordinator{
		resolver: resolver,
		bus:      bus,
		hub:      hub,
		local:    local,
		origin:   uuid.NewString(),
	}
}

// OnHostAliasMutated purges a hostname's cache entries after an alias
// change. removed indicates the alias was deleted entirely, which also
// drops it from the tenant's alias index.
func (c *InvalidationCoordinator) OnHostAliasMutated(ctx context.Context, hostname, tenantID string, removed bool) {
	if err := c.resolver.Invalidate(ctx, hostname); err != nil {
		slog.Warn("host invalidation incomplete",
			"hostname", hostname, "tenant_id", tenantID, "error", err)
	}
	if removed {
		c.resolver.RemoveAlias(ctx, tenantID, hostname)
	}

	c.publish(ctx, SubjectInvalidateHost, InvalidationEvent{Hostname: hostname, TenantID: tenantID})
	if c.hub != nil {
		c.hub.BroadcastEvent(ctx, ws.EventHostInvalidated,
			ws.HostInvalidatedEvent{Hostname: hostname, TenantID: tenantID})
	}
}

// OnTenantMutated purges every cached hostname of a tenant after a
// tenant-identity change (rename, suspension, archival).
func (c *InvalidationCoordinator) OnTenantMutated(ctx context.Context, tenantID string) {
	if err := c.resolver.InvalidateAllForTenant(ctx, tenantID); err != nil {
		slog.Warn("tenant invalidation incomplete", "tenant_id", tenantID, "error", err)
	}
	c.publish(ctx, SubjectInvalidateTenant, InvalidationEvent{TenantID: tenantID})
}

// OnScheduleMutated handles settings, special-date, and hours edits.
// Status is recomputed per request, so no resolver cache is touched;
// subscribers are notified so status banners refresh immediately.
func (c *InvalidationCoordinator) OnScheduleMutated(ctx context.Context, tenantID string) {
	if c.hub != nil {
		c.hub.BroadcastEvent(ctx, ws.EventStatusChanged, ws.StatusChangedEvent{TenantID: tenantID})
	}
}

// Start subscribes to invalidation events from other processes, purging
// the local in-process tier when one arrives. Returns an unsubscribe
// function.
func (c *InvalidationCoordinator) Start(ctx context.Context) (func(), error) {
	if c.bus == nil || c.local == nil {
		return func() {}, nil
	}
	return c.bus.Subscribe(ctx, subjectInvalidateAll, func(subject string, data []byte) error {
		var ev InvalidationEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			slog.Warn("invalid invalidation event", "subject", subject, "error", err)
			return nil
		}
		if ev.Origin == c.origin {
			return nil
		}
		return c.applyRemote(ctx, subject, ev)
	})
}

func (c *InvalidationCoordinator) applyRemote(ctx context.Context, subject string, ev InvalidationEvent) error {
	switch subject {
	case SubjectInvalidateHost:
		host := NormalizeHostname(ev.Hostname)
		_ = c.local.DeleteLocal(ctx, keyTenant+host)
		_ = c.local.DeleteLocal(ctx, keyNegative+host)
	case SubjectInvalidateTenant:
		// Hostnames for the tenant are unknown locally; dropping the
		// alias index is all that is safe. Positive entries expire at
		// the short in-process TTL.
		_ = c.local.DeleteLocal(ctx, keyAliasIndex+ev.TenantID)
	}
	return nil
}

func (c *InvalidationCoordinator) publish(ctx context.Context, subject string, ev InvalidationEvent) {
	if c.bus == nil {
		return
	}
	ev.EventID = uuid.NewString()
	ev.Origin = c.origin
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := c.bus.Publish(ctx, subject, data); err != nil {
		slog.Warn("invalidation publish failed", "subject", subject, "error", err)
	}
}
