package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	sgotel "github.com/sitegrove/sitegrove/internal/adapter/otel"
	"github.com/sitegrove/sitegrove/internal/domain"
	"github.com/sitegrove/sitegrove/internal/domain/tenant"
	"github.com/sitegrove/sitegrove/internal/port/cache"
	"github.com/sitegrove/sitegrove/internal/port/database"
	"github.com/sitegrove/sitegrove/internal/resilience"
)

// Cache key namespaces. Positive entries hold the tenant id, negative
// entries mark hostnames with no tenant, and the alias index tracks every
// hostname cached for a tenant so invalidation can fan out.
const (
	keyTenant     = "tenant:"
	keyNegative   = "invalid:"
	keyAliasIndex = "tenant-aliases:"
)

// Directory lookups sit behind a circuit breaker so a struggling store is
// not hammered by every cache miss.
const (
	breakerFailures = 5
	breakerCooldown = 30 * time.Second
)

// Resolver maps inbound hostnames to tenant ids through the tiered cache,
// falling back to the authoritative directory. Cache writes are
// best-effort: a failed write never fails the resolution.
type Resolver struct {
	cache      cache.Cache
	dir        database.Directory
	baseDomain string
	posTTL     time.Duration
	negTTL     time.Duration
	group      singleflight.Group
	breaker    *resilience.Breaker
}

// NewResolver creates a Resolver. baseDomain is the platform suffix used
// to derive slugs from default subdomains (e.g. "sitegrove.app" turns
// "rosas-cafe.sitegrove.app" into the slug "rosas-cafe"). posTTL is the
// shared-tier lifetime of positive entries, negTTL of negative ones.
func NewResolver(c cache.Cache, dir database.Directory, baseDomain string, posTTL, negTTL time.Duration) *Resolver {
	return &Resolver{
		cache:      c,
		dir:        dir,
		baseDomain: strings.ToLower(baseDomain),
		posTTL:     posTTL,
		negTTL:     negTTL,
		breaker:    resilience.NewBreaker(breakerFailures, breakerCooldown),
	}
}

// NormalizeHostname strips any port, trailing dot, and surrounding
// whitespace, and lowercases the rest.
func NormalizeHostname(hostname string) string {
	h := strings.TrimSpace(hostname)
	if host, _, err := net.SplitHostPort(h); err == nil {
		h = host
	}
	return strings.ToLower(strings.TrimSuffix(h, "."))
}

// Resolve maps a hostname to a tenant id. Returns ErrNotFound when no
// tenant owns the hostname; directory failures propagate wrapped in
// ErrUpstream since resolution cannot safely guess.
func (r *Resolver) Resolve(ctx context.Context, hostname string) (string, error) {
	ctx, span := sgotel.StartResolveSpan(ctx, hostname)
	defer span.End()

	host := NormalizeHostname(hostname)
	if host == "" {
		return "", fmt.Errorf("resolve: empty hostname: %w", domain.ErrNotFound)
	}

	if _, found := r.cacheGet(ctx, keyNegative+host); found {
		return "", fmt.Errorf("resolve %s: negative cache hit: %w", host, domain.ErrNotFound)
	}
	if val, found := r.cacheGet(ctx, keyTenant+host); found {
		return string(val), nil
	}

	// Collapse concurrent authoritative lookups for the same hostname
	// within this process. Duplicate lookups across processes are an
	// accepted, idempotent race.
	v, err, _ := r.group.Do(host, func() (any, error) {
		return r.resolveAuthoritative(ctx, host)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (r *Resolver) resolveAuthoritative(ctx context.Context, host string) (string, error) {
	var t *tenant.Tenant
	err := r.breaker.Execute(func() error {
		var lookupErr error
		t, lookupErr = r.lookupTenant(ctx, host)
		return lookupErr
	})
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w: %w", host, domain.ErrUpstream, err)
	}
	if t == nil {
		r.cacheSet(ctx, keyNegative+host, []byte("1"), r.negTTL)
		return "", fmt.Errorf("resolve %s: %w", host, domain.ErrNotFound)
	}

	r.cacheSet(ctx, keyTenant+host, []byte(t.ID), r.posTTL)
	r.indexAlias(ctx, t.ID, host)
	return t.ID, nil
}

// lookupTenant tries the custom-domain mapping first, then the slug derived
// from the hostname. A clean miss returns (nil, nil) so it does not count
// against the circuit breaker.
func (r *Resolver) lookupTenant(ctx context.Context, host string) (*tenant.Tenant, error) {
	t, err := r.dir.FindTenantByCustomDomain(ctx, host)
	if errors.Is(err, domain.ErrNotFound) {
		t, err = r.dir.FindTenantBySlug(ctx, r.slugFor(host))
	}
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return t, err
}

// slugFor derives the slug candidate for a hostname: the leading label
// when the host sits under the platform base domain, otherwise the host
// itself.
func (r *Resolver) slugFor(host string) string {
	if r.baseDomain != "" && strings.HasSuffix(host, "."+r.baseDomain) {
		return strings.TrimSuffix(host, "."+r.baseDomain)
	}
	return host
}

// Invalidate removes a hostname's positive and negative entries from all
// cache tiers.
func (r *Resolver) Invalidate(ctx context.Context, hostname string) error {
	host := NormalizeHostname(hostname)
	return errors.Join(
		r.cache.Delete(ctx, keyTenant+host),
		r.cache.Delete(ctx, keyNegative+host),
	)
}

// InvalidateAllForTenant purges every hostname recorded in the tenant's
// alias index, then the index itself. Idempotent: a missing or empty
// index is a no-op. Individual purge failures are logged and skipped;
// the affected entries self-heal at TTL.
func (r *Resolver) InvalidateAllForTenant(ctx context.Context, tenantID string) error {
	for _, host := range r.readAliasIndex(ctx, tenantID) {
		if err := r.Invalidate(ctx, host); err != nil {
			slog.Warn("alias purge failed",
				"tenant_id", tenantID, "hostname", host, "error", err)
		}
	}
	if err := r.cache.Delete(ctx, keyAliasIndex+tenantID); err != nil {
		return fmt.Errorf("delete alias index for %s: %w", tenantID, err)
	}
	return nil
}

// RemoveAlias drops one hostname from the tenant's alias index, for use
// when the alias itself is being deleted.
func (r *Resolver) RemoveAlias(ctx context.Context, tenantID, hostname string) {
	host := NormalizeHostname(hostname)
	hosts := r.readAliasIndex(ctx, tenantID)
	idx := slices.Index(hosts, host)
	if idx < 0 {
		return
	}
	hosts = slices.Delete(hosts, idx, idx+1)
	if len(hosts) == 0 {
		if err := r.cache.Delete(ctx, keyAliasIndex+tenantID); err != nil {
			slog.Debug("alias index delete failed", "tenant_id", tenantID, "error", err)
		}
		return
	}
	r.writeAliasIndex(ctx, tenantID, hosts)
}

// indexAlias appends a hostname to the tenant's alias index, used later
// for invalidation fan-out.
func (r *Resolver) indexAlias(ctx context.Context, tenantID, host string) {
	hosts := r.readAliasIndex(ctx, tenantID)
	if slices.Contains(hosts, host) {
		return
	}
	r.writeAliasIndex(ctx, tenantID, append(hosts, host))
}

func (r *Resolver) readAliasIndex(ctx context.Context, tenantID string) []string {
	val, found := r.cacheGet(ctx, keyAliasIndex+tenantID)
	if !found {
		return nil
	}
	var hosts []string
	if err := json.Unmarshal(val, &hosts); err != nil {
		slog.Warn("alias index corrupt, dropping", "tenant_id", tenantID, "error", err)
		return nil
	}
	return hosts
}

func (r *Resolver) writeAliasIndex(ctx context.Context, tenantID string, hosts []string) {
	data, err := json.Marshal(hosts)
	if err != nil {
		return
	}
	r.cacheSet(ctx, keyAliasIndex+tenantID, data, r.posTTL)
}

// cacheGet treats tier errors as misses.
func (r *Resolver) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	val, found, err := r.cache.Get(ctx, key)
	if err != nil {
		slog.Debug("cache read failed", "key", key, "error", err)
		return nil, false
	}
	return val, found
}

// cacheSet never fails the caller.
func (r *Resolver) cacheSet(ctx context.Context, key string, val []byte, ttl time.Duration) {
	if err := r.cache.Set(ctx, key, val, ttl); err != nil {
		slog.Debug("cache write failed", "key", key, "error", err)
	}
}
