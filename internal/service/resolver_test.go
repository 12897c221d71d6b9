package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sitegrove/sitegrove/internal/domain"
	"github.com/sitegrove/sitegrove/internal/domain/tenant"
)

// memCache is an in-memory cache.Cache recording the TTL of each write.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
	err  error
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, false, m.err
	}
	val, ok := m.data[key]
	return val, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.data, key)
	return nil
}

func (m *memCache) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

// fakeDirectory maps custom domains and slugs to tenants, counting lookups.
type fakeDirectory struct {
	domains map[string]string // hostname -> tenant id
	slugs   map[string]string // slug -> tenant id
	err     error
	calls   int
}

func (d *fakeDirectory) FindTenantByCustomDomain(_ context.Context, host string) (*tenant.Tenant, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	if id, ok := d.domains[host]; ok {
		return &tenant.Tenant{ID: id}, nil
	}
	return nil, domain.ErrNotFound
}

func (d *fakeDirectory) FindTenantBySlug(_ context.Context, slug string) (*tenant.Tenant, error) {
	if d.err != nil {
		return nil, d.err
	}
	if id, ok := d.slugs[slug]; ok {
		return &tenant.Tenant{ID: id}, nil
	}
	return nil, domain.ErrNotFound
}

func TestNormalizeHostname(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Rosas-Cafe.Example.COM", "rosas-cafe.example.com"},
		{"example.com:8443", "example.com"},
		{"  example.com  ", "example.com"},
		{"example.com.", "example.com"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeHostname(tt.in); got != tt.want {
			t.Errorf("NormalizeHostname(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolveCustomDomain(t *testing.T) {
	c := newMemCache()
	dir := &fakeDirectory{domains: map[string]string{"rosascafe.com": "t1"}}
	r := NewResolver(c, dir, "sitegrove.app", time.Hour, time.Minute)

	id, err := r.Resolve(context.Background(), "RosasCafe.com:443")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id != "t1" {
		t.Fatalf("tenant id = %q, want t1", id)
	}

	// Second resolution is served from cache.
	if _, err := r.Resolve(context.Background(), "rosascafe.com"); err != nil {
		t.Fatalf("Resolve (cached): %v", err)
	}
	if dir.calls != 1 {
		t.Errorf("directory lookups = %d, want 1", dir.calls)
	}
}

func TestResolveSlugUnderBaseDomain(t *testing.T) {
	c := newMemCache()
	dir := &fakeDirectory{slugs: map[string]string{"rosas-cafe": "t2"}}
	r := NewResolver(c, dir, "sitegrove.app", time.Hour, time.Minute)

	id, err := r.Resolve(context.Background(), "rosas-cafe.sitegrove.app")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id != "t2" {
		t.Fatalf("tenant id = %q, want t2", id)
	}
}

func TestResolveNegativeCaching(t *testing.T) {
	c := newMemCache()
	dir := &fakeDirectory{}
	r := NewResolver(c, dir, "sitegrove.app", time.Hour, time.Minute)

	for i := 0; i < 2; i++ {
		_, err := r.Resolve(context.Background(), "nobody.example.com")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("Resolve = %v, want ErrNotFound", err)
		}
	}
	// The second miss must come from the negative cache.
	if dir.calls != 1 {
		t.Errorf("directory lookups = %d, want 1", dir.calls)
	}
	if got := c.ttls[keyNegative+"nobody.example.com"]; got != time.Minute {
		t.Errorf("negative TTL = %v, want %v", got, time.Minute)
	}
}

func TestResolveEmptyHostname(t *testing.T) {
	r := NewResolver(newMemCache(), &fakeDirectory{}, "", time.Hour, time.Minute)
	if _, err := r.Resolve(context.Background(), "   "); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Resolve = %v, want ErrNotFound", err)
	}
}

func TestResolveUpstreamFailure(t *testing.T) {
	dir := &fakeDirectory{err: errors.New("connection refused")}
	r := NewResolver(newMemCache(), dir, "", time.Hour, time.Minute)

	_, err := r.Resolve(context.Background(), "example.com")
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("Resolve = %v, want ErrUpstream", err)
	}
	if errors.Is(err, domain.ErrNotFound) {
		t.Error("an upstream failure must not look like a miss")
	}
}

func TestResolveBreakerOpensAfterRepeatedFailures(t *testing.T) {
	dir := &fakeDirectory{err: errors.New("connection refused")}
	r := NewResolver(newMemCache(), dir, "", time.Hour, time.Minute)

	// Distinct hostnames so singleflight does not collapse the calls.
	for i := 0; i < breakerFailures+2; i++ {
		host := fmt.Sprintf("host%d.example.com", i)
		if _, err := r.Resolve(context.Background(), host); !errors.Is(err, domain.ErrUpstream) {
			t.Fatalf("Resolve %s = %v, want ErrUpstream", host, err)
		}
	}
	// Once open, the breaker fails fast without touching the directory.
	if dir.calls != breakerFailures {
		t.Errorf("directory lookups = %d, want %d", dir.calls, breakerFailures)
	}

	// A miss on a healthy directory must not count as a failure.
	dir2 := &fakeDirectory{}
	r2 := NewResolver(newMemCache(), dir2, "", time.Hour, time.Minute)
	for i := 0; i < breakerFailures+2; i++ {
		host := fmt.Sprintf("miss%d.example.com", i)
		if _, err := r2.Resolve(context.Background(), host); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("Resolve %s = %v, want ErrNotFound", host, err)
		}
	}
	if dir2.calls != breakerFailures+2 {
		t.Errorf("directory lookups = %d, want %d", dir2.calls, breakerFailures+2)
	}
}

func TestResolveSurvivesCacheFailure(t *testing.T) {
	c := newMemCache()
	c.err = errors.New("cache down")
	dir := &fakeDirectory{domains: map[string]string{"example.com": "t1"}}
	r := NewResolver(c, dir, "", time.Hour, time.Minute)

	id, err := r.Resolve(context.Background(), "example.com")
	if err != nil || id != "t1" {
		t.Fatalf("Resolve = (%q, %v), want (t1, nil)", id, err)
	}
}

func TestInvalidateAllForTenant(t *testing.T) {
	c := newMemCache()
	dir := &fakeDirectory{
		domains: map[string]string{"rosascafe.com": "t1", "rosas.example.net": "t1"},
	}
	r := NewResolver(c, dir, "sitegrove.app", time.Hour, time.Minute)

	for _, host := range []string{"rosascafe.com", "rosas.example.net"} {
		if _, err := r.Resolve(context.Background(), host); err != nil {
			t.Fatalf("Resolve %s: %v", host, err)
		}
	}

	if err := r.InvalidateAllForTenant(context.Background(), "t1"); err != nil {
		t.Fatalf("InvalidateAllForTenant: %v", err)
	}

	for _, key := range []string{
		keyTenant + "rosascafe.com",
		keyTenant + "rosas.example.net",
		keyAliasIndex + "t1",
	} {
		if c.has(key) {
			t.Errorf("key %q still cached after tenant invalidation", key)
		}
	}

	// Idempotent on an empty index.
	if err := r.InvalidateAllForTenant(context.Background(), "t1"); err != nil {
		t.Errorf("second invalidation: %v", err)
	}
}

func TestInvalidateClearsNegativeEntry(t *testing.T) {
	c := newMemCache()
	dir := &fakeDirectory{}
	r := NewResolver(c, dir, "", time.Hour, time.Minute)

	if _, err := r.Resolve(context.Background(), "new.example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Resolve = %v, want ErrNotFound", err)
	}

	// The hostname is now mapped; invalidation must clear the miss marker.
	dir.domains = map[string]string{"new.example.com": "t9"}
	if err := r.Invalidate(context.Background(), "new.example.com"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}

	id, err := r.Resolve(context.Background(), "new.example.com")
	if err != nil || id != "t9" {
		t.Fatalf("Resolve = (%q, %v), want (t9, nil)", id, err)
	}
}

func TestRemoveAlias(t *testing.T) {
	c := newMemCache()
	dir := &fakeDirectory{
		domains: map[string]string{"a.example.com": "t1", "b.example.com": "t1"},
	}
	r := NewResolver(c, dir, "", time.Hour, time.Minute)

	for _, host := range []string{"a.example.com", "b.example.com"} {
		if _, err := r.Resolve(context.Background(), host); err != nil {
			t.Fatalf("Resolve %s: %v", host, err)
		}
	}

	r.RemoveAlias(context.Background(), "t1", "a.example.com")
	if hosts := r.readAliasIndex(context.Background(), "t1"); len(hosts) != 1 || hosts[0] != "b.example.com" {
		t.Fatalf("alias index = %v, want [b.example.com]", hosts)
	}

	// Removing the last alias drops the index entirely.
	r.RemoveAlias(context.Background(), "t1", "b.example.com")
	if c.has(keyAliasIndex + "t1") {
		t.Error("alias index should be gone after last removal")
	}
}
