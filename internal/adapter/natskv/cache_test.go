package natskv

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/sitegrove/sitegrove/internal/domain"
	"github.com/sitegrove/sitegrove/internal/domain/tenant"
	"github.com/sitegrove/sitegrove/internal/service"
)

// fakeKV retains entries indefinitely, like a bucket whose TTL is much
// longer than the entries written into it.
type fakeKV struct {
	jetstream.KeyValue
	data map[string][]byte
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string][]byte{}}
}

func (f *fakeKV) Get(_ context.Context, key string) (jetstream.KeyValueEntry, error) {
	val, ok := f.data[key]
	if !ok {
		return nil, jetstream.ErrKeyNotFound
	}
	return fakeEntry{value: val}, nil
}

func (f *fakeKV) Put(_ context.Context, key string, value []byte) (uint64, error) {
	f.data[key] = value
	return 1, nil
}

func (f *fakeKV) Delete(_ context.Context, key string, _ ...jetstream.KVDeleteOpt) error {
	delete(f.data, key)
	return nil
}

type fakeEntry struct {
	jetstream.KeyValueEntry
	value []byte
}

func (e fakeEntry) Value() []byte { return e.value }

func TestSetGetRoundTrip(t *testing.T) {
	kv := newFakeKV()
	c := New(kv)

	if err := c.Set(context.Background(), "tenant:example.com", []byte("t1"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok := kv.data["tenant/example.com"]; !ok {
		t.Fatal("colons in keys must be encoded as slashes")
	}

	val, ok, err := c.Get(context.Background(), "tenant:example.com")
	if err != nil || !ok {
		t.Fatalf("Get = (%v, %v)", ok, err)
	}
	if string(val) != "t1" {
		t.Errorf("value = %q, want t1", val)
	}
}

func TestGetMiss(t *testing.T) {
	c := New(newFakeKV())
	_, ok, err := c.Get(context.Background(), "tenant:nobody")
	if err != nil || ok {
		t.Fatalf("Get = (%v, %v), want miss", ok, err)
	}
}

func TestEntryExpiry(t *testing.T) {
	kv := newFakeKV()
	c := New(kv)
	now := time.Now()
	c.now = func() time.Time { return now }

	if err := c.Set(context.Background(), "invalid:example.com", []byte("1"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if _, ok, _ := c.Get(context.Background(), "invalid:example.com"); !ok {
		t.Fatal("entry should be live before its TTL")
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := c.Get(context.Background(), "invalid:example.com"); ok {
		t.Fatal("entry should expire at its own TTL, not the bucket's")
	}
	if _, present := kv.data["invalid/example.com"]; present {
		t.Error("expired entry should be removed on read")
	}
}

func TestPerEntryTTLsAreIndependent(t *testing.T) {
	c := New(newFakeKV())
	now := time.Now()
	c.now = func() time.Time { return now }

	_ = c.Set(context.Background(), "invalid:example.com", []byte("1"), time.Minute)
	_ = c.Set(context.Background(), "tenant:example.com", []byte("t1"), time.Hour)

	now = now.Add(2 * time.Minute)

	if _, ok, _ := c.Get(context.Background(), "invalid:example.com"); ok {
		t.Error("short-lived entry still present")
	}
	if _, ok, _ := c.Get(context.Background(), "tenant:example.com"); !ok {
		t.Error("long-lived entry gone")
	}
}

func TestNoTTLOutlivesTheClock(t *testing.T) {
	c := New(newFakeKV())
	now := time.Now()
	c.now = func() time.Time { return now }

	_ = c.Set(context.Background(), "tenant:example.com", []byte("t1"), 0)
	now = now.Add(240 * time.Hour)

	if _, ok, _ := c.Get(context.Background(), "tenant:example.com"); !ok {
		t.Error("entry without its own TTL must rely on the bucket ceiling only")
	}
}

type fakeDirectory struct {
	domains map[string]string
	calls   int
}

func (d *fakeDirectory) FindTenantByCustomDomain(_ context.Context, host string) (*tenant.Tenant, error) {
	d.calls++
	if id, ok := d.domains[host]; ok {
		return &tenant.Tenant{ID: id}, nil
	}
	return nil, domain.ErrNotFound
}

func (d *fakeDirectory) FindTenantBySlug(_ context.Context, _ string) (*tenant.Tenant, error) {
	return nil, domain.ErrNotFound
}

// A hostname mapped to a tenant right after a negative lookup must go
// live once the negative TTL passes, even though the bucket retains the
// marker far longer.
func TestNegativeMarkerExpiresInSharedTier(t *testing.T) {
	c := New(newFakeKV())
	now := time.Now()
	c.now = func() time.Time { return now }

	dir := &fakeDirectory{domains: map[string]string{}}
	r := service.NewResolver(c, dir, "", time.Hour, time.Minute)

	if _, err := r.Resolve(context.Background(), "rosascafe.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Resolve = %v, want ErrNotFound", err)
	}

	// The hostname gets mapped; the negative marker still holds for now.
	dir.domains["rosascafe.com"] = "t1"
	if _, err := r.Resolve(context.Background(), "rosascafe.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Resolve inside negative TTL = %v, want ErrNotFound", err)
	}
	if dir.calls != 1 {
		t.Fatalf("directory lookups = %d, want 1", dir.calls)
	}

	now = now.Add(2 * time.Minute)
	id, err := r.Resolve(context.Background(), "rosascafe.com")
	if err != nil || id != "t1" {
		t.Fatalf("Resolve after negative TTL = (%q, %v), want (t1, nil)", id, err)
	}
	if dir.calls != 2 {
		t.Errorf("directory lookups = %d, want 2", dir.calls)
	}
}
