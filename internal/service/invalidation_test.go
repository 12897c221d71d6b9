package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sitegrove/sitegrove/internal/port/messagequeue"
)

// fakeBus is an in-memory messagequeue.Bus that records publishes and lets
// tests inject messages into the subscriber.
type fakeBus struct {
	published []struct {
		subject string
		data    []byte
	}
	handler messagequeue.Handler
}

func (b *fakeBus) Publish(_ context.Context, subject string, data []byte) error {
	b.published = append(b.published, struct {
		subject string
		data    []byte
	}{subject, data})
	// Loop back like a real broker: subscribers see their own publishes.
	if b.handler != nil {
		_ = b.handler(subject, data)
	}
	return nil
}

func (b *fakeBus) Subscribe(_ context.Context, _ string, handler messagequeue.Handler) (func(), error) {
	b.handler = handler
	return func() { b.handler = nil }, nil
}

// fakePurger records local cache deletions.
type fakePurger struct {
	deleted []string
}

func (p *fakePurger) DeleteLocal(_ context.Context, key string) error {
	p.deleted = append(p.deleted, key)
	return nil
}

func newTestCoordinator(t *testing.T) (*InvalidationCoordinator, *fakeBus, *fakePurger, *memCache) {
	t.Helper()
	c := newMemCache()
	resolver := NewResolver(c, &fakeDirectory{
		domains: map[string]string{"rosascafe.com": "t1"},
	}, "", time.Hour, time.Minute)
	bus := &fakeBus{}
	purger := &fakePurger{}

	coord := NewInvalidationCoordinator(resolver, bus, nil, purger)
	cancel, err := coord.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(cancel)
	return coord, bus, purger, c
}

func TestOnHostAliasMutated(t *testing.T) {
	coord, bus, purger, c := newTestCoordinator(t)

	if _, err := coord.resolver.Resolve(context.Background(), "rosascafe.com"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	coord.OnHostAliasMutated(context.Background(), "RosasCafe.com", "t1", false)

	if c.has(keyTenant + "rosascafe.com") {
		t.Error("positive entry still cached after alias mutation")
	}
	if len(bus.published) != 1 || bus.published[0].subject != SubjectInvalidateHost {
		t.Fatalf("published = %+v, want one %s event", bus.published, SubjectInvalidateHost)
	}

	var ev InvalidationEvent
	if err := json.Unmarshal(bus.published[0].data, &ev); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if ev.Hostname != "RosasCafe.com" || ev.TenantID != "t1" {
		t.Errorf("event = %+v", ev)
	}
	if ev.EventID == "" || ev.Origin == "" {
		t.Errorf("event missing id or origin: %+v", ev)
	}

	// The loopback delivery carries our own origin and must be skipped.
	if len(purger.deleted) != 0 {
		t.Errorf("own event must not trigger a local purge, got %v", purger.deleted)
	}
}

func TestOnHostAliasRemoved(t *testing.T) {
	coord, _, _, c := newTestCoordinator(t)

	if _, err := coord.resolver.Resolve(context.Background(), "rosascafe.com"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	coord.OnHostAliasMutated(context.Background(), "rosascafe.com", "t1", true)
	if c.has(keyAliasIndex + "t1") {
		t.Error("alias index should be gone after the only alias was removed")
	}
}

func TestOnTenantMutated(t *testing.T) {
	coord, bus, _, c := newTestCoordinator(t)

	if _, err := coord.resolver.Resolve(context.Background(), "rosascafe.com"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	coord.OnTenantMutated(context.Background(), "t1")

	if c.has(keyTenant+"rosascafe.com") || c.has(keyAliasIndex+"t1") {
		t.Error("tenant entries still cached after tenant mutation")
	}
	if len(bus.published) != 1 || bus.published[0].subject != SubjectInvalidateTenant {
		t.Fatalf("published = %+v, want one %s event", bus.published, SubjectInvalidateTenant)
	}
}

func TestRemoteInvalidationPurgesLocalTier(t *testing.T) {
	_, bus, purger, _ := newTestCoordinator(t)

	ev := InvalidationEvent{EventID: "e1", Origin: "another-node", Hostname: "Rosascafe.com:443", TenantID: "t1"}
	data, _ := json.Marshal(ev)
	if err := bus.handler(SubjectInvalidateHost, data); err != nil {
		t.Fatalf("handler: %v", err)
	}

	want := map[string]bool{
		keyTenant + "rosascafe.com":   true,
		keyNegative + "rosascafe.com": true,
	}
	if len(purger.deleted) != len(want) {
		t.Fatalf("deleted = %v, want keys %v", purger.deleted, want)
	}
	for _, key := range purger.deleted {
		if !want[key] {
			t.Errorf("unexpected local purge of %q", key)
		}
	}
}

func TestRemoteTenantInvalidation(t *testing.T) {
	_, bus, purger, _ := newTestCoordinator(t)

	data, _ := json.Marshal(InvalidationEvent{EventID: "e2", Origin: "another-node", TenantID: "t1"})
	if err := bus.handler(SubjectInvalidateTenant, data); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(purger.deleted) != 1 || purger.deleted[0] != keyAliasIndex+"t1" {
		t.Errorf("deleted = %v, want [%s]", purger.deleted, keyAliasIndex+"t1")
	}
}

func TestMalformedRemoteEventIgnored(t *testing.T) {
	_, bus, purger, _ := newTestCoordinator(t)

	if err := bus.handler(SubjectInvalidateHost, []byte("{not json")); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(purger.deleted) != 0 {
		t.Errorf("malformed event must be dropped, purged %v", purger.deleted)
	}
}
