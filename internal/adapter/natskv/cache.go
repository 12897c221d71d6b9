// Package natskv implements the cache port using NATS JetStream KV as the
// shared edge cache tier.
package natskv

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// encodeKey maps cache keys onto the NATS KV key alphabet. Colons separate
// our key namespaces but are not valid in KV keys, so they become slashes:
// "tenant:example.com" -> "tenant/example.com".
func encodeKey(key string) string {
	return strings.ReplaceAll(key, ":", "/")
}

// Cache wraps a NATS JetStream KeyValue store as the shared L2 cache.
//
// A KV bucket has a single TTL shared by every key, but callers write
// entries with very different lifetimes (negative markers live far shorter
// than positive ones). Each entry therefore carries its own expiry and
// Get treats expired entries as misses; the bucket TTL only caps the
// overall lifetime.
type Cache struct {
	kv  jetstream.KeyValue
	now func() time.Time
}

// New creates a NATS KV-backed cache.
func New(kv jetstream.KeyValue) *Cache {
	return &Cache{kv: kv, now: time.Now}
}

// EnsureBucket creates or updates the KV bucket used as the edge cache.
// ttl is the bucket-level ceiling; shorter per-entry lifetimes are
// enforced by Cache on read.
func EnsureBucket(ctx context.Context, js jetstream.JetStream, bucket string, ttl time.Duration) (jetstream.KeyValue, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: bucket,
		TTL:    ttl,
	})
	if err != nil {
		return nil, fmt.Errorf("kv bucket %s: %w", bucket, err)
	}
	return kv, nil
}

// Entry layout: an 8-byte big-endian expiry (unix nanoseconds, zero means
// no per-entry expiry) followed by the payload.
const expiryLen = 8

func encodeEntry(value []byte, expiry time.Time) []byte {
	buf := make([]byte, expiryLen+len(value))
	if !expiry.IsZero() {
		binary.BigEndian.PutUint64(buf, uint64(expiry.UnixNano()))
	}
	copy(buf[expiryLen:], value)
	return buf
}

// decodeEntry unwraps a stored entry. Truncated entries count as expired.
func decodeEntry(raw []byte, now time.Time) (value []byte, expired bool) {
	if len(raw) < expiryLen {
		return nil, true
	}
	if ns := binary.BigEndian.Uint64(raw[:expiryLen]); ns != 0 && now.UnixNano() >= int64(ns) {
		return nil, true
	}
	return raw[expiryLen:], false
}

// Get retrieves a value from the NATS KV store. Entries past their own
// expiry are misses and are lazily removed.
func (c *Cache) Get(ctx context.Context, key string) (data []byte, ok bool, err error) {
	entry, err := c.kv.Get(ctx, encodeKey(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	val, expired := decodeEntry(entry.Value(), c.now())
	if expired {
		_ = c.kv.Delete(ctx, encodeKey(key))
		return nil, false, nil
	}
	return val, true, nil
}

// Set stores a value in the NATS KV store. A positive ttl stamps the entry
// with its own expiry; zero or negative leaves only the bucket ceiling.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiry time.Time
	if ttl > 0 {
		expiry = c.now().Add(ttl)
	}
	_, err := c.kv.Put(ctx, encodeKey(key), encodeEntry(value, expiry))
	return err
}

// Delete removes a value from the NATS KV store.
func (c *Cache) Delete(ctx context.Context, key string) error {
	err := c.kv.Delete(ctx, encodeKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil
	}
	return err
}
