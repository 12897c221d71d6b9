// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist. For hostname
// resolution this is the expected "no such tenant" condition, not a failure.
var ErrNotFound = errors.New("not found")

// ErrIsolation indicates a tenant-isolation violation: a data access was
// attempted without a valid tenant context, or an elevated operation was
// attempted without the elevated flag. Non-retryable; callers must treat
// this as a programming defect, never downgrade it.
var ErrIsolation = errors.New("tenant isolation violation")

// ErrUpstream indicates the authoritative store or a cache tier failed.
var ErrUpstream = errors.New("upstream unavailable")

// ErrConflict indicates the write collided with existing state
// (e.g. a hostname already mapped to another tenant).
var ErrConflict = errors.New("conflict: resource already exists or was modified")
