// Package store defines the persistent byte store used by the multiplexer
// caches, addressed by a (domain, key) pair: domain is the logical collection
// name, key identifies one entity within it.
//
// Four implementations are provided:
//
//   - [Nop] — always misses, discards writes. For memory-only caching.
//   - [NewFile] — one file per entity under a directory per domain, with
//     atomic writes. The default.
//   - [NewRedis] — entries in Redis under "prefix:domain:key", via
//     [github.com/redis/go-redis/v9].
//   - [NewSQLite] — a single-file database keyed by (domain, key), via
//     [modernc.org/sqlite] (pure Go, no CGO).
//
// A read failure is treated as a cache miss, never as an error the caller has
// to handle: losing persisted data only costs a refetch.
package store

import (
	"context"

	"github.com/cockroachdb/errors"
)

var (
	// ErrEmptyDomain is returned when an operation is given an empty domain.
	ErrEmptyDomain = errors.New("store: empty domain")
	// ErrEmptyKey is returned when an operation is given an empty key.
	ErrEmptyKey = errors.New("store: empty key")
)

// Store persists opaque byte values addressed by (domain, key).
// Implementations must tolerate concurrent calls for different keys; callers
// issue at most one outstanding operation per (domain, key) pair.
type Store interface {
	// Load returns the bytes stored under (domain, key). The bool reports
	// whether the entry was found; a missing or unreadable entry is a miss.
	Load(ctx context.Context, domain, key string) ([]byte, bool, error)
	// Save stores data under (domain, key), replacing any previous value.
	Save(ctx context.Context, domain, key string, data []byte) error
	// Delete removes the entry under (domain, key). Deleting a missing
	// entry is not an error.
	Delete(ctx context.Context, domain, key string) error
	// DeleteDomain removes every entry in the domain.
	DeleteDomain(ctx context.Context, domain string) error
}

func checkDomain(domain string) error {
	if domain == "" {
		return ErrEmptyDomain
	}
	return nil
}

func checkPair(domain, key string) error {
	if err := checkDomain(domain); err != nil {
		return err
	}
	if key == "" {
		return ErrEmptyKey
	}
	return nil
}
