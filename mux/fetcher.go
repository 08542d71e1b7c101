package mux

import (
	"context"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"github.com/crontab/multiplexer/store"
)

var log = logging.Logger("mux")

// DefaultTTL is how long a fetched value is served from memory before a new
// request triggers a refetch.
const DefaultTTL = 30 * time.Minute

// Completion receives the outcome of a request. Exactly one of the two
// outcomes is delivered: a value with a nil error, or a zero value with a
// non-nil error.
type Completion[T any] func(value T, err error)

// Producer fetches a fresh value from the authoritative source, typically
// over the network. It is invoked at most once per triggered fetch.
type Producer[T any] func(ctx context.Context) (T, error)

type fetcherConfig[T any] struct {
	domain    string
	key       string
	ttl       time.Duration
	produce   Producer[T]
	transient func(error) bool
	store     store.Store
	codec     Codec[T]
	now       func() time.Time
}

// Fetcher coordinates fetching, memoization and persistence for a single
// entity. At most one producer call is in flight at any time: requests that
// arrive while a fetch is outstanding are queued and drained in arrival order
// when it resolves.
//
// All state transitions happen under an internal mutex; the producer and any
// store I/O run outside it, so slow fetches never block other keys. A Fetcher
// is created by a Multiplexer or MultiplexerMap, never directly.
type Fetcher[T any] struct {
	cfg fetcherConfig[T]

	mu          sync.Mutex
	value       *T
	completedAt time.Time // zero = never fetched
	pending     []Completion[T]
	refresh     bool
	dirty       bool
	generation  uint64
}

func newFetcher[T any](cfg fetcherConfig[T]) *Fetcher[T] {
	return &Fetcher[T]{cfg: cfg}
}

// freshLocked reports whether the memoized value can be served as-is.
func (f *Fetcher[T]) freshLocked() bool {
	if f.refresh || f.value == nil || f.completedAt.IsZero() {
		return false
	}
	return !f.cfg.now().After(f.completedAt.Add(f.cfg.ttl))
}

// Request delivers the entity value through complete. A fresh memoized value
// is delivered before Request returns; otherwise complete is queued and fires
// when the (single) outstanding producer call resolves. With refresh set, the
// memoized value is bypassed and a fetch is forced unless one is already in
// flight.
//
// ctx is handed to the producer only when this call is the one that starts
// the fetch; queued callers share the initiating call's context.
func (f *Fetcher[T]) Request(ctx context.Context, refresh bool, complete Completion[T]) {
	f.mu.Lock()
	if !refresh && f.freshLocked() {
		value := *f.value
		f.mu.Unlock()
		complete(value, nil)
		return
	}
	f.refresh = false
	f.pending = append(f.pending, complete)
	if len(f.pending) > 1 {
		// A fetch is already in flight; its resolution drains the queue.
		f.mu.Unlock()
		return
	}
	generation := f.generation
	f.mu.Unlock()

	go f.fetch(ctx, generation)
}

func (f *Fetcher[T]) fetch(ctx context.Context, generation uint64) {
	value, err := f.cfg.produce(ctx)
	if err != nil {
		f.resolveFailure(ctx, generation, err)
		return
	}

	f.mu.Lock()
	if f.generation == generation {
		v := value
		f.value = &v
		f.completedAt = f.cfg.now()
		f.dirty = true
	}
	pending := f.takePendingLocked()
	f.mu.Unlock()

	for _, complete := range pending {
		complete(value, nil)
	}
}

// resolveFailure applies the fallback policy: a transient error with a known
// previous value (memoized, or persisted from an earlier run) is absorbed and
// the waiters get that value instead. The completion timestamp is left alone,
// so the entry stays stale and the next request tries again.
func (f *Fetcher[T]) resolveFailure(ctx context.Context, generation uint64, cause error) {
	if f.cfg.transient != nil && f.cfg.transient(cause) {
		f.mu.Lock()
		fallback := f.value
		f.mu.Unlock()
		if fallback == nil {
			if v, ok := f.loadPersisted(ctx); ok {
				fallback = &v
			}
		}
		if fallback != nil {
			log.Debugw("transient fetch failure absorbed by fallback value",
				"domain", f.cfg.domain, "key", f.cfg.key, "err", cause)
			f.mu.Lock()
			if f.generation == generation && f.value == nil {
				// Keep the persisted fallback in memory. Not dirty: it
				// came from the store in the first place.
				f.value = fallback
			}
			pending := f.takePendingLocked()
			f.mu.Unlock()
			for _, complete := range pending {
				complete(*fallback, nil)
			}
			return
		}
	}

	f.mu.Lock()
	if f.generation == generation {
		f.value = nil
		f.completedAt = time.Time{}
		f.dirty = false
	}
	pending := f.takePendingLocked()
	f.mu.Unlock()

	var zero T
	for _, complete := range pending {
		complete(zero, cause)
	}
}

// takePendingLocked snapshots and resets the waiter queue. Draining from a
// snapshot lets a completion immediately issue a new request on the same key
// without corrupting the queue it is being drained from.
func (f *Fetcher[T]) takePendingLocked() []Completion[T] {
	pending := f.pending
	f.pending = nil
	return pending
}

func (f *Fetcher[T]) loadPersisted(ctx context.Context) (T, bool) {
	var zero T
	data, found, err := f.cfg.store.Load(ctx, f.cfg.domain, f.cfg.key)
	if err != nil || !found {
		return zero, false
	}
	value, err := f.cfg.codec.Decode(data)
	if err != nil {
		// Undecodable persisted data is simply not cached.
		log.Debugw("discarding undecodable persisted entry",
			"domain", f.cfg.domain, "key", f.cfg.key, "err", err)
		return zero, false
	}
	return value, true
}

// Refresh marks the memoized value as suspect: the next Request will trigger
// a fetch even if the TTL has not elapsed. It has no effect on a fetch
// already in flight.
func (f *Fetcher[T]) Refresh() {
	f.mu.Lock()
	f.refresh = true
	f.mu.Unlock()
}

// ClearMemory drops the memoized value and timestamp. An in-flight fetch
// still delivers its result to waiters, but the generation bump below stops
// it from repopulating the cleared state.
func (f *Fetcher[T]) ClearMemory() {
	f.mu.Lock()
	f.value = nil
	f.completedAt = time.Time{}
	f.dirty = false
	f.generation++
	f.mu.Unlock()
}

// Clear drops the memoized value and deletes the persisted entry.
func (f *Fetcher[T]) Clear(ctx context.Context) {
	f.ClearMemory()
	if err := f.cfg.store.Delete(ctx, f.cfg.domain, f.cfg.key); err != nil {
		log.Errorw("failed to delete persisted entry",
			"domain", f.cfg.domain, "key", f.cfg.key, "err", err)
	}
}

// Flush writes the memoized value to the persistent store if it has changed
// since the last write. Write failures are logged and swallowed: losing a
// persisted copy only costs a future refetch.
func (f *Fetcher[T]) Flush(ctx context.Context) {
	f.mu.Lock()
	if !f.dirty || f.value == nil {
		f.mu.Unlock()
		return
	}
	value := *f.value
	f.dirty = false
	f.mu.Unlock()

	data, err := f.cfg.codec.Encode(value)
	if err != nil {
		log.Errorw("failed to encode value for persistence",
			"domain", f.cfg.domain, "key", f.cfg.key, "err", err)
		return
	}
	if err := f.cfg.store.Save(ctx, f.cfg.domain, f.cfg.key, data); err != nil {
		log.Errorw("failed to persist entry",
			"domain", f.cfg.domain, "key", f.cfg.key, "err", err)
	}
}

// Value returns the memoized value, if any, regardless of freshness.
func (f *Fetcher[T]) Value() (T, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.value == nil {
		var zero T
		return zero, false
	}
	return *f.value, true
}

// Fetching reports whether a producer call is currently outstanding.
func (f *Fetcher[T]) Fetching() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending) > 0
}
