package mux

import (
	"context"
	"sync"
	"time"

	"github.com/crontab/multiplexer/store"
)

// MultiplexerMap is a keyed cache: one Fetcher per key, created lazily on the
// first request for that key and destroyed only by an explicit memory-clear.
// TTL expiry never removes a coordinator, it only makes the next request for
// its key refetch.
//
// All keys persist under the map's ID as the domain, each entry under its own
// key.
type MultiplexerMap[T any] struct {
	id       string
	cfg      MapConfig[T]
	registry *Registry

	mu       sync.Mutex
	fetchers map[string]*Fetcher[T]
}

var _ Cacher = (*MultiplexerMap[int])(nil)

// NewMap returns a MultiplexerMap built from cfg. If cfg.Registry is set, the
// instance is registered under cfg.ID (a duplicate ID panics).
func NewMap[T any](cfg MapConfig[T]) (*MultiplexerMap[T], error) {
	if cfg.ID == "" {
		return nil, ErrNoID
	}
	if cfg.Producer == nil {
		return nil, ErrNoProducer
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Transient == nil {
		cfg.Transient = ConnectivityError
	}
	if cfg.Store == nil {
		cfg.Store = store.Nop()
	}
	if cfg.Codec == nil {
		cfg.Codec = MsgpackCodec[T]()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	m := &MultiplexerMap[T]{
		id:       cfg.ID,
		cfg:      cfg,
		registry: cfg.Registry,
		fetchers: make(map[string]*Fetcher[T]),
	}
	if cfg.Registry != nil {
		cfg.Registry.Register(m)
	}
	return m, nil
}

// ID returns the cache identifier.
func (m *MultiplexerMap[T]) ID() string {
	return m.id
}

func (m *MultiplexerMap[T]) fetcherFor(key string) *Fetcher[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.fetchers[key]; ok {
		return f
	}
	f := newFetcher(fetcherConfig[T]{
		domain: m.id,
		key:    key,
		ttl:    m.cfg.TTL,
		produce: func(ctx context.Context) (T, error) {
			return m.cfg.Producer(ctx, key)
		},
		transient: m.cfg.Transient,
		store:     m.cfg.Store,
		codec:     m.cfg.Codec,
		now:       m.cfg.Clock,
	})
	m.fetchers[key] = f
	return f
}

// Request delivers the value for key through complete, fetching it first if
// missing or stale. Requests for different keys are independent; requests for
// the same key share one in-flight producer call. An empty key fails
// immediately with ErrEmptyKey.
func (m *MultiplexerMap[T]) Request(ctx context.Context, key string, refresh bool, complete Completion[T]) {
	if key == "" {
		var zero T
		complete(zero, ErrEmptyKey)
		return
	}
	m.fetcherFor(key).Request(ctx, refresh, complete)
}

// Fetch is the synchronous form of Request for one key.
func (m *MultiplexerMap[T]) Fetch(ctx context.Context, key string) (T, error) {
	return await(ctx, func(complete Completion[T]) {
		m.Request(ctx, key, false, complete)
	})
}

// Refresh marks key's value as suspect; the next request for it refetches.
// Unknown keys are ignored.
func (m *MultiplexerMap[T]) Refresh(key string) {
	m.mu.Lock()
	f, ok := m.fetchers[key]
	m.mu.Unlock()
	if ok {
		f.Refresh()
	}
}

// ClearMemoryKey drops key's in-memory value and destroys its coordinator.
func (m *MultiplexerMap[T]) ClearMemoryKey(key string) {
	m.mu.Lock()
	f, ok := m.fetchers[key]
	delete(m.fetchers, key)
	m.mu.Unlock()
	if ok {
		f.ClearMemory()
	}
}

// ClearKey drops key's in-memory value, destroys its coordinator and deletes
// the persisted entry.
func (m *MultiplexerMap[T]) ClearKey(ctx context.Context, key string) {
	m.mu.Lock()
	f, ok := m.fetchers[key]
	delete(m.fetchers, key)
	m.mu.Unlock()
	if ok {
		f.Clear(ctx)
		return
	}
	if key == "" {
		return
	}
	// No coordinator, but a persisted entry may still exist.
	if err := m.cfg.Store.Delete(ctx, m.id, key); err != nil {
		log.Errorw("failed to delete persisted entry", "domain", m.id, "key", key, "err", err)
	}
}

// ClearMemory drops every in-memory value and destroys all coordinators.
// Persisted entries survive.
func (m *MultiplexerMap[T]) ClearMemory() {
	for _, f := range m.takeAll() {
		f.ClearMemory()
	}
}

// Clear drops everything: all in-memory values and the entire persisted
// domain.
func (m *MultiplexerMap[T]) Clear(ctx context.Context) {
	for _, f := range m.takeAll() {
		f.ClearMemory()
	}
	if err := m.cfg.Store.DeleteDomain(ctx, m.id); err != nil {
		log.Errorw("failed to delete persisted domain", "domain", m.id, "err", err)
	}
}

// Flush writes every dirty value to the persistent store.
func (m *MultiplexerMap[T]) Flush(ctx context.Context) {
	m.mu.Lock()
	fetchers := make([]*Fetcher[T], 0, len(m.fetchers))
	for _, f := range m.fetchers {
		fetchers = append(fetchers, f)
	}
	m.mu.Unlock()
	for _, f := range fetchers {
		f.Flush(ctx)
	}
}

// Len returns the number of live coordinators.
func (m *MultiplexerMap[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.fetchers)
}

// Unregister removes the cache from the registry it was constructed with.
func (m *MultiplexerMap[T]) Unregister() {
	if m.registry != nil {
		m.registry.Unregister(m.id)
	}
}

func (m *MultiplexerMap[T]) takeAll() []*Fetcher[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	fetchers := make([]*Fetcher[T], 0, len(m.fetchers))
	for _, f := range m.fetchers {
		fetchers = append(fetchers, f)
	}
	m.fetchers = make(map[string]*Fetcher[T])
	return fetchers
}
