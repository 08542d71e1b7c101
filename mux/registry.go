package mux

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Cacher is the lifecycle surface every cache instance exposes to a Registry.
type Cacher interface {
	// ID returns the stable identifier the instance registers under.
	ID() string
	// Flush writes unsaved state to the persistent store.
	Flush(ctx context.Context)
	// ClearMemory drops in-memory state, keeping persisted entries.
	ClearMemory()
	// Clear drops in-memory state and persisted entries.
	Clear(ctx context.Context)
}

// Registry is a table of cache instances keyed by their identifiers, used for
// bulk lifecycle operations such as flushing everything on shutdown or
// clearing everything on logout.
//
// The registry holds strong references: a non-singleton instance must be
// unregistered before it is released, or it is retained indefinitely.
// Tests should construct their own Registry rather than share
// DefaultRegistry.
type Registry struct {
	mu     sync.Mutex
	caches map[string]Cacher
}

// DefaultRegistry is the process-wide registry used when a Config names no
// explicit one.
var DefaultRegistry = NewRegistry()

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{caches: make(map[string]Cacher)}
}

// Register adds c under its ID. Registering two instances with the same ID is
// a programming error and panics.
func (r *Registry) Register(c Cacher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := c.ID()
	if _, exists := r.caches[id]; exists {
		panic(fmt.Sprintf("mux: duplicate cache id %q", id))
	}
	r.caches[id] = c
}

// Unregister removes the instance registered under id, if any.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	delete(r.caches, id)
	r.mu.Unlock()
}

// Len returns the number of registered instances.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.caches)
}

func (r *Registry) snapshot() []Cacher {
	r.mu.Lock()
	defer r.mu.Unlock()
	caches := make([]Cacher, 0, len(r.caches))
	for _, c := range r.caches {
		caches = append(caches, c)
	}
	return caches
}

// FlushAll flushes every registered instance concurrently and returns when
// all are done.
func (r *Registry) FlushAll(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range r.snapshot() {
		c := c
		g.Go(func() error {
			c.Flush(gctx)
			return nil
		})
	}
	_ = g.Wait()
}

// ClearMemoryAll drops in-memory state of every registered instance.
func (r *Registry) ClearMemoryAll() {
	for _, c := range r.snapshot() {
		c.ClearMemory()
	}
}

// ClearAll clears every registered instance, memory and persistent store,
// concurrently.
func (r *Registry) ClearAll(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range r.snapshot() {
		c := c
		g.Go(func() error {
			c.Clear(gctx)
			return nil
		})
	}
	_ = g.Wait()
}
