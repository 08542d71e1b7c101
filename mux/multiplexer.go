package mux

import "context"

// Multiplexer is a single-value cache: one entity, fetched through one
// Fetcher, persisted under the cache's own ID. Concurrent requests issued
// before the first fetch resolves share that single producer call.
type Multiplexer[T any] struct {
	id       string
	fetcher  *Fetcher[T]
	registry *Registry
}

var _ Cacher = (*Multiplexer[int])(nil)

// New returns a Multiplexer built from cfg. If cfg.Registry is set, the
// instance is registered under cfg.ID (a duplicate ID panics).
func New[T any](cfg Config[T]) (*Multiplexer[T], error) {
	if cfg.Producer == nil {
		return nil, ErrNoProducer
	}
	// The cache's own ID doubles as the entity key within its domain.
	fcfg, err := cfg.fetcherConfig(cfg.ID)
	if err != nil {
		return nil, err
	}
	m := &Multiplexer[T]{
		id:       cfg.ID,
		fetcher:  newFetcher(fcfg),
		registry: cfg.Registry,
	}
	if cfg.Registry != nil {
		cfg.Registry.Register(m)
	}
	return m, nil
}

// ID returns the cache identifier.
func (m *Multiplexer[T]) ID() string {
	return m.id
}

// Request delivers the cached value through complete, fetching it first if it
// is missing or stale. With refresh set, a fetch is forced even if the value
// is fresh. See Fetcher.Request for the queueing semantics.
func (m *Multiplexer[T]) Request(ctx context.Context, refresh bool, complete Completion[T]) {
	m.fetcher.Request(ctx, refresh, complete)
}

// Fetch is the synchronous form of Request: it blocks until the value (or
// error) is available.
func (m *Multiplexer[T]) Fetch(ctx context.Context) (T, error) {
	return await(ctx, func(complete Completion[T]) {
		m.fetcher.Request(ctx, false, complete)
	})
}

// Refresh marks the cached value as suspect; the next Request refetches.
func (m *Multiplexer[T]) Refresh() {
	m.fetcher.Refresh()
}

// ClearMemory drops the in-memory value, keeping any persisted copy.
func (m *Multiplexer[T]) ClearMemory() {
	m.fetcher.ClearMemory()
}

// Clear drops the in-memory value and deletes the persisted copy.
func (m *Multiplexer[T]) Clear(ctx context.Context) {
	m.fetcher.Clear(ctx)
}

// Flush writes the value to the persistent store if it changed since the
// last write.
func (m *Multiplexer[T]) Flush(ctx context.Context) {
	m.fetcher.Flush(ctx)
}

// Unregister removes the cache from the registry it was constructed with.
// Required for non-singleton instances, since the registry holds a strong
// reference.
func (m *Multiplexer[T]) Unregister() {
	if m.registry != nil {
		m.registry.Unregister(m.id)
	}
}

// await adapts a callback-shaped operation into a blocking call.
func await[T any](ctx context.Context, start func(Completion[T])) (T, error) {
	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	start(func(value T, err error) {
		done <- outcome{value, err}
	})
	select {
	case out := <-done:
		return out.value, out.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
