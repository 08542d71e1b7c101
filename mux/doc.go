// Package mux deduplicates and caches expensive asynchronous fetches: only
// one producer call is in flight at a time per logical key, concurrent
// callers are served from that single call, the result is memoized for a
// configurable TTL, and a previously persisted value can stand in when the
// producer fails with a connectivity error.
//
// # Caches
//
// Two cache shapes are provided, both configured with a plain struct holding
// a TTL, a producer closure and an optional transient-error predicate (see
// [Config] and [MapConfig]):
//
//   - [New] — [Multiplexer], a single-value cache. One entity, fetched by one
//     producer, persisted under the cache's ID.
//
//   - [NewMap] — [MultiplexerMap], a keyed cache. One coordinator per key,
//     created lazily on the first request for that key; the producer receives
//     the key being fetched.
//
// Both expose callback-based Request for composition and a blocking Fetch for
// straight-line code:
//
//	users, err := mux.NewMap(mux.MapConfig[User]{
//	    ID:  "users",
//	    TTL: time.Minute,
//	    Producer: func(ctx context.Context, id string) (User, error) {
//	        return client.FetchUser(ctx, id)
//	    },
//	    Store: store.NewFile(dir),
//	})
//	...
//	u, err := users.Fetch(ctx, "u1")
//
// # Single-flight semantics
//
// A request finding a fresh memoized value completes immediately. Otherwise
// it joins the waiter queue for its key; the first waiter triggers the
// producer, and when that call resolves every queued completion is drained in
// arrival order with the same outcome. At no point are two producer calls for
// the same key outstanding.
//
// On a producer failure the transient predicate (default
// [ConnectivityError]) decides the outcome: a transient failure with a known
// previous value — memoized, or loaded from the persistent store — delivers
// that value to all waiters and leaves the entry stale so the next request
// retries; anything else propagates the error and drops the memoized value.
//
// # Lifecycle
//
// Refresh marks a value suspect without discarding it (soft refresh).
// ClearMemory and Clear discard it, from memory or from memory and store
// both. Flush persists values that changed since the last write. A [Registry]
// applies these in bulk across every cache registered with it.
//
// Clearing memory while a fetch is in flight is resolved deterministically:
// each fetch is tagged with a generation counter, and a resolution from a
// stale generation still answers its waiters but does not repopulate the
// cleared state.
//
// # Joining independent fetches
//
// A [Zipper] runs heterogeneous operations concurrently and delivers all
// their results together, in add order:
//
//	var z mux.Zipper
//	z.Add(mux.FetchLeg(ctx, profile)).Add(mux.FetchKeyLeg(ctx, users, "u1"))
//	results, err := z.Join(ctx)
package mux
