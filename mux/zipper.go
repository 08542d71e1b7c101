package mux

import (
	"context"
	"sync"
)

// Result is one leg's outcome in a Zipper join.
type Result struct {
	Value any
	Err   error
}

// Operation is an asynchronous unit of work: it starts, and eventually calls
// done exactly once with its outcome.
type Operation func(done func(value any, err error))

// Zipper joins independent asynchronous operations into one result. Add
// records operations without starting them; Sync starts them all concurrently
// and delivers every outcome together, in add order, once the last one
// resolves. There is no short-circuit: a failed leg is reported in its slot
// while the others still run to completion.
//
// A Zipper stores its operations rather than consuming them, so the same
// instance can be Synced repeatedly.
type Zipper struct {
	mu  sync.Mutex
	ops []Operation
}

// Add appends an operation to the join. Returns the Zipper for chaining.
func (z *Zipper) Add(op Operation) *Zipper {
	z.mu.Lock()
	z.ops = append(z.ops, op)
	z.mu.Unlock()
	return z
}

// Sync starts every added operation concurrently and calls complete exactly
// once with all outcomes in add order, regardless of the order they resolved
// in. An empty Zipper completes immediately with an empty slice.
func (z *Zipper) Sync(complete func(results []Result)) {
	z.mu.Lock()
	ops := make([]Operation, len(z.ops))
	copy(ops, z.ops)
	z.mu.Unlock()

	results := make([]Result, len(ops))
	if len(ops) == 0 {
		complete(results)
		return
	}

	var wg sync.WaitGroup
	wg.Add(len(ops))
	for i, op := range ops {
		i, op := i, op
		var once sync.Once
		go op(func(value any, err error) {
			once.Do(func() {
				results[i] = Result{Value: value, Err: err}
				wg.Done()
			})
		})
	}
	go func() {
		wg.Wait()
		complete(results)
	}()
}

// Join is the synchronous form of Sync: it blocks until every leg resolves.
func (z *Zipper) Join(ctx context.Context) ([]Result, error) {
	done := make(chan []Result, 1)
	z.Sync(func(results []Result) {
		done <- results
	})
	select {
	case results := <-done:
		return results, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// FetchLeg adapts a Multiplexer request into a Zipper operation.
func FetchLeg[T any](ctx context.Context, m *Multiplexer[T]) Operation {
	return func(done func(any, error)) {
		m.Request(ctx, false, func(value T, err error) {
			if err != nil {
				done(nil, err)
				return
			}
			done(value, nil)
		})
	}
}

// FetchKeyLeg adapts a MultiplexerMap request for one key into a Zipper
// operation.
func FetchKeyLeg[T any](ctx context.Context, m *MultiplexerMap[T], key string) Operation {
	return func(done func(any, error)) {
		m.Request(ctx, key, false, func(value T, err error) {
			if err != nil {
				done(nil, err)
				return
			}
			done(value, nil)
		})
	}
}
