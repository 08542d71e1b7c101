package mux

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leg(value any, err error, delay time.Duration) Operation {
	return func(done func(any, error)) {
		time.Sleep(delay)
		done(value, err)
	}
}

func TestZipperPreservesAddOrder(t *testing.T) {
	var z Zipper
	// A is the slowest, C the fastest: completion order is C, B, A.
	z.Add(leg("a", nil, 60*time.Millisecond)).
		Add(leg("b", nil, 30*time.Millisecond)).
		Add(leg("c", nil, 0))

	results, err := z.Join(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].Value)
	assert.Equal(t, "b", results[1].Value)
	assert.Equal(t, "c", results[2].Value)
}

func TestZipperNoShortCircuitOnFailure(t *testing.T) {
	var z Zipper
	z.Add(leg(nil, errBoom, 0)).Add(leg("ok", nil, 20*time.Millisecond))

	results, err := z.Join(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.ErrorIs(t, results[0].Err, errBoom)
	assert.NoError(t, results[1].Err)
	assert.Equal(t, "ok", results[1].Value)
}

func TestZipperEmptyCompletesImmediately(t *testing.T) {
	var z Zipper
	done := make(chan []Result, 1)
	z.Sync(func(results []Result) { done <- results })
	assert.Empty(t, <-done)
}

func TestZipperReusable(t *testing.T) {
	var calls atomic.Int32
	var z Zipper
	z.Add(func(done func(any, error)) {
		done(calls.Add(1), nil)
	})

	for want := int32(1); want <= 3; want++ {
		results, err := z.Join(context.Background())
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, want, results[0].Value)
	}
}

func TestZipperJoinsCacheRequests(t *testing.T) {
	ctx := context.Background()
	profile, err := New(Config[string]{
		ID: "profile",
		Producer: func(ctx context.Context) (string, error) {
			time.Sleep(20 * time.Millisecond)
			return "profile data", nil
		},
	})
	require.NoError(t, err)
	users, err := NewMap(MapConfig[user]{
		ID: "users",
		Producer: func(ctx context.Context, key string) (user, error) {
			return user{ID: key}, nil
		},
	})
	require.NoError(t, err)

	var z Zipper
	z.Add(FetchLeg(ctx, profile)).Add(FetchKeyLeg(ctx, users, "u1"))
	results, err := z.Join(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "profile data", results[0].Value)
	assert.Equal(t, user{ID: "u1"}, results[1].Value)
}
