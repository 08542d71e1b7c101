package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedis(client, "test")
}

func TestRedisRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestRedis(t)

	_, found, err := s.Load(ctx, "users", "u1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Save(ctx, "users", "u1", []byte("payload")))
	data, found, err := s.Load(ctx, "users", "u1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("payload"), data)
}

func TestRedisDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestRedis(t)

	require.NoError(t, s.Save(ctx, "users", "u1", []byte("x")))
	require.NoError(t, s.Delete(ctx, "users", "u1"))
	_, found, err := s.Load(ctx, "users", "u1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisDeleteDomain(t *testing.T) {
	ctx := context.Background()
	s := newTestRedis(t)

	require.NoError(t, s.Save(ctx, "users", "u1", []byte("x")))
	require.NoError(t, s.Save(ctx, "users", "u2", []byte("y")))
	require.NoError(t, s.Save(ctx, "posts", "p1", []byte("z")))

	require.NoError(t, s.DeleteDomain(ctx, "users"))
	_, found, _ := s.Load(ctx, "users", "u1")
	assert.False(t, found)
	_, found, _ = s.Load(ctx, "users", "u2")
	assert.False(t, found)
	_, found, _ = s.Load(ctx, "posts", "p1")
	assert.True(t, found)
}

func TestRedisUnreachableIsAMiss(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	s := NewRedis(client, "")

	require.NoError(t, s.Save(ctx, "d", "k", []byte("v")))
	mr.Close()

	_, found, err := s.Load(ctx, "d", "k")
	require.NoError(t, err, "an unreachable store reads as a miss")
	assert.False(t, found)
}

func TestRedisEmptyDomainOrKey(t *testing.T) {
	ctx := context.Background()
	s := newTestRedis(t)
	_, _, err := s.Load(ctx, "", "k")
	assert.ErrorIs(t, err, ErrEmptyDomain)
	assert.ErrorIs(t, s.Save(ctx, "d", "", nil), ErrEmptyKey)
}
