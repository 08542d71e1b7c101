package mux

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crontab/multiplexer/store"
)

func newRegisteredCache(t *testing.T, reg *Registry, id string, st store.Store) *Multiplexer[string] {
	t.Helper()
	m, err := New(Config[string]{
		ID: id,
		Producer: func(ctx context.Context) (string, error) {
			return "value of " + id, nil
		},
		Store:    st,
		Registry: reg,
	})
	require.NoError(t, err)
	return m
}

func TestRegistryDuplicatePanics(t *testing.T) {
	reg := NewRegistry()
	newRegisteredCache(t, reg, "a", nil)
	assert.Panics(t, func() {
		newRegisteredCache(t, reg, "a", nil)
	})
}

func TestRegistryUnregister(t *testing.T) {
	reg := NewRegistry()
	m := newRegisteredCache(t, reg, "a", nil)
	assert.Equal(t, 1, reg.Len())
	m.Unregister()
	assert.Equal(t, 0, reg.Len())
	// The id is free again.
	newRegisteredCache(t, reg, "a", nil)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistryFlushAll(t *testing.T) {
	ctx := context.Background()
	st := store.NewFile(t.TempDir())
	reg := NewRegistry()
	a := newRegisteredCache(t, reg, "a", st)
	b := newRegisteredCache(t, reg, "b", st)

	_, err := a.Fetch(ctx)
	require.NoError(t, err)
	_, err = b.Fetch(ctx)
	require.NoError(t, err)

	reg.FlushAll(ctx)
	for _, id := range []string{"a", "b"} {
		_, found, err := st.Load(ctx, id, id)
		require.NoError(t, err)
		assert.True(t, found, id)
	}
}

func TestRegistryClearAll(t *testing.T) {
	ctx := context.Background()
	st := store.NewFile(t.TempDir())
	reg := NewRegistry()
	a := newRegisteredCache(t, reg, "a", st)

	_, err := a.Fetch(ctx)
	require.NoError(t, err)
	reg.FlushAll(ctx)
	reg.ClearAll(ctx)

	_, ok := a.fetcher.Value()
	assert.False(t, ok)
	_, found, err := st.Load(ctx, "a", "a")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRegistryClearMemoryAllKeepsStore(t *testing.T) {
	ctx := context.Background()
	st := store.NewFile(t.TempDir())
	reg := NewRegistry()
	a := newRegisteredCache(t, reg, "a", st)

	_, err := a.Fetch(ctx)
	require.NoError(t, err)
	reg.FlushAll(ctx)
	reg.ClearMemoryAll()

	_, ok := a.fetcher.Value()
	assert.False(t, ok)
	_, found, err := st.Load(ctx, "a", "a")
	require.NoError(t, err)
	assert.True(t, found, "persisted entries survive a memory clear")
}
