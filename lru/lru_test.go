package lru

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetTouch(t *testing.T) {
	c := New[string, int](3)
	_, ok := c.Touch("a")
	assert.False(t, ok)
	c.Set("a", 1)
	v, ok := c.Touch("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	c.Set("a", 2)
	v, _ = c.Touch("a")
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Len())
}

func TestEvictsOldest(t *testing.T) {
	c := New[string, int](3)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)
	c.Set("d", 4)
	assert.Equal(t, 3, c.Len())
	_, ok := c.Peek("a")
	assert.False(t, ok, "first-inserted key should be evicted")
	for _, k := range []string{"b", "c", "d"} {
		_, ok := c.Peek(k)
		assert.True(t, ok, k)
	}
}

func TestTouchProtectsFromEviction(t *testing.T) {
	c := New[string, int](3)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)
	_, ok := c.Touch("a")
	require.True(t, ok)
	c.Set("d", 4)
	_, ok = c.Peek("a")
	assert.True(t, ok, "touched key survives")
	_, ok = c.Peek("b")
	assert.False(t, ok, "untouched oldest key is evicted instead")
}

func TestPeekDoesNotPromote(t *testing.T) {
	c := New[string, int](2)
	c.Set("a", 1)
	c.Set("b", 2)
	_, ok := c.Peek("a")
	require.True(t, ok)
	c.Set("c", 3)
	_, ok = c.Peek("a")
	assert.False(t, ok, "peek must not protect a from eviction")
}

func TestRemoveClearKeys(t *testing.T) {
	c := New[string, int](4)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)
	c.Touch("a")
	assert.Equal(t, []string{"a", "c", "b"}, c.Keys())
	assert.True(t, c.Remove("c"))
	assert.False(t, c.Remove("c"))
	assert.Equal(t, 2, c.Len())
	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 4, c.Cap())
}

func TestCapacityOne(t *testing.T) {
	c := New[int, string](1)
	c.Set(1, "one")
	c.Set(2, "two")
	assert.Equal(t, 1, c.Len())
	v, ok := c.Touch(2)
	require.True(t, ok)
	assert.Equal(t, "two", v)
}

func TestZeroCapacityPanics(t *testing.T) {
	assert.Panics(t, func() { New[string, int](0) })
}
