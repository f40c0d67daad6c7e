package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liquify/liquify-engine/internal/key"
)

func TestInsertGetRemove(t *testing.T) {
	b := New()
	k := key.Pack(10, 1, 1)
	b.Insert(k, 1)

	id, ok := b.Get(k)
	require.True(t, ok)
	assert.Equal(t, uint64(1), id)
	assert.Equal(t, 1, b.Len())

	b.Remove(k)
	_, ok = b.Get(k)
	assert.False(t, ok)
	assert.Equal(t, 0, b.Len())
}

func TestVisitAscending(t *testing.T) {
	b := New()
	b.Insert(key.Pack(100, 1, 1), 1)
	b.Insert(key.Pack(0, 1, 2), 2)
	b.Insert(key.Pack(50, 1, 3), 3)

	var visited []uint64
	b.Visit(func(_ key.Packed, id uint64) bool {
		visited = append(visited, id)
		return true
	})
	assert.Equal(t, []uint64{2, 3, 1}, visited)
}

func TestVisitStopsEarly(t *testing.T) {
	b := New()
	b.Insert(key.Pack(0, 1, 1), 1)
	b.Insert(key.Pack(1, 1, 2), 2)
	b.Insert(key.Pack(2, 1, 3), 3)

	var visited []uint64
	b.Visit(func(_ key.Packed, id uint64) bool {
		visited = append(visited, id)
		return len(visited) < 2
	})
	assert.Equal(t, []uint64{1, 2}, visited)
}

func TestFindKey(t *testing.T) {
	b := New()
	k := key.Pack(5, 2, 9)
	b.Insert(k, 42)

	found, ok := b.FindKey(42)
	require.True(t, ok)
	assert.True(t, found.Equal(k))

	_, ok = b.FindKey(999)
	assert.False(t, ok)
}
